package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"fundboard/internal/history"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	DefaultQuoteBaseURL = "https://fundgz.1234567.com.cn/js/"
	userAgent           = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
)

var jsonpPayload = regexp.MustCompile(`(?s)jsonpgz\((.+)\)`)

// Quote is the latest published NAV of a fund.
type Quote struct {
	FundCode    string
	FundName    string
	NAV         decimal.Decimal
	DailyChange decimal.Decimal
	Date        string
}

type QuoteProvider interface {
	GetQuote(ctx context.Context, code string) (*Quote, error)
	GetQuotes(ctx context.Context, codes []string) []Quote
}

type QuoteClient struct {
	http    *http.Client
	baseURL string
	pause   time.Duration
	log     *logrus.Logger
	now     func() time.Time
}

func NewQuoteClient(baseURL string, timeout, pause time.Duration, log *logrus.Logger) *QuoteClient {
	if baseURL == "" {
		baseURL = DefaultQuoteBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &QuoteClient{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
		pause:   pause,
		log:     log,
		now:     time.Now,
	}
}

type gzPayload struct {
	FundCode string `json:"fundcode"`
	Name     string `json:"name"`
	NAV      string `json:"dwjz"`
	Change   string `json:"gszzl"`
	Time     string `json:"gztime"`
}

func (c *QuoteClient) GetQuote(ctx context.Context, code string) (*Quote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+code+".js", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch quote %s: %w", code, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch quote %s: unexpected status %s", code, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read quote %s: %w", code, err)
	}
	return c.parse(code, body)
}

func (c *QuoteClient) parse(code string, body []byte) (*Quote, error) {
	m := jsonpPayload.FindSubmatch(body)
	if m == nil {
		return nil, fmt.Errorf("quote %s: no jsonpgz payload", code)
	}
	var p gzPayload
	if err := json.Unmarshal(m[1], &p); err != nil {
		return nil, fmt.Errorf("quote %s: %w", code, err)
	}

	q := &Quote{FundCode: p.FundCode, FundName: p.Name}
	if q.FundCode == "" {
		q.FundCode = code
	}
	var err error
	if q.NAV, err = parseNumber(q.FundCode, "nav", p.NAV); err != nil {
		return nil, err
	}
	if q.DailyChange, err = parseNumber(q.FundCode, "dailyChange", p.Change); err != nil {
		return nil, err
	}
	if day, _, _ := strings.Cut(p.Time, " "); day != "" {
		q.Date = day
	} else {
		q.Date = c.now().Format(history.DateFormat)
	}
	return q, nil
}

// parseNumber reads a quote field. Unparseable text counts as zero,
// non-finite values are rejected.
func parseNumber(code, field, s string) (decimal.Decimal, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return decimal.Zero, nil
	}
	return history.DecimalFromFloat(code, field, v)
}

// GetQuotes fetches codes one at a time, pausing between requests. Funds
// whose quote cannot be fetched are left out.
func (c *QuoteClient) GetQuotes(ctx context.Context, codes []string) []Quote {
	res := []Quote{}
	for i, code := range codes {
		if i > 0 && c.pause > 0 {
			select {
			case <-ctx.Done():
				return res
			case <-time.After(c.pause):
			}
		}
		q, err := c.GetQuote(ctx, code)
		if err != nil {
			c.log.Warnf("failed to fetch fund %s: %v", code, err)
			continue
		}
		res = append(res, *q)
	}
	return res
}
