package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"fundboard/internal/database"
	"fundboard/internal/history"
	"fundboard/internal/models"
	"fundboard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var hundred = decimal.NewFromInt(100)

// Store is the persistence the handlers need; *database.Repo implements it.
type Store interface {
	ListFunds(ctx context.Context) ([]database.Fund, error)
	GetFund(ctx context.Context, id int64) (database.Fund, error)
	GetFundByCode(ctx context.Context, code string) (database.Fund, error)
	CreateFund(ctx context.Context, f *database.Fund) error
	UpdateFund(ctx context.Context, f *database.Fund) error
	DeleteFund(ctx context.Context, id int64) error
	GetLatestDailyData(ctx context.Context, code string) (database.DailyData, error)
	GetDailyData(ctx context.Context, codes []string) ([]database.DailyData, error)
	ListDailyData(ctx context.Context) ([]database.DailyData, error)
	Import(ctx context.Context, funds []database.Fund, daily []database.DailyData) (int, int, error)
}

type Refresher interface {
	Refresh(ctx context.Context, now time.Time) (int, error)
}

type Handler struct {
	repo      Store
	quotes    service.QuoteProvider
	refresher Refresher
	log       *logrus.Logger
	now       func() time.Time
}

func NewHandler(r Store, q service.QuoteProvider, rf Refresher, log *logrus.Logger) *Handler {
	return &Handler{repo: r, quotes: q, refresher: rf, log: log, now: time.Now}
}

type FundRequest struct {
	FundCode string           `json:"fundCode"`
	FundName string           `json:"fundName"`
	Cost     *decimal.Decimal `json:"cost"`
	Shares   *decimal.Decimal `json:"shares"`
	Note     *string          `json:"note"`
}

func (req *FundRequest) validate() error {
	if req.Cost != nil && req.Cost.IsNegative() {
		return errors.New("cost must not be negative")
	}
	if req.Shares != nil && req.Shares.IsNegative() {
		return errors.New("shares must not be negative")
	}
	return nil
}

// FundView is a fund with its latest quote and valuation.
type FundView struct {
	database.Fund
	NAV            float64 `json:"nav"`
	DailyChange    float64 `json:"dailyChange"`
	CurrentValue   string  `json:"currentValue"`
	Profit         string  `json:"profit"`
	ProfitRate     string  `json:"profitRate"`
	LastUpdateDate string  `json:"lastUpdateDate,omitempty"`
}

type valuation struct {
	cost, value, profit decimal.Decimal
}

// value prices f at its latest NAV, or at cost when no quote is stored.
func value(f database.Fund, latest *database.DailyData) valuation {
	v := valuation{cost: f.Cost.Mul(f.Shares)}
	v.value = v.cost
	if latest != nil {
		v.value = latest.NAV.Mul(f.Shares)
	}
	v.profit = v.value.Sub(v.cost)
	return v
}

func rate(profit, cost decimal.Decimal) decimal.Decimal {
	if !cost.IsPositive() {
		return decimal.Zero
	}
	return profit.Div(cost).Mul(hundred)
}

func (h *Handler) latest(ctx context.Context, code string) (*database.DailyData, error) {
	d, err := h.repo.GetLatestDailyData(ctx, code)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (h *Handler) ListFunds(c *gin.Context) {
	ctx := c.Request.Context()
	funds, err := h.repo.ListFunds(ctx)
	if err != nil {
		h.log.Errorf("list funds failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch funds"})
		return
	}
	res := make([]FundView, 0, len(funds))
	for _, f := range funds {
		d, err := h.latest(ctx, f.FundCode)
		if err != nil {
			h.log.Errorf("latest quote of %s failed: %v", f.FundCode, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch funds"})
			return
		}
		v := value(f, d)
		view := FundView{
			Fund:         f,
			CurrentValue: v.value.StringFixed(2),
			Profit:       v.profit.StringFixed(2),
			ProfitRate:   rate(v.profit, v.cost).StringFixed(2),
		}
		if d != nil {
			view.NAV = d.NAV.InexactFloat64()
			view.DailyChange = d.DailyChange.InexactFloat64()
			view.LastUpdateDate = d.Date
		}
		res = append(res, view)
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) CreateFund(c *gin.Context) {
	var req FundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnf("invalid fund body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.FundCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fundCode is required"})
		return
	}
	if err := req.validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.repo.GetFundByCode(ctx, req.FundCode); err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Fund already exists"})
		return
	} else if !errors.Is(err, database.ErrNotFound) {
		h.log.Errorf("lookup fund %s failed: %v", req.FundCode, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add fund"})
		return
	}

	f := database.Fund{FundCode: req.FundCode, FundName: req.FundName, Note: req.Note}
	if req.Cost != nil {
		f.Cost = *req.Cost
	}
	if req.Shares != nil {
		f.Shares = *req.Shares
	}
	if f.FundName == "" {
		f.FundName = h.lookupName(ctx, f.FundCode)
	}

	if err := h.repo.CreateFund(ctx, &f); err != nil {
		if errors.Is(err, database.ErrFundExists) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Fund already exists"})
			return
		}
		h.log.Errorf("create fund failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add fund"})
		return
	}
	c.JSON(http.StatusOK, f)
}

func (h *Handler) lookupName(ctx context.Context, code string) string {
	q, err := h.quotes.GetQuote(ctx, code)
	if err != nil {
		h.log.Warnf("name lookup for %s failed: %v", code, err)
	} else if q.FundName != "" {
		return q.FundName
	}
	return "基金 " + code
}

func (h *Handler) fundID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Fund not found"})
		return 0, false
	}
	return id, true
}

func (h *Handler) UpdateFund(c *gin.Context) {
	id, ok := h.fundID(c)
	if !ok {
		return
	}
	var req FundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnf("invalid fund body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	f, err := h.repo.GetFund(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Fund not found"})
		return
	}
	if err != nil {
		h.log.Errorf("get fund %d failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update fund"})
		return
	}

	if req.FundCode != "" {
		f.FundCode = req.FundCode
	}
	if req.FundName != "" {
		f.FundName = req.FundName
	}
	if req.Cost != nil {
		f.Cost = *req.Cost
	}
	if req.Shares != nil {
		f.Shares = *req.Shares
	}
	if req.Note != nil {
		f.Note = req.Note
	}

	if err := h.repo.UpdateFund(ctx, &f); err != nil {
		if errors.Is(err, database.ErrFundExists) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Fund already exists"})
			return
		}
		h.log.Errorf("update fund %d failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update fund"})
		return
	}
	c.JSON(http.StatusOK, f)
}

func (h *Handler) DeleteFund(c *gin.Context) {
	id, ok := h.fundID(c)
	if !ok {
		return
	}
	if err := h.repo.DeleteFund(c.Request.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Fund not found"})
			return
		}
		h.log.Errorf("delete fund %d failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete fund"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Fund deleted successfully"})
}

func (h *Handler) Refresh(c *gin.Context) {
	n, err := h.refresher.Refresh(c.Request.Context(), h.now())
	if err != nil {
		h.log.Errorf("refresh failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to refresh data"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Data refreshed successfully", "updated": n})
}

func (h *Handler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()
	funds, err := h.repo.ListFunds(ctx)
	if err != nil {
		h.log.Errorf("list funds failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stats"})
		return
	}
	var total valuation
	profitCount, lossCount := 0, 0
	for _, f := range funds {
		d, err := h.latest(ctx, f.FundCode)
		if err != nil {
			h.log.Errorf("latest quote of %s failed: %v", f.FundCode, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stats"})
			return
		}
		v := value(f, d)
		total.cost = total.cost.Add(v.cost)
		total.value = total.value.Add(v.value)
		total.profit = total.profit.Add(v.profit)
		if v.profit.IsNegative() {
			lossCount++
		} else {
			profitCount++
		}
	}
	c.JSON(http.StatusOK, models.StatsResponse{
		TotalCost:       total.cost.StringFixed(2),
		TotalValue:      total.value.StringFixed(2),
		TotalProfit:     total.profit.StringFixed(2),
		TotalProfitRate: rate(total.profit, total.cost).StringFixed(2),
		FundCount:       len(funds),
		ProfitCount:     profitCount,
		LossCount:       lossCount,
	})
}

func (h *Handler) GetHistory(c *gin.Context) {
	fundCode := c.Query("fundCode")
	period := history.ParsePeriod(c.DefaultQuery("period", string(history.All)))

	res, err := service.BuildHistory(c.Request.Context(), h.repo, fundCode, period, h.now())
	if err != nil {
		var verr *history.ValidationError
		if errors.As(err, &verr) {
			h.log.Warnf("history rejected stored data: %v", err)
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		h.log.Errorf("get history failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch history"})
		return
	}
	c.JSON(http.StatusOK, res.Response())
}

func (h *Handler) Export(c *gin.Context) {
	ctx := c.Request.Context()
	funds, err := h.repo.ListFunds(ctx)
	if err != nil {
		h.log.Errorf("export funds failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export data"})
		return
	}
	daily, err := h.repo.ListDailyData(ctx)
	if err != nil {
		h.log.Errorf("export daily data failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export data"})
		return
	}
	c.JSON(http.StatusOK, models.NewSnapshot(funds, daily, h.now()))
}

func (h *Handler) Import(c *gin.Context) {
	var snap models.Snapshot
	if err := c.ShouldBindJSON(&snap); err != nil {
		h.log.Warnf("invalid import body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid data format"})
		return
	}
	if err := snap.Validate(); err != nil {
		h.log.Warnf("rejected import: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid data format", "detail": err.Error()})
		return
	}
	nf, nd, err := h.repo.Import(c.Request.Context(), snap.Funds, snap.DailyData)
	if err != nil {
		h.log.Errorf("import failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to import data"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Import completed", "importedFunds": nf, "importedDailyData": nd})
}
