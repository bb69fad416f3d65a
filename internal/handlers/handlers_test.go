package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fundboard/internal/database"
	"fundboard/internal/history"
	"fundboard/internal/models"
	"fundboard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) ListFunds(ctx context.Context) ([]database.Fund, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]database.Fund), args.Error(1)
}

func (m *MockStore) GetFund(ctx context.Context, id int64) (database.Fund, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(database.Fund), args.Error(1)
}

func (m *MockStore) GetFundByCode(ctx context.Context, code string) (database.Fund, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(database.Fund), args.Error(1)
}

func (m *MockStore) CreateFund(ctx context.Context, f *database.Fund) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

func (m *MockStore) UpdateFund(ctx context.Context, f *database.Fund) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

func (m *MockStore) DeleteFund(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStore) GetLatestDailyData(ctx context.Context, code string) (database.DailyData, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(database.DailyData), args.Error(1)
}

func (m *MockStore) GetDailyData(ctx context.Context, codes []string) ([]database.DailyData, error) {
	args := m.Called(ctx, codes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]database.DailyData), args.Error(1)
}

func (m *MockStore) ListDailyData(ctx context.Context) ([]database.DailyData, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]database.DailyData), args.Error(1)
}

func (m *MockStore) Import(ctx context.Context, funds []database.Fund, daily []database.DailyData) (int, int, error) {
	args := m.Called(ctx, funds, daily)
	return args.Int(0), args.Int(1), args.Error(2)
}

type MockQuotes struct {
	mock.Mock
}

func (m *MockQuotes) GetQuote(ctx context.Context, code string) (*service.Quote, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Quote), args.Error(1)
}

func (m *MockQuotes) GetQuotes(ctx context.Context, codes []string) []service.Quote {
	args := m.Called(ctx, codes)
	return args.Get(0).([]service.Quote)
}

type MockRefresher struct {
	mock.Mock
}

func (m *MockRefresher) Refresh(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

var testNow = time.Date(2024, time.January, 31, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store     *MockStore
	quotes    *MockQuotes
	refresher *MockRefresher
	router    *gin.Engine
}

func newFixture() *fixture {
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetOutput(io.Discard)

	f := &fixture{store: new(MockStore), quotes: new(MockQuotes), refresher: new(MockRefresher)}
	h := NewHandler(f.store, f.quotes, f.refresher, log)
	h.now = func() time.Time { return testNow }
	f.router = SetupRoutes(h, log)
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func fund(id int64, code, cost, shares string) database.Fund {
	return database.Fund{ID: id, FundCode: code, FundName: "Fund " + code, Cost: decimal.RequireFromString(cost), Shares: decimal.RequireFromString(shares)}
}

func daily(code, date, nav string) database.DailyData {
	return database.DailyData{FundCode: code, Date: date, NAV: decimal.RequireFromString(nav)}
}

func TestHealth(t *testing.T) {
	f := newFixture()
	w := f.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestGetHistory_DrawdownScenario(t *testing.T) {
	f := newFixture()
	f.store.On("ListFunds", mock.Anything).Return([]database.Fund{fund(1, "A", "1.0", "100"), fund(2, "B", "2", "10")}, nil)
	f.store.On("GetDailyData", mock.Anything, []string{"A"}).Return([]database.DailyData{
		daily("A", "2024-01-01", "1.0"),
		daily("A", "2024-01-02", "1.5"),
		daily("A", "2024-01-03", "1.0"),
		daily("A", "2024-01-04", "1.3"),
	}, nil)

	w := f.do(http.MethodGet, "/api/history?fundCode=A&period=all", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body history.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 4)
	assert.Equal(t, "150.00", body.Data[1].TotalValue)
	assert.Equal(t, "100.00", body.Data[1].TotalCost)
	assert.Equal(t, "50.00", body.Data[1].Profit)
	assert.Equal(t, 1.5, body.Data[1].NAV)
	assert.Equal(t, history.StatsResponse{
		MaxDrawdown:      "33.33",
		MaxDrawdownStart: "2024-01-02",
		MaxDrawdownEnd:   "2024-01-03",
		PeriodReturn:     "30.00",
		DataPoints:       4,
	}, body.Stats)
	f.store.AssertExpectations(t)
}

func TestGetHistory_PeriodWindow(t *testing.T) {
	f := newFixture()
	f.store.On("ListFunds", mock.Anything).Return([]database.Fund{fund(1, "A", "1", "1")}, nil)
	f.store.On("GetDailyData", mock.Anything, []string{"A"}).Return([]database.DailyData{
		daily("A", "2023-12-30", "1"),
		daily("A", "2023-12-31", "2"),
		daily("A", "2024-01-31", "3"),
	}, nil)

	// Jan 31 minus one month is Dec 31.
	w := f.do(http.MethodGet, "/history?period=1m", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body history.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	assert.Equal(t, "2023-12-31", body.Data[0].Date)
	assert.Equal(t, "50.00", body.Stats.PeriodReturn)
}

func TestGetHistory_Empty(t *testing.T) {
	f := newFixture()
	f.store.On("ListFunds", mock.Anything).Return([]database.Fund{}, nil)
	f.store.On("GetDailyData", mock.Anything, []string{}).Return([]database.DailyData{}, nil)

	w := f.do(http.MethodGet, "/api/history?period=weird", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[],"stats":{"maxDrawdown":"0.00","maxDrawdownStart":"","maxDrawdownEnd":"","periodReturn":"0.00","dataPoints":0}}`, w.Body.String())
}

func TestGetHistory_StoreFailure(t *testing.T) {
	f := newFixture()
	f.store.On("ListFunds", mock.Anything).Return(nil, errors.New("connection refused"))

	w := f.do(http.MethodGet, "/api/history", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to fetch history"}`, w.Body.String())
}

func TestGetHistory_InvalidStoredHolding(t *testing.T) {
	f := newFixture()
	f.store.On("ListFunds", mock.Anything).Return([]database.Fund{fund(1, "A", "1", "-5")}, nil)
	f.store.On("GetDailyData", mock.Anything, []string{"A"}).Return([]database.DailyData{}, nil)

	w := f.do(http.MethodGet, "/api/history", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestListFunds(t *testing.T) {
	f := newFixture()
	f.store.On("ListFunds", mock.Anything).Return([]database.Fund{fund(1, "A", "1.0", "100"), fund(2, "B", "2.0", "50")}, nil)
	latest := daily("A", "2024-01-30", "1.25")
	latest.DailyChange = decimal.RequireFromString("-0.4")
	f.store.On("GetLatestDailyData", mock.Anything, "A").Return(latest, nil)
	f.store.On("GetLatestDailyData", mock.Anything, "B").Return(database.DailyData{}, fmt.Errorf("%w: no rows", database.ErrNotFound))

	w := f.do(http.MethodGet, "/api/funds", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body, 2)
	assert.Equal(t, "A", body[0]["fundCode"])
	assert.Equal(t, 1.25, body[0]["nav"])
	assert.Equal(t, -0.4, body[0]["dailyChange"])
	assert.Equal(t, "125.00", body[0]["currentValue"])
	assert.Equal(t, "25.00", body[0]["profit"])
	assert.Equal(t, "25.00", body[0]["profitRate"])
	assert.Equal(t, "2024-01-30", body[0]["lastUpdateDate"])

	assert.Equal(t, "100.00", body[1]["currentValue"])
	assert.Equal(t, "0.00", body[1]["profit"])
	_, hasDate := body[1]["lastUpdateDate"]
	assert.False(t, hasDate)
}

func TestGetStats(t *testing.T) {
	f := newFixture()
	f.store.On("ListFunds", mock.Anything).Return([]database.Fund{fund(1, "A", "1", "100"), fund(2, "B", "2", "50")}, nil)
	f.store.On("GetLatestDailyData", mock.Anything, "A").Return(daily("A", "2024-01-30", "1.5"), nil)
	f.store.On("GetLatestDailyData", mock.Anything, "B").Return(daily("B", "2024-01-30", "1.6"), nil)

	w := f.do(http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body models.StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, models.StatsResponse{
		TotalCost:       "200.00",
		TotalValue:      "230.00",
		TotalProfit:     "30.00",
		TotalProfitRate: "15.00",
		FundCount:       2,
		ProfitCount:     1,
		LossCount:       1,
	}, body)
}

func TestCreateFund(t *testing.T) {
	f := newFixture()
	f.store.On("GetFundByCode", mock.Anything, "110022").Return(database.Fund{}, database.ErrNotFound)
	f.quotes.On("GetQuote", mock.Anything, "110022").Return(&service.Quote{FundCode: "110022", FundName: "Consumer"}, nil)
	f.store.On("CreateFund", mock.Anything, mock.MatchedBy(func(fd *database.Fund) bool {
		return fd.FundCode == "110022" && fd.FundName == "Consumer" && fd.Shares.Equal(decimal.NewFromInt(200))
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*database.Fund).ID = 7
	}).Return(nil)

	w := f.do(http.MethodPost, "/api/funds", `{"fundCode":"110022","cost":1.5,"shares":"200"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body database.Fund
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.EqualValues(t, 7, body.ID)
	assert.True(t, body.Cost.Equal(decimal.RequireFromString("1.5")))
	f.store.AssertExpectations(t)
}

func TestCreateFund_FallbackName(t *testing.T) {
	f := newFixture()
	f.store.On("GetFundByCode", mock.Anything, "000001").Return(database.Fund{}, database.ErrNotFound)
	f.quotes.On("GetQuote", mock.Anything, "000001").Return(nil, errors.New("timeout"))
	f.store.On("CreateFund", mock.Anything, mock.MatchedBy(func(fd *database.Fund) bool {
		return fd.FundName == "基金 000001"
	})).Return(nil)

	w := f.do(http.MethodPost, "/api/funds", `{"fundCode":"000001","cost":1,"shares":1}`)
	assert.Equal(t, http.StatusOK, w.Code)
	f.store.AssertExpectations(t)
}

func TestCreateFund_Rejects(t *testing.T) {
	f := newFixture()
	f.store.On("GetFundByCode", mock.Anything, "DUP").Return(fund(1, "DUP", "1", "1"), nil)

	w := f.do(http.MethodPost, "/api/funds", `{"fundCode":"DUP","fundName":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Fund already exists"}`, w.Body.String())

	w = f.do(http.MethodPost, "/api/funds", `{"fundName":"no code"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/api/funds", `{"fundCode":"NEG","shares":-1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.store.AssertNotCalled(t, "CreateFund", mock.Anything, mock.Anything)
}

func TestUpdateFund(t *testing.T) {
	f := newFixture()
	f.store.On("GetFund", mock.Anything, int64(3)).Return(fund(3, "A", "1", "100"), nil)
	f.store.On("UpdateFund", mock.Anything, mock.MatchedBy(func(fd *database.Fund) bool {
		return fd.FundCode == "A" && fd.Shares.Equal(decimal.NewFromInt(250)) && fd.Cost.Equal(decimal.NewFromInt(1))
	})).Return(nil)

	w := f.do(http.MethodPut, "/api/funds/3", `{"shares":250}`)
	assert.Equal(t, http.StatusOK, w.Code)
	f.store.AssertExpectations(t)
}

func TestUpdateFund_NotFound(t *testing.T) {
	f := newFixture()
	f.store.On("GetFund", mock.Anything, int64(9)).Return(database.Fund{}, database.ErrNotFound)

	w := f.do(http.MethodPut, "/api/funds/9", `{"shares":1}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodPut, "/api/funds/abc", `{"shares":1}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteFund(t *testing.T) {
	f := newFixture()
	f.store.On("DeleteFund", mock.Anything, int64(1)).Return(nil)
	f.store.On("DeleteFund", mock.Anything, int64(2)).Return(database.ErrNotFound)

	w := f.do(http.MethodDelete, "/api/funds/1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Fund deleted successfully"}`, w.Body.String())

	w = f.do(http.MethodDelete, "/api/funds/2", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRefresh(t *testing.T) {
	f := newFixture()
	f.refresher.On("Refresh", mock.Anything, testNow).Return(3, nil)

	w := f.do(http.MethodPost, "/api/funds/refresh", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Data refreshed successfully","updated":3}`, w.Body.String())
}

func TestExport(t *testing.T) {
	f := newFixture()
	f.store.On("ListFunds", mock.Anything).Return([]database.Fund{fund(1, "A", "1", "1")}, nil)
	f.store.On("ListDailyData", mock.Anything).Return([]database.DailyData{daily("A", "2024-01-02", "1.1")}, nil)

	w := f.do(http.MethodGet, "/api/export", "")
	require.Equal(t, http.StatusOK, w.Code)

	var snap models.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, "1.0", snap.Version)
	assert.Equal(t, "2024-01-31T12:00:00Z", snap.ExportDate)
	require.Len(t, snap.DailyData, 1)
	assert.Equal(t, "2024-01-02", snap.DailyData[0].Date)
}

func TestImport(t *testing.T) {
	f := newFixture()
	f.store.On("Import", mock.Anything, mock.MatchedBy(func(fs []database.Fund) bool {
		return len(fs) == 1 && fs[0].FundCode == "A"
	}), mock.MatchedBy(func(ds []database.DailyData) bool {
		return len(ds) == 1 && ds[0].NAV.Equal(decimal.RequireFromString("1.2345"))
	})).Return(1, 1, nil)

	w := f.do(http.MethodPost, "/api/import", `{"funds":[{"fundCode":"A","fundName":"x","cost":1,"shares":2}],"dailyData":[{"fundCode":"A","nav":1.2345,"dailyChange":0.1,"date":"2024-01-02"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Import completed","importedFunds":1,"importedDailyData":1}`, w.Body.String())

	w = f.do(http.MethodPost, "/api/import", `{"dailyData":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid data format","detail":"funds are missing"}`, w.Body.String())

	w = f.do(http.MethodPost, "/api/import", `{"funds":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImport_RejectsInvalidRows(t *testing.T) {
	cases := map[string]string{
		"negative holding": `{"funds":[{"fundCode":"A","cost":"-1","shares":"-100"}],"dailyData":[]}`,
		"missing code":     `{"funds":[{"fundName":"x","cost":1,"shares":1}]}`,
		"negative nav":     `{"funds":[{"fundCode":"A","cost":1,"shares":1}],"dailyData":[{"fundCode":"A","nav":"-2","date":"2024-01-02"}]}`,
		"bad date":         `{"funds":[{"fundCode":"A","cost":1,"shares":1}],"dailyData":[{"fundCode":"A","nav":1,"date":"not-a-date"}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			w := f.do(http.MethodPost, "/api/import", body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var res map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
			assert.Equal(t, "Invalid data format", res["error"])
			assert.NotEmpty(t, res["detail"])
			f.store.AssertNotCalled(t, "Import", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}
