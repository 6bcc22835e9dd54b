package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lendledger/domain/entities"
	"lendledger/domain/testhelpers"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testWallet = "0x1111111111111111111111111111111111111111"

type recordingObserver struct {
	routes   []string
	statuses []int
}

func (o *recordingObserver) ObserveRequest(route string, status int) {
	o.routes = append(o.routes, route)
	o.statuses = append(o.statuses, status)
}

func usdc(v int64) entities.Amount {
	return entities.NewAmountFromInt64(v, 6)
}

func usdcReport() entities.TokenReport {
	borrow := entities.TransactionEvent{
		Day:        20240101,
		Timestamp:  1704103200,
		Side:       entities.SideDebt,
		Direction:  entities.DirectionIncrease,
		Amount:     usdc(1000000000),
		SourceType: entities.SourceTypeBorrow,
		TxHash:     "0xb1",
	}
	rate := decimal.RequireFromString("0.000136986301369863013698630")
	debt := entities.AccrualResult{
		Side:           entities.SideDebt,
		TotalInterest:  usdc(136986),
		CurrentBalance: usdc(1000136986),
		Ledger: []entities.LedgerRow{
			{
				Day: 20240101, OpeningBalance: usdc(0), DailyRate: rate, DailyInterest: usdc(0),
				CumulativeInterest: usdc(0), ClosingBalance: usdc(1000000000),
				AppliedTransactions: []entities.TransactionEvent{borrow},
			},
			{
				Day: 20240102, OpeningBalance: usdc(1000000000), DailyRate: rate, DailyInterest: usdc(136986),
				CumulativeInterest: usdc(136986), ClosingBalance: usdc(1000136986),
			},
		},
	}
	summary := entities.TokenSummary{
		Symbol:   "USDC",
		Decimals: 6,
		Debt: entities.SideSummary{
			Side: entities.SideDebt, TotalIncreases: usdc(1000000000), TotalDecreases: usdc(0),
			CurrentBalance: usdc(1000136986), TotalInterest: usdc(136986), Days: 2, FirstDay: 20240101,
		},
		Supply: entities.SideSummary{
			Side: entities.SideSupply, TotalIncreases: usdc(0), TotalDecreases: usdc(0),
			CurrentBalance: usdc(0), TotalInterest: usdc(0),
		},
		NetInterest: usdc(136986),
		NetPosition: usdc(-1000136986),
	}
	return entities.TokenReport{
		Symbol:   "USDC",
		Decimals: 6,
		Summary:  &summary,
		Debt:     debt,
		Supply:   entities.AccrualResult{Side: entities.SideSupply, TotalInterest: usdc(0), CurrentBalance: usdc(0)},
		Issues: []entities.Issue{
			{Kind: entities.IssueInvalidAmount, Side: entities.SideSupply, Day: 20240101, Message: "bad amount"},
		},
	}
}

func newTestRouter(positions *testhelpers.MockPositionService, observer *recordingObserver) http.Handler {
	if observer == nil {
		observer = &recordingObserver{}
	}
	return NewRouter(Config{
		Positions:      positions,
		Observer:       observer,
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("# metrics")) }),
		RequestTimeout: time.Second,
		Now:            func() time.Time { return time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC) },
	})
}

func doGet(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	if rec.Header().Get("Content-Type") == "application/json" {
		_ = json.Unmarshal(rec.Body.Bytes(), &body)
	}
	return rec, body
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	observer := &recordingObserver{}
	router := newTestRouter(&testhelpers.MockPositionService{}, observer)

	rec, _ := doGet(t, router, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec, _ = doGet(t, router, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# metrics", rec.Body.String())

	assert.Equal(t, []string{"/healthz", "/metrics"}, observer.routes)
}

func TestGetPosition(t *testing.T) {
	positions := &testhelpers.MockPositionService{}
	report := &entities.PositionReport{
		Address: testWallet,
		Today:   20240102,
		Tokens: []entities.TokenReport{
			usdcReport(),
			{Symbol: "WXDAI", Decimals: 18, Error: "failed to fetch WXDAI rates: timeout"},
		},
		Issues: []entities.Issue{
			{Kind: entities.IssueUnrecognizedReserve, Side: entities.SideDebt, Day: 20240101, TxHash: "0xd1", Message: "borrow d1: unrecognized reserve: 0xdead"},
		},
	}
	positions.On("GetPosition", mock.Anything, testWallet, []string{"USDC", "wxdai"}, entities.Day(20240102)).Return(report, nil)

	observer := &recordingObserver{}
	rec, body := doGet(t, newTestRouter(positions, observer), "/v1/positions/"+testWallet+"?tokens=USDC,%20wxdai,&today=20240102")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, testWallet, body["address"])
	assert.Equal(t, "2024-01-02", body["today"])
	tokens := body["tokens"].([]any)
	require.Len(t, tokens, 2)

	usdcBody := tokens[0].(map[string]any)
	debt := usdcBody["debt"].(map[string]any)
	assert.Equal(t, map[string]any{"raw": "1000136986", "display": "1000.136986"}, debt["currentBalance"])
	assert.Equal(t, map[string]any{"raw": "136986", "display": "0.136986"}, debt["totalInterest"])
	assert.Equal(t, "2024-01-01", debt["firstDay"])
	assert.Equal(t, map[string]any{"raw": "-1000136986", "display": "-1000.136986"}, usdcBody["netPosition"])
	assert.Len(t, usdcBody["issues"], 1)

	wxdaiBody := tokens[1].(map[string]any)
	assert.Equal(t, "failed to fetch WXDAI rates: timeout", wxdaiBody["error"])
	assert.NotContains(t, wxdaiBody, "debt")

	issues := body["issues"].([]any)
	require.Len(t, issues, 1)
	assert.Equal(t, "unrecognized_reserve", issues[0].(map[string]any)["kind"])
	assert.Equal(t, "0xd1", issues[0].(map[string]any)["txHash"])

	assert.Equal(t, []int{http.StatusOK}, observer.statuses)
	positions.AssertExpectations(t)
}

func TestGetPosition_DefaultsToday(t *testing.T) {
	positions := &testhelpers.MockPositionService{}
	positions.On("GetPosition", mock.Anything, testWallet, []string(nil), entities.Day(20240102)).
		Return(&entities.PositionReport{Address: testWallet, Today: 20240102}, nil)

	rec, body := doGet(t, newTestRouter(positions, &recordingObserver{}), "/v1/positions/"+testWallet)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, body["tokens"])
	assert.Equal(t, []any{}, body["issues"])
	positions.AssertExpectations(t)
}

func TestGetPosition_Errors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		serviceErr error
		expected   int
	}{
		{name: "invalid today", path: "/v1/positions/" + testWallet + "?today=2024-01-02", expected: http.StatusBadRequest},
		{name: "impossible date", path: "/v1/positions/" + testWallet + "?today=20240231", expected: http.StatusBadRequest},
		{name: "invalid address", path: "/v1/positions/0x12", serviceErr: fmt.Errorf("%w: %q", entities.ErrInvalidAddress, "0x12"), expected: http.StatusBadRequest},
		{name: "unknown token", path: "/v1/positions/" + testWallet + "?tokens=DOGE", serviceErr: fmt.Errorf("%w: DOGE", entities.ErrUnknownToken), expected: http.StatusNotFound},
		{name: "upstream failure", path: "/v1/positions/" + testWallet, serviceErr: errors.New("failed to fetch transactions: boom"), expected: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			positions := &testhelpers.MockPositionService{}
			if tt.serviceErr != nil {
				positions.On("GetPosition", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.serviceErr)
			}

			rec, body := doGet(t, newTestRouter(positions, &recordingObserver{}), tt.path)
			assert.Equal(t, tt.expected, rec.Code)
			assert.NotEmpty(t, body["error"])
			if tt.expected == http.StatusInternalServerError {
				assert.Equal(t, "internal error", body["error"])
			}
		})
	}
}

func TestGetLedger(t *testing.T) {
	report := usdcReport()
	positions := &testhelpers.MockPositionService{}
	positions.On("GetTokenLedger", mock.Anything, testWallet, "usdc", entities.Day(20240102)).Return(&report, nil)

	observer := &recordingObserver{}
	router := newTestRouter(positions, observer)

	rec, body := doGet(t, router, "/v1/positions/"+testWallet+"/ledger/usdc/DEBT?today=20240102")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "USDC", body["token"])
	assert.Equal(t, "debt", body["side"])
	rows := body["rows"].([]any)
	require.Len(t, rows, 2)

	first := rows[0].(map[string]any)
	assert.Equal(t, "2024-01-01", first["day"])
	assert.Equal(t, "0.00013698630136986301369863", first["dailyRate"])
	txs := first["transactions"].([]any)
	require.Len(t, txs, 1)
	assert.Equal(t, "borrow", txs[0].(map[string]any)["sourceType"])

	second := rows[1].(map[string]any)
	assert.Equal(t, map[string]any{"raw": "136986", "display": "0.136986"}, second["dailyInterest"])
	assert.Empty(t, body["issues"], "supply issues are not shown on the debt ledger")
	assert.Equal(t, []string{"/v1/positions/{address}/ledger/{token}/{side}"}, observer.routes)

	rec, body = doGet(t, router, "/v1/positions/"+testWallet+"/ledger/usdc/supply?today=20240102")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, body["rows"])
	assert.Len(t, body["issues"], 1)
}

func TestGetLedger_Errors(t *testing.T) {
	t.Run("unknown side", func(t *testing.T) {
		rec, _ := doGet(t, newTestRouter(&testhelpers.MockPositionService{}, nil), "/v1/positions/"+testWallet+"/ledger/usdc/borrow")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown token", func(t *testing.T) {
		positions := &testhelpers.MockPositionService{}
		positions.On("GetTokenLedger", mock.Anything, testWallet, "DOGE", mock.Anything).
			Return(nil, fmt.Errorf("%w: DOGE", entities.ErrUnknownToken))

		rec, _ := doGet(t, newTestRouter(positions, nil), "/v1/positions/"+testWallet+"/ledger/DOGE/debt")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("token failure", func(t *testing.T) {
		positions := &testhelpers.MockPositionService{}
		positions.On("GetTokenLedger", mock.Anything, testWallet, "USDC", mock.Anything).
			Return(&entities.TokenReport{Symbol: "USDC", Decimals: 6, Error: "no rate data"}, nil)

		rec, body := doGet(t, newTestRouter(positions, nil), "/v1/positions/"+testWallet+"/ledger/USDC/debt")
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, "no rate data", body["error"])
	})
}

func TestGetHistory(t *testing.T) {
	positions := &testhelpers.MockPositionService{}
	runs := []*entities.AccrualRun{{
		ID: 3, Address: testWallet, TokenSymbol: "USDC", FromDay: 20240101, ToDay: 20240110,
		DebtBalance: "1001233548", DebtInterest: "1233548", SupplyBalance: "0", SupplyInterest: "0",
		ExecutionSummary: map[string]interface{}{"debt_days": 10},
	}}
	positions.On("GetHistory", mock.Anything, testWallet, 5).Return(runs, nil)

	rec, _ := doGet(t, newTestRouter(positions, nil), "/v1/positions/"+testWallet+"/history?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)

	var body []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "2024-01-10", body[0]["toDay"])
	assert.Equal(t, "1233548", body[0]["debtInterest"])

	rec, _ = doGet(t, newTestRouter(positions, nil), "/v1/positions/"+testWallet+"/history?limit=0")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
