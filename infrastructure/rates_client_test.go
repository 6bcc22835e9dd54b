package infrastructure

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lendledger/domain/entities"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatesClient_FetchRateHistory(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"reserveId":        r.URL.Query().Get("reserveId"),
			"from":             r.URL.Query().Get("from"),
			"resolutionInDays": r.URL.Query().Get("resolutionInDays"),
			"network":          r.URL.Query().Get("network"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"year": 2024, "month": 1, "day": 1, "variableBorrowRate_avg": 5.25, "utilizationRate_avg": 0.8},
			{"year": 2024, "month": 1, "day": 2, "variableBorrowRate_avg": "4.75", "utilizationRate_avg": "0.81"}
		]`))
	}))
	defer server.Close()

	client := NewRatesClient(server.URL+"/data/rates-history?network=gnosis", time.Second)
	samples, err := client.FetchRateHistory(context.Background(), "0xabc", 20240101)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"reserveId":        "0xabc",
		"from":             "1704067200",
		"resolutionInDays": "1",
		"network":          "gnosis",
	}, gotQuery)

	require.Len(t, samples, 2)
	assert.Equal(t, entities.Day(20240101), samples[0].Key())
	assert.True(t, decimal.RequireFromString("5.25").Equal(samples[0].VariableBorrowRateAvg))
	assert.True(t, decimal.RequireFromString("0.8").Equal(samples[0].UtilizationRateAvg))
	assert.Equal(t, entities.Day(20240102), samples[1].Key())
	assert.True(t, decimal.RequireFromString("4.75").Equal(samples[1].VariableBorrowRateAvg))
}

func TestRatesClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		errMsg string
	}{
		{name: "server error", status: http.StatusBadGateway, body: "upstream down", errMsg: "rates api returned 502"},
		{name: "not an array", status: http.StatusOK, body: `{"error": "nope"}`, errMsg: "decode rates response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewRatesClient(server.URL, time.Second)
			_, err := client.FetchRateHistory(context.Background(), "0xabc", 20240101)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
