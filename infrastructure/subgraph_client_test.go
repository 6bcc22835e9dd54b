package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWallet = "0x1111111111111111111111111111111111111111"

type recordedQuery struct {
	Query     string
	Variables map[string]any
}

// fakeSubgraph answers each collection from a fixed list, honouring the cursor and page size
type fakeSubgraph struct {
	mu      sync.Mutex
	items   map[string][]map[string]any
	queries []recordedQuery
	errs    []string
}

func (f *fakeSubgraph) collection(query string) string {
	for _, name := range []string{"borrows", "repays", "deposits", "redeemUnderlyings"} {
		if strings.Contains(query, "items: "+name+"(") {
			return name
		}
	}
	if strings.Contains(query, "{from: $user") {
		return "transfersFrom"
	}
	return "transfersTo"
}

func (f *fakeSubgraph) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req recordedQuery
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.queries = append(f.queries, req)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if len(f.errs) > 0 {
		errs := make([]map[string]string, len(f.errs))
		for i, e := range f.errs {
			errs[i] = map[string]string{"message": e}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"errors": errs})
		return
	}

	since := int64(req.Variables["since"].(float64))
	first := int(req.Variables["first"].(float64))
	var page []map[string]any
	for _, item := range f.items[f.collection(req.Query)] {
		if int64(item["timestamp"].(int)) >= since && len(page) < first {
			page = append(page, item)
		}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"items": page}})
}

func action(id string, ts int, amount string) map[string]any {
	return map[string]any{
		"id":        id,
		"txHash":    "0x" + id,
		"amount":    amount,
		"timestamp": ts,
		"reserve":   map[string]string{"id": "0xddafbb505ad214d7b80b1f830fccc89b60fb7a83"},
	}
}

func transfer(id string, ts int, from, to string) map[string]any {
	item := action(id, ts, "100")
	item["from"] = from
	item["to"] = to
	return item
}

func TestSubgraphClient_FetchTransactions(t *testing.T) {
	other := "0x2222222222222222222222222222222222222222"
	fake := &fakeSubgraph{items: map[string][]map[string]any{
		"borrows":           {action("b1", 1704106800, "1000000000")},
		"repays":            {action("r1", 1704452400, "500")},
		"deposits":          {action("d1", 1704110000, "250")},
		"redeemUnderlyings": {},
		"transfersFrom":     {transfer("t1", 1704200000, testWallet, other), transfer("self", 1704300000, testWallet, testWallet)},
		"transfersTo":       {transfer("t2", 1704250000, other, testWallet), transfer("self", 1704300000, testWallet, testWallet)},
	}}
	server := httptest.NewServer(fake)
	defer server.Close()

	client := NewSubgraphClient(server.URL, time.Second)
	got, err := client.FetchTransactions(context.Background(), strings.ToUpper(testWallet[:2])+testWallet[2:], 0)
	require.NoError(t, err)

	require.Len(t, got.Borrows, 1)
	assert.Equal(t, "b1", got.Borrows[0].ID)
	assert.Equal(t, "1000000000", got.Borrows[0].Amount)
	assert.Equal(t, int64(1704106800), got.Borrows[0].Timestamp)
	assert.Equal(t, "0xddafbb505ad214d7b80b1f830fccc89b60fb7a83", got.Borrows[0].Reserve.ID)
	assert.Len(t, got.Repays, 1)
	assert.Len(t, got.Supplies, 1)
	assert.Empty(t, got.Withdraws)

	require.Len(t, got.Transfers, 3, "self transfer is returned once")
	ids := []string{got.Transfers[0].ID, got.Transfers[1].ID, got.Transfers[2].ID}
	assert.ElementsMatch(t, []string{"t1", "self", "t2"}, ids)

	for _, q := range fake.queries {
		assert.Equal(t, testWallet, q.Variables["user"], "user is lower-cased")
		assert.Equal(t, float64(SubgraphPageSize), q.Variables["first"])
	}
}

func TestSubgraphClient_Pagination(t *testing.T) {
	var borrows []map[string]any
	for i := 0; i < SubgraphPageSize+5; i++ {
		// Two records per timestamp so page boundaries split a timestamp
		borrows = append(borrows, action(fmt.Sprintf("b%04d", i), 1704067200+i/2, "1"))
	}
	fake := &fakeSubgraph{items: map[string][]map[string]any{"borrows": borrows}}
	server := httptest.NewServer(fake)
	defer server.Close()

	client := NewSubgraphClient(server.URL, time.Second)
	got, err := client.FetchTransactions(context.Background(), testWallet, 0)
	require.NoError(t, err)

	require.Len(t, got.Borrows, SubgraphPageSize+5)
	seen := make(map[string]bool)
	for _, b := range got.Borrows {
		assert.False(t, seen[b.ID], "duplicate %s", b.ID)
		seen[b.ID] = true
	}

	var borrowQueries []recordedQuery
	for _, q := range fake.queries {
		if strings.Contains(q.Query, "items: borrows(") {
			borrowQueries = append(borrowQueries, q)
		}
	}
	require.Len(t, borrowQueries, 2)
	assert.Equal(t, float64(0), borrowQueries[0].Variables["since"])
	assert.Equal(t, float64(1704067200+(SubgraphPageSize-1)/2), borrowQueries[1].Variables["since"])
}

func TestSubgraphClient_PaginationStalled(t *testing.T) {
	var borrows []map[string]any
	for i := 0; i < SubgraphPageSize+1; i++ {
		borrows = append(borrows, action(fmt.Sprintf("b%04d", i), 1704067200, "1"))
	}
	fake := &fakeSubgraph{items: map[string][]map[string]any{"borrows": borrows}}
	server := httptest.NewServer(fake)
	defer server.Close()

	client := NewSubgraphClient(server.URL, time.Second)
	_, err := client.FetchTransactions(context.Background(), testWallet, 0)
	assert.ErrorIs(t, err, ErrPaginationStalled)
}

func TestSubgraphClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.Handler
		errMsg  string
	}{
		{
			name:    "graphql errors",
			handler: &fakeSubgraph{errs: []string{"indexing error", "bad field"}},
			errMsg:  "subgraph errors: indexing error; bad field",
		},
		{
			name: "http status",
			handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "rate limited", http.StatusTooManyRequests)
			}),
			errMsg: "429",
		},
		{
			name: "malformed body",
			handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("{not json"))
			}),
			errMsg: "decode subgraph response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := NewSubgraphClient(server.URL, time.Second)
			_, err := client.FetchTransactions(context.Background(), testWallet, 0)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.Contains(t, err.Error(), "failed to fetch borrows")
		})
	}
}
