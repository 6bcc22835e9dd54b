package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lendledger/domain/entities"

	log "github.com/sirupsen/logrus"
)

// SubgraphPageSize is the largest page the indexer serves per query
const SubgraphPageSize = 1000

// ErrPaginationStalled is returned when a full page holds only records already seen
var ErrPaginationStalled = errors.New("subgraph pagination stalled")

const actionFields = `id txHash amount timestamp reserve { id }`

// Each query aliases its collection to "items" so every page decodes the same way
const (
	borrowsQuery = `query($user: String!, $since: Int!, $first: Int!) {
  items: borrows(where: {user: $user, timestamp_gte: $since}, first: $first, orderBy: timestamp, orderDirection: asc) { ` + actionFields + ` }
}`
	repaysQuery = `query($user: String!, $since: Int!, $first: Int!) {
  items: repays(where: {user: $user, timestamp_gte: $since}, first: $first, orderBy: timestamp, orderDirection: asc) { ` + actionFields + ` }
}`
	depositsQuery = `query($user: String!, $since: Int!, $first: Int!) {
  items: deposits(where: {user: $user, timestamp_gte: $since}, first: $first, orderBy: timestamp, orderDirection: asc) { ` + actionFields + ` }
}`
	redeemsQuery = `query($user: String!, $since: Int!, $first: Int!) {
  items: redeemUnderlyings(where: {user: $user, timestamp_gte: $since}, first: $first, orderBy: timestamp, orderDirection: asc) { ` + actionFields + ` }
}`
	transfersFromQuery = `query($user: String!, $since: Int!, $first: Int!) {
  items: transfers(where: {from: $user, timestamp_gte: $since}, first: $first, orderBy: timestamp, orderDirection: asc) { ` + actionFields + ` from to }
}`
	transfersToQuery = `query($user: String!, $since: Int!, $first: Int!) {
  items: transfers(where: {to: $user, timestamp_gte: $since}, first: $first, orderBy: timestamp, orderDirection: asc) { ` + actionFields + ` from to }
}`
)

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse[T any] struct {
	Data struct {
		Items []T `json:"items"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

// SubgraphClient reads a wallet's lending actions from a GraphQL indexer
type SubgraphClient struct {
	url  string
	http *http.Client
}

// NewSubgraphClient creates a client for the given endpoint
func NewSubgraphClient(url string, timeout time.Duration) *SubgraphClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SubgraphClient{
		url:  strings.TrimSpace(url),
		http: &http.Client{Timeout: timeout},
	}
}

// FetchTransactions returns every action for the wallet at or after since
func (c *SubgraphClient) FetchTransactions(ctx context.Context, address string, since int64) (entities.TransactionCollections, error) {
	user := strings.ToLower(address)
	var (
		out entities.TransactionCollections
		err error
	)

	actions := []struct {
		name  string
		query string
		dst   *[]entities.RawTransaction
	}{
		{"borrows", borrowsQuery, &out.Borrows},
		{"repays", repaysQuery, &out.Repays},
		{"deposits", depositsQuery, &out.Supplies},
		{"redeemUnderlyings", redeemsQuery, &out.Withdraws},
	}
	for _, a := range actions {
		*a.dst, err = fetchAll(ctx, c, a.query, user, since, func(r entities.RawTransaction) (string, int64) {
			return r.ID, r.Timestamp
		})
		if err != nil {
			return entities.TransactionCollections{}, fmt.Errorf("failed to fetch %s: %w", a.name, err)
		}
	}

	transferKey := func(r entities.RawTransfer) (string, int64) { return r.ID, r.Timestamp }
	sent, err := fetchAll(ctx, c, transfersFromQuery, user, since, transferKey)
	if err != nil {
		return entities.TransactionCollections{}, fmt.Errorf("failed to fetch outgoing transfers: %w", err)
	}
	received, err := fetchAll(ctx, c, transfersToQuery, user, since, transferKey)
	if err != nil {
		return entities.TransactionCollections{}, fmt.Errorf("failed to fetch incoming transfers: %w", err)
	}
	out.Transfers = mergeTransfers(sent, received)

	log.WithFields(log.Fields{
		"address":   user,
		"since":     since,
		"borrows":   len(out.Borrows),
		"repays":    len(out.Repays),
		"supplies":  len(out.Supplies),
		"withdraws": len(out.Withdraws),
		"transfers": len(out.Transfers),
	}).Debug("Fetched subgraph records")

	return out, nil
}

// mergeTransfers joins both directions, keeping a self-transfer once
func mergeTransfers(sent, received []entities.RawTransfer) []entities.RawTransfer {
	seen := make(map[string]bool, len(sent))
	out := make([]entities.RawTransfer, 0, len(sent)+len(received))
	for _, list := range [][]entities.RawTransfer{sent, received} {
		for _, t := range list {
			if seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			out = append(out, t)
		}
	}
	return out
}

// fetchAll pages through a timestamp-ordered collection. The cursor is inclusive,
// so records sharing the boundary timestamp are returned again and skipped by id.
func fetchAll[T any](ctx context.Context, c *SubgraphClient, query, user string, since int64, key func(T) (string, int64)) ([]T, error) {
	var (
		out    []T
		seen   = make(map[string]bool)
		cursor = since
	)
	for {
		page, err := queryPage[T](ctx, c, query, map[string]any{
			"user":  user,
			"since": cursor,
			"first": SubgraphPageSize,
		})
		if err != nil {
			return nil, err
		}

		added := 0
		for _, item := range page {
			id, ts := key(item)
			if seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, item)
			added++
			if ts > cursor {
				cursor = ts
			}
		}

		if len(page) < SubgraphPageSize {
			return out, nil
		}
		if added == 0 {
			return nil, fmt.Errorf("%w at timestamp %d", ErrPaginationStalled, cursor)
		}
	}
}

func queryPage[T any](ctx context.Context, c *SubgraphClient, query string, vars map[string]any) ([]T, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(graphQLRequest{Query: query, Variables: vars}); err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &buf)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("subgraph request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("subgraph returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var decoded graphQLResponse[T]
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode subgraph response: %w", err)
	}
	if len(decoded.Errors) > 0 {
		msgs := make([]string, len(decoded.Errors))
		for i, e := range decoded.Errors {
			msgs[i] = e.Message
		}
		return nil, fmt.Errorf("subgraph errors: %s", strings.Join(msgs, "; "))
	}
	return decoded.Data.Items, nil
}
