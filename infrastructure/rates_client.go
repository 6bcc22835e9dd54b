package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"lendledger/domain/entities"

	log "github.com/sirupsen/logrus"
)

// RatesClient reads daily averaged reserve rates from the rate history API
type RatesClient struct {
	baseURL string
	http    *http.Client
}

// NewRatesClient creates a client for the given endpoint
func NewRatesClient(baseURL string, timeout time.Duration) *RatesClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RatesClient{
		baseURL: strings.TrimSpace(baseURL),
		http:    &http.Client{Timeout: timeout},
	}
}

// FetchRateHistory returns one sample per published day starting at from
func (c *RatesClient) FetchRateHistory(ctx context.Context, reserveID string, from entities.Day) ([]entities.RateSample, error) {
	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid rates url: %w", err)
	}
	q := endpoint.Query()
	q.Set("reserveId", reserveID)
	q.Set("from", strconv.FormatInt(from.Time().Unix(), 10))
	q.Set("resolutionInDays", "1")
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rates request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("rates api returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var samples []entities.RateSample
	if err := json.NewDecoder(resp.Body).Decode(&samples); err != nil {
		return nil, fmt.Errorf("decode rates response: %w", err)
	}

	log.WithFields(log.Fields{
		"reserveID": reserveID,
		"from":      from,
		"samples":   len(samples),
	}).Debug("Fetched rate history")

	return samples, nil
}
