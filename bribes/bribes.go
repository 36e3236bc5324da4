// Package bribes fetches incentive deposits pledged to gauge voters for
// a distribution period.
package bribes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Bribe is an incentive deposit: an amount of a token pledged to reward
// voters of a gauge for a specific proposal. Amount is an exact decimal
// string.
type Bribe struct {
	Token    string `json:"token"`
	Amount   string `json:"amount"`
	Proposal string `json:"proposal"`
	Gauge    string `json:"gauge"`
}

// Source provides the incentive deposits for a period. An empty list is
// a valid response, not an error.
type Source interface {
	Deposits(ctx context.Context, network string, deadline int64) ([]Bribe, error)
}

// MockSource is a test double for Source.
type MockSource struct {
	DepositsFn func(ctx context.Context, network string, deadline int64) ([]Bribe, error)
}

func (m *MockSource) Deposits(ctx context.Context, network string, deadline int64) ([]Bribe, error) {
	return m.DepositsFn(ctx, network, deadline)
}

// HTTPSource fetches deposits from the incentives API.
type HTTPSource struct {
	base   string
	client *http.Client
}

// Compile-time interface check.
var _ Source = (*HTTPSource)(nil)

// NewHTTPSource creates a source for the incentives API at base.
func NewHTTPSource(base string) *HTTPSource {
	return &HTTPSource{
		base: base,
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
	}
}

// Deposits fetches the deposits for a network and deadline from
// {base}/{network}/get-incentives/{deadline}.
func (s *HTTPSource) Deposits(ctx context.Context, network string, deadline int64) ([]Bribe, error) {
	url := fmt.Sprintf("%s/%s/get-incentives/%d", s.base, network, deadline)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("bribes: build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrFetchFailed, resp.StatusCode, data)
	}

	var body struct {
		Bribes []Bribe `json:"bribes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrFetchFailed, err)
	}
	return body.Bribes, nil
}
