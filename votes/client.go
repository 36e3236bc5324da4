package votes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// SubgraphClient queries a GraphQL gauge-voting subgraph over HTTP.
type SubgraphClient struct {
	url    string
	client *http.Client
}

// Compile-time interface check.
var _ Subgraph = (*SubgraphClient)(nil)

// NewSubgraphClient creates a client for the subgraph at the given URL.
// The client maintains a connection pool for efficient reuse.
func NewSubgraphClient(url string) *SubgraphClient {
	return &SubgraphClient{
		url: url,
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

const gaugeVotersQuery = `
query gaugeVotes {
  users(
    first: 1000
    skip: 0
    where: {
      votingLocks_: { timestamp_gt: %d }
      gaugeVotes_: { gauge_contains: %q, timestamp_lte: %d }
    }
  ) {
    id
    votingLocks { bias slope timestamp }
    gaugeVotes(
      first: 1
      orderBy: timestamp
      orderDirection: desc
      where: { gauge_: { address: %q }, timestamp_lte: %d }
    ) {
      weight
      timestamp
    }
  }
}`

const lockSnapshotQuery = `
query LockSnapshots {
  lockSnapshots(
    first: 1
    orderBy: timestamp
    orderDirection: desc
    where: { user: %q, timestamp_lte: %d }
  ) {
    bias
    slope
    timestamp
  }
}`

type lockJSON struct {
	Bias      string `json:"bias"`
	Slope     string `json:"slope"`
	Timestamp string `json:"timestamp"`
}

type gaugeVotersResponse struct {
	Data struct {
		Users []struct {
			ID          string     `json:"id"`
			VotingLocks []lockJSON `json:"votingLocks"`
			GaugeVotes  []struct {
				Weight    string `json:"weight"`
				Timestamp string `json:"timestamp"`
			} `json:"gaugeVotes"`
		} `json:"users"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type lockSnapshotsResponse struct {
	Data struct {
		LockSnapshots []lockJSON `json:"lockSnapshots"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// GaugeVoters implements Subgraph.
func (c *SubgraphClient) GaugeVoters(ctx context.Context, gauge string, deadline, lockLowerBound int64) ([]VoterRecord, error) {
	query := fmt.Sprintf(gaugeVotersQuery, lockLowerBound, gauge, deadline, gauge, deadline)

	var resp gaugeVotersResponse
	if err := c.post(ctx, query, &resp); err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidResponse, resp.Errors[0].Message)
	}

	records := make([]VoterRecord, 0, len(resp.Data.Users))
	for _, u := range resp.Data.Users {
		// A user without a lock or a vote cannot match the query filters;
		// skip rather than fail on indexer inconsistency.
		if len(u.VotingLocks) == 0 || len(u.GaugeVotes) == 0 {
			continue
		}
		lock, err := parseLock(u.VotingLocks[0])
		if err != nil {
			return nil, err
		}
		weight, err := decimal.NewFromString(u.GaugeVotes[0].Weight)
		if err != nil {
			return nil, fmt.Errorf("%w: vote weight %q: %w", ErrInvalidResponse, u.GaugeVotes[0].Weight, err)
		}
		voteTS, err := strconv.ParseInt(u.GaugeVotes[0].Timestamp, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: vote timestamp %q: %w", ErrInvalidResponse, u.GaugeVotes[0].Timestamp, err)
		}
		records = append(records, VoterRecord{
			Voter:         u.ID,
			Lock:          lock,
			VoteWeight:    weight,
			VoteTimestamp: voteTS,
		})
	}
	return records, nil
}

// LockAt implements Subgraph.
func (c *SubgraphClient) LockAt(ctx context.Context, voter string, timestamp int64) (Lock, bool, error) {
	query := fmt.Sprintf(lockSnapshotQuery, voter, timestamp)

	var resp lockSnapshotsResponse
	if err := c.post(ctx, query, &resp); err != nil {
		return Lock{}, false, err
	}
	if len(resp.Errors) > 0 {
		return Lock{}, false, fmt.Errorf("%w: %s", ErrInvalidResponse, resp.Errors[0].Message)
	}
	if len(resp.Data.LockSnapshots) == 0 {
		return Lock{}, false, nil
	}
	lock, err := parseLock(resp.Data.LockSnapshots[0])
	if err != nil {
		return Lock{}, false, err
	}
	return lock, true, nil
}

// post sends a GraphQL query and decodes the response into result.
func (c *SubgraphClient) post(ctx context.Context, query string, result interface{}) error {
	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return fmt.Errorf("votes: encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("votes: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSubgraphUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: HTTP %d: %s", ErrInvalidResponse, resp.StatusCode, data)
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: decode: %w", ErrInvalidResponse, err)
	}
	return nil
}

// parseLock converts subgraph string fields into a Lock.
func parseLock(l lockJSON) (Lock, error) {
	bias, err := decimal.NewFromString(l.Bias)
	if err != nil {
		return Lock{}, fmt.Errorf("%w: lock bias %q: %w", ErrInvalidResponse, l.Bias, err)
	}
	slope, err := decimal.NewFromString(l.Slope)
	if err != nil {
		return Lock{}, fmt.Errorf("%w: lock slope %q: %w", ErrInvalidResponse, l.Slope, err)
	}
	ts, err := strconv.ParseInt(l.Timestamp, 10, 64)
	if err != nil {
		return Lock{}, fmt.Errorf("%w: lock timestamp %q: %w", ErrInvalidResponse, l.Timestamp, err)
	}
	return Lock{Bias: bias, Slope: slope, Timestamp: ts}, nil
}
