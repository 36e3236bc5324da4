package votes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubgraphClientGaugeVoters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req struct {
			Query string `json:"query"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Query, "0xgauge")
		assert.Contains(t, req.Query, "timestamp_lte: 1700000000")

		w.Write([]byte(`{
			"data": {
				"users": [
					{
						"id": "0xaaa",
						"votingLocks": [{"bias": "100.5", "slope": "0.25", "timestamp": "1600000000"}],
						"gaugeVotes": [{"weight": "0.00000000000001", "timestamp": "1650000000"}]
					},
					{
						"id": "0xbbb",
						"votingLocks": [],
						"gaugeVotes": []
					}
				]
			}
		}`))
	}))
	defer server.Close()

	client := NewSubgraphClient(server.URL)
	records, err := client.GaugeVoters(context.Background(), "0xgauge", 1700000000, 1500000000)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "0xaaa", rec.Voter)
	assert.Equal(t, "100.5", rec.Lock.Bias.String())
	assert.Equal(t, "0.25", rec.Lock.Slope.String())
	assert.Equal(t, int64(1600000000), rec.Lock.Timestamp)
	assert.Equal(t, int64(1650000000), rec.VoteTimestamp)
}

func TestSubgraphClientLockAt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query string `json:"query"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		if strings.Contains(req.Query, `"0xempty"`) {
			w.Write([]byte(`{"data": {"lockSnapshots": []}}`))
			return
		}
		w.Write([]byte(`{"data": {"lockSnapshots": [{"bias": "42", "slope": "1", "timestamp": "1000"}]}}`))
	}))
	defer server.Close()

	client := NewSubgraphClient(server.URL)

	lock, ok, err := client.LockAt(context.Background(), "0xaaa", 1500)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "42", lock.Bias.String())

	_, ok, err = client.LockAt(context.Background(), "0xempty", 1500)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSubgraphClientErrors(t *testing.T) {
	t.Run("graphql error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"errors": [{"message": "field not found"}]}`))
		}))
		defer server.Close()

		client := NewSubgraphClient(server.URL)
		_, err := client.GaugeVoters(context.Background(), "0xgauge", 1000, 0)
		assert.ErrorIs(t, err, ErrInvalidResponse)
	})

	t.Run("http error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := NewSubgraphClient(server.URL)
		_, err := client.GaugeVoters(context.Background(), "0xgauge", 1000, 0)
		assert.ErrorIs(t, err, ErrInvalidResponse)
	})

	t.Run("unreachable", func(t *testing.T) {
		client := NewSubgraphClient("http://127.0.0.1:1")
		_, err := client.GaugeVoters(context.Background(), "0xgauge", 1000, 0)
		assert.ErrorIs(t, err, ErrSubgraphUnavailable)
	})

	t.Run("malformed lock", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data": {"users": [{"id": "0xaaa", "votingLocks": [{"bias": "x", "slope": "1", "timestamp": "1"}], "gaugeVotes": [{"weight": "1", "timestamp": "1"}]}]}}`))
		}))
		defer server.Close()

		client := NewSubgraphClient(server.URL)
		_, err := client.GaugeVoters(context.Background(), "0xgauge", 1000, 0)
		assert.ErrorIs(t, err, ErrInvalidResponse)
	})
}
