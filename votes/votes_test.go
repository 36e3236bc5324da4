package votes

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fullWeight is the raw subgraph weight denoting 100%.
const fullWeight = "0.00000000000001"

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestVotePower(t *testing.T) {
	lock := Lock{Bias: dec(t, "100"), Slope: dec(t, "1"), Timestamp: 1000}

	tests := []struct {
		name string
		at   int64
		want string
	}{
		{"at lock creation", 1000, "100"},
		{"partially decayed", 1040, "60"},
		{"fully decayed", 1100, "0"},
		{"past expiry clamps to zero", 1150, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VotePower(lock, tt.at)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestVotePowerMonotonic(t *testing.T) {
	lock := Lock{Bias: dec(t, "500"), Slope: dec(t, "3"), Timestamp: 0}
	prev := VotePower(lock, 0)
	for at := int64(10); at <= 300; at += 10 {
		cur := VotePower(lock, at)
		assert.True(t, cur.LessThanOrEqual(prev), "power must not increase at t=%d", at)
		assert.False(t, cur.IsNegative())
		prev = cur
	}
}

func TestWeightFraction(t *testing.T) {
	assert.Equal(t, "1", WeightFraction(dec(t, fullWeight)).String())
	assert.Equal(t, "0.5", WeightFraction(dec(t, "0.000000000000005")).String())
}

func TestGaugeVotesEqualVoters(t *testing.T) {
	sg := &MockSubgraph{
		GaugeVotersFn: func(ctx context.Context, gauge string, deadline, lockLowerBound int64) ([]VoterRecord, error) {
			return []VoterRecord{
				{Voter: "0xaaa", Lock: Lock{Bias: dec(t, "100"), Slope: decimal.Zero, Timestamp: 100}, VoteWeight: dec(t, fullWeight), VoteTimestamp: 500},
				{Voter: "0xbbb", Lock: Lock{Bias: dec(t, "100"), Slope: decimal.Zero, Timestamp: 100}, VoteWeight: dec(t, fullWeight), VoteTimestamp: 500},
			}, nil
		},
	}
	oracle := NewOracle(sg, 0)

	votes, err := oracle.GaugeVotes(context.Background(), "0xgauge", 1000, 0)
	require.NoError(t, err)
	require.Len(t, votes, 2)
	for _, v := range votes {
		assert.Equal(t, "100", v.VotePower.String())
		assert.Equal(t, "200", v.TotalVotePower.String())
		assert.Equal(t, "0.5", v.IncentiveShare.String())
	}
}

func TestGaugeVotesShareSumIsOne(t *testing.T) {
	sg := &MockSubgraph{
		GaugeVotersFn: func(ctx context.Context, gauge string, deadline, lockLowerBound int64) ([]VoterRecord, error) {
			return []VoterRecord{
				{Voter: "0xaaa", Lock: Lock{Bias: dec(t, "70"), Slope: decimal.Zero}, VoteWeight: dec(t, fullWeight)},
				{Voter: "0xbbb", Lock: Lock{Bias: dec(t, "110"), Slope: decimal.Zero}, VoteWeight: dec(t, fullWeight)},
				{Voter: "0xccc", Lock: Lock{Bias: dec(t, "45"), Slope: decimal.Zero}, VoteWeight: dec(t, fullWeight)},
			}, nil
		},
	}
	oracle := NewOracle(sg, 0)

	votes, err := oracle.GaugeVotes(context.Background(), "0xgauge", 1000, 0)
	require.NoError(t, err)
	require.Len(t, votes, 3)

	sum := decimal.Zero
	for _, v := range votes {
		sum = sum.Add(v.IncentiveShare)
	}
	tolerance := decimal.New(1, -10)
	assert.True(t, sum.Sub(decimal.NewFromInt(1)).Abs().LessThan(tolerance), "share sum %s", sum)
}

func TestGaugeVotesHistoricalLock(t *testing.T) {
	var lockAtCalls int
	sg := &MockSubgraph{
		GaugeVotersFn: func(ctx context.Context, gauge string, deadline, lockLowerBound int64) ([]VoterRecord, error) {
			return []VoterRecord{
				// Lock modified at t=800, after the vote at t=500: the
				// snapshot in effect at the vote must be used instead.
				{Voter: "0xaaa", Lock: Lock{Bias: dec(t, "99999"), Slope: decimal.Zero, Timestamp: 800}, VoteWeight: dec(t, fullWeight), VoteTimestamp: 500},
			}, nil
		},
		LockAtFn: func(ctx context.Context, voter string, timestamp int64) (Lock, bool, error) {
			lockAtCalls++
			assert.Equal(t, "0xaaa", voter)
			assert.Equal(t, int64(500), timestamp)
			return Lock{Bias: dec(t, "100"), Slope: decimal.Zero, Timestamp: 400}, true, nil
		},
	}
	oracle := NewOracle(sg, 0)

	votes, err := oracle.GaugeVotes(context.Background(), "0xgauge", 1000, 0)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, 1, lockAtCalls)
	assert.Equal(t, "100", votes[0].VotePower.String())
}

func TestGaugeVotesFiltersZeroPower(t *testing.T) {
	sg := &MockSubgraph{
		GaugeVotersFn: func(ctx context.Context, gauge string, deadline, lockLowerBound int64) ([]VoterRecord, error) {
			return []VoterRecord{
				// Zero weight.
				{Voter: "0xaaa", Lock: Lock{Bias: dec(t, "100"), Slope: decimal.Zero}, VoteWeight: decimal.Zero},
				// Fully decayed lock.
				{Voter: "0xbbb", Lock: Lock{Bias: dec(t, "10"), Slope: dec(t, "1"), Timestamp: 0}, VoteWeight: dec(t, fullWeight), VoteTimestamp: 5},
				// Surviving voter.
				{Voter: "0xccc", Lock: Lock{Bias: dec(t, "5000"), Slope: dec(t, "1"), Timestamp: 0}, VoteWeight: dec(t, fullWeight), VoteTimestamp: 5},
			}, nil
		},
	}
	oracle := NewOracle(sg, 0)

	votes, err := oracle.GaugeVotes(context.Background(), "0xgauge", 1000, 0)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, "0xccc", votes[0].Voter)
	assert.Equal(t, "1", votes[0].IncentiveShare.String())
}

func TestGaugeVotesZeroTotalIsEmpty(t *testing.T) {
	sg := &MockSubgraph{
		GaugeVotersFn: func(ctx context.Context, gauge string, deadline, lockLowerBound int64) ([]VoterRecord, error) {
			return []VoterRecord{
				{Voter: "0xaaa", Lock: Lock{Bias: dec(t, "10"), Slope: dec(t, "1"), Timestamp: 0}, VoteWeight: dec(t, fullWeight)},
			}, nil
		},
	}
	oracle := NewOracle(sg, 0)

	votes, err := oracle.GaugeVotes(context.Background(), "0xgauge", 1000, 0)
	require.NoError(t, err)
	assert.Empty(t, votes)
}

func TestGaugeVotesPropagatesFetchError(t *testing.T) {
	sg := &MockSubgraph{
		GaugeVotersFn: func(ctx context.Context, gauge string, deadline, lockLowerBound int64) ([]VoterRecord, error) {
			return nil, ErrSubgraphUnavailable
		},
	}
	oracle := NewOracle(sg, 0)

	_, err := oracle.GaugeVotes(context.Background(), "0xgauge", 1000, 0)
	assert.ErrorIs(t, err, ErrSubgraphUnavailable)
}

func TestAllGaugeVotes(t *testing.T) {
	sg := &MockSubgraph{
		GaugeVotersFn: func(ctx context.Context, gauge string, deadline, lockLowerBound int64) ([]VoterRecord, error) {
			if gauge == "0xg1" {
				return []VoterRecord{
					{Voter: "0xaaa", Lock: Lock{Bias: dec(t, "100"), Slope: decimal.Zero}, VoteWeight: dec(t, fullWeight)},
				}, nil
			}
			return nil, nil
		},
	}
	oracle := NewOracle(sg, 2)

	all, err := oracle.AllGaugeVotes(context.Background(), []string{"0xg1", "0xg2"}, 1000, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Len(t, all["0xg1"], 1)
	assert.Empty(t, all["0xg2"])

	// A failing gauge aborts the whole call.
	sg.GaugeVotersFn = func(ctx context.Context, gauge string, deadline, lockLowerBound int64) ([]VoterRecord, error) {
		return nil, ErrSubgraphUnavailable
	}
	_, err = oracle.AllGaugeVotes(context.Background(), []string{"0xg1"}, 1000, 0)
	assert.ErrorIs(t, err, ErrSubgraphUnavailable)
}
