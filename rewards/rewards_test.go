package rewards

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regenmarkets/libvebribe-go/bribes"
	"github.com/regenmarkets/libvebribe-go/votes"
)

const (
	tokenT = "0x2222222222222222222222222222222222222222"
	tokenU = "0x3333333333333333333333333333333333333333"
	gaugeG = "0x4444444444444444444444444444444444444444"
	gaugeH = "0x5555555555555555555555555555555555555555"
	voterA = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	voterB = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

func share(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestAllocateEqualSplit(t *testing.T) {
	deposits := []bribes.Bribe{
		{Token: tokenT, Amount: "1000", Gauge: gaugeG},
	}
	gaugeVotes := map[string][]votes.GaugeVote{
		gaugeG: {
			{Voter: voterA, IncentiveShare: share(t, "0.5")},
			{Voter: voterB, IncentiveShare: share(t, "0.5")},
		},
	}

	ledger, err := Allocate(deposits, gaugeVotes)
	require.NoError(t, err)
	require.Len(t, ledger, 1)

	tr := ledger[tokenT]
	assert.Equal(t, "1000", tr.Total)
	require.Len(t, tr.UserRewards, 2)
	assert.Equal(t, UserReward{User: voterA, Amount: "500"}, tr.UserRewards[0])
	assert.Equal(t, UserReward{User: voterB, Amount: "500"}, tr.UserRewards[1])
}

func TestAllocateAccumulatesAcrossDeposits(t *testing.T) {
	deposits := []bribes.Bribe{
		{Token: tokenT, Amount: "100", Gauge: gaugeG},
		{Token: tokenT, Amount: "300", Gauge: gaugeH},
		{Token: tokenU, Amount: "50", Gauge: gaugeG},
	}
	gaugeVotes := map[string][]votes.GaugeVote{
		gaugeG: {{Voter: voterA, IncentiveShare: share(t, "1")}},
		gaugeH: {
			{Voter: voterA, IncentiveShare: share(t, "0.25")},
			{Voter: voterB, IncentiveShare: share(t, "0.75")},
		},
	}

	ledger, err := Allocate(deposits, gaugeVotes)
	require.NoError(t, err)
	require.Len(t, ledger, 2)

	// voterA: 100*1 + 300*0.25 = 175 of T; voterB: 300*0.75 = 225 of T.
	tr := ledger[tokenT]
	assert.Equal(t, "400", tr.Total)
	assert.Equal(t, UserReward{User: voterA, Amount: "175"}, tr.UserRewards[0])
	assert.Equal(t, UserReward{User: voterB, Amount: "225"}, tr.UserRewards[1])

	assert.Equal(t, "50", ledger[tokenU].Total)
}

func TestAllocateConservation(t *testing.T) {
	deposits := []bribes.Bribe{
		{Token: tokenT, Amount: "999999999999999999", Gauge: gaugeG},
	}
	gaugeVotes := map[string][]votes.GaugeVote{
		gaugeG: {
			{Voter: voterA, IncentiveShare: share(t, "0.3")},
			{Voter: voterB, IncentiveShare: share(t, "0.7")},
		},
	}

	ledger, err := Allocate(deposits, gaugeVotes)
	require.NoError(t, err)

	tr := ledger[tokenT]
	sum := decimal.Zero
	for _, ur := range tr.UserRewards {
		amt, err := decimal.NewFromString(ur.Amount)
		require.NoError(t, err)
		sum = sum.Add(amt)
	}
	assert.Equal(t, "999999999999999999", sum.String())
	assert.Equal(t, "999999999999999999", tr.Total)
}

func TestAllocateDropsGaugeWithoutVoters(t *testing.T) {
	deposits := []bribes.Bribe{
		{Token: tokenT, Amount: "1000", Gauge: gaugeG},
	}

	ledger, err := Allocate(deposits, map[string][]votes.GaugeVote{})
	require.NoError(t, err)
	assert.Empty(t, ledger)

	ledger, err = Allocate(deposits, map[string][]votes.GaugeVote{gaugeG: {}})
	require.NoError(t, err)
	assert.Empty(t, ledger)
}

func TestAllocateInvalidAmount(t *testing.T) {
	deposits := []bribes.Bribe{
		{Token: tokenT, Amount: "oops", Gauge: gaugeG},
	}
	gaugeVotes := map[string][]votes.GaugeVote{
		gaugeG: {{Voter: voterA, IncentiveShare: share(t, "1")}},
	}

	_, err := Allocate(deposits, gaugeVotes)
	assert.Error(t, err)
}
