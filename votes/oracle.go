// Package votes resolves each voter's time-decayed voting power and
// per-gauge incentive share as of a period deadline, from an external
// indexed data source.
package votes

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// GaugeVote is a computed vote record for one (gauge, voter) pair.
type GaugeVote struct {
	Voter             string
	VotePower         decimal.Decimal
	WeightedVotePower decimal.Decimal
	TotalVotePower    decimal.Decimal
	IncentiveShare    decimal.Decimal
}

// DefaultConcurrency bounds parallel subgraph queries so large gauge or
// voter counts do not overwhelm the indexer.
const DefaultConcurrency = 8

// Oracle computes gauge vote records from a Subgraph.
type Oracle struct {
	subgraph    Subgraph
	concurrency int
}

// NewOracle creates an Oracle. A concurrency of 0 or less selects
// DefaultConcurrency.
func NewOracle(subgraph Subgraph, concurrency int) *Oracle {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Oracle{subgraph: subgraph, concurrency: concurrency}
}

// GaugeVotes returns the computed vote records for one gauge at the
// deadline, considering only voters whose lock is newer than
// lockLowerBound.
//
// For each voter the latest at-or-before-deadline vote is used. When the
// voter's current lock snapshot postdates that vote, the snapshot in
// effect at the vote timestamp is fetched instead: the current snapshot
// would misattribute power accrued after the vote. Voters with zero
// weighted power are dropped. A gauge whose surviving voters sum to zero
// weighted power yields an empty slice, not an error.
func (o *Oracle) GaugeVotes(ctx context.Context, gauge string, deadline, lockLowerBound int64) ([]GaugeVote, error) {
	records, err := o.subgraph.GaugeVoters(ctx, gauge, deadline, lockLowerBound)
	if err != nil {
		return nil, err
	}

	computed := make([]GaugeVote, len(records))
	keep := make([]bool, len(records))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, rec := range records {
		i, rec := i, rec
		if rec.VoteWeight.IsZero() {
			continue
		}
		g.Go(func() error {
			lock := rec.Lock
			if lock.Timestamp > rec.VoteTimestamp {
				historical, ok, err := o.subgraph.LockAt(ctx, rec.Voter, rec.VoteTimestamp)
				if err != nil {
					return err
				}
				if ok {
					lock = historical
				}
			}

			power := VotePower(lock, deadline)
			weighted := power.Mul(WeightFraction(rec.VoteWeight))
			if !weighted.IsPositive() {
				return nil
			}
			computed[i] = GaugeVote{
				Voter:             rec.Voter,
				VotePower:         power,
				WeightedVotePower: weighted,
			}
			keep[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := make([]GaugeVote, 0, len(records))
	total := decimal.Zero
	for i, ok := range keep {
		if ok {
			result = append(result, computed[i])
			total = total.Add(computed[i].WeightedVotePower)
		}
	}
	if total.IsZero() {
		return nil, nil
	}
	for i := range result {
		result[i].TotalVotePower = total
		result[i].IncentiveShare = result[i].WeightedVotePower.Div(total)
	}
	return result, nil
}

// AllGaugeVotes computes vote records for every gauge concurrently,
// keyed by gauge address. Any gauge failure aborts the whole call.
func (o *Oracle) AllGaugeVotes(ctx context.Context, gauges []string, deadline, lockLowerBound int64) (map[string][]GaugeVote, error) {
	var mu sync.Mutex
	result := make(map[string][]GaugeVote, len(gauges))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for _, gauge := range gauges {
		gauge := gauge
		g.Go(func() error {
			votes, err := o.GaugeVotes(ctx, gauge, deadline, lockLowerBound)
			if err != nil {
				return err
			}
			mu.Lock()
			result[gauge] = votes
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}
