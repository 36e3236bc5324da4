package votes

import (
	"context"

	"github.com/shopspring/decimal"
)

// VoterRecord is one voter returned by the indexer for a gauge: the
// voter's most recent lock snapshot and their latest qualifying vote.
type VoterRecord struct {
	Voter         string
	Lock          Lock
	VoteWeight    decimal.Decimal
	VoteTimestamp int64
}

// Subgraph queries the indexed vote and lock data source.
type Subgraph interface {
	// GaugeVoters returns every voter whose most recent lock snapshot is
	// newer than lockLowerBound and who cast a vote for the gauge at or
	// before the deadline, each with their latest at-or-before-deadline
	// vote and current lock snapshot.
	GaugeVoters(ctx context.Context, gauge string, deadline, lockLowerBound int64) ([]VoterRecord, error)

	// LockAt returns the lock snapshot in effect for a voter at or before
	// the given timestamp. The second return is false when the voter had
	// no snapshot at that time.
	LockAt(ctx context.Context, voter string, timestamp int64) (Lock, bool, error)
}

// MockSubgraph is a test double for Subgraph.
// All function fields must be set before the corresponding method is called.
type MockSubgraph struct {
	GaugeVotersFn func(ctx context.Context, gauge string, deadline, lockLowerBound int64) ([]VoterRecord, error)
	LockAtFn      func(ctx context.Context, voter string, timestamp int64) (Lock, bool, error)
}

func (m *MockSubgraph) GaugeVoters(ctx context.Context, gauge string, deadline, lockLowerBound int64) ([]VoterRecord, error) {
	return m.GaugeVotersFn(ctx, gauge, deadline, lockLowerBound)
}

func (m *MockSubgraph) LockAt(ctx context.Context, voter string, timestamp int64) (Lock, bool, error) {
	return m.LockAtFn(ctx, voter, timestamp)
}
