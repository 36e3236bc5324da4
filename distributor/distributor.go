// Package distributor orchestrates one distribution period end to end:
// fetch deposits, decide skip versus recompute, allocate rewards, build
// commitments, persist, and drive the on-chain submission. It also
// resolves users' proofs and claimable balances from persisted periods.
//
// The controller is the sole writer of commitment and submission
// records. Persistence is overwrite-based, so a failed attempt leaves no
// partial state and the whole period is safe to retry. Concurrent
// invocations for the same period are not serialized here; a caller that
// needs strict single-writer semantics must hold an external lock.
package distributor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/regenmarkets/libvebribe-go/bribes"
	"github.com/regenmarkets/libvebribe-go/chain"
	"github.com/regenmarkets/libvebribe-go/config"
	"github.com/regenmarkets/libvebribe-go/merkle"
	"github.com/regenmarkets/libvebribe-go/metrics"
	"github.com/regenmarkets/libvebribe-go/rewards"
	"github.com/regenmarkets/libvebribe-go/store"
	"github.com/regenmarkets/libvebribe-go/votes"
)

// Status is the terminal state of a period run.
type Status string

const (
	// StatusEmpty means the period had no incentive deposits.
	StatusEmpty Status = "empty"
	// StatusSkipped means a prior submission is confirmed successful and
	// the persisted commitment was returned unchanged.
	StatusSkipped Status = "skipped"
	// StatusComputed means the commitment was recomputed but no token
	// produced rewards, so nothing was submitted.
	StatusComputed Status = "computed"
	// StatusSubmitted means the commitment was recomputed and submitted.
	StatusSubmitted Status = "submitted"
)

// PeriodResult reports the outcome of one period run.
type PeriodResult struct {
	Network     string                       `json:"network"`
	Deadline    int64                        `json:"deadline"`
	Status      Status                       `json:"status"`
	Commitments map[string]merkle.Commitment `json:"commitments,omitempty"`
	TxHash      string                       `json:"txHash,omitempty"`
}

// Backends bundles the external collaborators for one network.
type Backends struct {
	Oracle *votes.Oracle
	Source bribes.Source
	Chain  chain.Client
}

// Distributor runs the distribution pipeline for configured networks.
type Distributor struct {
	cfg      config.Config
	backends map[string]Backends
	store    store.Store
	log      *slog.Logger
	clock    clockwork.Clock
}

// New creates a Distributor. backends maps network name to its external
// collaborators; every network that will be processed needs an entry.
func New(cfg config.Config, backends map[string]Backends, st store.Store, log *slog.Logger) *Distributor {
	return &Distributor{
		cfg:      cfg,
		backends: backends,
		store:    st,
		log:      log,
		clock:    clockwork.NewRealClock(),
	}
}

// network resolves the configuration and backends for a network name.
func (d *Distributor) network(name string) (config.Network, Backends, error) {
	net, err := d.cfg.Network(name)
	if err != nil {
		return config.Network{}, Backends{}, err
	}
	b, ok := d.backends[name]
	if !ok {
		return config.Network{}, Backends{}, fmt.Errorf("%w: %q", ErrNoBackends, name)
	}
	return net, b, nil
}

// WithClock replaces the wall clock, for tests.
func (d *Distributor) WithClock(clock clockwork.Clock) *Distributor {
	d.clock = clock
	return d
}

// PreviousDeadline returns the most recent schedule boundary at or
// before now: start + floor((now-start)/duration)*duration.
func PreviousDeadline(start, duration, now int64) (int64, error) {
	if duration <= 0 {
		return 0, ErrInvalidDuration
	}
	if start > now {
		return 0, ErrFutureStartTime
	}
	return start + (now-start)/duration*duration, nil
}

// ProcessPeriod runs the pipeline for the network's most recent period
// deadline.
func (d *Distributor) ProcessPeriod(ctx context.Context, network string) (*PeriodResult, error) {
	net, b, err := d.network(network)
	if err != nil {
		return nil, err
	}
	deadline, err := PreviousDeadline(net.ProposalStartTime, net.ProposalDuration, d.clock.Now().Unix())
	if err != nil {
		return nil, err
	}
	return d.process(ctx, net, b, deadline)
}

// ProcessPeriodAt runs the pipeline for an explicit period deadline.
func (d *Distributor) ProcessPeriodAt(ctx context.Context, network string, deadline int64) (*PeriodResult, error) {
	net, b, err := d.network(network)
	if err != nil {
		return nil, err
	}
	return d.process(ctx, net, b, deadline)
}

// process is the per-period state machine.
func (d *Distributor) process(ctx context.Context, net config.Network, b Backends, deadline int64) (*PeriodResult, error) {
	log := d.log.With("network", net.Name, "deadline", deadline)

	result, err := d.run(ctx, net, b, deadline, log)
	if err != nil {
		metrics.PeriodFailuresTotal.WithLabelValues(net.Name).Inc()
		return nil, err
	}
	metrics.PeriodsProcessedTotal.WithLabelValues(net.Name, string(result.Status)).Inc()
	return result, nil
}

func (d *Distributor) run(ctx context.Context, net config.Network, b Backends, deadline int64, log *slog.Logger) (*PeriodResult, error) {
	deposits, err := b.Source.Deposits(ctx, net.Name, deadline)
	if err != nil {
		return nil, fmt.Errorf("distributor: fetch deposits: %w", err)
	}
	if len(deposits) == 0 {
		log.Info("no incentive deposits for period")
		return &PeriodResult{Network: net.Name, Deadline: deadline, Status: StatusEmpty}, nil
	}

	// Skip only when a commitment exists AND its submission is confirmed
	// successful on-chain. A failed or unknown transaction falls through
	// to recomputation; persistence is overwrite-based so that is safe.
	if existing, txHash, ok, err := d.confirmed(ctx, b.Chain, net.Name, deadline); err != nil {
		return nil, err
	} else if ok {
		log.Info("period already submitted and confirmed, skipping", "tx", txHash)
		return &PeriodResult{
			Network:     net.Name,
			Deadline:    deadline,
			Status:      StatusSkipped,
			Commitments: existing,
			TxHash:      txHash,
		}, nil
	}

	commitments, err := d.compute(ctx, net, b, deadline, deposits, log)
	if err != nil {
		return nil, err
	}

	blob, err := json.Marshal(commitments)
	if err != nil {
		return nil, fmt.Errorf("distributor: encode commitments: %w", err)
	}
	if err := d.store.Put(store.CommitmentKey(net.Name, deadline), blob); err != nil {
		return nil, fmt.Errorf("distributor: persist commitments: %w", err)
	}

	if len(commitments) == 0 {
		// Deposits existed but no gauge had qualifying voters. Record a
		// null submission so the state is auditable.
		if err := d.store.Put(store.SubmissionKey(net.Name, deadline), []byte(store.NullSubmission)); err != nil {
			return nil, fmt.Errorf("distributor: persist null submission: %w", err)
		}
		log.Info("no rewards produced, nothing to submit")
		return &PeriodResult{Network: net.Name, Deadline: deadline, Status: StatusComputed, Commitments: commitments}, nil
	}

	entries := make([]chain.CommitmentEntry, 0, len(commitments))
	for token, c := range commitments {
		entries = append(entries, chain.CommitmentEntry{Identifier: c.Identifier, Token: token, Root: c.Root})
	}
	txHash, err := b.Chain.SubmitCommitments(ctx, entries)
	if err != nil {
		return nil, fmt.Errorf("distributor: submit commitments: %w", err)
	}
	if err := d.store.Put(store.SubmissionKey(net.Name, deadline), []byte(txHash)); err != nil {
		return nil, fmt.Errorf("distributor: persist submission: %w", err)
	}
	metrics.SubmissionsTotal.WithLabelValues(net.Name).Inc()
	log.Info("commitments submitted", "tokens", len(commitments), "tx", txHash)

	return &PeriodResult{
		Network:     net.Name,
		Deadline:    deadline,
		Status:      StatusSubmitted,
		Commitments: commitments,
		TxHash:      txHash,
	}, nil
}

// confirmed loads the persisted commitment and submission for the period
// and reports whether the submission transaction succeeded on-chain.
func (d *Distributor) confirmed(ctx context.Context, client chain.Client, network string, deadline int64) (map[string]merkle.Commitment, string, bool, error) {
	blob, present, err := d.store.Get(store.CommitmentKey(network, deadline))
	if err != nil || !present {
		return nil, "", false, err
	}
	txBytes, present, err := d.store.Get(store.SubmissionKey(network, deadline))
	if err != nil || !present {
		return nil, "", false, err
	}

	txHash := string(txBytes)
	if txHash == "" || txHash == store.NullSubmission {
		return nil, "", false, nil
	}
	status, err := client.TransactionStatus(ctx, txHash)
	if err != nil {
		return nil, "", false, fmt.Errorf("distributor: check submission: %w", err)
	}
	if status != chain.StatusSuccess {
		return nil, "", false, nil
	}

	var commitments map[string]merkle.Commitment
	if err := json.Unmarshal(blob, &commitments); err != nil {
		return nil, "", false, fmt.Errorf("distributor: decode stored commitments: %w", err)
	}
	return commitments, txHash, true, nil
}

// compute recomputes the period's commitments from scratch.
func (d *Distributor) compute(ctx context.Context, net config.Network, b Backends, deadline int64, deposits []bribes.Bribe, log *slog.Logger) (map[string]merkle.Commitment, error) {
	// Vote queries are restricted to gauges known in configuration;
	// deposits toward unknown gauges drop out in allocation.
	seen := make(map[string]bool)
	var gauges []string
	for _, dep := range deposits {
		if !seen[dep.Gauge] && net.HasGauge(dep.Gauge) {
			seen[dep.Gauge] = true
			gauges = append(gauges, dep.Gauge)
		}
	}

	lockLowerBound := deadline - net.MaxLockDuration
	gaugeVotes, err := b.Oracle.AllGaugeVotes(ctx, gauges, deadline, lockLowerBound)
	if err != nil {
		return nil, fmt.Errorf("distributor: query votes: %w", err)
	}

	rewardsByToken, err := rewards.Allocate(deposits, gaugeVotes)
	if err != nil {
		return nil, fmt.Errorf("distributor: allocate rewards: %w", err)
	}

	commitments, err := merkle.Build(rewardsByToken, net.Contracts.BribeMarket, deadline)
	if err != nil {
		return nil, fmt.Errorf("distributor: build commitments: %w", err)
	}
	log.Debug("computed commitments", "gauges", len(gauges), "tokens", len(commitments))
	return commitments, nil
}

// Commitments returns the stored commitments for a period, or
// ErrNoCommitment when the period has never been computed.
func (d *Distributor) Commitments(ctx context.Context, network string, deadline int64) (map[string]merkle.Commitment, error) {
	if _, err := d.cfg.Network(network); err != nil {
		return nil, err
	}
	blob, present, err := d.store.Get(store.CommitmentKey(network, deadline))
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, fmt.Errorf("%w: network %s deadline %d", ErrNoCommitment, network, deadline)
	}
	var commitments map[string]merkle.Commitment
	if err := json.Unmarshal(blob, &commitments); err != nil {
		return nil, fmt.Errorf("distributor: decode stored commitments: %w", err)
	}
	return commitments, nil
}
