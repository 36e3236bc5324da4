package distributor

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/regenmarkets/libvebribe-go/chain"
	"github.com/regenmarkets/libvebribe-go/merkle"
	"github.com/regenmarkets/libvebribe-go/store"
)

// Proof is one provable reward entry for a user: everything needed to
// claim on-chain, plus the reconciled claim status.
type Proof struct {
	Identifier string   `json:"identifier"`
	Token      string   `json:"token"`
	User       string   `json:"user"`
	Amount     string   `json:"amount"`
	Deadline   int64    `json:"deadline"`
	Proof      []string `json:"proof"`
	Root       string   `json:"root"`
	Claimed    string   `json:"claimed"`
	Claimable  string   `json:"claimable"`
}

// ClaimStatus is a user's claimable rewards across all periods.
type ClaimStatus struct {
	Proofs map[int64][]Proof `json:"proofs"`
	Totals map[string]string `json:"totals"`
}

// UserProofs regenerates the user's membership proofs across every
// persisted period of the network, without touching the chain. A user
// with no matching ledger entries gets an empty map, not an error.
func (d *Distributor) UserProofs(ctx context.Context, network, user string) (map[int64][]Proof, error) {
	if _, err := d.cfg.Network(network); err != nil {
		return nil, err
	}

	keys, err := d.store.List(store.CommitmentPrefix(network))
	if err != nil {
		return nil, err
	}

	proofs := make(map[int64][]Proof)
	for _, key := range keys {
		deadline, err := store.DeadlineFromKey(key)
		if err != nil {
			return nil, err
		}
		blob, present, err := d.store.Get(key)
		if err != nil {
			return nil, err
		}
		if !present {
			continue
		}
		var commitments map[string]merkle.Commitment
		if err := json.Unmarshal(blob, &commitments); err != nil {
			return nil, fmt.Errorf("distributor: decode stored commitments: %w", err)
		}

		entries, err := periodProofs(commitments, user, deadline)
		if err != nil {
			return nil, err
		}
		if len(entries) > 0 {
			proofs[deadline] = entries
		}
	}
	return proofs, nil
}

// periodProofs extracts the user's proofs from one period's commitments,
// ordered by token for stable output.
func periodProofs(commitments map[string]merkle.Commitment, user string, deadline int64) ([]Proof, error) {
	tokens := make([]string, 0, len(commitments))
	for token := range commitments {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)

	var entries []Proof
	for _, token := range tokens {
		c := commitments[token]

		var reward *Proof
		for _, ur := range c.UserRewards {
			if strings.EqualFold(ur.User, user) {
				reward = &Proof{
					Identifier: c.Identifier,
					Token:      token,
					User:       user,
					Amount:     ur.Amount,
					Deadline:   deadline,
					Root:       c.Root,
					Claimed:    "0",
					Claimable:  "0",
				}
				break
			}
		}
		if reward == nil {
			continue
		}

		leaf, err := merkle.Leaf(reward.User, reward.Amount)
		if err != nil {
			return nil, err
		}
		tree, err := merkle.Load(c.Tree)
		if err != nil {
			return nil, err
		}
		path, ok := tree.Proof(leaf)
		if !ok {
			// The ledger entry must be in its own tree by construction.
			return nil, fmt.Errorf("distributor: stored tree for token %s missing ledger leaf", token)
		}
		reward.Proof = path
		entries = append(entries, *reward)
	}
	return entries, nil
}

// UserClaimStatus reconciles the user's proofs against already-claimed
// amounts read from the chain in one batched round trip. Entries with
// nothing left to claim are dropped; claimable totals are aggregated per
// token. An empty result is valid.
func (d *Distributor) UserClaimStatus(ctx context.Context, network, user string) (*ClaimStatus, error) {
	proofs, err := d.UserProofs(ctx, network, user)
	if err != nil {
		return nil, err
	}

	b, ok := d.backends[network]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoBackends, network)
	}

	deadlines := make([]int64, 0, len(proofs))
	for deadline := range proofs {
		deadlines = append(deadlines, deadline)
	}
	sort.Slice(deadlines, func(i, j int) bool { return deadlines[i] < deadlines[j] })

	var queries []chain.ClaimQuery
	for _, deadline := range deadlines {
		for _, p := range proofs[deadline] {
			queries = append(queries, chain.ClaimQuery{Identifier: p.Identifier, User: user})
		}
	}

	status := &ClaimStatus{Proofs: make(map[int64][]Proof), Totals: make(map[string]string)}
	if len(queries) == 0 {
		return status, nil
	}

	claimed, err := b.Chain.ClaimedAmounts(ctx, queries)
	if err != nil {
		return nil, err
	}
	if len(claimed) != len(queries) {
		return nil, fmt.Errorf("%w: %d amounts for %d queries", chain.ErrInvalidResponse, len(claimed), len(queries))
	}

	totals := make(map[string]decimal.Decimal)
	i := 0
	for _, deadline := range deadlines {
		var kept []Proof
		for _, p := range proofs[deadline] {
			claimedAmount := decimal.NewFromBigInt(claimed[i], 0)
			i++

			amount, err := decimal.NewFromString(p.Amount)
			if err != nil {
				return nil, fmt.Errorf("distributor: stored amount %q: %w", p.Amount, err)
			}
			claimable := amount.Sub(claimedAmount)
			if !claimable.IsPositive() {
				continue
			}

			p.Claimed = claimedAmount.String()
			p.Claimable = claimable.String()
			kept = append(kept, p)
			totals[p.Token] = totals[p.Token].Add(claimable)
		}
		if len(kept) > 0 {
			status.Proofs[deadline] = kept
		}
	}
	for token, total := range totals {
		status.Totals[token] = total.String()
	}
	return status, nil
}
