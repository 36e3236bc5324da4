// Package chain talks to the on-chain side of reward distribution:
// publishing per-token commitments, checking transaction receipts, and
// reading already-claimed amounts.
package chain

import (
	"context"
	"math/big"
)

// CommitmentEntry is one per-token commitment to publish on-chain.
type CommitmentEntry struct {
	Identifier string
	Token      string
	Root       string
}

// ClaimQuery identifies one (reward identifier, user) claimed-amount read.
type ClaimQuery struct {
	Identifier string
	User       string
}

// TxStatus is the confirmation status of a submitted transaction.
type TxStatus int

const (
	// StatusUnknown means the transaction is pending or not found.
	StatusUnknown TxStatus = iota
	// StatusSuccess means the transaction was mined and succeeded.
	StatusSuccess
	// StatusFailed means the transaction was mined and reverted.
	StatusFailed
)

// Client is the on-chain collaborator interface. Submission finality is
// asynchronous: a returned transaction hash must be re-checked later via
// TransactionStatus.
type Client interface {
	// SubmitCommitments publishes the commitment roots to the reward
	// distributor contract and returns the transaction hash.
	SubmitCommitments(ctx context.Context, entries []CommitmentEntry) (string, error)

	// TransactionStatus returns the confirmation status of a transaction.
	// An unmined or unknown transaction is StatusUnknown, not an error.
	TransactionStatus(ctx context.Context, txHash string) (TxStatus, error)

	// ClaimedAmounts returns the already-claimed amount for every query,
	// in order, batched into a single round trip.
	ClaimedAmounts(ctx context.Context, queries []ClaimQuery) ([]*big.Int, error)
}

// Mock is a test double for Client.
// All function fields must be set before the corresponding method is called.
type Mock struct {
	SubmitCommitmentsFn func(ctx context.Context, entries []CommitmentEntry) (string, error)
	TransactionStatusFn func(ctx context.Context, txHash string) (TxStatus, error)
	ClaimedAmountsFn    func(ctx context.Context, queries []ClaimQuery) ([]*big.Int, error)
}

func (m *Mock) SubmitCommitments(ctx context.Context, entries []CommitmentEntry) (string, error) {
	return m.SubmitCommitmentsFn(ctx, entries)
}

func (m *Mock) TransactionStatus(ctx context.Context, txHash string) (TxStatus, error) {
	return m.TransactionStatusFn(ctx, txHash)
}

func (m *Mock) ClaimedAmounts(ctx context.Context, queries []ClaimQuery) ([]*big.Int, error) {
	return m.ClaimedAmountsFn(ctx, queries)
}
