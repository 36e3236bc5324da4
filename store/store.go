// Package store persists distribution records in a flat key-value
// store. Absence is a typed lookup result, not an error: the controller
// uses present/absent to drive its idempotency decisions.
package store

import (
	"fmt"
	"strconv"
	"strings"
)

// Store is the key-value persistence interface.
type Store interface {
	// Put stores a value under key, overwriting any previous value.
	Put(key string, value []byte) error

	// Get retrieves a value. The second return reports presence.
	Get(key string) ([]byte, bool, error)

	// List returns all keys with the given prefix, in lexical order.
	List(prefix string) ([]string, error)

	// Close releases the underlying resources.
	Close() error
}

// NullSubmission is the submission value recorded when a period was
// computed but produced nothing to submit. Distinct from an absent
// record so the state machine stays auditable.
const NullSubmission = "null"

// CommitmentKey is the key holding the per-token commitment blob for a
// (network, period).
func CommitmentKey(network string, deadline int64) string {
	return fmt.Sprintf("merkle-trees-%s-%d", network, deadline)
}

// CommitmentPrefix is the List prefix covering every period of a network.
func CommitmentPrefix(network string) string {
	return fmt.Sprintf("merkle-trees-%s-", network)
}

// SubmissionKey is the key holding the submission transaction hash for a
// (network, period).
func SubmissionKey(network string, deadline int64) string {
	return fmt.Sprintf("proof-tx-%s-%d", network, deadline)
}

// DeadlineFromKey extracts the period deadline from a commitment key.
func DeadlineFromKey(key string) (int64, error) {
	i := strings.LastIndex(key, "-")
	if i < 0 {
		return 0, fmt.Errorf("store: malformed key %q", key)
	}
	d, err := strconv.ParseInt(key[i+1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("store: malformed key %q: %w", key, err)
	}
	return d, nil
}
