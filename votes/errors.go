package votes

import "errors"

var (
	// ErrSubgraphUnavailable indicates the indexer could not be reached.
	ErrSubgraphUnavailable = errors.New("votes: subgraph unavailable")

	// ErrInvalidResponse indicates the indexer returned a malformed or
	// error response.
	ErrInvalidResponse = errors.New("votes: invalid subgraph response")
)
