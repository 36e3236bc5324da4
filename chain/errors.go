package chain

import "errors"

var (
	// ErrConnectionFailed indicates the client could not reach the RPC node.
	ErrConnectionFailed = errors.New("chain: connection failed")

	// ErrInvalidResponse indicates the node returned a malformed or
	// unexpected response.
	ErrInvalidResponse = errors.New("chain: invalid response")

	// ErrSubmitFailed indicates the submission transaction was rejected
	// by the node.
	ErrSubmitFailed = errors.New("chain: submission rejected")
)
