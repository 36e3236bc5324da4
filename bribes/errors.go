package bribes

import "errors"

var (
	// ErrFetchFailed indicates the incentives API request failed or
	// returned a malformed response.
	ErrFetchFailed = errors.New("bribes: fetch failed")
)
