package distributor

import "errors"

var (
	// ErrNoCommitment indicates no commitment has been computed for the
	// requested period. This is the explicit "no data" condition; the
	// resolver paths return empty results instead.
	ErrNoCommitment = errors.New("distributor: no commitment for period")

	// ErrNoBackends indicates no external collaborators were configured
	// for the network.
	ErrNoBackends = errors.New("distributor: no backends for network")

	// ErrFutureStartTime indicates the schedule start time is in the future.
	ErrFutureStartTime = errors.New("distributor: proposal start time is in the future")

	// ErrInvalidDuration indicates the schedule duration is not positive.
	ErrInvalidDuration = errors.New("distributor: proposal duration must be positive")
)
