package config

import "errors"

var (
	// ErrUnknownNetwork indicates the network name is not configured.
	ErrUnknownNetwork = errors.New("config: unknown network")

	// ErrNoSubgraph indicates the network has no gauges subgraph endpoint.
	ErrNoSubgraph = errors.New("config: gauges subgraph is not configured")

	// ErrNoBribeAPI indicates the network has no incentives API endpoint.
	ErrNoBribeAPI = errors.New("config: bribe API is not configured")

	// ErrInvalidSchedule indicates the proposal schedule is malformed.
	ErrInvalidSchedule = errors.New("config: invalid proposal schedule")

	// ErrInvalidLogLevel indicates the log level is not recognized.
	ErrInvalidLogLevel = errors.New("config: invalid log level (must be \"debug\", \"info\", \"warn\", or \"error\")")

	// ErrEmptyDataDir indicates the data directory path is empty.
	ErrEmptyDataDir = errors.New("config: data directory must not be empty")

	// ErrInvalidListenAddr indicates the listen address is malformed.
	ErrInvalidListenAddr = errors.New("config: invalid listen address")
)
