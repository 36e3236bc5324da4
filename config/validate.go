package config

import (
	"fmt"
	"net"
	"strings"
)

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
func Validate(cfg Config) error {
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}
	if err := validateAddr(cfg.ListenAddr); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidListenAddr, err)
	}
	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return ErrInvalidLogLevel
	}

	for name, n := range cfg.Networks {
		if err := validateNetwork(name, n); err != nil {
			return err
		}
	}
	return nil
}

// validateNetwork checks one network entry.
func validateNetwork(name string, n Network) error {
	if n.GaugesSubgraph == "" {
		return fmt.Errorf("%w: network %q", ErrNoSubgraph, name)
	}
	if n.BribeAPI == "" {
		return fmt.Errorf("%w: network %q", ErrNoBribeAPI, name)
	}
	if n.ProposalDuration <= 0 {
		return fmt.Errorf("%w: network %q: duration must be positive", ErrInvalidSchedule, name)
	}
	if n.ProposalStartTime <= 0 {
		return fmt.Errorf("%w: network %q: start time must be positive", ErrInvalidSchedule, name)
	}
	return nil
}

// validateAddr checks that addr is a valid host:port address.
func validateAddr(addr string) error {
	_, _, err := net.SplitHostPort(addr)
	return err
}
