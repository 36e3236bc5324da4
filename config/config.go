// Package config defines the explicit per-network configuration passed
// into every component. There is no process-wide registry: callers hold
// a Config value and look networks up by name.
package config

import "fmt"

// Gauge is a configured gauge eligible to receive incentive deposits.
type Gauge struct {
	Address  string `json:"address" koanf:"address"`
	LPToken  string `json:"lpToken" koanf:"lp_token"`
	LPSymbol string `json:"lpSymbol" koanf:"lp_symbol"`
}

// Contracts holds the deployed contract addresses for a network.
type Contracts struct {
	BribeMarket       string `json:"bribeMarket" koanf:"bribe_market"`
	RewardDistributor string `json:"rewardDistributor" koanf:"reward_distributor"`
	GaugeController   string `json:"gaugeController" koanf:"gauge_controller"`
	VotingEscrow      string `json:"votingEscrow" koanf:"voting_escrow"`
}

// Network is the full configuration for one network.
type Network struct {
	Name string `json:"name" koanf:"name"`

	// RPCURL is the Ethereum JSON-RPC endpoint.
	RPCURL string `json:"rpcUrl" koanf:"rpc_url"`

	// Submitter is the node-managed account used for submissions.
	Submitter string `json:"submitter" koanf:"submitter"`

	// ProposalStartTime and ProposalDuration define the period schedule:
	// deadlines fall on start + k*duration, in unix seconds.
	ProposalStartTime int64 `json:"proposalStartTime" koanf:"proposal_start_time"`
	ProposalDuration  int64 `json:"proposalDuration" koanf:"proposal_duration"`

	// MaxLockDuration bounds lock eligibility: locks older than
	// deadline - MaxLockDuration carry no power at the deadline.
	MaxLockDuration int64 `json:"maxLockDuration" koanf:"max_lock_duration"`

	// BribeAPI is the incentive deposit source base URL.
	BribeAPI string `json:"bribeApi" koanf:"bribe_api"`

	// GaugesSubgraph is the indexed vote/lock data source URL.
	GaugesSubgraph string `json:"gaugesSubgraph" koanf:"gauges_subgraph"`

	Contracts Contracts `json:"contracts" koanf:"contracts"`
	Gauges    []Gauge   `json:"gauges" koanf:"gauges"`
}

// GaugeAddresses returns the configured gauge addresses.
func (n Network) GaugeAddresses() []string {
	out := make([]string, len(n.Gauges))
	for i, g := range n.Gauges {
		out[i] = g.Address
	}
	return out
}

// HasGauge reports whether the address is a configured gauge.
func (n Network) HasGauge(address string) bool {
	for _, g := range n.Gauges {
		if g.Address == address {
			return true
		}
	}
	return false
}

// Config is the process configuration.
type Config struct {
	// ListenAddr is the HTTP listen address, e.g. ":8080".
	ListenAddr string `json:"listenAddr" koanf:"listen_addr"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `json:"logLevel" koanf:"log_level"`

	// DataDir holds the persistence database.
	DataDir string `json:"dataDir" koanf:"data_dir"`

	// Networks maps network name to its configuration.
	Networks map[string]Network `json:"networks" koanf:"networks"`
}

// Network returns the configuration for the named network, or
// ErrUnknownNetwork. A network without a configured subgraph is rejected
// here so callers never query with a missing endpoint.
func (c Config) Network(name string) (Network, error) {
	n, ok := c.Networks[name]
	if !ok {
		return Network{}, fmt.Errorf("%w: %q", ErrUnknownNetwork, name)
	}
	if n.GaugesSubgraph == "" {
		return Network{}, fmt.Errorf("%w: network %q", ErrNoSubgraph, name)
	}
	return n, nil
}
