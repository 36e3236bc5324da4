// Package merkle builds tamper-evident commitments over per-voter reward
// ledgers: keccak-256 merkle trees with regenerable membership proofs.
package merkle

import (
	"encoding/json"
	"fmt"

	"github.com/regenmarkets/libvebribe-go/rewards"
)

// Commitment is the persisted commitment for one (period, token): the
// deterministic reward identifier, the tree root, the serialized tree,
// and the ledger the tree was built from.
type Commitment struct {
	Identifier  string               `json:"identifier"`
	Root        string               `json:"root"`
	Tree        json.RawMessage      `json:"tree"`
	Total       string               `json:"total"`
	UserRewards []rewards.UserReward `json:"userRewards"`
}

// Build turns a reward ledger into one Commitment per token. Identical
// ledgers always produce identical roots regardless of entry order.
func Build(rewardsByToken map[string]*rewards.TokenRewards, market string, deadline int64) (map[string]Commitment, error) {
	commitments := make(map[string]Commitment, len(rewardsByToken))

	for token, tr := range rewardsByToken {
		leaves := make([][]byte, 0, len(tr.UserRewards))
		for _, ur := range tr.UserRewards {
			leaf, err := Leaf(ur.User, ur.Amount)
			if err != nil {
				return nil, fmt.Errorf("merkle: token %s user %s: %w", token, ur.User, err)
			}
			leaves = append(leaves, leaf)
		}

		tree, err := NewTree(leaves)
		if err != nil {
			return nil, fmt.Errorf("merkle: token %s: %w", token, err)
		}
		dump, err := tree.Dump()
		if err != nil {
			return nil, fmt.Errorf("merkle: token %s: %w", token, err)
		}
		id, err := Identifier(market, token, deadline)
		if err != nil {
			return nil, fmt.Errorf("merkle: token %s: %w", token, err)
		}

		commitments[token] = Commitment{
			Identifier:  id,
			Root:        tree.Root(),
			Tree:        dump,
			Total:       tr.Total,
			UserRewards: tr.UserRewards,
		}
	}
	return commitments, nil
}
