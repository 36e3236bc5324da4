// Package rewards merges incentive deposits with per-gauge voter shares
// into a per-token reward ledger.
package rewards

import (
	"github.com/shopspring/decimal"

	"github.com/regenmarkets/libvebribe-go/bribes"
	"github.com/regenmarkets/libvebribe-go/votes"
)

// UserReward is one voter's accumulated reward for a token, as an exact
// decimal string.
type UserReward struct {
	User   string `json:"user"`
	Amount string `json:"amount"`
}

// TokenRewards is the reward ledger for one token: the total allocated
// amount and the per-voter breakdown.
type TokenRewards struct {
	Token       string       `json:"token"`
	Total       string       `json:"total"`
	UserRewards []UserReward `json:"userRewards"`
}

// Allocate distributes each deposit's amount across the voters of its
// gauge in proportion to their incentive shares, accumulating per
// (token, voter). Deposits whose gauge has no qualifying voters are
// dropped silently: a gauge can receive bribes without receiving votes.
//
// The output is fully determined by the inputs; amounts use exact
// decimal arithmetic with no intermediate rounding.
func Allocate(deposits []bribes.Bribe, gaugeVotes map[string][]votes.GaugeVote) (map[string]*TokenRewards, error) {
	type ledger struct {
		total  decimal.Decimal
		order  []string
		byUser map[string]decimal.Decimal
	}
	ledgers := make(map[string]*ledger)

	for _, dep := range deposits {
		voters := gaugeVotes[dep.Gauge]
		if len(voters) == 0 {
			continue
		}

		amount, err := decimal.NewFromString(dep.Amount)
		if err != nil {
			return nil, err
		}

		l := ledgers[dep.Token]
		if l == nil {
			l = &ledger{byUser: make(map[string]decimal.Decimal)}
			ledgers[dep.Token] = l
		}
		for _, v := range voters {
			share := amount.Mul(v.IncentiveShare)
			if _, ok := l.byUser[v.Voter]; !ok {
				l.order = append(l.order, v.Voter)
			}
			l.byUser[v.Voter] = l.byUser[v.Voter].Add(share)
			l.total = l.total.Add(share)
		}
	}

	result := make(map[string]*TokenRewards, len(ledgers))
	for token, l := range ledgers {
		tr := &TokenRewards{
			Token:       token,
			Total:       l.total.String(),
			UserRewards: make([]UserReward, 0, len(l.order)),
		}
		for _, user := range l.order {
			tr.UserRewards = append(tr.UserRewards, UserReward{User: user, Amount: l.byUser[user].String()})
		}
		result[token] = tr
	}
	return result, nil
}
