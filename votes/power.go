package votes

import "github.com/shopspring/decimal"

// Lock is a snapshot of a voter's linearly decaying voting-power curve:
// power at time t >= Timestamp is max(0, Bias - Slope*(t - Timestamp)).
type Lock struct {
	Bias      decimal.Decimal
	Slope     decimal.Decimal
	Timestamp int64
}

// VotePower evaluates the decay curve at the checkpoint timestamp,
// clamped at zero once the lock has fully decayed.
func VotePower(lock Lock, at int64) decimal.Decimal {
	elapsed := decimal.NewFromInt(at - lock.Timestamp)
	power := lock.Bias.Sub(lock.Slope.Mul(elapsed))
	if power.IsNegative() {
		return decimal.Zero
	}
	return power
}

// weightFullScale converts a stored gauge-vote weight into a fraction of
// one: the indexer records weight in 1e-14 units, so a stored weight of
// 1e-14 denotes 100%.
var weightFullScale = decimal.New(1, 14)

// WeightFraction converts a raw gauge-vote weight to the fraction of the
// voter's power allocated to the gauge.
func WeightFraction(weight decimal.Decimal) decimal.Decimal {
	return weight.Mul(weightFullScale)
}
