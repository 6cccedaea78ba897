package service

import "fmt"

// Tier is the ordered commission rank ladder. Higher tiers keep a larger share
// of the net engagement fee.
type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
	TierDiamond  Tier = "diamond"
)

// Tiers lists every tier in ascending order.
func Tiers() []Tier {
	return []Tier{TierBronze, TierSilver, TierGold, TierPlatinum, TierDiamond}
}

// ParseTier validates a stored or user-supplied tier string.
func ParseTier(s string) (Tier, error) {
	switch Tier(s) {
	case TierBronze, TierSilver, TierGold, TierPlatinum, TierDiamond:
		return Tier(s), nil
	default:
		return "", fmt.Errorf("%w: unknown tier %q", ErrValidation, s)
	}
}

// fallbackRates is the hardcoded last resort, used only when the global policy
// record is missing or does not cover the tier.
var fallbackRates = map[Tier]float64{
	TierBronze:   0.70,
	TierSilver:   0.75,
	TierGold:     0.80,
	TierPlatinum: 0.85,
	TierDiamond:  0.90,
}

// FallbackRate returns the built-in default share for the tier.
func (t Tier) FallbackRate() float64 {
	return fallbackRates[t]
}

// TierForLevel maps the gamification level supplied by the profile collaborator
// onto a default tier, used when the auditor has no explicit tier assignment.
func TierForLevel(level int) Tier {
	switch {
	case level >= 35:
		return TierDiamond
	case level >= 20:
		return TierPlatinum
	case level >= 10:
		return TierGold
	case level >= 5:
		return TierSilver
	default:
		return TierBronze
	}
}
