package service

import (
	"errors"
	"fmt"
)

// ErrValidation marks malformed settlement input.
var ErrValidation = errors.New("invalid settlement input")

// Pricing carries the platform-wide engagement pricing configuration: the
// default fee per engagement and the third-party payment processing costs.
// None of these are hardcoded into the calculation.
type Pricing struct {
	BasePrice           float64 // default engagement fee, overridable per assignment
	GatewayPercent      float64 // proportional gateway cost, e.g. 0.0399
	FixedTransactionFee float64 // flat gateway cost per transaction
}

// Breakdown is the full settlement split for one engagement fee. It is computed
// on demand and never persisted. AuditorShare + PlatformShare always equals
// NetBasis; values stay unrounded, rounding happens at the presentation boundary.
type Breakdown struct {
	GrossTotal    float64
	GatewayCost   float64
	NetBasis      float64
	AuditorShare  float64
	PlatformShare float64
	Rate          float64
	TierLabel     string
}

// Settle computes the split of a gross engagement fee at the given commission
// rate. Deterministic and side-effect free; aggregation over many engagements
// is a separate explicit fold.
func (p Pricing) Settle(gross, rate float64) (Breakdown, error) {
	if gross < 0 {
		return Breakdown{}, fmt.Errorf("%w: gross total must not be negative, got %v", ErrValidation, gross)
	}
	if rate < 0 || rate > 1 {
		return Breakdown{}, fmt.Errorf("%w: rate %v outside [0,1]", ErrValidation, rate)
	}

	gatewayCost := gross*p.GatewayPercent + p.FixedTransactionFee
	netBasis := gross - gatewayCost
	if netBasis < 0 {
		netBasis = 0
	}
	auditorShare := netBasis * rate

	return Breakdown{
		GrossTotal:    gross,
		GatewayCost:   gatewayCost,
		NetBasis:      netBasis,
		AuditorShare:  auditorShare,
		PlatformShare: netBasis - auditorShare,
		Rate:          rate,
	}, nil
}
