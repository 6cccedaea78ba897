package service

import "fmt"

// RateSource labels which precedence layer produced the effective rate.
type RateSource string

const (
	SourceCustomRate     RateSource = "custom_rate"
	SourceTenantOverride RateSource = "tenant_override"
	SourceGlobalPolicy   RateSource = "global_policy"
	SourceFallback       RateSource = "fallback"
)

// Resolution is the outcome of rate resolution: the single effective rate, the
// tier it was priced against and the layer it came from.
type Resolution struct {
	Rate   float64
	Tier   Tier
	Source RateSource
}

// ResolveRate resolves the effective commission rate for an auditor.
//
// Precedence, highest first: the profile's custom rate, a tenant-specific tier
// override, the global policy snapshot, the built-in per-tier default. Presence
// is decided by pointers and map membership, never by numeric truthiness; a 0%
// custom rate is honored as a real override.
//
// policy may be nil (record missing or corrupt) and tenantOverrides may be nil
// (deployment without the optional layer). A resolved rate outside [0,1] is a
// configuration defect and fails with ErrComputation; callers must surface it,
// not clamp it.
func ResolveRate(profile Profile, policy *GlobalPolicy, tenantOverrides map[Tier]float64) (Resolution, error) {
	tier := profile.EffectiveTier()

	if profile.CustomRate != nil {
		return checked(Resolution{Rate: *profile.CustomRate, Tier: tier, Source: SourceCustomRate})
	}

	if rate, ok := tenantOverrides[tier]; ok {
		return checked(Resolution{Rate: rate, Tier: tier, Source: SourceTenantOverride})
	}

	if policy != nil {
		if rate, ok := policy.Rates[tier]; ok {
			return checked(Resolution{Rate: rate, Tier: tier, Source: SourceGlobalPolicy})
		}
	}

	return checked(Resolution{Rate: tier.FallbackRate(), Tier: tier, Source: SourceFallback})
}

func checked(r Resolution) (Resolution, error) {
	if r.Rate < 0 || r.Rate > 1 {
		return Resolution{}, fmt.Errorf("%w: rate %v from %s for tier %s outside [0,1]", ErrComputation, r.Rate, r.Source, r.Tier)
	}
	return r, nil
}
