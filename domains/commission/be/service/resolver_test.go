package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func tierPtr(t Tier) *Tier       { return &t }
func ratePtr(v float64) *float64 { return &v }

func policyWith(rates map[Tier]float64) *GlobalPolicy {
	return &GlobalPolicy{Rates: rates, Version: 1}
}

func TestResolveRatePrecedence(t *testing.T) {
	policy := policyWith(map[Tier]float64{
		TierBronze:   0.71,
		TierSilver:   0.76,
		TierGold:     0.80,
		TierPlatinum: 0.86,
		TierDiamond:  0.91,
	})

	t.Run("custom rate beats everything", func(t *testing.T) {
		profile := Profile{AuditorID: "a1", Tier: tierPtr(TierGold), CustomRate: ratePtr(0.725)}
		overrides := map[Tier]float64{TierGold: 0.82}

		res, err := ResolveRate(profile, policy, overrides)
		require.NoError(t, err)
		require.Equal(t, 0.725, res.Rate)
		require.Equal(t, TierGold, res.Tier)
		require.Equal(t, SourceCustomRate, res.Source)
	})

	t.Run("zero custom rate is a real override", func(t *testing.T) {
		profile := Profile{AuditorID: "a1", Tier: tierPtr(TierGold), CustomRate: ratePtr(0)}

		res, err := ResolveRate(profile, policy, nil)
		require.NoError(t, err)
		require.Equal(t, 0.0, res.Rate)
		require.Equal(t, SourceCustomRate, res.Source)
	})

	t.Run("tenant override beats global policy", func(t *testing.T) {
		profile := Profile{AuditorID: "a1", Tier: tierPtr(TierGold)}
		overrides := map[Tier]float64{TierGold: 0.82}

		res, err := ResolveRate(profile, policy, overrides)
		require.NoError(t, err)
		require.Equal(t, 0.82, res.Rate)
		require.Equal(t, SourceTenantOverride, res.Source)
	})

	t.Run("override for another tier is ignored", func(t *testing.T) {
		profile := Profile{AuditorID: "a1", Tier: tierPtr(TierGold)}
		overrides := map[Tier]float64{TierSilver: 0.60}

		res, err := ResolveRate(profile, policy, overrides)
		require.NoError(t, err)
		require.Equal(t, 0.80, res.Rate)
		require.Equal(t, SourceGlobalPolicy, res.Source)
	})

	t.Run("global policy applies without overrides", func(t *testing.T) {
		profile := Profile{AuditorID: "a1", Tier: tierPtr(TierDiamond)}

		res, err := ResolveRate(profile, policy, nil)
		require.NoError(t, err)
		require.Equal(t, 0.91, res.Rate)
		require.Equal(t, SourceGlobalPolicy, res.Source)
	})

	t.Run("missing policy falls back to built-in defaults", func(t *testing.T) {
		profile := Profile{AuditorID: "a1", Tier: tierPtr(TierSilver)}

		res, err := ResolveRate(profile, nil, nil)
		require.NoError(t, err)
		require.Equal(t, 0.75, res.Rate)
		require.Equal(t, SourceFallback, res.Source)
	})

	t.Run("policy missing the tier falls back", func(t *testing.T) {
		sparse := policyWith(map[Tier]float64{TierBronze: 0.71})
		profile := Profile{AuditorID: "a1", Tier: tierPtr(TierGold)}

		res, err := ResolveRate(profile, sparse, nil)
		require.NoError(t, err)
		require.Equal(t, 0.80, res.Rate)
		require.Equal(t, SourceFallback, res.Source)
	})
}

func TestResolveRateDerivesTierFromLevel(t *testing.T) {
	profile := Profile{AuditorID: "a1", GamificationLevel: 12}

	res, err := ResolveRate(profile, nil, nil)
	require.NoError(t, err)
	require.Equal(t, TierGold, res.Tier)
	require.Equal(t, 0.80, res.Rate)
	require.Equal(t, SourceFallback, res.Source)
}

func TestResolveRateRejectsOutOfRange(t *testing.T) {
	t.Run("custom rate", func(t *testing.T) {
		profile := Profile{AuditorID: "a1", CustomRate: ratePtr(1.5)}
		_, err := ResolveRate(profile, nil, nil)
		require.ErrorIs(t, err, ErrComputation)
	})

	t.Run("tenant override", func(t *testing.T) {
		profile := Profile{AuditorID: "a1", Tier: tierPtr(TierGold)}
		_, err := ResolveRate(profile, nil, map[Tier]float64{TierGold: -0.1})
		require.ErrorIs(t, err, ErrComputation)
	})

	t.Run("global policy", func(t *testing.T) {
		profile := Profile{AuditorID: "a1", Tier: tierPtr(TierGold)}
		corrupt := policyWith(map[Tier]float64{TierGold: 80})
		_, err := ResolveRate(profile, corrupt, nil)
		require.ErrorIs(t, err, ErrComputation)
	})
}

func TestTierForLevel(t *testing.T) {
	cases := []struct {
		level int
		want  Tier
	}{
		{0, TierBronze},
		{1, TierBronze},
		{4, TierBronze},
		{5, TierSilver},
		{9, TierSilver},
		{10, TierGold},
		{19, TierGold},
		{20, TierPlatinum},
		{34, TierPlatinum},
		{35, TierDiamond},
		{100, TierDiamond},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, TierForLevel(tc.level), "level %d", tc.level)
	}
}

func TestParseTier(t *testing.T) {
	parsed, err := ParseTier("platinum")
	require.NoError(t, err)
	require.Equal(t, TierPlatinum, parsed)

	_, err = ParseTier("wood")
	require.ErrorIs(t, err, ErrValidation)
}
