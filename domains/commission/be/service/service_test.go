package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/evanildobarros/isotek-qms/domains/commission/be/repo"
	"github.com/evanildobarros/isotek-qms/domains/commission/be/service"
)

func newService() *service.Service {
	return service.New(repo.NewMemoryPolicyStore(), repo.NewMemoryProfileStore())
}

func fullRates() map[service.Tier]float64 {
	return map[service.Tier]float64{
		service.TierBronze:   0.71,
		service.TierSilver:   0.76,
		service.TierGold:     0.81,
		service.TierPlatinum: 0.86,
		service.TierDiamond:  0.91,
	}
}

func TestReplacePolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("missing record before first write", func(t *testing.T) {
		svc := newService()
		_, err := svc.Policy(ctx)
		require.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("replace stores versioned snapshot", func(t *testing.T) {
		svc := newService()

		first, err := svc.ReplacePolicy(ctx, fullRates(), "admin-1")
		require.NoError(t, err)
		require.EqualValues(t, 1, first.Version)
		require.Equal(t, "admin-1", first.UpdatedBy)

		rates := fullRates()
		rates[service.TierGold] = 0.79
		second, err := svc.ReplacePolicy(ctx, rates, "admin-2")
		require.NoError(t, err)
		require.EqualValues(t, 2, second.Version)
		require.Equal(t, 0.79, second.Rates[service.TierGold])

		current, err := svc.Policy(ctx)
		require.NoError(t, err)
		require.Equal(t, second.Version, current.Version)
	})

	t.Run("rejects partial rate map", func(t *testing.T) {
		svc := newService()
		rates := fullRates()
		delete(rates, service.TierDiamond)
		_, err := svc.ReplacePolicy(ctx, rates, "admin-1")
		require.ErrorIs(t, err, service.ErrValidation)
	})

	t.Run("rejects unknown tier key", func(t *testing.T) {
		svc := newService()
		rates := fullRates()
		rates[service.Tier("wood")] = 0.5
		_, err := svc.ReplacePolicy(ctx, rates, "admin-1")
		require.ErrorIs(t, err, service.ErrValidation)
	})

	t.Run("rejects out-of-range rate", func(t *testing.T) {
		svc := newService()
		rates := fullRates()
		rates[service.TierBronze] = 1.2
		_, err := svc.ReplacePolicy(ctx, rates, "admin-1")
		require.ErrorIs(t, err, service.ErrValidation)
	})

	t.Run("rejects missing editor", func(t *testing.T) {
		svc := newService()
		_, err := svc.ReplacePolicy(ctx, fullRates(), "")
		require.ErrorIs(t, err, service.ErrValidation)
	})
}

func TestProfileDefaults(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	p, err := svc.Profile(ctx, "auditor-1")
	require.NoError(t, err)
	require.Equal(t, "auditor-1", p.AuditorID)
	require.Nil(t, p.Tier)
	require.Nil(t, p.CustomRate)
	require.Equal(t, 1, p.GamificationLevel)
	require.Equal(t, service.TierBronze, p.EffectiveTier())
}

func TestUpsertProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("stores tier and custom rate", func(t *testing.T) {
		svc := newService()
		tier := service.TierGold
		rate := 0.725
		level := 14

		p, err := svc.UpsertProfile(ctx, "auditor-1", service.ProfileInput{
			Tier:              &tier,
			CustomRate:        &rate,
			GamificationLevel: &level,
		})
		require.NoError(t, err)
		require.Equal(t, service.TierGold, *p.Tier)
		require.Equal(t, 0.725, *p.CustomRate)
		require.Equal(t, 14, p.GamificationLevel)
	})

	t.Run("omitted custom rate clears the override", func(t *testing.T) {
		svc := newService()
		rate := 0.725
		_, err := svc.UpsertProfile(ctx, "auditor-1", service.ProfileInput{CustomRate: &rate})
		require.NoError(t, err)

		p, err := svc.UpsertProfile(ctx, "auditor-1", service.ProfileInput{})
		require.NoError(t, err)
		require.Nil(t, p.CustomRate)
	})

	t.Run("omitted tier keeps the previous assignment", func(t *testing.T) {
		svc := newService()
		tier := service.TierPlatinum
		_, err := svc.UpsertProfile(ctx, "auditor-1", service.ProfileInput{Tier: &tier})
		require.NoError(t, err)

		p, err := svc.UpsertProfile(ctx, "auditor-1", service.ProfileInput{})
		require.NoError(t, err)
		require.Equal(t, service.TierPlatinum, *p.Tier)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		svc := newService()

		rate := -0.1
		_, err := svc.UpsertProfile(ctx, "auditor-1", service.ProfileInput{CustomRate: &rate})
		require.ErrorIs(t, err, service.ErrValidation)

		bad := service.Tier("wood")
		_, err = svc.UpsertProfile(ctx, "auditor-1", service.ProfileInput{Tier: &bad})
		require.ErrorIs(t, err, service.ErrValidation)

		_, err = svc.UpsertProfile(ctx, "", service.ProfileInput{})
		require.ErrorIs(t, err, service.ErrValidation)
	})
}
