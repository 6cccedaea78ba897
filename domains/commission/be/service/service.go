package service

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Errors returned by the service layer.
var (
	ErrNotFound    = errors.New("commission record not found")
	ErrValidation  = errors.New("invalid commission input")
	ErrComputation = errors.New("commission rate resolution failed")
)

// GlobalPolicy is the single versioned snapshot of per-tier default rates.
// It is only ever replaced whole, tagged with the last editor.
type GlobalPolicy struct {
	Rates     map[Tier]float64
	Version   int64
	UpdatedBy string
	UpdatedAt time.Time
}

// Profile holds the per-auditor commission settings. Tier nil means "derive
// from gamification level"; CustomRate nil means "no override". A zero custom
// rate is a legitimate 0% override, distinct from unset.
type Profile struct {
	AuditorID         string
	Tier              *Tier
	CustomRate        *float64
	GamificationLevel int
	UpdatedAt         time.Time
}

// EffectiveTier resolves the tier to price against: the explicit assignment
// when present, otherwise the ladder position implied by the gamification level.
func (p Profile) EffectiveTier() Tier {
	if p.Tier != nil {
		return *p.Tier
	}
	return TierForLevel(p.GamificationLevel)
}

// PolicyStore abstracts persistence of the global snapshot. Replace must write
// the record atomically so concurrent readers see either the old or the new
// complete snapshot.
type PolicyStore interface {
	Get(ctx context.Context) (GlobalPolicy, error)
	Replace(ctx context.Context, rates map[Tier]float64, editor string, at time.Time) (GlobalPolicy, error)
}

// ProfileStore abstracts persistence of per-auditor commission profiles.
type ProfileStore interface {
	Get(ctx context.Context, auditorID string) (Profile, error)
	Put(ctx context.Context, p Profile) (Profile, error)
}

// Service provides commission policy administration and per-auditor profile access.
type Service struct {
	policies PolicyStore
	profiles ProfileStore
	now      func() time.Time
}

// New constructs a Service with required stores.
func New(policies PolicyStore, profiles ProfileStore) *Service {
	if policies == nil {
		panic("commission policy store is required")
	}
	if profiles == nil {
		panic("commission profile store is required")
	}
	return &Service{policies: policies, profiles: profiles, now: time.Now}
}

// Policy returns the current snapshot. A missing record yields ErrNotFound;
// the resolver treats that as "fall back to built-in defaults".
func (s *Service) Policy(ctx context.Context) (GlobalPolicy, error) {
	return s.policies.Get(ctx)
}

// ReplacePolicy swaps the whole snapshot (last write wins). Every tier must be
// present with a rate in [0,1]; a partial map would silently fall through to
// the hardcoded defaults later, which is exactly the ambiguity this rejects.
func (s *Service) ReplacePolicy(ctx context.Context, rates map[Tier]float64, editor string) (GlobalPolicy, error) {
	if editor == "" {
		return GlobalPolicy{}, fmt.Errorf("%w: editor attribution is required", ErrValidation)
	}
	for _, tier := range Tiers() {
		rate, ok := rates[tier]
		if !ok {
			return GlobalPolicy{}, fmt.Errorf("%w: missing rate for tier %s", ErrValidation, tier)
		}
		if rate < 0 || rate > 1 {
			return GlobalPolicy{}, fmt.Errorf("%w: rate %v for tier %s outside [0,1]", ErrValidation, rate, tier)
		}
	}
	if len(rates) != len(Tiers()) {
		return GlobalPolicy{}, fmt.Errorf("%w: unknown tier in rate map", ErrValidation)
	}

	return s.policies.Replace(ctx, rates, editor, s.now().UTC())
}

// Profile returns the auditor's commission profile. Auditors without a stored
// row get a zero-value profile so tier derivation still applies.
func (s *Service) Profile(ctx context.Context, auditorID string) (Profile, error) {
	if auditorID == "" {
		return Profile{}, fmt.Errorf("%w: auditor id is required", ErrValidation)
	}
	p, err := s.profiles.Get(ctx, auditorID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Profile{AuditorID: auditorID, GamificationLevel: 1}, nil
		}
		return Profile{}, err
	}
	return p, nil
}

// ProfileInput carries the admin-editable profile fields.
type ProfileInput struct {
	Tier              *Tier
	CustomRate        *float64
	GamificationLevel *int
}

// UpsertProfile creates or updates the auditor's commission profile.
func (s *Service) UpsertProfile(ctx context.Context, auditorID string, input ProfileInput) (Profile, error) {
	if auditorID == "" {
		return Profile{}, fmt.Errorf("%w: auditor id is required", ErrValidation)
	}
	if input.CustomRate != nil && (*input.CustomRate < 0 || *input.CustomRate > 1) {
		return Profile{}, fmt.Errorf("%w: custom rate %v outside [0,1]", ErrValidation, *input.CustomRate)
	}
	if input.Tier != nil {
		if _, err := ParseTier(string(*input.Tier)); err != nil {
			return Profile{}, err
		}
	}

	current, err := s.Profile(ctx, auditorID)
	if err != nil {
		return Profile{}, err
	}

	if input.Tier != nil {
		current.Tier = input.Tier
	}
	current.CustomRate = input.CustomRate
	if input.GamificationLevel != nil {
		current.GamificationLevel = *input.GamificationLevel
	}
	current.UpdatedAt = s.now().UTC()

	return s.profiles.Put(ctx, current)
}
