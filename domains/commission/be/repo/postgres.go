package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	sqlassets "github.com/evanildobarros/isotek-qms/database"
	"github.com/evanildobarros/isotek-qms/domains/commission/be/service"
)

// PostgresPolicyStore persists the global snapshot as one row; the upsert
// replaces the whole record in a single statement so mid-update readers see a
// complete snapshot.
type PostgresPolicyStore struct {
	pool *pgxpool.Pool
}

// NewPostgresPolicyStore applies the table DDL and returns a store bound to pool.
func NewPostgresPolicyStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresPolicyStore, error) {
	if pool == nil {
		panic("commission policy store requires pool")
	}
	if _, err := pool.Exec(ctx, sqlassets.CommissionPolicySQL); err != nil {
		return nil, fmt.Errorf("ensure commission_policy table: %w", err)
	}
	return &PostgresPolicyStore{pool: pool}, nil
}

func (s *PostgresPolicyStore) Get(ctx context.Context) (service.GlobalPolicy, error) {
	var (
		ratesJSON []byte
		policy    service.GlobalPolicy
	)
	err := s.pool.QueryRow(ctx, `
		SELECT rates, version, updated_by, updated_at FROM commission_policy WHERE singleton`).
		Scan(&ratesJSON, &policy.Version, &policy.UpdatedBy, &policy.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return service.GlobalPolicy{}, service.ErrNotFound
		}
		return service.GlobalPolicy{}, fmt.Errorf("read commission policy: %w", err)
	}

	if err := json.Unmarshal(ratesJSON, &policy.Rates); err != nil {
		return service.GlobalPolicy{}, fmt.Errorf("decode commission policy rates: %w", err)
	}
	return policy, nil
}

func (s *PostgresPolicyStore) Replace(ctx context.Context, rates map[service.Tier]float64, editor string, at time.Time) (service.GlobalPolicy, error) {
	ratesJSON, err := json.Marshal(rates)
	if err != nil {
		return service.GlobalPolicy{}, fmt.Errorf("encode commission policy rates: %w", err)
	}

	var policy service.GlobalPolicy
	err = s.pool.QueryRow(ctx, `
		INSERT INTO commission_policy (singleton, rates, version, updated_by, updated_at)
		VALUES (TRUE, $1, 1, $2, $3)
		ON CONFLICT (singleton) DO UPDATE
		SET rates = EXCLUDED.rates,
		    version = commission_policy.version + 1,
		    updated_by = EXCLUDED.updated_by,
		    updated_at = EXCLUDED.updated_at
		RETURNING version, updated_by, updated_at`,
		ratesJSON, editor, at,
	).Scan(&policy.Version, &policy.UpdatedBy, &policy.UpdatedAt)
	if err != nil {
		return service.GlobalPolicy{}, fmt.Errorf("replace commission policy: %w", err)
	}

	policy.Rates = cloneRates(rates)
	return policy, nil
}

// PostgresProfileStore persists auditor commission profiles.
type PostgresProfileStore struct {
	pool *pgxpool.Pool
}

// NewPostgresProfileStore applies the table DDL and returns a store bound to pool.
func NewPostgresProfileStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresProfileStore, error) {
	if pool == nil {
		panic("commission profile store requires pool")
	}
	if _, err := pool.Exec(ctx, sqlassets.AuditorProfilesSQL); err != nil {
		return nil, fmt.Errorf("ensure auditor_profiles table: %w", err)
	}
	return &PostgresProfileStore{pool: pool}, nil
}

func (s *PostgresProfileStore) Get(ctx context.Context, auditorID string) (service.Profile, error) {
	var (
		p    service.Profile
		tier *string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT auditor_id, tier, custom_rate, gamification_level, updated_at
		FROM auditor_profiles WHERE auditor_id = $1`, auditorID).
		Scan(&p.AuditorID, &tier, &p.CustomRate, &p.GamificationLevel, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return service.Profile{}, service.ErrNotFound
		}
		return service.Profile{}, fmt.Errorf("read auditor profile: %w", err)
	}

	if tier != nil {
		parsed, err := service.ParseTier(*tier)
		if err != nil {
			return service.Profile{}, err
		}
		p.Tier = &parsed
	}
	return p, nil
}

func (s *PostgresProfileStore) Put(ctx context.Context, p service.Profile) (service.Profile, error) {
	var tier *string
	if p.Tier != nil {
		t := string(*p.Tier)
		tier = &t
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO auditor_profiles (auditor_id, tier, custom_rate, gamification_level, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (auditor_id) DO UPDATE
		SET tier = EXCLUDED.tier,
		    custom_rate = EXCLUDED.custom_rate,
		    gamification_level = EXCLUDED.gamification_level,
		    updated_at = EXCLUDED.updated_at`,
		p.AuditorID, tier, p.CustomRate, p.GamificationLevel, p.UpdatedAt,
	)
	if err != nil {
		return service.Profile{}, fmt.Errorf("upsert auditor profile: %w", err)
	}
	return p, nil
}
