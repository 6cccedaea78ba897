package policycmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/evanildobarros/isotek-qms/domains/commission/be/repo"
	"github.com/evanildobarros/isotek-qms/domains/commission/be/service"
	"github.com/evanildobarros/isotek-qms/platform/go/persistence"
)

// Command groups commission policy helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Commission policy utilities (show/set)",
	}

	cmd.AddCommand(showCommand())
	cmd.AddCommand(setCommand())
	return cmd
}

func showCommand() *cobra.Command {
	var databaseURL string

	c := &cobra.Command{
		Use:   "show",
		Short: "Print the current global commission policy snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			svc, pool, err := buildService(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer persistence.ClosePool(pool)

			policy, err := svc.Policy(ctx)
			if err != nil {
				return err
			}
			return printJSON(policy)
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "postgres connection string")
	return c
}

func setCommand() *cobra.Command {
	var (
		databaseURL string
		editor      string
		ratePairs   []string
	)

	c := &cobra.Command{
		Use:   "set",
		Short: "Replace the whole policy snapshot (last write wins)",
		Example: `  isotek policy set --editor ops@isotek \
    --rate bronze=0.70 --rate silver=0.75 --rate gold=0.80 --rate platinum=0.85 --rate diamond=0.90`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			svc, pool, err := buildService(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer persistence.ClosePool(pool)

			rates := make(map[service.Tier]float64, len(ratePairs))
			for _, pair := range ratePairs {
				name, value, found := strings.Cut(pair, "=")
				if !found {
					return fmt.Errorf("malformed rate %q, expected tier=rate", pair)
				}
				tier, err := service.ParseTier(name)
				if err != nil {
					return err
				}
				rate, err := strconv.ParseFloat(value, 64)
				if err != nil {
					return fmt.Errorf("parse rate for %s: %w", name, err)
				}
				rates[tier] = rate
			}

			policy, err := svc.ReplacePolicy(ctx, rates, editor)
			if err != nil {
				return err
			}
			return printJSON(policy)
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "postgres connection string")
	c.Flags().StringVar(&editor, "editor", "", "attribution for the edit")
	c.Flags().StringArrayVar(&ratePairs, "rate", nil, "tier=rate pair, repeat for every tier")
	_ = c.MarkFlagRequired("editor")
	_ = c.MarkFlagRequired("rate")

	return c
}

func buildService(ctx context.Context, databaseURL string) (*service.Service, *pgxpool.Pool, error) {
	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
	if err != nil {
		return nil, nil, fmt.Errorf("init pool: %w", err)
	}

	policyStore, err := repo.NewPostgresPolicyStore(ctx, pool)
	if err != nil {
		persistence.ClosePool(pool)
		return nil, nil, fmt.Errorf("init policy store: %w", err)
	}
	profileStore, err := repo.NewPostgresProfileStore(ctx, pool)
	if err != nil {
		persistence.ClosePool(pool)
		return nil, nil, fmt.Errorf("init profile store: %w", err)
	}

	return service.New(policyStore, profileStore), pool, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
