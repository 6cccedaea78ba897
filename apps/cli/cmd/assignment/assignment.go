package assignmentcmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/evanildobarros/isotek-qms/domains/assignments/be/repo"
	"github.com/evanildobarros/isotek-qms/domains/assignments/be/service"
	"github.com/evanildobarros/isotek-qms/platform/go/persistence"
)

const dateLayout = "2006-01-02"

// Command groups assignment registry helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assignment",
		Short: "Assignment utilities (create/transition/list)",
	}

	cmd.AddCommand(createCommand())
	cmd.AddCommand(transitionCommand())
	cmd.AddCommand(listCommand())
	return cmd
}

func createCommand() *cobra.Command {
	var (
		databaseURL  string
		auditorID    string
		tenantID     string
		startDate    string
		endDate      string
		agreedAmount float64
		notes        string
	)

	c := &cobra.Command{
		Use:   "create",
		Short: "Register a new engagement in the Scheduled state",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			svc, pool, err := buildService(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer persistence.ClosePool(pool)

			tenant, err := uuid.Parse(tenantID)
			if err != nil {
				return fmt.Errorf("parse tenant id: %w", err)
			}
			start, err := time.Parse(dateLayout, startDate)
			if err != nil {
				return fmt.Errorf("parse start date: %w", err)
			}

			input := service.CreateInput{
				AuditorID: auditorID,
				TenantID:  tenant,
				StartDate: start,
				CreatedBy: "cli",
			}
			if endDate != "" {
				end, err := time.Parse(dateLayout, endDate)
				if err != nil {
					return fmt.Errorf("parse end date: %w", err)
				}
				input.EndDate = &end
			}
			if cmd.Flags().Changed("agreed-amount") {
				input.AgreedAmount = &agreedAmount
			}
			if notes != "" {
				input.Notes = &notes
			}

			a, err := svc.Create(ctx, input)
			if err != nil {
				return err
			}
			return printJSON(a)
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "postgres connection string")
	c.Flags().StringVar(&auditorID, "auditor-id", "", "auditor subject id")
	c.Flags().StringVar(&tenantID, "tenant-id", "", "client organization id")
	c.Flags().StringVar(&startDate, "start-date", "", "engagement window start (YYYY-MM-DD)")
	c.Flags().StringVar(&endDate, "end-date", "", "engagement window end (YYYY-MM-DD), omit for open-ended")
	c.Flags().Float64Var(&agreedAmount, "agreed-amount", 0, "negotiated engagement fee, omit to use the base price")
	c.Flags().StringVar(&notes, "notes", "", "free-text notes")
	_ = c.MarkFlagRequired("auditor-id")
	_ = c.MarkFlagRequired("tenant-id")
	_ = c.MarkFlagRequired("start-date")

	return c
}

func transitionCommand() *cobra.Command {
	var (
		databaseURL  string
		assignmentID string
		target       string
	)

	c := &cobra.Command{
		Use:   "transition",
		Short: "Move an assignment through its lifecycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			svc, pool, err := buildService(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer persistence.ClosePool(pool)

			id, err := uuid.Parse(assignmentID)
			if err != nil {
				return fmt.Errorf("parse assignment id: %w", err)
			}
			status, err := service.ParseStatus(target)
			if err != nil {
				return err
			}

			a, err := svc.Transition(ctx, id, status)
			if err != nil {
				return err
			}
			return printJSON(a)
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "postgres connection string")
	c.Flags().StringVar(&assignmentID, "id", "", "assignment id")
	c.Flags().StringVar(&target, "to", "", "target status (scheduled|in_progress|completed|canceled)")
	_ = c.MarkFlagRequired("id")
	_ = c.MarkFlagRequired("to")

	return c
}

func listCommand() *cobra.Command {
	var (
		databaseURL string
		auditorID   string
	)

	c := &cobra.Command{
		Use:   "list",
		Short: "List an auditor's engagements",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			svc, pool, err := buildService(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer persistence.ClosePool(pool)

			items, err := svc.ListForAuditor(ctx, auditorID)
			if err != nil {
				return err
			}
			return printJSON(items)
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "postgres connection string")
	c.Flags().StringVar(&auditorID, "auditor-id", "", "auditor subject id")
	_ = c.MarkFlagRequired("auditor-id")

	return c
}

func buildService(ctx context.Context, databaseURL string) (*service.Service, *pgxpool.Pool, error) {
	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
	if err != nil {
		return nil, nil, fmt.Errorf("init pool: %w", err)
	}

	repository, err := repo.NewPostgresRepository(ctx, pool)
	if err != nil {
		persistence.ClosePool(pool)
		return nil, nil, fmt.Errorf("init assignments repository: %w", err)
	}

	return service.New(repository, nil), pool, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
