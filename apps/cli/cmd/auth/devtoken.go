package auth

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/evanildobarros/isotek-qms/platform/go/auth/devtoken"
)

// Command groups auth-related helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Auth utilities (dev tokens)",
	}

	cmd.AddCommand(devtokenCommand())
	return cmd
}

func devtokenCommand() *cobra.Command {
	var (
		secret    string
		userID    string
		email     string
		name      string
		tenant    string
		isAdmin   bool
		expiresIn time.Duration
	)

	c := &cobra.Command{
		Use:   "devtoken",
		Short: "Mint a signed bearer token for local and CI environments",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := devtoken.Build(devtoken.Params{
				UserID:    userID,
				Email:     email,
				Name:      name,
				Tenant:    tenant,
				IsAdmin:   isAdmin,
				ExpiresIn: expiresIn,
			}, []byte(secret), time.Now().UTC())
			if err != nil {
				return fmt.Errorf("build dev token: %w", err)
			}

			fmt.Println(token)
			return nil
		},
	}

	c.Flags().StringVar(&secret, "secret", "", "HMAC signing secret (same as AUTH_HMAC_SECRET)")
	c.Flags().StringVar(&userID, "user-id", "", "subject id for the token")
	c.Flags().StringVar(&email, "email", "", "email claim")
	c.Flags().StringVar(&name, "name", "", "display name claim")
	c.Flags().StringVar(&tenant, "tenant", "", "home organization id claim")
	c.Flags().BoolVar(&isAdmin, "admin", false, "set the isAdmin claim")
	c.Flags().DurationVar(&expiresIn, "expires-in", time.Hour, "token lifetime")
	_ = c.MarkFlagRequired("secret")
	_ = c.MarkFlagRequired("user-id")
	_ = c.MarkFlagRequired("email")

	return c
}
