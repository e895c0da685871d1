package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"qabackend/config"
	"qabackend/internal/app"
	"qabackend/internal/auth"
	"qabackend/internal/database"
	"qabackend/internal/domain"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "qactl",
		Short:   "Operator tool for the paid Q&A backend",
		Version: Version,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(refundsCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openApp builds the same wiring the server uses, without the HTTP layer.
func openApp(ctx context.Context) (*app.App, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	return app.Build(ctx, cfg, db, app.Options{})
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			db, err := database.NewDB(&cfg.Database)
			if err != nil {
				return fmt.Errorf("database: %w", err)
			}
			if err := database.AutoMigrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Println("schema up to date")
			return nil
		},
	}
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Expire overdue questions once and refund them",
		Long: `Runs one expiry sweep. With REDIS_ADDR set the run takes the same
lock as the server's scheduler, so it is skipped while another sweep is
in flight.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			report, ran := a.Scheduler.RunSweepOnce(cmd.Context())
			if !ran {
				fmt.Println("skipped: sweep already running")
				return nil
			}
			return printJSON(report)
		},
	}
}

func refundsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refunds",
		Short: "Inspect and retry question refunds",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "retry",
		Short: "Retry failed or stuck refunds once",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			report, ran := a.Scheduler.RunRefundRetryOnce(cmd.Context())
			if !ran {
				fmt.Println("skipped: refund retry already running")
				return nil
			}
			return printJSON(report)
		},
	})
	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		email string
		role  string
	)
	cmd := &cobra.Command{
		Use:   "token [user-id]",
		Short: "Mint an access token for local testing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var userID uint
			if _, err := fmt.Sscan(args[0], &userID); err != nil || userID == 0 {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			role = strings.ToUpper(role)
			switch role {
			case domain.RoleQuestioner, domain.RoleAnswerer, domain.RoleAdmin:
			default:
				return fmt.Errorf("unknown role %q", role)
			}
			cfg := config.Load()
			if cfg.Server.Env == "production" {
				return fmt.Errorf("refusing to mint tokens with APP_ENV=production")
			}
			tok, err := auth.GenerateAccessToken(&cfg.JWT, userID, email, role)
			if err != nil {
				return err
			}
			fmt.Println(tok)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "email claim")
	cmd.Flags().StringVarP(&role, "role", "r", domain.RoleQuestioner, "role claim (QUESTIONER, ANSWERER, ADMIN)")
	return cmd
}
