package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/mynextmovies/internal/auth/apikey"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/database"
)

func newKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage gateway API keys",
		Long: `Examples:
  simctl keys create --name "my-app" --rate-limit 100 --expires-in 720h
  simctl keys create --name ops --role admin
  simctl keys revoke <key-id>
  simctl keys list`,
	}
	cmd.AddCommand(newKeysCreateCmd(), newKeysRevokeCmd(), newKeysListCmd())
	return cmd
}

// openValidator opens the key database named by the config and migrates it.
func openValidator(cmd *cobra.Command) (*apikey.Validator, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Open(cfg.Reviews.Driver, cfg.Postgres, cfg.Reviews.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	v := apikey.NewValidator(db)
	if err := v.Migrate(cmd.Context()); err != nil {
		db.Close()
		return nil, nil, err
	}
	return v, func() { db.Close() }, nil
}

func newKeysCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			role, _ := cmd.Flags().GetString("role")
			rateLimit, _ := cmd.Flags().GetInt("rate-limit")
			expiresIn, _ := cmd.Flags().GetDuration("expires-in")

			var expiresAt *time.Time
			if expiresIn > 0 {
				t := time.Now().Add(expiresIn)
				expiresAt = &t
			}

			v, closeDB, err := openValidator(cmd)
			if err != nil {
				return err
			}
			defer closeDB()

			key, info, err := v.CreateKey(cmd.Context(), name, role, rateLimit, expiresAt)
			if err != nil {
				return fmt.Errorf("failed to create key: %w", err)
			}
			if jsonOutput(cmd) {
				return printJSON(cmd, map[string]any{"api_key": key, "key": info})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "API key created successfully.")
			fmt.Fprintln(out, "Store this key securely; it cannot be retrieved again.")
			fmt.Fprintln(out)
			fmt.Fprintf(out, "  Key:        %s\n", key)
			fmt.Fprintf(out, "  ID:         %s\n", info.ID)
			fmt.Fprintf(out, "  Name:       %s\n", info.Name)
			fmt.Fprintf(out, "  Role:       %s\n", info.Role)
			fmt.Fprintf(out, "  Rate Limit: %d req/window\n", info.RateLimit)
			if info.ExpiresAt != nil {
				fmt.Fprintf(out, "  Expires:    %s\n", info.ExpiresAt.Format(time.RFC3339))
			} else {
				fmt.Fprintln(out, "  Expires:    never")
			}
			return nil
		},
	}
	cmd.Flags().String("name", "", "name for the api key")
	cmd.Flags().String("role", apikey.RoleClient, "client or admin")
	cmd.Flags().Int("rate-limit", 100, "requests per rate window")
	cmd.Flags().Duration("expires-in", 0, "expiry duration, e.g. 720h (optional)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newKeysRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <key-id>",
		Short: "Revoke an API key by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, closeDB, err := openValidator(cmd)
			if err != nil {
				return err
			}
			defer closeDB()
			if err := v.RevokeKey(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to revoke key: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "API key revoked successfully.")
			return nil
		},
	}
}

func newKeysListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, closeDB, err := openValidator(cmd)
			if err != nil {
				return err
			}
			defer closeDB()
			keys, err := v.ListKeys(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list keys: %w", err)
			}
			if jsonOutput(cmd) {
				return printJSON(cmd, keys)
			}

			out := cmd.OutOrStdout()
			if len(keys) == 0 {
				fmt.Fprintln(out, "No active API keys.")
				return nil
			}
			fmt.Fprintf(out, "%-36s  %-20s  %-6s  %-10s  %s\n", "ID", "Name", "Role", "Rate Limit", "Expires")
			for _, k := range keys {
				expires := "never"
				if k.ExpiresAt != nil {
					expires = k.ExpiresAt.Format(time.RFC3339)
				}
				fmt.Fprintf(out, "%-36s  %-20s  %-6s  %-10d  %s\n", k.ID, k.Name, k.Role, k.RateLimit, expires)
			}
			fmt.Fprintf(out, "\nTotal: %d active key(s)\n", len(keys))
			return nil
		},
	}
}
