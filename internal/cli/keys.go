package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klya-ai/klya-api/internal/models"
	"github.com/klya-ai/klya-api/internal/service"
	"github.com/spf13/cobra"
)

func newKeysCmd(e *env) *cobra.Command {
	var ownerEmail string

	keys := &cobra.Command{
		Use:   "keys",
		Short: "Manage an owner's API keys",
	}
	keys.PersistentFlags().StringVar(&ownerEmail, "owner", "", "Owner email")
	_ = keys.MarkPersistentFlagRequired("owner")

	keys.AddCommand(
		newKeysCreateCmd(e, &ownerEmail),
		newKeysListCmd(e, &ownerEmail),
		newKeysRevokeCmd(e, &ownerEmail),
		newKeysRotateCmd(e, &ownerEmail),
	)
	return keys
}

func newKeysCreateCmd(e *env, ownerEmail *string) *cobra.Command {
	var (
		name        string
		permissions []string
		expiresIn   time.Duration
		limits      models.RateLimits
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key and print its secret once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := e.resolveOwner(cmd.Context(), *ownerEmail)
			if err != nil {
				return err
			}

			params := service.CreateKeyParams{
				OwnerID:     owner.ID,
				Name:        name,
				Permissions: permissions,
				RateLimits:  &limits,
			}
			if expiresIn > 0 {
				expiresAt := time.Now().Add(expiresIn)
				params.ExpiresAt = &expiresAt
			}

			apiKey, secret, err := e.keys.Create(cmd.Context(), params)
			if err != nil {
				return fmt.Errorf("creating key: %w", err)
			}

			if e.asJSON {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{"key": secret, "api_key": apiKey})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created key %s (%s)\n", apiKey.Name, apiKey.ID)
			fmt.Fprintf(out, "Secret: %s\n", secret)
			fmt.Fprintln(out, "Save this key - it won't be shown again")
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Key name")
	cmd.Flags().StringSliceVar(&permissions, "permissions", nil, "Comma-separated permissions: "+strings.Join(models.Permissions(), ", "))
	cmd.Flags().DurationVar(&expiresIn, "expires-in", 0, "Expire the key after this duration (e.g. 720h)")
	cmd.Flags().IntVar(&limits.PerMinute, "per-minute", models.DefaultPerMinute, "Requests per minute")
	cmd.Flags().IntVar(&limits.PerHour, "per-hour", models.DefaultPerHour, "Requests per hour")
	cmd.Flags().IntVar(&limits.PerDay, "per-day", models.DefaultPerDay, "Requests per day")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("permissions")

	return cmd
}

func newKeysListCmd(e *env, ownerEmail *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the owner's keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := e.resolveOwner(cmd.Context(), *ownerEmail)
			if err != nil {
				return err
			}

			keys, err := e.keys.List(cmd.Context(), owner.ID)
			if err != nil {
				return fmt.Errorf("listing keys: %w", err)
			}

			if e.asJSON {
				return printJSON(cmd.OutOrStdout(), keys)
			}
			keyTable(cmd.OutOrStdout(), keys)
			return nil
		},
	}
}

func newKeysRevokeCmd(e *env, ownerEmail *string) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <key-id>",
		Short: "Deactivate a key; it stops verifying immediately",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, id, err := e.ownerAndKey(cmd, *ownerEmail, args[0])
			if err != nil {
				return err
			}

			if _, err := e.keys.Deactivate(cmd.Context(), owner, id); err != nil {
				return fmt.Errorf("revoking key: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Revoked key %s\n", id)
			return nil
		},
	}
}

func newKeysRotateCmd(e *env, ownerEmail *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rotate <key-id>",
		Short: "Replace a key's secret and print the new one once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, id, err := e.ownerAndKey(cmd, *ownerEmail, args[0])
			if err != nil {
				return err
			}

			apiKey, secret, err := e.keys.Rotate(cmd.Context(), owner, id)
			if err != nil {
				return fmt.Errorf("rotating key: %w", err)
			}

			if e.asJSON {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{"key": secret, "api_key": apiKey})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rotated key %s\nSecret: %s\n", apiKey.ID, secret)
			return nil
		},
	}
}

func (e *env) ownerAndKey(cmd *cobra.Command, ownerEmail, rawID string) (uuid.UUID, uuid.UUID, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid key id %q", rawID)
	}

	owner, err := e.resolveOwner(cmd.Context(), ownerEmail)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return owner.ID, id, nil
}
