package cli

import (
	"context"
	"fmt"

	"github.com/klya-ai/klya-api/internal/models"
	"github.com/klya-ai/klya-api/internal/service"
	"github.com/spf13/cobra"
)

func newOwnersCmd(e *env) *cobra.Command {
	owners := &cobra.Command{
		Use:   "owners",
		Short: "Manage owner accounts",
	}

	var email, password, name, business string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an owner account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := e.auth.Register(cmd.Context(), service.RegisterParams{
				Email:        email,
				Password:     password,
				Name:         name,
				BusinessName: business,
			})
			if err != nil {
				return fmt.Errorf("creating owner: %w", err)
			}

			if e.asJSON {
				return printJSON(cmd.OutOrStdout(), user)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created owner %s (%s)\n", user.Email, user.ID)
			return nil
		},
	}
	create.Flags().StringVar(&email, "email", "", "Owner email")
	create.Flags().StringVar(&password, "password", "", "Owner password (min 8 characters)")
	create.Flags().StringVar(&name, "name", "", "Display name")
	create.Flags().StringVar(&business, "business", "", "Business name")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("password")

	owners.AddCommand(create)
	return owners
}

// resolveOwner looks an owner up by email.
func (e *env) resolveOwner(ctx context.Context, email string) (*models.User, error) {
	user, err := e.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("no owner with email %q", email)
	}
	return user, nil
}
