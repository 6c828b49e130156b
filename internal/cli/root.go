// Package cli implements klyactl, the operator tool for accounts and keys.
package cli

import (
	"fmt"
	"io"

	"github.com/klya-ai/klya-api/internal/config"
	"github.com/klya-ai/klya-api/internal/logger"
	"github.com/klya-ai/klya-api/internal/repository"
	"github.com/klya-ai/klya-api/internal/service"
	"github.com/klya-ai/klya-api/internal/storage"
	"github.com/spf13/cobra"
)

// env is what every subcommand works against, opened once per invocation.
type env struct {
	cfg    *config.Config
	db     *storage.Database
	users  *repository.UserRepository
	keys   *service.APIKeyService
	auth   *service.AuthService
	usage  *repository.UsageEventRepository
	asJSON bool
}

func NewRootCmd() *cobra.Command {
	var (
		configPath string
		e          = &env{}
	)

	root := &cobra.Command{
		Use:   "klyactl",
		Short: "klyactl - manage KLYA accounts and API keys",
		Long: `klyactl talks to the KLYA database directly. It reads the same
config file and KLYA_* environment variables as the API server.

  klyactl migrate
  klyactl owners create --email owner@example.com --password ...
  klyactl keys create --owner owner@example.com --name backend --permissions content:generate`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			db, err := storage.NewDatabase(cfg.Database, cfg.Debug)
			if err != nil {
				return err
			}

			log := logger.Discard()
			userRepo := repository.NewUserRepository(db)
			owners := service.NewOwnerDirectory(userRepo, cfg.Keys.OwnerCacheTTL.Duration)

			e.cfg = cfg
			e.db = db
			e.users = userRepo
			e.usage = repository.NewUsageEventRepository(db)
			e.keys = service.NewAPIKeyService(repository.NewAPIKeyRepository(db), log)
			e.auth = service.NewAuthService(userRepo, owners, cfg.Auth.JWTSecret, cfg.Auth.JWTExpiryHours, log)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if e.db != nil {
				return e.db.Close()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "config.json", "Path to the config file (JSON or YAML)")
	root.PersistentFlags().BoolVar(&e.asJSON, "json", false, "Output as JSON")

	root.AddCommand(
		newMigrateCmd(e),
		newOwnersCmd(e),
		newKeysCmd(e),
		newUsageCmd(e),
	)

	return root
}

// Execute runs klyactl with args, writing to out.
func Execute(args []string, out io.Writer) error {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(out)
	return root.Execute()
}

func newMigrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.db.AutoMigrate(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")
			return nil
		},
	}
}
