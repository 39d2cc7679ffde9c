package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/bluecarbon/registry/internal/config"
	"github.com/bluecarbon/registry/internal/logging"
	"github.com/bluecarbon/registry/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cli holds state shared by every subcommand
type cli struct {
	cfgFile string
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:           "registry",
		Short:         "Blue carbon project registry",
		Long:          `Backend for registering blue carbon restoration projects with their MRV evidence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&c.cfgFile, "config", "", "config file (default is $CONFIG_PATH or ./config.toml)")

	rootCmd.AddCommand(c.serveCmd())
	rootCmd.AddCommand(c.migrateCmd())
	rootCmd.AddCommand(c.projectsCmd())

	return rootCmd
}

// loadConfig reads the config file. A missing default file falls back to
// defaults; a file named explicitly must exist.
func (c *cli) loadConfig() (*config.Config, bool, error) {
	path := c.cfgFile
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	explicit := path != ""
	if path == "" {
		path = "config.toml"
	}

	cfg, err := config.Load(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return config.DefaultConfig(), true, nil
		}
		return nil, false, err
	}
	return cfg, false, nil
}

// setup loads config and builds the logger
func (c *cli) setup() (*config.Config, *zap.Logger, error) {
	cfg, defaulted, err := c.loadConfig()
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, nil, err
	}
	if defaulted {
		logger.Warn("config file not found, using default configuration")
	}
	return cfg, logger, nil
}

// openRepository connects to the configured database
func openRepository(ctx context.Context, cfg *config.Config) (storage.Repository, error) {
	repo, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return repo, nil
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := c.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			repo, err := openRepository(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			if err := storage.Migrate(repo, cfg.Database.MigrationsPath); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}

			logger.Info("migrations applied", zap.String("driver", cfg.Database.Driver))
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied.")
			return nil
		},
	}
}
