package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/index-checker/internal/bootstrap"
	"github.com/jonesrussell/index-checker/internal/config"
	"github.com/jonesrussell/index-checker/internal/database"
	"github.com/jonesrussell/index-checker/internal/logger"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", bootstrap.ServiceName, buildVersion)
		},
	}
}

func newServeCmd() *cobra.Command {
	var serverConfig string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return bootstrap.Start(cmd.Context(), serverConfig, buildVersion)
		},
	}
	cmd.Flags().StringVar(&serverConfig, "server-config", "",
		"server config file (default is $CONFIG_PATH or "+bootstrap.DefaultConfigPath+")")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	var serverConfig string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().StringVar(&serverConfig, "server-config", "", "server config file")

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withServerConfig(serverConfig, func(run migrationRun) error {
				return database.Migrate(run.db, run.log)
			})
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withServerConfig(serverConfig, func(run migrationRun) error {
				return database.MigrateDown(run.db, steps, run.log)
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	cmd.AddCommand(up, down)
	return cmd
}

type migrationRun struct {
	db  *config.DatabaseConfig
	log logger.Logger
}

// withServerConfig loads the server config and logger, then runs fn.
func withServerConfig(path string, fn func(run migrationRun) error) error {
	cfg, err := bootstrap.LoadConfig(path)
	if err != nil {
		return err
	}

	log, err := bootstrap.CreateLogger(cfg, buildVersion)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	return fn(migrationRun{db: &cfg.Database, log: log})
}
