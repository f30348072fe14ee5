// Package cmd implements the index-checker command-line interface: the server
// entry points and a client for the REST API.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jonesrussell/index-checker/internal/apiclient"
	"github.com/jonesrussell/index-checker/internal/checker"
)

const envPrefix = "INDEXCHECK"

var (
	// cfgFile is the client config file. Server commands take --server-config instead.
	cfgFile string

	// Debug turns on debug logging for client commands.
	Debug bool

	buildVersion = "dev"

	rootCmd = &cobra.Command{
		Use:           "index-checker",
		Short:         "Check Google indexing of sitemap URLs and edit WordPress posts",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command until it finishes or an interrupt arrives.
func Execute(version string) error {
	buildVersion = version

	_ = godotenv.Load()
	_ = rootCmd.ParseFlags(os.Args[1:])

	if err := initConfig(); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"client config file (default is ./config.yaml or ~/.index-checker/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("api", "", "API base URL (overrides api.base_url)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newServeCmd(),
		newMigrateCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newCheckCmd(),
		newSitemapCmd(),
		newHistoryCmd(),
		newSitesCmd(),
		newEditorCmd(),
	)
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if dir, err := stateDir(); err == nil {
			viper.AddConfigPath(dir)
		}
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// The config file is optional unless one was named explicitly.
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	if err := viper.BindPFlag("api.base_url", rootCmd.PersistentFlags().Lookup("api")); err != nil {
		return fmt.Errorf("failed to bind api flag: %w", err)
	}
	if err := viper.BindPFlag("log.debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		return fmt.Errorf("failed to bind debug flag: %w", err)
	}
	return nil
}

// stateDir is where the CLI keeps its config and local storage.
func stateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".index-checker"), nil
}

func setDefaults() {
	viper.SetDefault("api.base_url", apiclient.DefaultBaseURL)
	viper.SetDefault("api.timeout", apiclient.DefaultTimeout)

	viper.SetDefault("checker.batch_size", checker.DefaultBatchSize)
	viper.SetDefault("checker.delay", checker.DefaultDelay)

	statePath := "index-checker-state.json"
	if dir, err := stateDir(); err == nil {
		statePath = filepath.Join(dir, "state.json")
	}
	viper.SetDefault("state.path", statePath)

	viper.SetDefault("log.level", "warn")
	viper.SetDefault("log.debug", false)
	viper.SetDefault("sitemap.max_urls", 0)
}
