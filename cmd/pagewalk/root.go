package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/apicore/internal/config"
	"github.com/Sternrassler/apicore/pkg/logging"
)

var (
	cfgFile  string
	logLevel string
	cfg      *config.Config
	logger   zerolog.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "pagewalk",
	Short: "Walk paginated HTTP APIs",
	Long: `pagewalk follows cursor, offset, page-number and next-link pagination
of JSON APIs and prints every item it finds as one JSON line.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: initializeApp,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("pagewalk %s (built %s)\n", version, buildTime))
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./pagewalk.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level")

	rootCmd.AddCommand(walkCmd)
	rootCmd.AddCommand(serveCmd)
}

// initializeApp loads the configuration and sets up logging
func initializeApp(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}

	logger = logging.Setup(logging.Config{
		Level:   level,
		Format:  logging.Format(cfg.Logging.Format),
		Output:  cmd.ErrOrStderr(),
		Service: "pagewalk",
	})
	return nil
}
