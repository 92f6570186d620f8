package main

import (
	"fmt"
	"os"
	"path/filepath"

	"apigw-local/internal/database"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	dbPath  string
	verbose bool
	logger  = logrus.New()
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "migrate",
		Short:        "Manage the invocation journal schema",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				logger.SetLevel(logrus.DebugLevel)
			}

			abs, err := filepath.Abs(dbPath)
			if err != nil {
				return fmt.Errorf("failed to get absolute database path: %w", err)
			}
			dbPath = abs

			if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
				return fmt.Errorf("failed to create database directory: %w", err)
			}

			logger.WithFields(logrus.Fields{
				"db_path": dbPath,
				"action":  cmd.Name(),
			}).Info("Starting migration tool")
			return nil
		},
	}

	defaultPath := database.DefaultConnectionConfig().DatabasePath
	if env := os.Getenv("APIGW_LOCAL_JOURNAL_PATH"); env != "" {
		defaultPath = env
	}
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultPath, "journal database file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return manager().RunMigrations()
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the last migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				return manager().RollbackMigration()
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the schema version",
			RunE:  showMigrationStatus,
		},
	)

	if err := rootCmd.Execute(); err != nil {
		logger.WithError(err).Error("Migration tool failed")
		os.Exit(1)
	}
}

func manager() *database.MigrationManager {
	return database.NewMigrationManager(dbPath, logger)
}

func showMigrationStatus(cmd *cobra.Command, _ []string) error {
	status, err := manager().GetMigrationStatus()
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Migration Status:\n")
	fmt.Fprintf(out, "  Version: %d\n", status.Version)
	fmt.Fprintf(out, "  Applied: %t\n", status.Applied)
	fmt.Fprintf(out, "  Dirty: %t\n", status.Dirty)
	fmt.Fprintf(out, "  Timestamp: %s\n", status.Timestamp.Format("2006-01-02 15:04:05"))
	return nil
}
