// cmd/migrate/main.go
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"

	"github.com/chynybekuuludastan/story_generator/internal/config"
	"github.com/chynybekuuludastan/story_generator/internal/database"
	"github.com/chynybekuuludastan/story_generator/internal/database/migration"
	"github.com/chynybekuuludastan/story_generator/internal/database/seed"
)

var (
	dsn     string
	verbose bool
	log     *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the story generator database schema",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewDevelopmentConfig()
		if !verbose {
			cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		}
		var err error
		log, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
	SilenceUsage: true,
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Run pending migrations",
	RunE: withMigrator(func(m *migration.Migrator) error {
		log.Info("Running migrations...")
		if err := m.Migrate(); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		log.Info("Migrations completed successfully")
		return nil
	}),
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Rollback the last batch of migrations",
	RunE: withMigrator(func(m *migration.Migrator) error {
		log.Info("Rolling back the last batch of migrations...")
		if err := m.Rollback(); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		log.Info("Rollback completed successfully")
		return nil
	}),
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Rollback all migrations and re-run them",
	RunE: withMigrator(func(m *migration.Migrator) error {
		log.Info("Resetting all migrations...")
		if err := m.Reset(); err != nil {
			return fmt.Errorf("reset failed: %w", err)
		}
		log.Info("Reset completed successfully")
		return nil
	}),
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	RunE: withMigrator(func(m *migration.Migrator) error {
		status, err := m.GetStatus()
		if err != nil {
			return fmt.Errorf("failed to get migration status: %w", err)
		}
		printStatus(status)
		return nil
	}),
}

var (
	adminUsername string
	adminEmail    string
	adminPassword string
)

var seedAdminCmd = &cobra.Command{
	Use:   "seed-admin",
	Short: "Create the administrator account if none exists",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.Open(dsn, logLevel())
		if err != nil {
			return fmt.Errorf("failed to connect to the database: %w", err)
		}
		if err := seed.SeedAdminUser(db, adminUsername, adminEmail, adminPassword); err != nil {
			return fmt.Errorf("failed to seed admin: %w", err)
		}
		log.Info("Admin account ready", zap.String("username", adminUsername))
		return nil
	},
}

func withMigrator(run func(m *migration.Migrator) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		db, err := database.Open(dsn, logLevel())
		if err != nil {
			return fmt.Errorf("failed to connect to the database: %w", err)
		}
		m, err := migration.NewMigrator(db)
		if err != nil {
			return err
		}
		return run(m)
	}
}

func logLevel() logger.LogLevel {
	if verbose {
		return logger.Info
	}
	return logger.Warn
}

func printStatus(status []migration.Status) {
	border := "+" + strings.Repeat("-", 34) + "+----------+-------+---------------------+"
	fmt.Println(border)
	fmt.Printf("| %-32s | Applied? | Batch | Applied At          |\n", "Migration")
	fmt.Println(border)

	for _, s := range status {
		applied, batch, at := "No", "-", "-"
		if s.Applied {
			applied = "Yes"
			batch = fmt.Sprintf("%d", s.Batch)
			at = s.AppliedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Printf("| %-32s | %-8s | %-5s | %-19s |\n", s.Name, applied, batch, at)
	}

	fmt.Println(border)
}

func main() {
	_ = godotenv.Load()
	cfg := config.NewConfig()

	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", cfg.PostgresURI, "PostgreSQL connection string")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log SQL statements")

	seedAdminCmd.Flags().StringVar(&adminUsername, "username", cfg.AdminUsername, "Admin username")
	seedAdminCmd.Flags().StringVar(&adminEmail, "email", cfg.AdminEmail, "Admin email")
	seedAdminCmd.Flags().StringVar(&adminPassword, "password", cfg.AdminPassword, "Admin password")

	rootCmd.AddCommand(upCmd, rollbackCmd, resetCmd, statusCmd, seedAdminCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
