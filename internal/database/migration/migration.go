package migration

import (
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
)

// Migration represents a database migration record
type Migration struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"type:varchar(255);not null;unique"`
	Batch     int       `gorm:"not null"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

// MigrationFunc defines a function that can run a migration
type MigrationFunc func(tx *gorm.DB) error

// Definition is one named schema change with its rollback
type Definition struct {
	Name string
	Up   MigrationFunc
	Down MigrationFunc
}

// Status describes one registered migration
type Status struct {
	Name      string
	Applied   bool
	Batch     int
	AppliedAt time.Time
}

// Migrator handles database migrations
type Migrator struct {
	DB           *gorm.DB
	Migrations   []Definition
	CurrentBatch int
}

// NewMigrator creates a new migrator instance
func NewMigrator(db *gorm.DB) (*Migrator, error) {
	// Ensure migrations table exists
	if err := db.AutoMigrate(&Migration{}); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	// Get current batch number
	var maxBatch int
	if err := db.Model(&Migration{}).Select("COALESCE(MAX(batch), 0)").Row().Scan(&maxBatch); err != nil {
		return nil, fmt.Errorf("failed to read current batch: %w", err)
	}

	return &Migrator{
		DB:           db,
		Migrations:   RegisterMigrations(),
		CurrentBatch: maxBatch + 1,
	}, nil
}

// RegisterMigrations lists all migrations in the order they are applied
func RegisterMigrations() []Definition {
	return []Definition{
		{Name: "01_create_roles_table", Up: CreateRolesTable, Down: DropRolesTable},
		{Name: "02_create_users_table", Up: CreateUsersTable, Down: DropUsersTable},
		{Name: "03_create_stories_table", Up: CreateStoriesTable, Down: DropStoriesTable},
		{Name: "04_create_generation_logs_table", Up: CreateGenerationLogsTable, Down: DropGenerationLogsTable},
		{Name: "05_add_indexes", Up: AddIndexes, Down: RemoveIndexes},
		{Name: "06_seed_roles", Up: SeedRoles, Down: RemoveSeededRoles},
	}
}

func (m *Migrator) find(name string) (Definition, bool) {
	for _, def := range m.Migrations {
		if def.Name == name {
			return def, true
		}
	}
	return Definition{}, false
}

// Migrate runs all pending migrations
func (m *Migrator) Migrate() error {
	// Get already applied migrations
	var appliedMigrations []Migration
	if err := m.DB.Find(&appliedMigrations).Error; err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	appliedMap := make(map[string]bool)
	for _, migration := range appliedMigrations {
		appliedMap[migration.Name] = true
	}

	// Run pending migrations in order
	for _, def := range m.Migrations {
		if appliedMap[def.Name] {
			continue
		}
		log.Printf("Running migration: %s", def.Name)

		err := m.DB.Transaction(func(tx *gorm.DB) error {
			if err := def.Up(tx); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			// Record the migration
			return tx.Create(&Migration{
				Name:  def.Name,
				Batch: m.CurrentBatch,
			}).Error
		})
		if err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", def.Name, err)
		}

		log.Printf("Migration applied: %s", def.Name)
	}

	return nil
}

// Rollback rolls back the last batch of migrations
func (m *Migrator) Rollback() error {
	var migrationsToRollback []Migration
	if err := m.DB.Where("batch = ?", m.CurrentBatch-1).Order("id DESC").Find(&migrationsToRollback).Error; err != nil {
		return fmt.Errorf("failed to get migrations to rollback: %w", err)
	}

	if len(migrationsToRollback) == 0 {
		log.Println("No migrations to rollback")
		return nil
	}

	if err := m.rollbackAll(migrationsToRollback); err != nil {
		return err
	}
	m.CurrentBatch--
	return nil
}

// Reset rolls back all migrations and then applies them again
func (m *Migrator) Reset() error {
	var appliedMigrations []Migration
	if err := m.DB.Order("id DESC").Find(&appliedMigrations).Error; err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	if err := m.rollbackAll(appliedMigrations); err != nil {
		return err
	}

	m.CurrentBatch = 1
	return m.Migrate()
}

func (m *Migrator) rollbackAll(records []Migration) error {
	for _, record := range records {
		def, ok := m.find(record.Name)
		if !ok {
			log.Printf("Skipping unknown migration: %s", record.Name)
			continue
		}
		log.Printf("Rolling back migration: %s", record.Name)

		err := m.DB.Transaction(func(tx *gorm.DB) error {
			if err := def.Down(tx); err != nil {
				return fmt.Errorf("rollback failed: %w", err)
			}
			// Remove the migration record
			return tx.Delete(&record).Error
		})
		if err != nil {
			return fmt.Errorf("failed to rollback migration %s: %w", record.Name, err)
		}

		log.Printf("Migration rolled back: %s", record.Name)
	}
	return nil
}

// GetStatus returns the status of all registered migrations in order
func (m *Migrator) GetStatus() ([]Status, error) {
	var appliedMigrations []Migration
	if err := m.DB.Find(&appliedMigrations).Error; err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	return BuildStatus(m.Migrations, appliedMigrations), nil
}

// BuildStatus merges registered definitions with applied records
func BuildStatus(defs []Definition, applied []Migration) []Status {
	appliedMap := make(map[string]Migration, len(applied))
	for _, migration := range applied {
		appliedMap[migration.Name] = migration
	}

	status := make([]Status, 0, len(defs))
	for _, def := range defs {
		record, ok := appliedMap[def.Name]
		status = append(status, Status{
			Name:      def.Name,
			Applied:   ok,
			Batch:     record.Batch,
			AppliedAt: record.AppliedAt,
		})
	}
	return status
}
