// Package database provides database connection management for the
// spendsense persona and recommendation engine.
//
// This package includes:
//   - Database connection management using GORM and PostgreSQL
//   - A raw database/sql connection for the columnar signal store
//   - Typed errors shared by the per-area repositories
//
// Data Models:
//
//	All data models (Transaction, Account, PersonaAssignment, AuditRecord,
//	etc.) are defined in the models_pkg package to avoid circular import
//	dependencies between the repositories.
package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	models "spendsense/database/models_pkg"
)

// Database holds the GORM database connection and provides access to the
// underlying DB instance. It is the central connection point for every
// repository in the application.
type Database struct {
	db *gorm.DB
}

// DB returns the underlying GORM database instance for direct access when needed.
func (d *Database) DB() *gorm.DB {
	return d.db
}

// Connect establishes database connection using GORM
func Connect(host string, port int, dbname, user, password string) (*Database, error) {
	dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=disable",
		host, port, dbname, user, password)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // Silent logging for production
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Database{db: db}, nil
}

// Migrate creates or updates every engine table.
func (d *Database) Migrate() error {
	return d.db.AutoMigrate(
		&models.Transaction{},
		&models.Account{},
		&models.Liability{},
		&models.User{},
		&models.PersonaAssignment{},
		&models.AuditRecord{},
	)
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ============================================================================
// Type Aliases
// ============================================================================

// Core data models - type aliases so callers can keep importing the
// database package directly.
type Transaction = models.Transaction
type Account = models.Account
type Liability = models.Liability
type User = models.User
type PersonaAssignment = models.PersonaAssignment
type AuditRecord = models.AuditRecord
