package config

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// SetupDatabase initializes the database connection
func SetupDatabase(cfg *Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	// Create tables if they don't exist
	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return db, nil
}

// createTables creates the necessary tables in the database
func createTables(db *sqlx.DB) error {
	// Create users table
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(36) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255) UNIQUE NOT NULL,
			password VARCHAR(255) NOT NULL,
			phone VARCHAR(32) NOT NULL,
			wallet_address VARCHAR(42) UNIQUE NOT NULL,
			profile TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create listing_requests table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS listing_requests (
			id VARCHAR(36) PRIMARY KEY,
			user_address VARCHAR(42) NOT NULL,
			title TEXT NOT NULL,
			location TEXT NOT NULL,
			price NUMERIC(30,18) NOT NULL CHECK (price > 0),
			description TEXT NOT NULL,
			image TEXT NOT NULL,
			token_id BIGINT,
			status VARCHAR(10) NOT NULL CHECK (status IN ('pending', 'approved', 'rejected')),
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			CHECK ((status = 'approved') = (token_id IS NOT NULL))
		)
	`)
	if err != nil {
		return err
	}

	// Create asset_metadata table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS asset_metadata (
			token_id BIGINT PRIMARY KEY,
			image TEXT NOT NULL,
			description TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create mint_attempts table (outbox for the approve path)
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS mint_attempts (
			id VARCHAR(36) PRIMARY KEY,
			request_id VARCHAR(36) NOT NULL REFERENCES listing_requests(id) ON DELETE CASCADE,
			state VARCHAR(10) NOT NULL CHECK (state IN ('submitted', 'completed', 'failed')),
			token_id BIGINT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// The token uniqueness index backs a real invariant (one request per
	// minted token), so its failure is fatal unlike the lookup indexes below.
	_, err = db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_listing_requests_token_id ON listing_requests(token_id) WHERE token_id IS NOT NULL",
	)
	if err != nil {
		return err
	}

	// One open mint attempt per request: concurrent approvals collide on
	// this index instead of double-minting.
	_, err = db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_mint_attempts_open ON mint_attempts(request_id) WHERE state = 'submitted'",
	)
	if err != nil {
		return err
	}

	// Create indexes for better performance
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_listing_requests_user_address ON listing_requests(user_address)",
		"CREATE INDEX IF NOT EXISTS idx_listing_requests_status ON listing_requests(status)",
		"CREATE INDEX IF NOT EXISTS idx_mint_attempts_request_id ON mint_attempts(request_id)",
	}

	for _, idx := range indexes {
		_, err = db.Exec(idx)
		if err != nil {
			log.Printf("Warning: Failed to create index: %v", err)
			// Don't return error here, indexes are not critical
		}
	}

	return nil
}
