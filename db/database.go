package db

import (
	"database/sql"
	"fmt"

	"samplecrate/config"
	"samplecrate/logger"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

var DB *sql.DB

// ConnectDB establishes a connection to the database.
func ConnectDB(cfg *config.Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	var err error
	DB, err = sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	if err = DB.Ping(); err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("connected to database", logger.String("host", cfg.DBHost), logger.String("db", cfg.DBName))
	return nil
}

// InitDB initializes the database schema, creating tables if they don't exist.
func InitDB() error {
	if err := createUsersTable(); err != nil {
		return err
	}
	if err := createSamplesTable(); err != nil {
		return err
	}
	if err := createSampleTagsTable(); err != nil {
		return err
	}
	if err := createSampleFoldersTable(); err != nil {
		return err
	}
	logger.Info("database schema initialized")
	return nil
}

func createUsersTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(100) NOT NULL UNIQUE,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	);
	`
	if _, err := DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	return nil
}

func createSamplesTable() error {
	// content_hash and fingerprint are populated by the import/analysis
	// pipeline; the duplicate scan only groups by them.
	query := `
	CREATE TABLE IF NOT EXISTS samples (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT NOT NULL,
		name VARCHAR(255) NOT NULL,
		file_path VARCHAR(767) NOT NULL,
		format VARCHAR(16),
		sample_rate INT NOT NULL DEFAULT 0,
		channels INT NOT NULL DEFAULT 0,
		size_bytes BIGINT NOT NULL DEFAULT 0,
		favorite TINYINT(1) NOT NULL DEFAULT 0,
		content_hash VARCHAR(64),
		fingerprint VARCHAR(128),
		created_at TIMESTAMP NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		CONSTRAINT fk_user_samples FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		KEY idx_samples_content_hash (user_id, content_hash),
		KEY idx_samples_fingerprint (user_id, fingerprint),
		KEY idx_samples_file_path (user_id, file_path)
	);
	`
	if _, err := DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create samples table: %w", err)
	}
	return nil
}

func createSampleTagsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS sample_tags (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		sample_id BIGINT NOT NULL,
		tag VARCHAR(100) NOT NULL,
		CONSTRAINT fk_tag_sample FOREIGN KEY (sample_id) REFERENCES samples(id) ON DELETE CASCADE,
		CONSTRAINT uq_sample_tag UNIQUE (sample_id, tag)
	);
	`
	if _, err := DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create sample_tags table: %w", err)
	}
	return nil
}

func createSampleFoldersTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS sample_folders (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		sample_id BIGINT NOT NULL,
		folder_path VARCHAR(767) NOT NULL,
		CONSTRAINT fk_folder_sample FOREIGN KEY (sample_id) REFERENCES samples(id) ON DELETE CASCADE
	);
	`
	if _, err := DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create sample_folders table: %w", err)
	}
	return nil
}
