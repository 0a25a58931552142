// Package schema creates the platform tables. Statements are idempotent and
// run one at a time so no multi-statement DSN flag is needed.
package schema

import (
	"context"
	"fmt"

	"ctfplatform/internal/common/db"
)

// Timestamps are unix milliseconds in BIGINT columns on both drivers.
var mysqlStatements = []string{
	`CREATE TABLE IF NOT EXISTS task (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		description TEXT NOT NULL,
		hints TEXT NOT NULL,
		categories TEXT NOT NULL,
		answers TEXT NOT NULL,
		value INT NOT NULL DEFAULT 0,
		case_sensitive TINYINT(1) NOT NULL DEFAULT 0,
		state TINYINT NOT NULL DEFAULT 1,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL,
		UNIQUE KEY uk_task_title (title)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS team (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		email VARCHAR(255) NOT NULL,
		country VARCHAR(100) NOT NULL DEFAULT '',
		locality VARCHAR(100) NOT NULL DEFAULT '',
		institution VARCHAR(255) NOT NULL DEFAULT '',
		disqualified TINYINT(1) NOT NULL DEFAULT 0,
		created_at BIGINT NOT NULL,
		UNIQUE KEY uk_team_name (name),
		UNIQUE KEY uk_team_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS supervisor (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(100) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		rights VARCHAR(16) NOT NULL,
		created_at BIGINT NOT NULL,
		UNIQUE KEY uk_supervisor_username (username)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS team_task_hit (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		team_id BIGINT NOT NULL,
		task_id BIGINT NOT NULL,
		wrong_answer TEXT NULL,
		created_at BIGINT NOT NULL,
		KEY idx_team_task_hit_team (team_id),
		KEY idx_team_task_hit_task (task_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS team_task_progress (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		team_id BIGINT NOT NULL,
		task_id BIGINT NOT NULL,
		created_at BIGINT NOT NULL,
		UNIQUE KEY uk_team_task_progress_team_task (team_id, task_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var sqliteStatements = []string{
	`CREATE TABLE IF NOT EXISTS task (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL,
		hints TEXT NOT NULL DEFAULT '[]',
		categories TEXT NOT NULL DEFAULT '[]',
		answers TEXT NOT NULL DEFAULT '[]',
		value INTEGER NOT NULL DEFAULT 0,
		case_sensitive INTEGER NOT NULL DEFAULT 0,
		state INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS team (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		country TEXT NOT NULL DEFAULT '',
		locality TEXT NOT NULL DEFAULT '',
		institution TEXT NOT NULL DEFAULT '',
		disqualified INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS supervisor (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		rights TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS team_task_hit (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		team_id INTEGER NOT NULL,
		task_id INTEGER NOT NULL,
		wrong_answer TEXT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_team_task_hit_team ON team_task_hit (team_id)`,
	`CREATE TABLE IF NOT EXISTS team_task_progress (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		team_id INTEGER NOT NULL,
		task_id INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		UNIQUE (team_id, task_id)
	)`,
}

// Apply creates missing tables for the database driver.
func Apply(ctx context.Context, database db.Database) error {
	var statements []string
	switch database.Driver() {
	case "mysql":
		statements = mysqlStatements
	case "sqlite":
		statements = sqliteStatements
	default:
		return fmt.Errorf("unsupported driver %q", database.Driver())
	}
	for _, stmt := range statements {
		if _, err := database.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema failed: %w", err)
		}
	}
	return nil
}
