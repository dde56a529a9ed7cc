package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Workspace data lives under <workspace>/.staffdesk/.
const (
	dataDir = ".staffdesk"
	dbFile  = "staffdesk.db"
)

type Config struct {
	Workspace string
}

// Path returns the database file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, dataDir, dbFile)
}

// EnsureWorkspace creates the workspace data directory if missing and
// returns its path.
func EnsureWorkspace(workspace string) (string, error) {
	dir := filepath.Join(workspace, dataDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("workspace dir: %w", err)
	}
	return dir, nil
}

// Open opens the workspace database. Foreign keys are enforced and a
// busy timeout keeps concurrent CLI and server access from failing fast.
func Open(cfg Config) (*sql.DB, error) {
	if _, err := EnsureWorkspace(cfg.Workspace); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", Path(cfg.Workspace))
	return sql.Open("sqlite", dsn)
}
