// ABOUTME: SQLite-backed cross-run cache index mapping stage cache keys to output artifact refs.
// ABOUTME: Insert uses INSERT OR IGNORE so racing writers of the same key are a safe no-op.
package manifest

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// CacheIndex is a SQLite index shared across runs. It maps a deterministic
// stage cache key to the ordered list of output artifacts that stage produced,
// enabling cross-run cache hits and resumption. The index is a queryable
// cache, not the source of truth: it is always rebuildable from run manifests.
type CacheIndex struct {
	db *sql.DB
}

// OpenCacheIndex opens or creates the cache index database at the given path.
func OpenCacheIndex(path string) (*CacheIndex, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open cache index: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS stage_cache (
			cache_key TEXT PRIMARY KEY,
			stage TEXT NOT NULL,
			outputs TEXT NOT NULL,
			run_id TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}

	return &CacheIndex{db: db}, nil
}

// Close closes the underlying database connection.
func (c *CacheIndex) Close() error {
	return c.db.Close()
}

// Lookup returns the output artifact refs recorded for a cache key, or
// (nil, false) when the key has never been seen.
func (c *CacheIndex) Lookup(cacheKey string) ([]ArtifactRef, bool, error) {
	var outputsJSON string
	err := c.db.QueryRow(
		"SELECT outputs FROM stage_cache WHERE cache_key = ?", cacheKey).Scan(&outputsJSON)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query cache key: %w", err)
	}

	var refs []ArtifactRef
	if err := json.Unmarshal([]byte(outputsJSON), &refs); err != nil {
		return nil, false, fmt.Errorf("parse cache outputs: %w", err)
	}
	return refs, true, nil
}

// Insert records the outputs for a cache key. A key that already exists is
// left untouched: identical inputs and configuration produce identical
// outputs, so last-writer-wins degenerates to a no-op.
func (c *CacheIndex) Insert(cacheKey, stage, runID string, outputs []ArtifactRef) error {
	outputsJSON, err := json.Marshal(outputs)
	if err != nil {
		return fmt.Errorf("marshal cache outputs: %w", err)
	}

	_, err = c.db.Exec(
		`INSERT OR IGNORE INTO stage_cache (cache_key, stage, outputs, run_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		cacheKey, stage, string(outputsJSON), runID,
		time.Now().UTC().Format("2006-01-02T15:04:05Z07:00"))
	if err != nil {
		return fmt.Errorf("insert cache row: %w", err)
	}
	return nil
}

// CountForStage returns how many cache rows exist for the given stage name.
func (c *CacheIndex) CountForStage(stage string) (int, error) {
	var n int
	err := c.db.QueryRow(
		"SELECT COUNT(*) FROM stage_cache WHERE stage = ?", stage).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count cache rows: %w", err)
	}
	return n, nil
}
