// internal/cache/cache.go
package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// DefaultTTL is used by callers that have no better idea of freshness
const DefaultTTL = 3 * 24 * time.Hour

// Cache is a key/value store with per-entry max age, backed by SQLite
type Cache struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the cache database and brings its schema up to
// date. The version check runs once here; every caller after Open sees
// the current schema.
func Open(path string) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Cache{db: db, now: time.Now}, nil
}

// Close closes the database connection
func (c *Cache) Close() error {
	return c.db.Close()
}

// migrate applies schema migrations based on user_version
func migrate(db *sql.DB) error {
	version, err := userVersion(db)
	if err != nil {
		return err
	}

	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS cache (
			key TEXT PRIMARY KEY,
			data TEXT NOT NULL,
			modified INTEGER NOT NULL,
			maxage INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS playernames (
			charname TEXT PRIMARY KEY,
			status INTEGER NOT NULL,
			modified INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS avatars (
			charname TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			modified INTEGER NOT NULL
		);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := setUserVersion(db, 1); err != nil {
			return err
		}
	}

	return nil
}

func userVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("get user_version: %w", err)
	}
	return version, nil
}

func setUserVersion(db *sql.DB, version int) error {
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// SchemaVersion returns the schema version of the open database
func (c *Cache) SchemaVersion() (int, error) {
	return userVersion(c.db)
}

// Put stores value under key, valid for ttl. A ttl <= 0 means DefaultTTL.
func (c *Cache) Put(key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	_, err := c.db.Exec(`
		INSERT INTO cache (key, data, modified, maxage) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, modified = excluded.modified, maxage = excluded.maxage
	`, key, value, c.now().Unix(), int64(ttl/time.Second))
	return err
}

// Get returns the value stored under key. Expired entries are only
// returned when allowStale is set.
func (c *Cache) Get(key string, allowStale bool) (string, bool, error) {
	var data string
	var modified, maxage int64
	err := c.db.QueryRow(`SELECT data, modified, maxage FROM cache WHERE key = ?`, key).
		Scan(&data, &modified, &maxage)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if modified+maxage < c.now().Unix() && !allowStale {
		return "", false, nil
	}
	return data, true, nil
}

// PutPlayername records the lookup status of a character name
func (c *Cache) PutPlayername(name string, status int) error {
	_, err := c.db.Exec(`
		INSERT INTO playernames (charname, status, modified) VALUES (?, ?, ?)
		ON CONFLICT(charname) DO UPDATE SET status = excluded.status, modified = excluded.modified
	`, name, status, c.now().Unix())
	return err
}

// GetPlayername returns the stored status of a character name
func (c *Cache) GetPlayername(name string) (int, bool, error) {
	var status int
	err := c.db.QueryRow(`SELECT status FROM playernames WHERE charname = ?`, name).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return status, true, nil
}

// PutAvatar stores the portrait of a character
func (c *Cache) PutAvatar(name string, data []byte) error {
	_, err := c.db.Exec(`
		INSERT INTO avatars (charname, data, modified) VALUES (?, ?, ?)
		ON CONFLICT(charname) DO UPDATE SET data = excluded.data, modified = excluded.modified
	`, name, data, c.now().Unix())
	return err
}

// GetAvatar returns the cached portrait of a character
func (c *Cache) GetAvatar(name string) ([]byte, bool, error) {
	var data []byte
	err := c.db.QueryRow(`SELECT data FROM avatars WHERE charname = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// RemoveAvatar drops the cached portrait of a character
func (c *Cache) RemoveAvatar(name string) error {
	_, err := c.db.Exec(`DELETE FROM avatars WHERE charname = ?`, name)
	return err
}
