package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"smart-parking/internal/parking"
)

// SQLiteStore persists the lot snapshot as a single JSON document. The
// service rewrites the whole document on every mutation, so one row is
// all the schema needs.
type SQLiteStore struct {
	db *sql.DB
}

const snapshotKey = "lot"

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dbPath, err := resolveDBPath(path)
	if err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := initSchema(db); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, errors.Join(err, cerr)
		}
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func resolveDBPath(path string) (string, error) {
	abs := filepath.Clean(path)
	if strings.HasSuffix(abs, ".db") {
		if err := os.MkdirAll(filepath.Dir(abs), 0o750); err != nil {
			return "", err
		}
		return abs, nil
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return "", err
	}
	return filepath.Join(abs, "parking.db"), nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec("CREATE TABLE IF NOT EXISTS snapshots (key TEXT PRIMARY KEY, data BLOB NOT NULL);")
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Save(snapshot *parking.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO snapshots (key, data) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET data = excluded.data`, snapshotKey, data)
	return err
}

// Load returns the stored snapshot, or nil when nothing has been saved
// yet.
func (s *SQLiteStore) Load() (*parking.Snapshot, error) {
	var raw []byte
	err := s.db.QueryRow(`SELECT data FROM snapshots WHERE key = ?`, snapshotKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snapshot parking.Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (s *SQLiteStore) Clear() error {
	_, err := s.db.Exec(`DELETE FROM snapshots WHERE key = ?`, snapshotKey)
	return err
}
