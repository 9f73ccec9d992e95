// Package store persists the order task record and the rack corridors. Two
// backends cover the same two small interfaces (order.TaskStore and
// rack.Store): SQLite for a single-box install and Redis when the racks are
// shared between assistants.
package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/murmurhq/murmur/internal/order"
	"github.com/murmurhq/murmur/internal/rack"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLite backs the task record and the rack corridors with one database
// file. Safe for the assistant's sequential, single-conversation access.
type SQLite struct {
	db *sql.DB
}

// Open opens (or creates) dataDir/murmur.db in WAL mode and runs pending
// migrations. Caller must Close.
func Open(dataDir string) (*SQLite, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("store: data_dir is required")
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	dbPath := filepath.Join(dataDir, "murmur.db")
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: WAL: %w", err)
	}
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// Current loads the single task record. ok is false when no order is in
// progress.
func (s *SQLite) Current() (order.Task, bool, error) {
	var (
		t      order.Task
		pickBy string
		phase  int
	)
	err := s.db.QueryRow(
		`SELECT client, object, amount, order_id, pick_by, corridor, rack, phase FROM current_task WHERE id = 1`,
	).Scan(&t.Client, &t.Object, &t.Amount, &t.OrderID, &pickBy, &t.Corridor, &t.Rack, &phase)
	if errors.Is(err, sql.ErrNoRows) {
		return order.Task{}, false, nil
	}
	if err != nil {
		return order.Task{}, false, fmt.Errorf("store: read task: %w", err)
	}
	t.Phase = order.Phase(phase)
	if pickBy != "" {
		if t.PickBy, err = time.Parse(time.RFC3339, pickBy); err != nil {
			return order.Task{}, false, fmt.Errorf("%w: pick_by %q", order.ErrMalformedTask, pickBy)
		}
	}
	return t, true, nil
}

// Put upserts the single task record. The fixed primary key enforces the
// at-most-one-task rule.
func (s *SQLite) Put(t order.Task) error {
	_, err := s.db.Exec(
		`INSERT INTO current_task (id, client, object, amount, order_id, pick_by, corridor, rack, phase)
		 VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		 client = excluded.client, object = excluded.object, amount = excluded.amount,
		 order_id = excluded.order_id, pick_by = excluded.pick_by,
		 corridor = excluded.corridor, rack = excluded.rack, phase = excluded.phase`,
		t.Client, t.Object, t.Amount, t.OrderID, formatTime(t.PickBy), t.Corridor, t.Rack, int(t.Phase))
	if err != nil {
		return fmt.Errorf("store: write task: %w", err)
	}
	return nil
}

func (s *SQLite) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM current_task WHERE id = 1`); err != nil {
		return fmt.Errorf("store: clear task: %w", err)
	}
	return nil
}

// Corridor returns corridor n's entries in slot order.
func (s *SQLite) Corridor(n int) ([]rack.Entry, error) {
	rows, err := s.db.Query(
		`SELECT order_id, rack, corridor, pick_by FROM rack_entries WHERE corridor_key = ? ORDER BY slot`, n)
	if err != nil {
		return nil, fmt.Errorf("store: read corridor %d: %w", n, err)
	}
	defer func() { _ = rows.Close() }()

	var entries []rack.Entry
	for rows.Next() {
		var (
			e      rack.Entry
			pickBy string
		)
		if err := rows.Scan(&e.OrderID, &e.Rack, &e.Corridor, &pickBy); err != nil {
			return nil, fmt.Errorf("store: read corridor %d: %w", n, err)
		}
		if pickBy != "" {
			if e.PickBy, err = time.Parse(time.RFC3339, pickBy); err != nil {
				return nil, fmt.Errorf("store: corridor %d pick_by %q: %w", n, pickBy, err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// PutCorridor replaces corridor n's entries in one transaction.
func (s *SQLite) PutCorridor(n int, entries []rack.Entry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: corridor %d: %w", n, err)
	}
	if _, err := tx.Exec(`DELETE FROM rack_entries WHERE corridor_key = ?`, n); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("store: corridor %d: %w", n, err)
	}
	for slot, e := range entries {
		_, err := tx.Exec(
			`INSERT INTO rack_entries (corridor_key, slot, order_id, rack, corridor, pick_by) VALUES (?, ?, ?, ?, ?, ?)`,
			n, slot, e.OrderID, e.Rack, e.Corridor, formatTime(e.PickBy))
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("store: corridor %d slot %d: %w", n, slot, err)
		}
	}
	return tx.Commit()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func (s *SQLite) migrate() error {
	if _, err := s.db.Exec("CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL PRIMARY KEY)"); err != nil {
		return fmt.Errorf("store: migrations: %w", err)
	}
	current := 0
	var v sql.NullInt64
	if err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v); err == nil && v.Valid {
		current = int(v.Int64)
	}

	names, err := migrationNames()
	if err != nil {
		return err
	}
	for _, name := range names {
		n, err := migrationNumber(name)
		if err != nil || n <= current {
			continue
		}
		body, err := fs.ReadFile(migrationsFS, "migrations/"+name)
		if err != nil {
			return fmt.Errorf("store: migration %s: %w", name, err)
		}
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("store: migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(body)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("store: migration %s: %w", name, err)
		}
		if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("store: migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", n); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("store: migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("store: migration %s: %w", name, err)
		}
	}
	return nil
}

func migrationNames() ([]string, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func migrationNumber(name string) (int, error) {
	base := strings.TrimSuffix(name, ".sql")
	parts := strings.SplitN(base, "_", 2)
	if len(parts) < 2 {
		return 0, fmt.Errorf("invalid migration name %q", name)
	}
	return strconv.Atoi(parts[0])
}

var (
	_ order.TaskStore = (*SQLite)(nil)
	_ rack.Store      = (*SQLite)(nil)
)
