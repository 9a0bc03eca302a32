package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding collection runs and episodes.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs
// pending migrations. Pass ":memory:" as dataDir for an in-memory
// database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "lmpc.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate applies embedded SQL migration files that haven't run yet.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// --- Runs ---

func (s *Store) SaveRun(r Run) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (id, speaker, policy, noise, episodes, started_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.Speaker, r.Policy, r.Noise, r.Episodes,
		r.StartedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetRun(id string) (Run, error) {
	var r Run
	var startedAt string
	err := s.db.QueryRow(`
		SELECT id, speaker, policy, noise, episodes, started_at
		FROM runs WHERE id = ?`, id,
	).Scan(&r.ID, &r.Speaker, &r.Policy, &r.Noise, &r.Episodes, &startedAt)
	if err == sql.ErrNoRows {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, err
	}
	t, err := time.Parse(time.RFC3339, startedAt)
	if err != nil {
		return Run{}, fmt.Errorf("parsing started_at: %w", err)
	}
	r.StartedAt = t
	return r, nil
}

func (s *Store) ListRuns(limit int) ([]Run, error) {
	rows, err := s.db.Query(`
		SELECT id, speaker, policy, noise, episodes, started_at
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Run
	for rows.Next() {
		var r Run
		var startedAt string
		if err := rows.Scan(&r.ID, &r.Speaker, &r.Policy, &r.Noise, &r.Episodes, &startedAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, startedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing started_at: %w", err)
		}
		r.StartedAt = t
		results = append(results, r)
	}
	return results, rows.Err()
}

// --- Episodes ---

func (s *Store) SaveEpisode(e Episode) error {
	success := 0
	if e.Success {
		success = 1
	}
	_, err := s.db.Exec(`
		INSERT INTO episodes (id, run_id, speaker, goal, noise, messages_json, chat_length, success, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.RunID, e.Speaker, e.Goal, e.Noise, e.MessagesJSON,
		e.ChatLength, success, e.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetEpisode(id string) (Episode, error) {
	row := s.db.QueryRow(`
		SELECT id, run_id, speaker, goal, noise, messages_json, chat_length, success, created_at
		FROM episodes WHERE id = ?`, id,
	)
	e, err := scanEpisode(row)
	if err == sql.ErrNoRows {
		return Episode{}, ErrNotFound
	}
	return e, err
}

// ListEpisodes returns episodes newest-first. Pass an empty speaker to
// list all speakers.
func (s *Store) ListEpisodes(speaker string, limit, offset int) ([]Episode, error) {
	query := `
		SELECT id, run_id, speaker, goal, noise, messages_json, chat_length, success, created_at
		FROM episodes`
	args := []any{}
	if speaker != "" {
		query += " WHERE speaker = ?"
		args = append(args, speaker)
	}
	// SQLite treats a negative limit as "no limit".
	if limit <= 0 {
		limit = -1
	}
	query += " ORDER BY created_at DESC, id LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Episode
	for rows.Next() {
		e, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	return results, rows.Err()
}

func (s *Store) ListEpisodesByRun(runID string) ([]Episode, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, speaker, goal, noise, messages_json, chat_length, success, created_at
		FROM episodes WHERE run_id = ? ORDER BY created_at, id`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Episode
	for rows.Next() {
		e, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	return results, rows.Err()
}

// Metrics aggregates success rate and mean chat length per
// (speaker, noise) pair across all stored episodes.
func (s *Store) Metrics() ([]Metric, error) {
	rows, err := s.db.Query(`
		SELECT speaker, noise, COUNT(*), AVG(success), AVG(chat_length)
		FROM episodes
		GROUP BY speaker, noise
		ORDER BY speaker, noise`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Metric
	for rows.Next() {
		var m Metric
		if err := rows.Scan(&m.Speaker, &m.Noise, &m.Episodes, &m.SuccessRate, &m.MeanChatLength); err != nil {
			return nil, err
		}
		results = append(results, m)
	}
	return results, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEpisode(sc scanner) (Episode, error) {
	var e Episode
	var success int
	var createdAt string
	if err := sc.Scan(&e.ID, &e.RunID, &e.Speaker, &e.Goal, &e.Noise,
		&e.MessagesJSON, &e.ChatLength, &success, &createdAt); err != nil {
		return Episode{}, err
	}
	e.Success = success != 0
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Episode{}, fmt.Errorf("parsing created_at: %w", err)
	}
	e.CreatedAt = t
	return e, nil
}
