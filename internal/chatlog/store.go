package chatlog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Store is the SQLite-backed transcript. One row per flushed Entry, keyed
// by session so past conversations stay reviewable.
type Store struct {
	mu        sync.Mutex
	db        *sql.DB
	sessionID string
	path      string
}

// OpenStore opens (or creates) the transcript database under dataDir and
// registers a new session row.
func OpenStore(dataDir, sessionID string) (*Store, error) {
	s, err := open(dataDir, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.createSession(); err != nil {
		s.db.Close()
		return nil, fmt.Errorf("create session: %w", err)
	}
	return s, nil
}

// OpenStoreRead opens the database without starting a session. Used by
// `hum log`, which only reads.
func OpenStoreRead(dataDir string) (*Store, error) {
	return open(dataDir, "")
}

func open(dataDir, sessionID string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "hum.db")
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Single connection for writes, WAL allows concurrent reads.
	db.SetMaxOpenConns(2)

	s := &Store{db: db, sessionID: sessionID, path: dbPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	ddl := `
	CREATE TABLE IF NOT EXISTS sessions (
		id          TEXT PRIMARY KEY,
		started_at  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS entries (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id  TEXT NOT NULL,
		request_id  TEXT,
		kind        TEXT NOT NULL,
		text        TEXT,
		tool_name   TEXT,
		tool_ok     INTEGER NOT NULL DEFAULT 0,
		elapsed_ms  INTEGER NOT NULL DEFAULT 0,
		created_at  TEXT NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	);
	CREATE INDEX IF NOT EXISTS idx_entries_session ON entries(session_id);
	`
	_, err := s.db.Exec(ddl)
	return err
}

func (s *Store) createSession() error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO sessions (id, started_at) VALUES (?, ?)`,
		s.sessionID, time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

// Append persists one entry. Implements Appender.
func (s *Store) Append(e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO entries (session_id, request_id, kind, text, tool_name, tool_ok, elapsed_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.sessionID, e.RequestID, string(e.Kind), e.Text, e.ToolName,
		boolToInt(e.ToolOK), e.Elapsed.Milliseconds(),
		e.Time.UTC().Format(time.RFC3339Nano))
	return err
}

// Recent returns up to n entries of the most recent session, oldest first.
// With n <= 0 the whole session is returned.
func (s *Store) Recent(n int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The most recent session with entries; freshly-registered empty
	// sessions are skipped.
	var sessionID string
	err := s.db.QueryRow(
		`SELECT session_id FROM entries ORDER BY id DESC LIMIT 1`).Scan(&sessionID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.sessionEntries(sessionID, n)
}

func (s *Store) sessionEntries(sessionID string, n int) ([]Entry, error) {
	q := `SELECT id, request_id, kind, text, tool_name, tool_ok, elapsed_ms, created_at
	      FROM entries WHERE session_id = ? ORDER BY id`
	rows, err := s.db.Query(q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var kind, createdAt string
		var toolOK, elapsedMS int64
		if err := rows.Scan(&e.Seq, &e.RequestID, &kind, &e.Text, &e.ToolName,
			&toolOK, &elapsedMS, &createdAt); err != nil {
			return nil, err
		}
		e.Kind = Kind(kind)
		e.ToolOK = toolOK != 0
		e.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			e.Time = t
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if n > 0 && len(out) > n {
		out = out[len(out)-n:]
	}
	return out, nil
}

// SessionInfo summarizes one stored session for listings.
type SessionInfo struct {
	ID        string
	StartedAt time.Time
	Entries   int
}

// Sessions lists stored sessions newest first with their entry counts.
func (s *Store) Sessions() ([]SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT s.id, s.started_at, COUNT(e.id)
		 FROM sessions s LEFT JOIN entries e ON e.session_id = s.id
		 GROUP BY s.id ORDER BY s.started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		var info SessionInfo
		var startedAt string
		if err := rows.Scan(&info.ID, &startedAt, &info.Entries); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
			info.StartedAt = t
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
