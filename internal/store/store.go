package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// ContextStore keeps the desktop context the model is prompted with:
// recent command outcomes, conversation turns, and periodic system state
// snapshots. Backed by a single-connection SQLite database.
type ContextStore struct {
	log    *zap.Logger
	db     *sql.DB
	dbPath string

	mu          sync.RWMutex
	keybindings []Keybinding
}

// CommandRecord is one executed action logged after a query ran.
type CommandRecord struct {
	ID        int64     `json:"id"`
	Query     string    `json:"query"`
	Action    string    `json:"action"`
	Success   bool      `json:"success"`
	Output    string    `json:"output"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationTurn is one side of a query exchange.
type ConversationTurn struct {
	ID        int64     `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Keybinding is a parsed Hyprland bind line.
type Keybinding struct {
	Modifiers string `json:"modifiers"`
	Key       string `json:"key"`
	Action    string `json:"action"`
}

const schema = `
CREATE TABLE IF NOT EXISTS command_log (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	query      TEXT NOT NULL,
	action     TEXT NOT NULL,
	success    INTEGER NOT NULL,
	output     TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS conversations (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS system_state (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	state      TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_command_log_created ON command_log(created_at);
CREATE INDEX IF NOT EXISTS idx_conversations_created ON conversations(created_at);
`

// Open initializes the database at path, creating parent directories and
// the schema as needed, and loads keybindings from hyprlandConf.
func Open(log *zap.Logger, path, hyprlandConf string) (*ContextStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		log.Debug("set busy_timeout failed", zap.Error(err))
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		log.Debug("set journal_mode=WAL failed", zap.Error(err))
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &ContextStore{log: log, db: db, dbPath: path}
	s.loadKeybindings(hyprlandConf)
	return s, nil
}

func (s *ContextStore) loadKeybindings(confPath string) {
	binds, err := ParseKeybindings(confPath)
	if err != nil {
		s.log.Warn("could not load keybindings", zap.String("path", confPath), zap.Error(err))
		return
	}
	s.mu.Lock()
	s.keybindings = binds
	s.mu.Unlock()
	s.log.Info("loaded keybindings", zap.Int("count", len(binds)))
}

// Keybindings returns the binds parsed at startup.
func (s *ContextStore) Keybindings() []Keybinding {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Keybinding, len(s.keybindings))
	copy(out, s.keybindings)
	return out
}

// AddCommand records one executed action against the query that caused it.
func (s *ContextStore) AddCommand(ctx context.Context, query, action string, success bool, output string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO command_log (query, action, success, output) VALUES (?, ?, ?, ?)`,
		query, action, success, output)
	if err != nil {
		return fmt.Errorf("insert command: %w", err)
	}
	return nil
}

// RecentCommands returns up to limit commands, newest first.
func (s *ContextStore) RecentCommands(ctx context.Context, limit int) ([]CommandRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query, action, success, output, created_at
		 FROM command_log ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query commands: %w", err)
	}
	defer rows.Close()

	var out []CommandRecord
	for rows.Next() {
		var r CommandRecord
		var success int
		if err := rows.Scan(&r.ID, &r.Query, &r.Action, &success, &r.Output, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan command: %w", err)
		}
		r.Success = success != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// AddConversationTurn appends one role/content pair to the conversation log.
func (s *ContextStore) AddConversationTurn(ctx context.Context, role, content string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (role, content) VALUES (?, ?)`, role, content)
	if err != nil {
		return fmt.Errorf("insert conversation turn: %w", err)
	}
	return nil
}

// ConversationHistory returns up to limit turns, newest first.
func (s *ContextStore) ConversationHistory(ctx context.Context, limit int) ([]ConversationTurn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, content, created_at
		 FROM conversations ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	var out []ConversationTurn
	for rows.Next() {
		var t ConversationTurn
		if err := rows.Scan(&t.ID, &t.Role, &t.Content, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scan conversation turn: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// PersistSystemState stores one telemetry snapshot as JSON.
func (s *ContextStore) PersistSystemState(ctx context.Context, state any) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO system_state (state) VALUES (?)`, string(data)); err != nil {
		return fmt.Errorf("insert state: %w", err)
	}
	return nil
}

// Stats summarizes what the store has accumulated.
type Stats struct {
	TotalCommands      int64   `json:"total_commands"`
	SuccessfulCommands int64   `json:"successful_commands"`
	SuccessRate        float64 `json:"success_rate"`
	ConversationTurns  int64   `json:"conversation_turns"`
	StateSnapshots     int64   `json:"state_snapshots"`
	KeybindingsLoaded  int     `json:"keybindings_loaded"`
	DatabaseSizeBytes  int64   `json:"database_size_bytes"`
}

// GetStats reads aggregate counters in one pass.
func (s *ContextStore) GetStats(ctx context.Context) (Stats, error) {
	var st Stats
	row := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM command_log),
			(SELECT COUNT(*) FROM command_log WHERE success = 1),
			(SELECT COUNT(*) FROM conversations),
			(SELECT COUNT(*) FROM system_state)`)
	if err := row.Scan(&st.TotalCommands, &st.SuccessfulCommands, &st.ConversationTurns, &st.StateSnapshots); err != nil {
		return Stats{}, fmt.Errorf("scan stats: %w", err)
	}
	if st.TotalCommands > 0 {
		st.SuccessRate = float64(st.SuccessfulCommands) / float64(st.TotalCommands)
	}
	st.KeybindingsLoaded = len(s.Keybindings())
	if info, err := os.Stat(s.dbPath); err == nil {
		st.DatabaseSizeBytes = info.Size()
	}
	return st, nil
}

// Close flushes and closes the database.
func (s *ContextStore) Close() error {
	return s.db.Close()
}
