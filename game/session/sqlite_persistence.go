package session

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/wricardo/mcp-training/navalbattle/game/engine"
	"github.com/wricardo/mcp-training/navalbattle/game/service"
)

var _ service.HistoryStore = (*SQLitePersistence)(nil)

type migration struct {
	id   int
	name string
	sql  string
}

var migrations = []migration{
	{
		id:   1,
		name: "create_sessions",
		sql: `
			CREATE TABLE sessions (
				id TEXT PRIMARY KEY,
				config_name TEXT NOT NULL,
				nickname TEXT NOT NULL,
				phase TEXT NOT NULL,
				data_json TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			)
		`,
	},
	{
		id:   2,
		name: "create_attacks",
		sql: `
			CREATE TABLE attacks (
				id TEXT PRIMARY KEY,
				session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
				seq INTEGER NOT NULL,
				attacker TEXT NOT NULL,
				target_row INTEGER NOT NULL,
				target_col INTEGER NOT NULL,
				outcome TEXT NOT NULL,
				attacked_at DATETIME NOT NULL,
				UNIQUE (session_id, seq)
			);
			CREATE INDEX idx_attacks_session ON attacks(session_id, seq);
		`,
	},
}

// SQLitePersistence implements SessionPersistence on a SQLite database.
// Each session is stored as one JSON document and its attacks one row each,
// which also makes it a service.HistoryStore.
type SQLitePersistence struct {
	conn  *sql.DB
	codec codec
}

// NewSQLitePersistence opens (or creates) the database at dbPath and runs
// pending migrations.
func NewSQLitePersistence(dbPath string, configManager service.ConfigManager, logger *zap.Logger) (*SQLitePersistence, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection avoids lock contention and keeps :memory: databases shared
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	p := &SQLitePersistence{
		conn:  conn,
		codec: codec{configs: configManager, logger: logger},
	}
	if err := p.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Debug("session database ready", zap.String("path", dbPath))
	return p, nil
}

// Close closes the database connection.
func (p *SQLitePersistence) Close() error {
	return p.conn.Close()
}

func (p *SQLitePersistence) migrate() error {
	_, err := p.conn.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		var count int
		if err := p.conn.QueryRow("SELECT COUNT(*) FROM migrations WHERE id = ?", m.id).Scan(&count); err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := p.runMigration(m); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.id, m.name, err)
		}
	}
	return nil
}

func (p *SQLitePersistence) runMigration(m migration) error {
	tx, err := p.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.sql); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO migrations (id, name) VALUES (?, ?)", m.id, m.name); err != nil {
		return err
	}
	return tx.Commit()
}

// Save upserts the session document and records any attacks not yet stored.
func (p *SQLitePersistence) Save(session *service.Session) error {
	data, err := p.codec.marshal(session)
	if err != nil {
		return err
	}
	history := session.Game.History()

	tx, err := p.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO sessions (id, config_name, nickname, phase, data_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			config_name = excluded.config_name,
			nickname = excluded.nickname,
			phase = excluded.phase,
			data_json = excluded.data_json,
			updated_at = excluded.updated_at
	`, session.ID, session.ConfigID, session.Nickname, string(session.Phase()), string(data), session.CreatedAt, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO attacks (id, session_id, seq, attacker, target_row, target_col, outcome, attacked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, seq) DO NOTHING
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range history {
		_, err := stmt.Exec(uuid.New().String(), session.ID, a.Seq, a.Attacker.String(),
			a.Position.Row, a.Position.Col, a.Outcome.String(), a.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to save attack %d: %w", a.Seq, err)
		}
	}

	return tx.Commit()
}

// Load retrieves a session by ID.
func (p *SQLitePersistence) Load(id string) (*service.Session, error) {
	var data string
	err := p.conn.QueryRow("SELECT data_json FROM sessions WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return p.codec.unmarshal(id, []byte(data))
}

// Delete removes a session and its attacks.
func (p *SQLitePersistence) Delete(id string) error {
	res, err := p.conn.Exec("DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

// ListAll returns all stored session IDs.
func (p *SQLitePersistence) ListAll() ([]string, error) {
	rows, err := p.conn.Query("SELECT id FROM sessions ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Exists checks whether a session is stored.
func (p *SQLitePersistence) Exists(id string) bool {
	var count int
	err := p.conn.QueryRow("SELECT COUNT(*) FROM sessions WHERE id = ?", id).Scan(&count)
	return err == nil && count > 0
}

// AttackHistory returns every recorded attack for a session, oldest first.
func (p *SQLitePersistence) AttackHistory(sessionID string) ([]engine.AttackRecord, error) {
	rows, err := p.conn.Query(`
		SELECT seq, attacker, target_row, target_col, outcome, attacked_at
		FROM attacks WHERE session_id = ? ORDER BY seq
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attacks: %w", err)
	}
	defer rows.Close()

	records := []engine.AttackRecord{}
	for rows.Next() {
		var rec engine.AttackRecord
		var attacker, outcome string
		if err := rows.Scan(&rec.Seq, &attacker, &rec.Position.Row, &rec.Position.Col, &outcome, &rec.Timestamp); err != nil {
			return nil, err
		}
		if err := rec.Attacker.UnmarshalText([]byte(attacker)); err != nil {
			return nil, fmt.Errorf("attack %d: %w", rec.Seq, err)
		}
		if err := rec.Outcome.UnmarshalText([]byte(outcome)); err != nil {
			return nil, fmt.Errorf("attack %d: %w", rec.Seq, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
