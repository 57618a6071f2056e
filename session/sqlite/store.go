// Package sqlite provides a durable session store backed by SQLite.
// Sessions are persisted replace-on-write: Put rewrites the session row and
// its messages inside one transaction.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/IronBullXD/RoleplayNexus-sub001/core"
)

// Store persists solo and group sessions in a single SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

var (
	_ core.SessionStore      = (*Store)(nil)
	_ core.GroupSessionStore = (*Store)(nil)
)

// New opens (creating if necessary) the database under dataDir and runs the
// schema migration.
func New(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "sessions.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT NOT NULL,
		persona_id TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL,
		world_id TEXT,
		overrides_json TEXT,
		memory_summary TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (id, persona_id)
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at DESC);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		persona_id TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		speaker_id TEXT,
		reasoning TEXT,
		failed INTEGER NOT NULL DEFAULT 0,
		summary INTEGER NOT NULL DEFAULT 0,
		timestamp DATETIME NOT NULL,
		PRIMARY KEY (id, session_id, persona_id)
	);

	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, persona_id, position);

	CREATE TABLE IF NOT EXISTS group_sessions (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		scenario TEXT,
		participants_json TEXT NOT NULL,
		overrides_json TEXT,
		memory_summary TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get loads the session for key with its full transcript.
func (s *Store) Get(ctx context.Context, key core.SessionKey) (*core.Session, error) {
	sess := core.NewSession(key.ID)
	sess.PersonaID = key.PersonaID

	var worldID, overridesJSON, summary sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT title, world_id, overrides_json, memory_summary, created_at, updated_at
		FROM sessions WHERE id = ? AND persona_id = ?
	`, key.ID, key.PersonaID).Scan(&sess.Title, &worldID, &overridesJSON, &summary, &sess.Created, &sess.Updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	sess.WorldID = worldID.String
	sess.MemorySummary = summary.String
	if overridesJSON.Valid && overridesJSON.String != "" {
		if err := json.Unmarshal([]byte(overridesJSON.String), &sess.Overrides); err != nil {
			return nil, fmt.Errorf("unmarshal overrides: %w", err)
		}
	}

	msgs, err := s.loadMessages(ctx, key)
	if err != nil {
		return nil, err
	}
	sess.SetTranscript(msgs)
	return sess, nil
}

func (s *Store) loadMessages(ctx context.Context, key core.SessionKey) ([]core.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, role, content, speaker_id, reasoning, failed, summary, timestamp
		FROM messages WHERE session_id = ? AND persona_id = ? ORDER BY position ASC
	`, key.ID, key.PersonaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []core.Message
	for rows.Next() {
		var m core.Message
		var speakerID, reasoning sql.NullString
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &speakerID, &reasoning, &m.Failed, &m.Summary, &m.Timestamp); err != nil {
			return nil, err
		}
		m.SpeakerID = speakerID.String
		m.Reasoning = reasoning.String
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// Put replaces the stored snapshot for the session's key: the session row
// is upserted and the message list rewritten, all in one transaction.
func (s *Store) Put(ctx context.Context, sess *core.Session) error {
	snapshot := sess.Clone()
	key := snapshot.Key()

	overridesJSON, err := json.Marshal(snapshot.Overrides)
	if err != nil {
		return fmt.Errorf("marshal overrides: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, persona_id, title, world_id, overrides_json, memory_summary, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, persona_id) DO UPDATE SET
			title = excluded.title,
			world_id = excluded.world_id,
			overrides_json = excluded.overrides_json,
			memory_summary = excluded.memory_summary,
			updated_at = excluded.updated_at
	`, key.ID, key.PersonaID, snapshot.Title, snapshot.WorldID, string(overridesJSON),
		snapshot.MemorySummary, snapshot.Created, snapshot.Updated)
	if err != nil {
		return err
	}

	if err := s.writeMessages(ctx, tx, key, snapshot.Transcript()); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) writeMessages(ctx context.Context, tx *sql.Tx, key core.SessionKey, msgs []core.Message) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM messages WHERE session_id = ? AND persona_id = ?`, key.ID, key.PersonaID); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (id, session_id, persona_id, position, role, content, speaker_id, reasoning, failed, summary, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, m := range msgs {
		if _, err := stmt.ExecContext(ctx, m.ID, key.ID, key.PersonaID, i,
			string(m.Role), m.Content, m.SpeakerID, m.Reasoning, m.Failed, m.Summary, m.Timestamp); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the session and its messages.
func (s *Store) Delete(ctx context.Context, key core.SessionKey) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM sessions WHERE id = ? AND persona_id = ?`, key.ID, key.PersonaID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrSessionNotFound
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM messages WHERE session_id = ? AND persona_id = ?`, key.ID, key.PersonaID); err != nil {
		return err
	}
	return tx.Commit()
}

// GetGroup loads a group session with its transcript.
func (s *Store) GetGroup(ctx context.Context, id string) (*core.GroupSession, error) {
	g := core.NewGroupSession(id)

	var scenario, overridesJSON, summary sql.NullString
	var participantsJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT title, scenario, participants_json, overrides_json, memory_summary, created_at, updated_at
		FROM group_sessions WHERE id = ?
	`, id).Scan(&g.Title, &scenario, &participantsJSON, &overridesJSON, &summary, &g.Created, &g.Updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	g.Scenario = scenario.String
	g.MemorySummary = summary.String
	if err := json.Unmarshal([]byte(participantsJSON), &g.Participants); err != nil {
		return nil, fmt.Errorf("unmarshal participants: %w", err)
	}
	if overridesJSON.Valid && overridesJSON.String != "" {
		if err := json.Unmarshal([]byte(overridesJSON.String), &g.Overrides); err != nil {
			return nil, fmt.Errorf("unmarshal overrides: %w", err)
		}
	}

	msgs, err := s.loadMessages(ctx, core.SessionKey{ID: id})
	if err != nil {
		return nil, err
	}
	g.SetTranscript(msgs)
	return g, nil
}

// PutGroup replaces the stored snapshot for the group session.
func (s *Store) PutGroup(ctx context.Context, g *core.GroupSession) error {
	snapshot := g.Clone()

	participantsJSON, err := json.Marshal(snapshot.Participants)
	if err != nil {
		return fmt.Errorf("marshal participants: %w", err)
	}
	overridesJSON, err := json.Marshal(snapshot.Overrides)
	if err != nil {
		return fmt.Errorf("marshal overrides: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO group_sessions (id, title, scenario, participants_json, overrides_json, memory_summary, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			scenario = excluded.scenario,
			participants_json = excluded.participants_json,
			overrides_json = excluded.overrides_json,
			memory_summary = excluded.memory_summary,
			updated_at = excluded.updated_at
	`, snapshot.ID, snapshot.Title, snapshot.Scenario, string(participantsJSON),
		string(overridesJSON), snapshot.MemorySummary, snapshot.Created, snapshot.Updated)
	if err != nil {
		return err
	}

	if err := s.writeMessages(ctx, tx, core.SessionKey{ID: snapshot.ID}, snapshot.Transcript()); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteGroup removes the group session and its messages.
func (s *Store) DeleteGroup(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM group_sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrSessionNotFound
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM messages WHERE session_id = ? AND persona_id = ''`, id); err != nil {
		return err
	}
	return tx.Commit()
}
