package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/kindredapp/companion/backend/internal/model/companion"
)

// SQLiteStore implements Store on top of a SQLite database shared with the
// rest of the product (pairs, profiles, sessions).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS pairs (
		id       TEXT PRIMARY KEY,
		user1_id TEXT NOT NULL,
		user2_id TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_pairs_user1 ON pairs(user1_id);
	CREATE INDEX IF NOT EXISTS idx_pairs_user2 ON pairs(user2_id);

	CREATE TABLE IF NOT EXISTS profiles (
		id            TEXT PRIMARY KEY,
		last_active   TEXT,
		style_summary TEXT
	);

	CREATE TABLE IF NOT EXISTS sessions (
		token      TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreatePairing inserts a pairing row. user2 may be empty.
func (s *SQLiteStore) CreatePairing(ctx context.Context, user1, user2 string) (string, error) {
	id := uuid.NewString()
	var u2 any
	if user2 != "" {
		u2 = user2
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pairs (id, user1_id, user2_id) VALUES (?, ?, ?)`, id, user1, u2)
	if err != nil {
		return "", fmt.Errorf("insert pairing: %w", err)
	}
	return id, nil
}

// UpsertProfile stores or replaces a profile row.
func (s *SQLiteStore) UpsertProfile(ctx context.Context, profile companion.Profile) error {
	var lastActive any
	if profile.LastActive != nil {
		lastActive = profile.LastActive.UTC().Format(time.RFC3339Nano)
	}
	var style any
	if profile.StyleSummary != nil {
		raw, err := json.Marshal(profile.StyleSummary)
		if err != nil {
			return fmt.Errorf("marshal style summary: %w", err)
		}
		style = string(raw)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, last_active, style_summary) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET last_active = excluded.last_active,
			style_summary = excluded.style_summary`,
		profile.UserID, lastActive, style)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// CreateSession inserts a session token for a user.
func (s *SQLiteStore) CreateSession(ctx context.Context, token, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, created_at) VALUES (?, ?, ?)`,
		token, userID, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// FindPairingByUser implements Store.
func (s *SQLiteStore) FindPairingByUser(ctx context.Context, userID string) (companion.Pairing, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user1_id, user2_id FROM pairs WHERE user1_id = ? OR user2_id = ? LIMIT 1`,
		userID, userID)

	var id, user1 string
	var user2 sql.NullString
	if err := row.Scan(&id, &user1, &user2); err != nil {
		if err == sql.ErrNoRows {
			return companion.Pairing{}, ErrPairingNotFound
		}
		return companion.Pairing{}, fmt.Errorf("query pairing: %w", err)
	}

	pairing := companion.Pairing{ID: id, UserID: userID}
	if user1 == userID {
		pairing.PartnerID = user2.String
	} else {
		pairing.PartnerID = user1
	}
	return pairing, nil
}

// GetProfile implements Store. A malformed style_summary column is treated as
// absent rather than failing the lookup.
func (s *SQLiteStore) GetProfile(ctx context.Context, userID string) (companion.Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT last_active, style_summary FROM profiles WHERE id = ?`, userID)

	var lastActive, style sql.NullString
	if err := row.Scan(&lastActive, &style); err != nil {
		if err == sql.ErrNoRows {
			return companion.Profile{}, ErrProfileNotFound
		}
		return companion.Profile{}, fmt.Errorf("query profile: %w", err)
	}

	profile := companion.Profile{UserID: userID}
	if lastActive.Valid {
		ts, err := time.Parse(time.RFC3339Nano, lastActive.String)
		if err == nil {
			profile.LastActive = &ts
		}
	}
	if style.Valid && style.String != "" {
		var summary companion.StyleSummary
		if err := json.Unmarshal([]byte(style.String), &summary); err == nil {
			profile.StyleSummary = &summary
		}
	}
	return profile, nil
}

// LookupSession implements Store.
func (s *SQLiteStore) LookupSession(ctx context.Context, token string) (string, error) {
	row := s.db.QueryRowContext(ctx, `SELECT user_id FROM sessions WHERE token = ?`, token)
	var userID string
	if err := row.Scan(&userID); err != nil {
		if err == sql.ErrNoRows {
			return "", ErrSessionNotFound
		}
		return "", fmt.Errorf("query session: %w", err)
	}
	return userID, nil
}
