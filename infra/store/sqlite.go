package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/raikasdev/howareya/core/model"
	corestore "github.com/raikasdev/howareya/core/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    email TEXT NOT NULL DEFAULT '',
    api_key TEXT
);
CREATE TABLE IF NOT EXISTS contacts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    owner_id TEXT NOT NULL REFERENCES users(id),
    name TEXT NOT NULL DEFAULT '',
    meeting_url TEXT NOT NULL DEFAULT '',
    frequency TEXT NOT NULL DEFAULT 'weekly',
    time_preference TEXT NOT NULL DEFAULT 'any',
    latest_meeting INTEGER,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS contacts_owner ON contacts(owner_id);`

const contactColumns = `id, owner_id, name, meeting_url, frequency, time_preference, latest_meeting, created_at`

// SQLiteStore persists users and contacts in a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ corestore.Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates the database and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	dsn += "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// Conditional updates rely on a single writer.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// SaveUser inserts or updates a user. An empty APIKey is stored as NULL.
func (s *SQLiteStore) SaveUser(ctx context.Context, u model.User) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO users (id, name, email, api_key)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            name = excluded.name,
            email = excluded.email,
            api_key = excluded.api_key`,
		u.ID, u.Name, u.Email, nullString(u.APIKey))
	return err
}

// GetUser loads a user by id.
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (model.User, error) {
	var (
		u   model.User
		key sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, name, email, api_key FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &u.Email, &key)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, corestore.ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	u.APIKey = key.String
	return u, nil
}

// SetAPIKey stores the user's API key.
func (s *SQLiteStore) SetAPIKey(ctx context.Context, id, apiKey string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET api_key = ? WHERE id = ?`, nullString(apiKey), id)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

// AddContact inserts c and returns its id. c.ID is ignored.
func (s *SQLiteStore) AddContact(ctx context.Context, c model.Contact) (int64, error) {
	created := c.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO contacts
        (owner_id, name, meeting_url, frequency, time_preference, latest_meeting, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.OwnerID, c.Name, c.MeetingURL, string(c.Frequency), string(c.TimePreference),
		nullTime(c.LatestMeeting), created.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListAll returns every contact ordered by id.
func (s *SQLiteStore) ListAll(ctx context.Context) ([]model.Contact, error) {
	return s.query(ctx, `SELECT `+contactColumns+` FROM contacts ORDER BY id`)
}

// ListByOwner returns the contacts of one user ordered by id.
func (s *SQLiteStore) ListByOwner(ctx context.Context, ownerID string) ([]model.Contact, error) {
	return s.query(ctx, `SELECT `+contactColumns+` FROM contacts WHERE owner_id = ? ORDER BY id`, ownerID)
}

// ListByIDAndOwner returns the contact only when it belongs to ownerID.
func (s *SQLiteStore) ListByIDAndOwner(ctx context.Context, id int64, ownerID string) ([]model.Contact, error) {
	return s.query(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id = ? AND owner_id = ?`, id, ownerID)
}

// SetLatestMeeting moves latest_meeting forward with a single conditional
// update, so concurrent writers can never move it backwards.
func (s *SQLiteStore) SetLatestMeeting(ctx context.Context, id int64, t time.Time) error {
	ms := t.UnixMilli()
	res, err := s.db.ExecContext(ctx, `UPDATE contacts SET latest_meeting = ?
        WHERE id = ? AND (latest_meeting IS NULL OR latest_meeting <= ?)`, ms, id, ms)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM contacts WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return corestore.ErrNotFound
	}
	if err != nil {
		return err
	}
	return corestore.ErrStale
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]model.Contact, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.Contact
	for rows.Next() {
		var (
			c         model.Contact
			freq      string
			pref      string
			latest    sql.NullInt64
			createdMs int64
		)
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.MeetingURL, &freq, &pref, &latest, &createdMs); err != nil {
			return nil, err
		}
		c.Frequency = model.Frequency(freq)
		c.TimePreference = model.TimePreference(pref)
		if latest.Valid {
			t := time.UnixMilli(latest.Int64).UTC()
			c.LatestMeeting = &t
		}
		c.CreatedAt = time.UnixMilli(createdMs).UTC()
		res = append(res, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func mustAffect(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return corestore.ErrNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}
