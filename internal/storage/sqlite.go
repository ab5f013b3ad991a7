package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"tally/internal/models"
	"time"

	_ "modernc.org/sqlite"
)

const defaultBusyTimeout = 5000

// SQLiteStore keeps a single open connection, so transactions are serialized
// by database/sql handing out that connection one caller at a time.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = "tally.db"
	}
	db, err := sql.Open("sqlite", buildDSN(path))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", defaultBusyTimeout)); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func buildDSN(path string) string {
	switch {
	case strings.HasPrefix(path, "sqlite://"):
		path = path[len("sqlite://"):]
	case strings.HasPrefix(path, "file:"), strings.HasPrefix(path, ":memory:"):
	default:
		path = "file:" + path
	}
	separator := "?"
	if strings.Contains(path, "?") {
		separator = "&"
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout=%d&_pragma=journal_mode=WAL", path, separator, defaultBusyTimeout)
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS counters (
			key TEXT PRIMARY KEY,
			daily_count INTEGER NOT NULL DEFAULT 0,
			total_count INTEGER NOT NULL DEFAULT 0,
			last_reset_date TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS presence (
			identity TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			last_seen INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS presence_last_seen ON presence(last_seen);`,
		`CREATE TABLE IF NOT EXISTS activity_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id TEXT NOT NULL UNIQUE,
			actor_identity TEXT NOT NULL,
			action TEXT NOT NULL,
			timestamp INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS activity_events_timestamp ON activity_events(timestamp);`,
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for _, stmt := range statements {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) WithTx(ctx context.Context, fn func(tx Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(&sqliteTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetCounter(ctx context.Context) (*models.Counter, error) {
	return scanCounter(s.db.QueryRowContext(ctx, selectCounterSQL, models.CounterKey))
}

func (s *SQLiteStore) ListPresenceSince(ctx context.Context, cutoffMs int64) ([]models.PresenceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT identity, name, last_seen FROM presence WHERE last_seen >= ?`, cutoffMs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.PresenceRecord
	for rows.Next() {
		var rec models.PresenceRecord
		if err := rows.Scan(&rec.Identity, &rec.Name, &rec.LastSeen); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeletePresenceBefore(ctx context.Context, cutoffMs int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM presence WHERE last_seen < ?`, cutoffMs)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) ListEventsAfter(ctx context.Context, afterMs int64, limit int) ([]models.ActivityEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_id, actor_identity, action, timestamp
		FROM activity_events
		WHERE timestamp > ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, afterMs, limit)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

func (s *SQLiteStore) ListEventsBefore(ctx context.Context, beforeMs int64, limit int) ([]models.ActivityEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_id, actor_identity, action, timestamp
		FROM activity_events
		WHERE timestamp < ?
		ORDER BY id ASC
		LIMIT ?
	`, beforeMs, limit)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

func (s *SQLiteStore) DeleteEventsThrough(ctx context.Context, beforeMs, maxID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM activity_events WHERE timestamp < ? AND id <= ?`, beforeMs, maxID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) CountEvents(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM activity_events`).Scan(&n)
	return n, err
}

type sqliteTx struct {
	tx *sql.Tx
}

const selectCounterSQL = `SELECT daily_count, total_count, last_reset_date FROM counters WHERE key = ?`

func (t *sqliteTx) GetCounter(ctx context.Context) (*models.Counter, error) {
	return scanCounter(t.tx.QueryRowContext(ctx, selectCounterSQL, models.CounterKey))
}

func (t *sqliteTx) PutCounter(ctx context.Context, c *models.Counter) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO counters(key, daily_count, total_count, last_reset_date) VALUES(?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			daily_count = excluded.daily_count,
			total_count = excluded.total_count,
			last_reset_date = excluded.last_reset_date
	`, models.CounterKey, c.DailyCount, c.TotalCount, c.LastResetDate)
	return err
}

func (t *sqliteTx) DeleteCounter(ctx context.Context) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM counters WHERE key = ?`, models.CounterKey)
	return err
}

func (t *sqliteTx) AppendEvent(ctx context.Context, e *models.ActivityEvent, now time.Time) error {
	var last int64
	if err := t.tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(timestamp), 0) FROM activity_events`).Scan(&last); err != nil {
		return err
	}
	e.Timestamp = nextTimestamp(models.Millis(now), last)
	res, err := t.tx.ExecContext(ctx, `INSERT INTO activity_events(event_id, actor_identity, action, timestamp) VALUES(?, ?, ?, ?)`,
		e.EventID, e.ActorIdentity, e.Action, e.Timestamp)
	if err != nil {
		return err
	}
	e.ID, err = res.LastInsertId()
	return err
}

func (t *sqliteTx) UpsertPresence(ctx context.Context, rec *models.PresenceRecord) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO presence(identity, name, last_seen) VALUES(?, ?, ?)
		ON CONFLICT(identity) DO UPDATE SET name = excluded.name, last_seen = excluded.last_seen
	`, rec.Identity, rec.Name, rec.LastSeen)
	return err
}

func (t *sqliteTx) DeletePresence(ctx context.Context, identity string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM presence WHERE identity = ?`, identity)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCounter(row rowScanner) (*models.Counter, error) {
	var c models.Counter
	if err := row.Scan(&c.DailyCount, &c.TotalCount, &c.LastResetDate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func scanEvents(rows *sql.Rows) ([]models.ActivityEvent, error) {
	defer rows.Close()
	var out []models.ActivityEvent
	for rows.Next() {
		var e models.ActivityEvent
		if err := rows.Scan(&e.ID, &e.EventID, &e.ActorIdentity, &e.Action, &e.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
