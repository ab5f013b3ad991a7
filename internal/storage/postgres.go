package storage

import (
	"context"
	"errors"
	"fmt"
	"tally/internal/models"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// counterLockID is the advisory lock key serializing counter and event writes.
const counterLockID int64 = 0x7a11

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS counters (
			key TEXT PRIMARY KEY,
			daily_count BIGINT NOT NULL DEFAULT 0,
			total_count BIGINT NOT NULL DEFAULT 0,
			last_reset_date TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS presence (
			identity TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			last_seen BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS presence_last_seen ON presence(last_seen)`,
		`CREATE TABLE IF NOT EXISTS activity_events (
			id BIGSERIAL PRIMARY KEY,
			event_id TEXT NOT NULL UNIQUE,
			actor_identity TEXT NOT NULL,
			action TEXT NOT NULL,
			timestamp BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS activity_events_timestamp ON activity_events(timestamp)`,
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, stmt := range statements {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PostgresStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&pgTx{tx: tx})
	})
}

func (s *PostgresStore) GetCounter(ctx context.Context) (*models.Counter, error) {
	return scanPgCounter(s.pool.QueryRow(ctx, `SELECT daily_count, total_count, last_reset_date FROM counters WHERE key = $1`, models.CounterKey))
}

func (s *PostgresStore) ListPresenceSince(ctx context.Context, cutoffMs int64) ([]models.PresenceRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT identity, name, last_seen FROM presence WHERE last_seen >= $1`, cutoffMs)
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

func (s *PostgresStore) DeletePresenceBefore(ctx context.Context, cutoffMs int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM presence WHERE last_seen < $1`, cutoffMs)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) ListEventsAfter(ctx context.Context, afterMs int64, limit int) ([]models.ActivityEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, event_id, actor_identity, action, timestamp
		FROM activity_events
		WHERE timestamp > $1
		ORDER BY timestamp DESC, id DESC
		LIMIT $2
	`, afterMs, limit)
	if err != nil {
		return nil, err
	}
	return scanPgEvents(rows)
}

func (s *PostgresStore) ListEventsBefore(ctx context.Context, beforeMs int64, limit int) ([]models.ActivityEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, event_id, actor_identity, action, timestamp
		FROM activity_events
		WHERE timestamp < $1
		ORDER BY id ASC
		LIMIT $2
	`, beforeMs, limit)
	if err != nil {
		return nil, err
	}
	return scanPgEvents(rows)
}

func (s *PostgresStore) DeleteEventsThrough(ctx context.Context, beforeMs, maxID int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM activity_events WHERE timestamp < $1 AND id <= $2`, beforeMs, maxID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) CountEvents(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(1) FROM activity_events`).Scan(&n)
	return n, err
}

type pgTx struct {
	tx     pgx.Tx
	locked bool
}

// lock takes the counter advisory lock once per transaction; it is released on commit or rollback.
func (t *pgTx) lock(ctx context.Context) error {
	if t.locked {
		return nil
	}
	if _, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, counterLockID); err != nil {
		return err
	}
	t.locked = true
	return nil
}

func (t *pgTx) GetCounter(ctx context.Context) (*models.Counter, error) {
	if err := t.lock(ctx); err != nil {
		return nil, err
	}
	return scanPgCounter(t.tx.QueryRow(ctx, `SELECT daily_count, total_count, last_reset_date FROM counters WHERE key = $1`, models.CounterKey))
}

func (t *pgTx) PutCounter(ctx context.Context, c *models.Counter) error {
	if err := t.lock(ctx); err != nil {
		return err
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO counters(key, daily_count, total_count, last_reset_date) VALUES($1, $2, $3, $4)
		ON CONFLICT(key) DO UPDATE SET
			daily_count = EXCLUDED.daily_count,
			total_count = EXCLUDED.total_count,
			last_reset_date = EXCLUDED.last_reset_date
	`, models.CounterKey, c.DailyCount, c.TotalCount, c.LastResetDate)
	return err
}

func (t *pgTx) DeleteCounter(ctx context.Context) error {
	if err := t.lock(ctx); err != nil {
		return err
	}
	_, err := t.tx.Exec(ctx, `DELETE FROM counters WHERE key = $1`, models.CounterKey)
	return err
}

func (t *pgTx) AppendEvent(ctx context.Context, e *models.ActivityEvent, now time.Time) error {
	if err := t.lock(ctx); err != nil {
		return err
	}
	var last int64
	if err := t.tx.QueryRow(ctx, `SELECT COALESCE(MAX(timestamp), 0) FROM activity_events`).Scan(&last); err != nil {
		return err
	}
	e.Timestamp = nextTimestamp(models.Millis(now), last)
	return t.tx.QueryRow(ctx, `
		INSERT INTO activity_events(event_id, actor_identity, action, timestamp) VALUES($1, $2, $3, $4)
		RETURNING id
	`, e.EventID, e.ActorIdentity, e.Action, e.Timestamp).Scan(&e.ID)
}

func (t *pgTx) UpsertPresence(ctx context.Context, rec *models.PresenceRecord) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO presence(identity, name, last_seen) VALUES($1, $2, $3)
		ON CONFLICT(identity) DO UPDATE SET name = EXCLUDED.name, last_seen = EXCLUDED.last_seen
	`, rec.Identity, rec.Name, rec.LastSeen)
	return err
}

func (t *pgTx) DeletePresence(ctx context.Context, identity string) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM presence WHERE identity = $1`, identity)
	return err
}

func scanPgCounter(row pgx.Row) (*models.Counter, error) {
	var c models.Counter
	if err := row.Scan(&c.DailyCount, &c.TotalCount, &c.LastResetDate); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func scanPgEvents(rows pgx.Rows) ([]models.ActivityEvent, error) {
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
