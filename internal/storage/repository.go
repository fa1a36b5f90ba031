package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"haltwatch/internal/breaker"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

// keepSnapshots bounds how many snapshot generations are retained for
// operational inspection; only the latest one participates in diffing.
const keepSnapshots = 5

const (
	insertSnapshotSQL = `INSERT INTO snapshots (
        id,
        fetched_at,
        record_count,
        excluded_rows
    ) VALUES ($1,$2,$3,$4);`

	insertSnapshotRecordSQL = `INSERT INTO snapshot_records (
        snapshot_id,
        record_key,
        symbol,
        security_name,
        trigger_date,
        trigger_time,
        end_date,
        end_time,
        exchange
    ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9);`

	pruneSnapshotsSQL = `DELETE FROM snapshots
    WHERE id NOT IN (
        SELECT id FROM snapshots ORDER BY fetched_at DESC LIMIT $1
    );`

	latestSnapshotSQL = `SELECT id FROM snapshots ORDER BY fetched_at DESC LIMIT 1;`

	listSnapshotRecordsSQL = `SELECT
        symbol,
        security_name,
        trigger_date,
        trigger_time,
        end_date,
        end_time,
        exchange
    FROM snapshot_records
    WHERE snapshot_id = $1
    ORDER BY trigger_date, trigger_time, symbol;`

	insertAlertEventSQL = `INSERT INTO alert_events (
        id,
        record_key,
        kind,
        symbol,
        trigger_date,
        trigger_time,
        end_time,
        priority,
        frequency,
        correlated,
        underlying
    ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11);`

	listRecentAlertEventsSQL = `SELECT
        id,
        record_key,
        kind,
        symbol,
        trigger_date,
        trigger_time,
        end_time,
        priority,
        frequency,
        correlated,
        underlying,
        emitted_at
    FROM alert_events
    ORDER BY emitted_at DESC
    LIMIT $1;`

	deleteAlertEventsBeforeSQL = `DELETE FROM alert_events WHERE emitted_at < $1;`

	dailyTriggerCountsSQL = `SELECT trigger_date, COUNT(*)
    FROM snapshot_records
    WHERE snapshot_id = $1
    GROUP BY trigger_date
    ORDER BY trigger_date;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// SnapshotStore defines persistence for the diff baseline.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snapshot breaker.Snapshot, excludedRows int) error
	LoadLatestSnapshot(ctx context.Context) (breaker.Snapshot, bool, error)
}

// AlertEventStore defines operations for alert auditing.
type AlertEventStore interface {
	InsertAlertEvents(ctx context.Context, events []AlertEvent) error
	ListRecentAlertEvents(ctx context.Context, limit int) ([]AlertEvent, error)
	DeleteAlertEventsBefore(ctx context.Context, olderThan time.Time) error
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to snapshots and alert events.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// SaveSnapshot persists the current snapshot as a new generation and prunes
// old generations, all in one transaction so a failed save never advances the
// diff baseline partially.
func (s *Store) SaveSnapshot(ctx context.Context, snapshot breaker.Snapshot, excludedRows int) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	snapshotID := uuid.New()
	if _, err := tx.Exec(ctx, insertSnapshotSQL, snapshotID, time.Now().UTC(), len(snapshot), excludedRows); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	batch := &pgx.Batch{}
	for _, rec := range snapshot {
		batch.Queue(insertSnapshotRecordSQL,
			snapshotID,
			rec.Key(),
			breaker.NormalizeSymbol(rec.Symbol),
			rec.SecurityName,
			rec.TriggerDate,
			rec.TriggerTime,
			rec.EndDate,
			rec.EndTime,
			rec.Exchange,
		)
	}
	batch.Queue(pruneSnapshotsSQL, keepSnapshots)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert snapshot records: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// LoadLatestSnapshot returns the most recently persisted snapshot. The second
// return value is false when no snapshot has ever been saved, the legitimate
// first-run state.
func (s *Store) LoadLatestSnapshot(ctx context.Context) (breaker.Snapshot, bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	var snapshotID uuid.UUID
	if err := pool.QueryRow(ctx, latestSnapshotSQL).Scan(&snapshotID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("load latest snapshot id: %w", err)
	}

	rows, queryErr := pool.Query(ctx, listSnapshotRecordsSQL, snapshotID)
	if queryErr != nil {
		return nil, false, fmt.Errorf("list snapshot records: %w", queryErr)
	}
	defer rows.Close()

	snapshot := make(breaker.Snapshot, 0)
	for rows.Next() {
		var rec breaker.Record
		if err := rows.Scan(
			&rec.Symbol,
			&rec.SecurityName,
			&rec.TriggerDate,
			&rec.TriggerTime,
			&rec.EndDate,
			&rec.EndTime,
			&rec.Exchange,
		); err != nil {
			return nil, false, fmt.Errorf("scan snapshot record: %w", err)
		}
		snapshot = append(snapshot, rec)
	}
	if rows.Err() != nil {
		return nil, false, rows.Err()
	}
	return snapshot, true, nil
}

// InsertAlertEvents persists an emitted batch's audit trail.
func (s *Store) InsertAlertEvents(ctx context.Context, events []AlertEvent) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, ev := range events {
		id := ev.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		batch.Queue(insertAlertEventSQL,
			id,
			ev.RecordKey,
			ev.Kind,
			ev.Symbol,
			ev.TriggerDate,
			ev.TriggerTime,
			ev.EndTime,
			ev.Priority,
			ev.Frequency,
			ev.Correlated,
			ev.Underlying,
		)
	}

	if err := pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert alert events: %w", err)
	}
	return nil
}

// ListRecentAlertEvents lists the most recently emitted alert events.
func (s *Store) ListRecentAlertEvents(ctx context.Context, limit int) ([]AlertEvent, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertEventsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alert events: %w", queryErr)
	}
	defer rows.Close()

	events := make([]AlertEvent, 0, limit)
	for rows.Next() {
		var ev AlertEvent
		if err := rows.Scan(
			&ev.ID,
			&ev.RecordKey,
			&ev.Kind,
			&ev.Symbol,
			&ev.TriggerDate,
			&ev.TriggerTime,
			&ev.EndTime,
			&ev.Priority,
			&ev.Frequency,
			&ev.Correlated,
			&ev.Underlying,
			&ev.EmittedAt,
		); err != nil {
			return nil, fmt.Errorf("scan alert event: %w", err)
		}
		events = append(events, ev)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return events, nil
}

// DeleteAlertEventsBefore deletes historical alert events.
func (s *Store) DeleteAlertEventsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteAlertEventsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete alert events before: %w", execErr)
	}
	return nil
}

// DailyTriggerCounts aggregates the latest snapshot into per-day halt counts
// for the export command.
func (s *Store) DailyTriggerCounts(ctx context.Context) ([]DailyCount, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	var snapshotID uuid.UUID
	if err := pool.QueryRow(ctx, latestSnapshotSQL).Scan(&snapshotID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load latest snapshot id: %w", err)
	}

	rows, queryErr := pool.Query(ctx, dailyTriggerCountsSQL, snapshotID)
	if queryErr != nil {
		return nil, fmt.Errorf("daily trigger counts: %w", queryErr)
	}
	defer rows.Close()

	counts := make([]DailyCount, 0)
	for rows.Next() {
		var dc DailyCount
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, fmt.Errorf("scan daily count: %w", err)
		}
		counts = append(counts, dc)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return counts, nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a
// release func. Two haltwatch instances sharing a database must not both
// alert on the same diff.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// best effort; the lock dies with the session anyway
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}
