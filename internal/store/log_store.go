package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/Priya8975/webhook-notifier/internal/domain"
)

// logLockKey serializes appends to delivery_logs across connections.
const logLockKey = 0x6c6f6773

var logColumns = []string{
	"id", "target_id", "target_name", "payload_id", "logged_at", "payload",
	"delivery_status", "recipient", "subject", "body", "message_id", "error",
}

func (s *PostgresStore) AppendLog(ctx context.Context, e domain.LogEntry, limit int) error {
	payload := []byte(e.Payload)
	if len(payload) == 0 {
		payload = []byte("null")
	}

	insert, insertArgs, err := s.sb.Insert("delivery_logs").
		Columns(logColumns...).
		Values(e.ID, e.TargetID, e.TargetName, e.PayloadID, e.Timestamp, payload,
			e.DeliveryStatus, e.Recipient, e.Subject, e.Body, e.MessageID, e.Error).
		ToSql()
	if err != nil {
		return fmt.Errorf("building log insert: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", int64(logLockKey)); err != nil {
		return fmt.Errorf("locking delivery log: %w", err)
	}
	if _, err := tx.Exec(ctx, insert, insertArgs...); err != nil {
		return fmt.Errorf("inserting log entry: %w", err)
	}

	if limit > 0 {
		_, err := tx.Exec(ctx, `
			DELETE FROM delivery_logs
			WHERE seq <= (
				SELECT seq FROM delivery_logs ORDER BY seq DESC OFFSET $1 LIMIT 1
			)
		`, limit)
		if err != nil {
			return fmt.Errorf("trimming delivery log: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing log entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListLogs(ctx context.Context, f LogFilter) ([]domain.LogEntry, error) {
	q := s.sb.Select(logColumns...).From("delivery_logs").OrderBy("seq DESC")
	if f.TargetID != "" {
		q = q.Where(sq.Eq{"target_id": f.TargetID})
	}
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building logs query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying logs: %w", err)
	}
	defer rows.Close()

	logs := []domain.LogEntry{}
	for rows.Next() {
		e, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning log entry: %w", err)
		}
		logs = append(logs, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating logs: %w", err)
	}
	return logs, nil
}

func (s *PostgresStore) DeleteLogsByTarget(ctx context.Context, targetID string) (int, error) {
	query, args, err := s.sb.Delete("delivery_logs").Where(sq.Eq{"target_id": targetID}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("building log delete: %w", err)
	}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("deleting logs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanLog(row pgx.Row) (domain.LogEntry, error) {
	var (
		e       domain.LogEntry
		payload []byte
	)
	err := row.Scan(
		&e.ID, &e.TargetID, &e.TargetName, &e.PayloadID, &e.Timestamp, &payload,
		&e.DeliveryStatus, &e.Recipient, &e.Subject, &e.Body, &e.MessageID, &e.Error,
	)
	e.Payload = payload
	return e, err
}
