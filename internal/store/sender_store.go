package store

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/Priya8975/webhook-notifier/internal/domain"
)

var senderColumns = []string{"id", "from_name", "from_email", "host", "port", "smtp_user", "secret", "secure"}

func scanSender(row pgx.Row) (*domain.Sender, error) {
	var snd domain.Sender
	err := row.Scan(&snd.ID, &snd.FromName, &snd.FromEmail, &snd.Host, &snd.Port, &snd.User, &snd.Secret, &snd.Secure)
	if err != nil {
		return nil, err
	}
	return &snd, nil
}

func (s *PostgresStore) GetSender(ctx context.Context, id string) (*domain.Sender, error) {
	query, args, err := s.sb.Select(senderColumns...).From("senders").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building sender query: %w", err)
	}

	snd, err := scanSender(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying sender: %w", err)
	}
	return snd, nil
}

func (s *PostgresStore) ListSenders(ctx context.Context) ([]domain.Sender, error) {
	query, args, err := s.sb.Select(senderColumns...).From("senders").OrderBy("created_at", "id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("building senders query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying senders: %w", err)
	}
	defer rows.Close()

	senders := []domain.Sender{}
	for rows.Next() {
		snd, err := scanSender(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning sender: %w", err)
		}
		senders = append(senders, *snd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating senders: %w", err)
	}
	return senders, nil
}

func (s *PostgresStore) PutSender(ctx context.Context, snd *domain.Sender) error {
	query, args, err := s.sb.Insert("senders").
		Columns(senderColumns...).
		Values(snd.ID, snd.FromName, snd.FromEmail, snd.Host, snd.Port, snd.User, snd.Secret, snd.Secure).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			from_name = EXCLUDED.from_name,
			from_email = EXCLUDED.from_email,
			host = EXCLUDED.host,
			port = EXCLUDED.port,
			smtp_user = EXCLUDED.smtp_user,
			secret = EXCLUDED.secret,
			secure = EXCLUDED.secure`).
		ToSql()
	if err != nil {
		return fmt.Errorf("building sender upsert: %w", err)
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upserting sender: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteSender(ctx context.Context, id string) (bool, error) {
	query, args, err := s.sb.Delete("senders").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return false, fmt.Errorf("building sender delete: %w", err)
	}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("deleting sender: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
