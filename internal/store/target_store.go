package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/Priya8975/webhook-notifier/internal/domain"
)

var targetColumns = []string{
	"id", "name", "status", "created_at", "last_active_at",
	"selected_payload_id", "sender_id", "template", "payloads", "variables",
}

func scanTarget(row pgx.Row) (*domain.Target, error) {
	var (
		t                             domain.Target
		template, payloads, variables []byte
	)
	err := row.Scan(
		&t.ID, &t.Name, &t.Status, &t.CreatedAt, &t.LastActiveAt,
		&t.SelectedPayloadID, &t.SenderID, &template, &payloads, &variables,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(template, &t.Template); err != nil {
		return nil, fmt.Errorf("decoding template of %s: %w", t.ID, err)
	}
	if err := json.Unmarshal(payloads, &t.Payloads); err != nil {
		return nil, fmt.Errorf("decoding payloads of %s: %w", t.ID, err)
	}
	if err := json.Unmarshal(variables, &t.Variables); err != nil {
		return nil, fmt.Errorf("decoding variables of %s: %w", t.ID, err)
	}
	if t.Payloads == nil {
		t.Payloads = []domain.Payload{}
	}
	return &t, nil
}

func (s *PostgresStore) GetTarget(ctx context.Context, id string) (*domain.Target, error) {
	query, args, err := s.sb.Select(targetColumns...).
		From("targets").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building target query: %w", err)
	}

	t, err := scanTarget(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying target: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) ListTargets(ctx context.Context) ([]domain.Target, error) {
	query, args, err := s.sb.Select(targetColumns...).
		From("targets").
		OrderBy("created_at DESC", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building targets query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying targets: %w", err)
	}
	defer rows.Close()

	targets := []domain.Target{}
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning target: %w", err)
		}
		targets = append(targets, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating targets: %w", err)
	}
	return targets, nil
}

func (s *PostgresStore) PutTarget(ctx context.Context, t *domain.Target) error {
	template, err := json.Marshal(t.Template)
	if err != nil {
		return fmt.Errorf("encoding template: %w", err)
	}
	payloads, err := json.Marshal(t.Payloads)
	if err != nil {
		return fmt.Errorf("encoding payloads: %w", err)
	}
	variables, err := json.Marshal(t.Variables)
	if err != nil {
		return fmt.Errorf("encoding variables: %w", err)
	}

	query, args, err := s.sb.Insert("targets").
		Columns(targetColumns...).
		Values(t.ID, t.Name, t.Status, t.CreatedAt, t.LastActiveAt,
			t.SelectedPayloadID, t.SenderID, template, payloads, variables).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			status = EXCLUDED.status,
			last_active_at = EXCLUDED.last_active_at,
			selected_payload_id = EXCLUDED.selected_payload_id,
			sender_id = EXCLUDED.sender_id,
			template = EXCLUDED.template,
			payloads = EXCLUDED.payloads,
			variables = EXCLUDED.variables`).
		ToSql()
	if err != nil {
		return fmt.Errorf("building target upsert: %w", err)
	}

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upserting target: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteTarget(ctx context.Context, id string) (bool, error) {
	query, args, err := s.sb.Delete("targets").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return false, fmt.Errorf("building target delete: %w", err)
	}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("deleting target: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) RenameTarget(ctx context.Context, oldID, newID string) (bool, error) {
	query, args, err := s.sb.Update("targets").
		Set("id", newID).
		Where(sq.Eq{"id": oldID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("building target rename: %w", err)
	}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("renaming target: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
