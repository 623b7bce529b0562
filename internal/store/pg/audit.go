package pg

import (
	"context"
	"encoding/json"
	"fmt"

	"graceparish.org/internal/audit"
)

var _ audit.Store = (*Store)(nil)

func (s *Store) AppendAudit(ctx context.Context, rec audit.Record) error {
	if s.db == nil {
		return errNoDB
	}
	details := []byte("{}")
	if len(rec.Details) > 0 {
		b, err := json.Marshal(rec.Details)
		if err != nil {
			return fmt.Errorf("marshal details: %w", err)
		}
		details = b
	}
	_, err := s.db.ExecContext(ctx, `
		insert into audit_log (id, actor_id, action, target_id, details, occurred_at)
		values ($1, $2, $3, $4, $5, $6)
	`, rec.ID, rec.ActorID, rec.Action, rec.TargetID, details, rec.OccurredAt.UTC())
	return err
}

func (s *Store) ListAudit(ctx context.Context, limit int) ([]audit.Record, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, actor_id, action, target_id, details, occurred_at
		from audit_log
		order by occurred_at desc, id desc
		limit $1
	`, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []audit.Record
	for rows.Next() {
		var (
			rec audit.Record
			raw []byte
		)
		if err := rows.Scan(&rec.ID, &rec.ActorID, &rec.Action, &rec.TargetID, &raw, &rec.OccurredAt); err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &rec.Details); err != nil {
				return nil, fmt.Errorf("decode details: %w", err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
