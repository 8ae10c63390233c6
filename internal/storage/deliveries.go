package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

func (s *sqliteStore) AppendDelivery(ctx context.Context, e DeliveryEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deliveries (id, at, pass_id, kind, deadline_id, horizon, recipient, ok, err, took_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, toMillis(e.At), nullStr(e.PassID), string(e.Ref.Kind), e.Ref.ID, e.Horizon.String(),
		e.Recipient, boolToInt(e.OK), nullStr(e.Error), e.TookMS,
	)
	if err != nil {
		return fmt.Errorf("appending delivery %s: %w", e.ID, err)
	}
	return nil
}

// RecentDeliveries returns the newest entries first.
func (s *sqliteStore) RecentDeliveries(ctx context.Context, limit int) ([]DeliveryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []deliveryRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, at, pass_id, kind, deadline_id, horizon, recipient, ok, err, took_ms
		FROM deliveries ORDER BY at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing deliveries: %w", err)
	}
	out := make([]DeliveryEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}
