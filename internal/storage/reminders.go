package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"deadlinebot/internal/deadline"
)

func (s *sqliteStore) ActivePersonal(ctx context.Context) ([]deadline.Personal, error) {
	var rows []personalRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT `+personalColumns+` FROM personal_deadlines WHERE is_completed = 0 ORDER BY due_at, id`)
	if err != nil {
		return nil, fmt.Errorf("querying active personal deadlines: %w", err)
	}
	out := make([]deadline.Personal, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}

// ActiveGroup lists every group deadline. Subscribers are left empty; the pass
// resolves them per deadline with Subscribers.
func (s *sqliteStore) ActiveGroup(ctx context.Context) ([]deadline.Group, error) {
	var rows []groupRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT `+groupColumns+` FROM group_deadlines ORDER BY due_at, id`)
	if err != nil {
		return nil, fmt.Errorf("querying group deadlines: %w", err)
	}
	out := make([]deadline.Group, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}

func (s *sqliteStore) Subscribers(ctx context.Context, g deadline.Group) ([]int64, error) {
	return s.subscribers(ctx, g.ID, g.GroupName)
}

// subscribers are members of the deadline's group plus explicit subscriptions.
func (s *sqliteStore) subscribers(ctx context.Context, id int64, group string) ([]int64, error) {
	var ids []int64
	err := s.db.SelectContext(ctx, &ids, `
		SELECT chat_id FROM users WHERE group_name = ?
		UNION
		SELECT user_id FROM user_group_deadlines WHERE deadline_id = ?
		ORDER BY 1`, group, id)
	if err != nil {
		return nil, fmt.Errorf("resolving subscribers of group deadline %d: %w", id, err)
	}
	return ids, nil
}

func (s *sqliteStore) HorizonSent(ctx context.Context, ref deadline.Ref, h deadline.Horizon) (bool, error) {
	table, err := deadlineTable(ref.Kind)
	if err != nil {
		return false, err
	}
	col, err := flagColumn(h)
	if err != nil {
		return false, err
	}
	var sent bool
	err = s.db.GetContext(ctx, &sent, fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, col, table), ref.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("deadline %s: %w", ref, ErrNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("reading %s flag of %s: %w", h, ref, err)
	}
	return sent, nil
}

// MarkSent is a compare-and-set: the flag is written only while it is still 0,
// so concurrent or repeated passes claim a horizon at most once.
func (s *sqliteStore) MarkSent(ctx context.Context, ref deadline.Ref, h deadline.Horizon) (bool, error) {
	table, err := deadlineTable(ref.Kind)
	if err != nil {
		return false, err
	}
	col, err := flagColumn(h)
	if err != nil {
		return false, err
	}
	q := fmt.Sprintf(`UPDATE %s SET %s = 1 WHERE id = ? AND %s = 0`, table, col, col)
	if ref.Kind == deadline.KindPersonal {
		q += ` AND is_completed = 0`
	}
	res, err := s.db.ExecContext(ctx, q, ref.ID)
	if err != nil {
		return false, fmt.Errorf("marking %s sent for %s: %w", h, ref, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("marking %s sent for %s: %w", h, ref, err)
	}
	return n == 1, nil
}

func (s *sqliteStore) Preference(ctx context.Context, userID int64, h deadline.Horizon) (bool, error) {
	col, err := prefColumn(h)
	if err != nil {
		return false, err
	}
	var on bool
	err = s.db.GetContext(ctx, &on, fmt.Sprintf(`SELECT %s FROM users WHERE chat_id = ?`, col), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s preference of %d: %w", h, userID, err)
	}
	return on, nil
}
