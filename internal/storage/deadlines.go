package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"deadlinebot/internal/deadline"
)

func (s *sqliteStore) AddPersonal(ctx context.Context, p deadline.Personal) (int64, error) {
	if err := requireText(p.Subject, p.Task); err != nil {
		return 0, err
	}
	if p.OwnerID == 0 || p.Due.IsZero() {
		return 0, fmt.Errorf("%w: owner and due time are required", ErrInvalid)
	}
	priority := strings.TrimSpace(p.Priority)
	if priority == "" {
		priority = deadline.DefaultPriority
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO personal_deadlines (owner_id, subject, task, priority, due_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.OwnerID, strings.TrimSpace(p.Subject), strings.TrimSpace(p.Task), priority,
		toMillis(p.Due), toMillis(s.now()),
	)
	if err != nil {
		return 0, fmt.Errorf("creating personal deadline: %w", err)
	}
	return res.LastInsertId()
}

// CompletePersonal only succeeds for the owner; completed deadlines never remind.
func (s *sqliteStore) CompletePersonal(ctx context.Context, ownerID, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE personal_deadlines SET is_completed = 1 WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("completing personal deadline %d: %w", id, err)
	}
	return affected(res, fmt.Sprintf("personal deadline %d", id))
}

func (s *sqliteStore) DeletePersonal(ctx context.Context, ownerID, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM personal_deadlines WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("deleting personal deadline %d: %w", id, err)
	}
	return affected(res, fmt.Sprintf("personal deadline %d", id))
}

func (s *sqliteStore) ListPersonal(ctx context.Context, ownerID int64, includeCompleted bool) ([]deadline.Personal, error) {
	q := `SELECT ` + personalColumns + ` FROM personal_deadlines WHERE owner_id = ?`
	if !includeCompleted {
		q += ` AND is_completed = 0`
	}
	q += ` ORDER BY due_at, id`

	var rows []personalRow
	if err := s.db.SelectContext(ctx, &rows, q, ownerID); err != nil {
		return nil, fmt.Errorf("listing personal deadlines of %d: %w", ownerID, err)
	}
	out := make([]deadline.Personal, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}

// Upcoming lists the owner's open deadlines due in [now, now+within].
func (s *sqliteStore) Upcoming(ctx context.Context, ownerID int64, now time.Time, within time.Duration) ([]deadline.Personal, error) {
	var rows []personalRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+personalColumns+` FROM personal_deadlines
		WHERE owner_id = ? AND is_completed = 0 AND due_at >= ? AND due_at <= ?
		ORDER BY due_at, id`,
		ownerID, toMillis(now), toMillis(now.Add(within)),
	)
	if err != nil {
		return nil, fmt.Errorf("listing upcoming deadlines of %d: %w", ownerID, err)
	}
	out := make([]deadline.Personal, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}

func (s *sqliteStore) AddGroup(ctx context.Context, g deadline.Group) (int64, error) {
	if err := requireText(g.Subject, g.Task); err != nil {
		return 0, err
	}
	if g.CreatorID == 0 || g.Due.IsZero() {
		return 0, fmt.Errorf("%w: creator and due time are required", ErrInvalid)
	}
	category := strings.TrimSpace(g.Category)
	if category == "" {
		category = deadline.DefaultCategory
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO group_deadlines (creator_id, group_name, subject, task, category, important, due_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.CreatorID, groupOrDefault(strings.TrimSpace(g.GroupName)),
		strings.TrimSpace(g.Subject), strings.TrimSpace(g.Task), category,
		boolToInt(g.Important), toMillis(g.Due), toMillis(s.now()),
	)
	if err != nil {
		return 0, fmt.Errorf("creating group deadline: %w", err)
	}
	return res.LastInsertId()
}

// DeleteGroup only succeeds for the creator. Subscriptions go with it.
func (s *sqliteStore) DeleteGroup(ctx context.Context, creatorID, id int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM group_deadlines WHERE id = ? AND creator_id = ?`, id, creatorID)
	if err != nil {
		return fmt.Errorf("deleting group deadline %d: %w", id, err)
	}
	if err := affected(res, fmt.Sprintf("group deadline %d", id)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM user_group_deadlines WHERE deadline_id = ?`, id); err != nil {
		return fmt.Errorf("deleting subscriptions of %d: %w", id, err)
	}
	return tx.Commit()
}

// Subscribe is idempotent.
func (s *sqliteStore) Subscribe(ctx context.Context, userID, deadlineID int64) error {
	var exists int
	err := s.db.GetContext(ctx, &exists, `SELECT 1 FROM group_deadlines WHERE id = ?`, deadlineID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("group deadline %d: %w", deadlineID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("looking up group deadline %d: %w", deadlineID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_group_deadlines (user_id, deadline_id, created_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id, deadline_id) DO NOTHING`,
		userID, deadlineID, toMillis(s.now()),
	)
	if err != nil {
		return fmt.Errorf("subscribing %d to %d: %w", userID, deadlineID, err)
	}
	return nil
}

func (s *sqliteStore) ListGroup(ctx context.Context, groupName string) ([]deadline.Group, error) {
	var rows []groupRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT `+groupColumns+` FROM group_deadlines WHERE group_name = ? ORDER BY due_at, id`,
		groupOrDefault(strings.TrimSpace(groupName)))
	if err != nil {
		return nil, fmt.Errorf("listing group deadlines of %q: %w", groupName, err)
	}
	out := make([]deadline.Group, 0, len(rows))
	for _, r := range rows {
		g := r.model()
		if g.Subscribers, err = s.subscribers(ctx, g.ID, g.GroupName); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func requireText(subject, task string) error {
	if strings.TrimSpace(subject) == "" || strings.TrimSpace(task) == "" {
		return fmt.Errorf("%w: subject and task must not be empty", ErrInvalid)
	}
	return nil
}
