package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"deadlinebot/internal/deadline"
)

// UpsertUser registers a chat with every reminder enabled. An existing user keeps
// its preferences; username and (when given) group are refreshed.
func (s *sqliteStore) UpsertUser(ctx context.Context, u deadline.User) error {
	if u.ChatID == 0 {
		return fmt.Errorf("%w: chat id is required", ErrInvalid)
	}
	group := strings.TrimSpace(u.GroupName)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (chat_id, username, group_name, notify_week, notify_day, notify_hour, created_at)
		VALUES (?, ?, ?, 1, 1, 1, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			username = excluded.username,
			group_name = CASE WHEN ? = '' THEN users.group_name ELSE excluded.group_name END`,
		u.ChatID, nullStr(u.Username), groupOrDefault(group), toMillis(s.now()), group,
	)
	if err != nil {
		return fmt.Errorf("upserting user %d: %w", u.ChatID, err)
	}
	return nil
}

func (s *sqliteStore) GetUser(ctx context.Context, chatID int64) (deadline.User, error) {
	var r userRow
	err := s.db.GetContext(ctx, &r, `SELECT `+userColumns+` FROM users WHERE chat_id = ?`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return deadline.User{}, fmt.Errorf("user %d: %w", chatID, ErrNotFound)
	}
	if err != nil {
		return deadline.User{}, fmt.Errorf("getting user %d: %w", chatID, err)
	}
	return r.model(), nil
}

func (s *sqliteStore) SetUserGroup(ctx context.Context, chatID int64, group string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET group_name = ? WHERE chat_id = ?`,
		groupOrDefault(strings.TrimSpace(group)), chatID)
	if err != nil {
		return fmt.Errorf("setting group of user %d: %w", chatID, err)
	}
	return affected(res, fmt.Sprintf("user %d", chatID))
}

func (s *sqliteStore) SetPreference(ctx context.Context, chatID int64, h deadline.Horizon, on bool) error {
	col, err := prefColumn(h)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`UPDATE users SET %s = ? WHERE chat_id = ?`, col),
		boolToInt(on), chatID)
	if err != nil {
		return fmt.Errorf("setting %s preference of user %d: %w", h, chatID, err)
	}
	return affected(res, fmt.Sprintf("user %d", chatID))
}

func (s *sqliteStore) DisableAll(ctx context.Context, chatID int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET notify_week = 0, notify_day = 0, notify_hour = 0 WHERE chat_id = ?`, chatID)
	if err != nil {
		return fmt.Errorf("disabling reminders of user %d: %w", chatID, err)
	}
	return affected(res, fmt.Sprintf("user %d", chatID))
}

func groupOrDefault(g string) string {
	if g == "" {
		return deadline.DefaultGroupName
	}
	return g
}
