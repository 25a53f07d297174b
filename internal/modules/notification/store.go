// README: Notification row store backed by PostgreSQL.
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"yumzy/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Insert(ctx context.Context, n *Notification) error {
	data, err := json.Marshal(dataOrEmpty(n.Data))
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO notifications (
			id, user_id, type, title, message, data,
			is_read, is_important, is_persistent, is_dismissed,
			expires_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, FALSE, $10, $11)`,
		string(n.ID),
		string(n.UserID),
		string(n.Type),
		n.Title,
		n.Message,
		data,
		n.IsRead,
		n.IsImportant,
		n.IsPersistent,
		n.ExpiresAt,
		n.CreatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Notification, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, user_id, type, title, message, data,
		       is_read, is_important, is_persistent, expires_at, created_at
		FROM notifications
		WHERE id = $1`, string(id),
	)
	return scanNotification(row)
}

// ListVisible returns a user's notifications newest-first, excluding
// dismissed and expired ones.
func (s *Store) ListVisible(ctx context.Context, userID types.ID, now time.Time) ([]*Notification, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, type, title, message, data,
		       is_read, is_important, is_persistent, expires_at, created_at
		FROM notifications
		WHERE user_id = $1
		  AND NOT is_dismissed
		  AND (expires_at IS NULL OR expires_at > $2)
		ORDER BY created_at DESC`,
		string(userID), now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) MarkRead(ctx context.Context, id types.ID) error {
	_, err := s.db.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1`, string(id))
	return err
}

func (s *Store) MarkAllRead(ctx context.Context, userID types.ID) error {
	_, err := s.db.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE
		WHERE user_id = $1 AND NOT is_dismissed`, string(userID))
	return err
}

func (s *Store) Dismiss(ctx context.Context, id types.ID) error {
	_, err := s.db.Exec(ctx, `UPDATE notifications SET is_dismissed = TRUE WHERE id = $1`, string(id))
	return err
}

// DismissNonPersistent clears everything a "clear all" may remove.
func (s *Store) DismissNonPersistent(ctx context.Context, userID types.ID) error {
	_, err := s.db.Exec(ctx, `
		UPDATE notifications SET is_dismissed = TRUE
		WHERE user_id = $1 AND NOT is_persistent`, string(userID))
	return err
}

func (s *Store) UnreadCount(ctx context.Context, userID types.ID, now time.Time) (int, error) {
	row := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE user_id = $1
		  AND NOT is_read
		  AND NOT is_dismissed
		  AND (expires_at IS NULL OR expires_at > $2)`,
		string(userID), now,
	)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	var data []byte
	err := row.Scan(
		&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &data,
		&n.IsRead, &n.IsImportant, &n.IsPersistent, &n.ExpiresAt, &n.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &n.Data); err != nil {
			return nil, err
		}
	}
	return &n, nil
}

func dataOrEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
