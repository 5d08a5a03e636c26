package sqlite

import (
	"context"
	"fmt"

	"github.com/ericfisherdev/ciwatch/internal/domain/model"
	"github.com/ericfisherdev/ciwatch/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.NotificationStore = (*NotificationRepo)(nil)

// NotificationRepo is the SQLite implementation of the NotificationStore port interface.
type NotificationRepo struct {
	db *DB
}

// NewNotificationRepo creates a new NotificationRepo backed by the given DB.
func NewNotificationRepo(db *DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

// Add records a notification. The ID must already be assigned.
func (r *NotificationRepo) Add(ctx context.Context, n model.Notification) error {
	const query = `
		INSERT INTO notifications (id, repo_full_name, pr_number, head_sha, title, body, failed_checks, dialog_url, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	isRead := 0
	if n.IsRead {
		isRead = 1
	}

	_, err := r.db.Writer.ExecContext(ctx, query,
		n.ID, n.RepoFullName, n.PRNumber, n.HeadSHA, n.Title, n.Body,
		n.FailedChecks, n.DialogURL, isRead, n.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("add notification %s: %w", n.ID, err)
	}

	return nil
}

// ListRecent returns up to limit notifications, newest first.
func (r *NotificationRepo) ListRecent(ctx context.Context, limit int) ([]model.Notification, error) {
	const query = `
		SELECT id, repo_full_name, pr_number, head_sha, title, body, failed_checks, dialog_url, is_read, created_at
		FROM notifications
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var result []model.Notification
	for rows.Next() {
		var n model.Notification
		var isRead int
		var createdAt string
		if err := rows.Scan(
			&n.ID, &n.RepoFullName, &n.PRNumber, &n.HeadSHA, &n.Title, &n.Body,
			&n.FailedChecks, &n.DialogURL, &isRead, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}

		n.IsRead = isRead != 0
		n.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at for notification %s: %w", n.ID, err)
		}

		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}

	return result, nil
}

// MarkRead flags a notification as read.
func (r *NotificationRepo) MarkRead(ctx context.Context, id string) error {
	const query = `UPDATE notifications SET is_read = 1 WHERE id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark notification %s read: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("mark notification %s read: %w", id, driven.ErrNotificationNotFound)
	}

	return nil
}
