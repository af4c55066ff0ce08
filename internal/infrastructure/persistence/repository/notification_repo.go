package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/garyjia/travel-desk/internal/application/port"
	"github.com/garyjia/travel-desk/internal/domain/entity"
	"github.com/garyjia/travel-desk/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// NotificationRepository implements port.NotificationRepository
type NotificationRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sqlite.DB, logger *zap.Logger) port.NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

// Create records a pending delivery
func (r *NotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	if n.Status == "" {
		n.Status = entity.NotificationStatusPending
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO notifications (
			event_id, request_id, channel, recipient, subject, body,
			status, attempts, error_message, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		n.EventID,
		n.RequestID,
		n.Channel,
		n.Recipient,
		n.Subject,
		n.Body,
		n.Status,
		n.Attempts,
		n.ErrorMessage,
		n.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create notification",
			zap.Int64("request_id", n.RequestID),
			zap.String("channel", n.Channel),
			zap.Error(err))
		return fmt.Errorf("failed to create notification: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	n.ID = id
	return nil
}

// MarkSent records a successful delivery
func (r *NotificationRepository) MarkSent(ctx context.Context, id int64, attempts int, sentAt time.Time) error {
	query := `UPDATE notifications SET status = ?, attempts = ?, error_message = '', sent_at = ? WHERE id = ?`

	_, err := r.db.Executor(ctx).ExecContext(ctx, query, entity.NotificationStatusSent, attempts, sentAt, id)
	if err != nil {
		r.logger.Error("Failed to mark notification sent", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}

	return nil
}

// MarkFailed records a delivery whose latest attempt failed
func (r *NotificationRepository) MarkFailed(ctx context.Context, id int64, attempts int, errMsg string) error {
	query := `UPDATE notifications SET status = ?, attempts = ?, error_message = ? WHERE id = ?`

	_, err := r.db.Executor(ctx).ExecContext(ctx, query, entity.NotificationStatusFailed, attempts, errMsg, id)
	if err != nil {
		r.logger.Error("Failed to mark notification failed", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark notification failed: %w", err)
	}

	return nil
}

const notificationColumns = `
	id, event_id, request_id, channel, recipient, subject, body,
	status, attempts, error_message, created_at, sent_at
`

// ListByRequest returns the delivery log of a request
func (r *NotificationRepository) ListByRequest(ctx context.Context, requestID int64) ([]*entity.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE request_id = ? ORDER BY id`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, requestID)
	if err != nil {
		r.logger.Error("Failed to list notifications", zap.Int64("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	return scanNotifications(rows)
}

// ListRetryable returns deliveries the redelivery worker should pick up
func (r *NotificationRepository) ListRetryable(ctx context.Context, maxAttempts int, staleBefore time.Time, limit int) ([]*entity.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications
		WHERE (status = ? AND attempts < ?)
		   OR (status = ? AND created_at < ?)
		ORDER BY id
		LIMIT ?`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query,
		entity.NotificationStatusFailed, maxAttempts,
		entity.NotificationStatusPending, staleBefore.UTC(),
		limit,
	)
	if err != nil {
		r.logger.Error("Failed to list retryable notifications", zap.Error(err))
		return nil, fmt.Errorf("failed to list retryable notifications: %w", err)
	}
	defer rows.Close()

	return scanNotifications(rows)
}

func scanNotifications(rows *sql.Rows) ([]*entity.Notification, error) {
	notifications := make([]*entity.Notification, 0)
	for rows.Next() {
		var n entity.Notification
		var sentAt sql.NullTime
		if err := rows.Scan(
			&n.ID,
			&n.EventID,
			&n.RequestID,
			&n.Channel,
			&n.Recipient,
			&n.Subject,
			&n.Body,
			&n.Status,
			&n.Attempts,
			&n.ErrorMessage,
			&n.CreatedAt,
			&sentAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if sentAt.Valid {
			t := sentAt.Time
			n.SentAt = &t
		}
		notifications = append(notifications, &n)
	}

	return notifications, rows.Err()
}

// Verify interface compliance
var _ port.NotificationRepository = (*NotificationRepository)(nil)
