package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/travel-desk/internal/application/port"
	"github.com/garyjia/travel-desk/internal/domain/entity"
	"github.com/garyjia/travel-desk/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// CommentRepository implements port.CommentRepository
type CommentRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *sqlite.DB, logger *zap.Logger) port.CommentRepository {
	return &CommentRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a comment to a request's trail
func (r *CommentRepository) Create(ctx context.Context, comment *entity.RequestComment) error {
	if comment.Timestamp.IsZero() {
		comment.Timestamp = time.Now().UTC()
	}

	query := `INSERT INTO request_comments (request_id, user_id, comment, created_at) VALUES (?, ?, ?, ?)`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		comment.RequestID,
		comment.UserID,
		comment.Comment,
		comment.Timestamp,
	)
	if err != nil {
		r.logger.Error("Failed to create comment", zap.Int64("request_id", comment.RequestID), zap.Error(err))
		return fmt.Errorf("failed to create comment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	comment.ID = id
	return nil
}

// ListByRequest returns a request's comments in chronological order
func (r *CommentRepository) ListByRequest(ctx context.Context, requestID int64) ([]entity.RequestComment, error) {
	query := `
		SELECT id, request_id, user_id, comment, created_at
		FROM request_comments
		WHERE request_id = ?
		ORDER BY id
	`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, requestID)
	if err != nil {
		r.logger.Error("Failed to list comments", zap.Int64("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	comments := make([]entity.RequestComment, 0)
	for rows.Next() {
		var c entity.RequestComment
		if err := rows.Scan(&c.ID, &c.RequestID, &c.UserID, &c.Comment, &c.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}

	return comments, rows.Err()
}

// CountByAuthor returns how many comments a user has written
func (r *CommentRepository) CountByAuthor(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.db.Executor(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM request_comments WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		r.logger.Error("Failed to count comments by author", zap.Int64("user_id", userID), zap.Error(err))
		return 0, fmt.Errorf("failed to count comments: %w", err)
	}
	return n, nil
}

// Verify interface compliance
var _ port.CommentRepository = (*CommentRepository)(nil)
