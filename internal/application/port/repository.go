package port

import (
	"context"
	"time"

	"github.com/garyjia/travel-desk/internal/domain/entity"
	"github.com/garyjia/travel-desk/internal/domain/workflow"
)

// Lookups return (nil, nil) when the record does not exist.

// UserRepository defines persistence operations for User
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	List(ctx context.Context) ([]*entity.User, error)
	ListByRole(ctx context.Context, role workflow.Role) ([]*entity.User, error)
	Update(ctx context.Context, id int64, update entity.UserUpdate) error
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
	CountSubordinates(ctx context.Context, managerID int64) (int, error)
	EmployeeCodesWithPrefix(ctx context.Context, prefix string) ([]string, error)
}

// RoleRepository defines read access to the static role table
type RoleRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Role, error)
	List(ctx context.Context) ([]*entity.Role, error)
}

// RequestRepository defines persistence operations for TravelRequest.
// Listings are ordered newest first and carry the comment trail.
type RequestRepository interface {
	Create(ctx context.Context, req *entity.TravelRequest) error
	GetByID(ctx context.Context, id int64) (*entity.TravelRequest, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*entity.TravelRequest, error)
	ListByManager(ctx context.Context, managerID int64, status workflow.Status) ([]*entity.TravelRequest, error)
	ListAll(ctx context.Context) ([]*entity.TravelRequest, error)
	UpdateStatus(ctx context.Context, id int64, status workflow.Status) error
	UpdateDetails(ctx context.Context, id int64, details entity.TravelDetails, status workflow.Status) error
	SetDocumentURL(ctx context.Context, id int64, url string) error
	Delete(ctx context.Context, id int64) error
	CountByOwner(ctx context.Context, ownerID int64) (int, error)
}

// CommentRepository defines persistence operations for RequestComment
type CommentRepository interface {
	Create(ctx context.Context, comment *entity.RequestComment) error
	ListByRequest(ctx context.Context, requestID int64) ([]entity.RequestComment, error)
	CountByAuthor(ctx context.Context, userID int64) (int, error)
}

// NotificationRepository defines persistence operations for Notification
type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	MarkSent(ctx context.Context, id int64, attempts int, sentAt time.Time) error
	MarkFailed(ctx context.Context, id int64, attempts int, errMsg string) error
	ListByRequest(ctx context.Context, requestID int64) ([]*entity.Notification, error)

	// ListRetryable returns failed deliveries with attempts left and pending
	// ones created before staleBefore, oldest first
	ListRetryable(ctx context.Context, maxAttempts int, staleBefore time.Time, limit int) ([]*entity.Notification, error)
}

// TransactionManager defines transaction boundary operations
type TransactionManager interface {
	// WithTransaction executes fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
