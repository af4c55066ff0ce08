package port

import (
	"context"
	"io"
	"time"

	"github.com/garyjia/travel-desk/internal/domain/entity"
	"github.com/garyjia/travel-desk/internal/domain/workflow"
)

// SessionClaims are the identity facts carried by a session token
type SessionClaims struct {
	UserID    int64
	Email     string
	Role      workflow.Role
	ExpiresAt time.Time
}

// TokenIssuer mints and verifies session tokens
type TokenIssuer interface {
	Issue(claims SessionClaims) (token string, expiresAt time.Time, err error)
	Verify(token string) (*SessionClaims, error)
	TTL() time.Duration
}

// PasswordHasher hashes and compares credentials
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) error
}

// Message is one rendered notification addressed to one recipient
type Message struct {
	To       string
	Subject  string
	HTMLBody string
}

// Notifier delivers messages over one channel
type Notifier interface {
	Channel() string
	Send(ctx context.Context, msg Message) error
}

// WorkflowMetrics records workflow activity
type WorkflowMetrics interface {
	ObserveTransition(role workflow.Role, action workflow.Action, to workflow.Status)
	ObserveRejection(role workflow.Role, reason string)
	ObserveNotification(channel, status string)
}

// RequestExporter writes a spreadsheet of travel requests
type RequestExporter interface {
	Export(w io.Writer, requests []*entity.TravelRequest) error
}
