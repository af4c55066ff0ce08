package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/garyjia/travel-desk/internal/application/port"
	"github.com/garyjia/travel-desk/internal/domain/entity"
	"github.com/garyjia/travel-desk/internal/domain/workflow"
	"github.com/garyjia/travel-desk/internal/infrastructure/persistence/repository"
	"github.com/garyjia/travel-desk/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/travel-desk/pkg/database"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Mock implementations

type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

func (m *mockLogger) errorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errors)
}

// plainHasher prefixes the password so tests stay fast
type plainHasher struct{}

func (plainHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }

func (plainHasher) Compare(hash, plain string) error {
	if hash != "hashed:"+plain {
		return errors.New("mismatch")
	}
	return nil
}

type mockTokens struct {
	issued []port.SessionClaims
	verify func(token string) (*port.SessionClaims, error)
}

func (m *mockTokens) Issue(claims port.SessionClaims) (string, time.Time, error) {
	m.issued = append(m.issued, claims)
	return "token-" + claims.Email, time.Now().Add(m.TTL()), nil
}

func (m *mockTokens) Verify(token string) (*port.SessionClaims, error) {
	if m.verify != nil {
		return m.verify(token)
	}
	return nil, errors.New("bad token")
}

func (m *mockTokens) TTL() time.Duration { return 8 * time.Hour }

type mockNotifier struct {
	mu       sync.Mutex
	channel  string
	failures int // calls that fail before the first success; -1 fails forever
	calls    int
	sent     []port.Message
}

func (m *mockNotifier) Channel() string { return m.channel }

func (m *mockNotifier) Send(ctx context.Context, msg port.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failures < 0 || m.calls <= m.failures {
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *mockNotifier) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sent))
	for _, msg := range m.sent {
		out = append(out, msg.To)
	}
	return out
}

type mockMetrics struct {
	mu            sync.Mutex
	notifications []string
}

func (m *mockMetrics) ObserveTransition(role workflow.Role, action workflow.Action, to workflow.Status) {}

func (m *mockMetrics) ObserveRejection(role workflow.Role, reason string) {}

func (m *mockMetrics) ObserveNotification(channel, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, channel+"/"+status)
}

// store is a migrated SQLite database with every repository
type store struct {
	db            *sqlite.DB
	users         port.UserRepository
	roles         port.RoleRepository
	requests      port.RequestRepository
	comments      port.CommentRepository
	notifications port.NotificationRepository
}

func newStore(t *testing.T) *store {
	t.Helper()

	raw, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "svc.db"), MaxOpenConns: 4}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	require.NoError(t, database.NewMigrator(raw, zap.NewNop()).RunEmbedded())

	db := sqlite.NewDB(raw.DB, zap.NewNop())
	return &store{
		db:            db,
		users:         repository.NewUserRepository(db, zap.NewNop()),
		roles:         repository.NewRoleRepository(db, zap.NewNop()),
		requests:      repository.NewRequestRepository(db, zap.NewNop()),
		comments:      repository.NewCommentRepository(db, zap.NewNop()),
		notifications: repository.NewNotificationRepository(db, zap.NewNop()),
	}
}

func (s *store) addUser(t *testing.T, email string, roleID int64, managerID *int64) *entity.User {
	t.Helper()
	u := &entity.User{
		Email:        email,
		PasswordHash: "hashed:secret",
		RoleID:       roleID,
		FirstName:    strings.Split(email, "@")[0],
		LastName:     "Tester",
		ManagerID:    managerID,
		IsActive:     true,
	}
	require.NoError(t, s.users.Create(context.Background(), u))
	return u
}

func (s *store) addRequest(t *testing.T, owner *entity.User) *entity.TravelRequest {
	t.Helper()
	req := &entity.TravelRequest{
		UserID:              owner.ID,
		EmployeeCode:        "EMP001",
		ProjectName:         "Apollo",
		DepartmentName:      "Engineering",
		ReasonForTravelling: "Client visit",
		TypeOfBooking:       "Flight",
		Status:              workflow.StatusPending,
	}
	require.NoError(t, s.requests.Create(context.Background(), req))
	return req
}
