package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/garyjia/travel-desk/internal/application/port"
	"github.com/garyjia/travel-desk/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memNotifications struct {
	mu      sync.Mutex
	records map[int64]*entity.Notification
	listErr error
}

func newMemNotifications(records ...*entity.Notification) *memNotifications {
	m := &memNotifications{records: make(map[int64]*entity.Notification)}
	for _, r := range records {
		m.records[r.ID] = r
	}
	return m
}

func (m *memNotifications) Create(_ context.Context, n *entity.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = int64(len(m.records) + 1)
	m.records[n.ID] = n
	return nil
}

func (m *memNotifications) MarkSent(_ context.Context, id int64, attempts int, sentAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.records[id]
	n.Status = entity.NotificationStatusSent
	n.Attempts = attempts
	n.SentAt = &sentAt
	n.ErrorMessage = ""
	return nil
}

func (m *memNotifications) MarkFailed(_ context.Context, id int64, attempts int, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.records[id]
	n.Status = entity.NotificationStatusFailed
	n.Attempts = attempts
	n.ErrorMessage = errMsg
	return nil
}

func (m *memNotifications) ListByRequest(_ context.Context, requestID int64) ([]*entity.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Notification
	for _, n := range m.records {
		if n.RequestID == requestID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memNotifications) ListRetryable(_ context.Context, maxAttempts int, staleBefore time.Time, limit int) ([]*entity.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*entity.Notification
	for id := int64(1); id <= int64(len(m.records)) && len(out) < limit; id++ {
		n, ok := m.records[id]
		if !ok {
			continue
		}
		failed := n.Status == entity.NotificationStatusFailed && n.Attempts < maxAttempts
		stale := n.Status == entity.NotificationStatusPending && n.CreatedAt.Before(staleBefore)
		if failed || stale {
			copied := *n
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memNotifications) get(id int64) entity.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.records[id]
}

type fakeNotifier struct {
	channel string
	err     error

	mu   sync.Mutex
	sent []port.Message
}

func (f *fakeNotifier) Channel() string { return f.channel }

func (f *fakeNotifier) Send(_ context.Context, msg port.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

var testNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func newTestWorker(repo port.NotificationRepository, notifiers ...port.Notifier) *RedeliveryWorker {
	cfg := DefaultRedeliveryConfig()
	cfg.PollInterval = 10 * time.Millisecond
	w := NewRedeliveryWorker(cfg, repo, notifiers, nil, zap.NewNop())
	w.now = func() time.Time { return testNow }
	return w
}

func TestRedeliveryWorker_RunOnce(t *testing.T) {
	repo := newMemNotifications(
		&entity.Notification{ID: 1, Channel: "email", Recipient: "a@example.com", Subject: "s", Body: "<p>b</p>",
			Status: entity.NotificationStatusFailed, Attempts: 3, CreatedAt: testNow},
		&entity.Notification{ID: 2, Channel: "email", Recipient: "b@example.com",
			Status: entity.NotificationStatusPending, CreatedAt: testNow.Add(-time.Hour)},
		&entity.Notification{ID: 3, Channel: "email", Recipient: "c@example.com",
			Status: entity.NotificationStatusPending, CreatedAt: testNow},
		&entity.Notification{ID: 4, Channel: "email", Recipient: "d@example.com",
			Status: entity.NotificationStatusFailed, Attempts: 6, CreatedAt: testNow},
	)
	email := &fakeNotifier{channel: "email"}
	w := newTestWorker(repo, email)

	require.NoError(t, w.RunOnce(context.Background()))

	assert.Equal(t, 2, email.count())
	assert.Equal(t, "a@example.com", email.sent[0].To)
	assert.Equal(t, "<p>b</p>", email.sent[0].HTMLBody)

	first := repo.get(1)
	assert.Equal(t, entity.NotificationStatusSent, first.Status)
	assert.Equal(t, 4, first.Attempts)
	require.NotNil(t, first.SentAt)

	assert.Equal(t, entity.NotificationStatusSent, repo.get(2).Status)
	assert.Equal(t, entity.NotificationStatusPending, repo.get(3).Status, "fresh pending records are left alone")
	assert.Equal(t, entity.NotificationStatusFailed, repo.get(4).Status, "exhausted records are left alone")

	status := w.Status()
	assert.Equal(t, 2, status.Processed)
	assert.Equal(t, 0, status.Failed)
}

func TestRedeliveryWorker_SendFailureCountsAttempt(t *testing.T) {
	repo := newMemNotifications(&entity.Notification{ID: 1, Channel: "lark", Recipient: "a@example.com",
		Status: entity.NotificationStatusFailed, Attempts: 2, CreatedAt: testNow})
	lark := &fakeNotifier{channel: "lark", err: errors.New("rate limited")}
	w := newTestWorker(repo, lark)

	require.NoError(t, w.RunOnce(context.Background()))

	got := repo.get(1)
	assert.Equal(t, entity.NotificationStatusFailed, got.Status)
	assert.Equal(t, 3, got.Attempts)
	assert.Equal(t, "rate limited", got.ErrorMessage)
	assert.Equal(t, 1, w.Status().Failed)
}

func TestRedeliveryWorker_UnknownChannelIsParked(t *testing.T) {
	repo := newMemNotifications(&entity.Notification{ID: 1, Channel: "sms", Recipient: "a@example.com",
		Status: entity.NotificationStatusFailed, Attempts: 1, CreatedAt: testNow})
	w := newTestWorker(repo, &fakeNotifier{channel: "email"})

	require.NoError(t, w.RunOnce(context.Background()))

	got := repo.get(1)
	assert.Equal(t, 6, got.Attempts)
	assert.Contains(t, got.ErrorMessage, "sms")

	batch, err := repo.ListRetryable(context.Background(), 6, testNow, 10)
	require.NoError(t, err)
	assert.Empty(t, batch)
}

func TestRedeliveryWorker_ListError(t *testing.T) {
	repo := newMemNotifications()
	repo.listErr = errors.New("database is locked")
	w := newTestWorker(repo)

	err := w.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
}

func TestRedeliveryWorker_StartStop(t *testing.T) {
	repo := newMemNotifications(&entity.Notification{ID: 1, Channel: "email", Recipient: "a@example.com",
		Status: entity.NotificationStatusFailed, Attempts: 1, CreatedAt: testNow})
	email := &fakeNotifier{channel: "email"}
	w := newTestWorker(repo, email)

	manager := NewManager(zap.NewNop())
	manager.Register(w)

	require.NoError(t, manager.StartAll(context.Background()))
	assert.True(t, manager.IsRunning())
	assert.Error(t, manager.StartAll(context.Background()))

	require.Eventually(t, func() bool { return email.count() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, manager.StopAll())
	assert.False(t, manager.IsRunning())

	statuses := manager.Statuses()
	require.Len(t, statuses, 1)
	assert.Equal(t, "NotificationRedeliveryWorker", statuses[0].Name)
	assert.False(t, statuses[0].Running)
	assert.Equal(t, 1, statuses[0].Processed)
	assert.NotEmpty(t, statuses[0].LastRun)

	require.NoError(t, manager.StopAll())
}
