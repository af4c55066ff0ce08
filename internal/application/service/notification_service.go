package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/travel-desk/internal/application/dispatcher"
	"github.com/garyjia/travel-desk/internal/application/port"
	"github.com/garyjia/travel-desk/internal/domain/entity"
	"github.com/garyjia/travel-desk/internal/domain/event"
	"github.com/garyjia/travel-desk/internal/domain/workflow"
)

// Names under which the notification handlers subscribe
const (
	handlerNotifySubmitted    = "notification.submitted"
	handlerNotifyTransitioned = "notification.transitioned"
)

// NotificationService turns workflow events into delivered messages
type NotificationService interface {
	// Register subscribes the service to the workflow events it notifies on
	Register(d dispatcher.Dispatcher)

	// HandleEvent renders and delivers the notices of one workflow event.
	// Delivery failures are recorded and logged, never returned.
	HandleEvent(ctx context.Context, evt *event.Event) error

	// SendDirect delivers one ad-hoc message over every channel
	SendDirect(ctx context.Context, to, subject, htmlBody string) error
}

// NotificationOption configures the notification service
type NotificationOption func(*notificationServiceImpl)

// WithRetry sets the delivery attempts per channel and the linear backoff
// step between them
func WithRetry(attempts int, backoff time.Duration) NotificationOption {
	return func(s *notificationServiceImpl) {
		if attempts > 0 {
			s.attempts = attempts
		}
		if backoff >= 0 {
			s.backoff = backoff
		}
	}
}

// WithNotificationMetrics records delivery outcomes
func WithNotificationMetrics(m port.WorkflowMetrics) NotificationOption {
	return func(s *notificationServiceImpl) {
		s.metrics = m
	}
}

type notificationServiceImpl struct {
	users         port.UserRepository
	notifications port.NotificationRepository
	notifiers     []port.Notifier
	metrics       port.WorkflowMetrics
	attempts      int
	backoff       time.Duration
	logger        Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	users port.UserRepository,
	notifications port.NotificationRepository,
	notifiers []port.Notifier,
	logger Logger,
	opts ...NotificationOption,
) NotificationService {
	s := &notificationServiceImpl{
		users:         users,
		notifications: notifications,
		notifiers:     notifiers,
		attempts:      3,
		backoff:       time.Second,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register subscribes the service to the workflow events it notifies on
func (s *notificationServiceImpl) Register(d dispatcher.Dispatcher) {
	d.SubscribeNamed(event.TypeRequestSubmitted, handlerNotifySubmitted, s.HandleEvent)
	d.SubscribeNamed(event.TypeRequestTransitioned, handlerNotifyTransitioned, s.HandleEvent)
}

// HandleEvent renders and delivers the notices of one workflow event
func (s *notificationServiceImpl) HandleEvent(ctx context.Context, evt *event.Event) error {
	decision := decisionFromEvent(evt)
	if decision.Audience == workflow.NotifyNone {
		return nil
	}

	ownerID := evt.GetPayloadInt(event.KeyOwnerID)
	owner, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		s.logger.Error("Failed to load request owner", "error", err, "request_id", evt.RequestID, "owner_id", ownerID)
		return nil
	}
	if owner == nil {
		s.logger.Error("Request owner not found", "request_id", evt.RequestID, "owner_id", ownerID)
		return nil
	}

	notices := workflow.Notices(decision, workflow.NoticeContext{
		RequestID:    evt.RequestID,
		Comment:      evt.GetPayloadString(event.KeyComment),
		EmployeeName: owner.FullName(),
	})

	for _, notice := range notices {
		recipients := s.resolveAudience(ctx, notice.Audience, owner)
		if len(recipients) == 0 {
			s.logger.Info("Notice has no recipients",
				"request_id", evt.RequestID,
				"subject", notice.Subject,
			)
			continue
		}

		for _, to := range recipients {
			s.deliver(ctx, evt, port.Message{
				To:       to,
				Subject:  notice.Subject,
				HTMLBody: notice.Body,
			})
		}
	}

	return nil
}

// SendDirect delivers one ad-hoc message over every channel and reports the
// first channel that failed
func (s *notificationServiceImpl) SendDirect(ctx context.Context, to, subject, htmlBody string) error {
	msg := port.Message{To: to, Subject: subject, HTMLBody: htmlBody}

	var firstErr error
	for _, n := range s.notifiers {
		if _, err := s.sendWithRetry(ctx, n, msg); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", n.Channel(), err)
		}
	}
	return firstErr
}

// resolveAudience maps an audience to unique email addresses
func (s *notificationServiceImpl) resolveAudience(ctx context.Context, audience workflow.Audience, owner *entity.User) []string {
	var recipients []string
	seen := make(map[string]bool)
	add := func(email string) {
		key := strings.ToLower(strings.TrimSpace(email))
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		recipients = append(recipients, strings.TrimSpace(email))
	}

	if audience.Has(workflow.NotifyEmployee) {
		add(owner.Email)
	}

	if audience.Has(workflow.NotifyManager) && owner.HasManager() {
		manager, err := s.users.GetByID(ctx, *owner.ManagerID)
		if err != nil {
			s.logger.Error("Failed to load manager", "error", err, "manager_id", *owner.ManagerID)
		} else if manager != nil {
			add(manager.Email)
		}
	}

	if audience.Has(workflow.NotifyTravelAdmins) {
		admins, err := s.users.ListByRole(ctx, workflow.RoleTravelAdmin)
		if err != nil {
			s.logger.Error("Failed to list travel admins", "error", err)
		}
		for _, admin := range admins {
			if admin.IsActive {
				add(admin.Email)
			}
		}
	}

	return recipients
}

// deliver sends one message over every channel and records each attempt
func (s *notificationServiceImpl) deliver(ctx context.Context, evt *event.Event, msg port.Message) {
	for _, n := range s.notifiers {
		record := &entity.Notification{
			EventID:   evt.ID,
			RequestID: evt.RequestID,
			Channel:   n.Channel(),
			Recipient: msg.To,
			Subject:   msg.Subject,
			Body:      msg.HTMLBody,
		}
		if err := s.notifications.Create(ctx, record); err != nil {
			s.logger.Error("Failed to record notification", "error", err, "request_id", evt.RequestID)
		}

		attempts, err := s.sendWithRetry(ctx, n, msg)
		if err != nil {
			s.logger.Error("Failed to deliver notification",
				"error", err,
				"channel", n.Channel(),
				"request_id", evt.RequestID,
				"attempts", attempts,
			)
			s.observe(n.Channel(), entity.NotificationStatusFailed)
			if record.ID > 0 {
				if mErr := s.notifications.MarkFailed(ctx, record.ID, attempts, err.Error()); mErr != nil {
					s.logger.Error("Failed to mark notification failed", "error", mErr, "notification_id", record.ID)
				}
			}
			continue
		}

		s.logger.Info("Notification delivered",
			"channel", n.Channel(),
			"request_id", evt.RequestID,
			"attempts", attempts,
		)
		s.observe(n.Channel(), entity.NotificationStatusSent)
		if record.ID > 0 {
			if mErr := s.notifications.MarkSent(ctx, record.ID, attempts, time.Now().UTC()); mErr != nil {
				s.logger.Error("Failed to mark notification sent", "error", mErr, "notification_id", record.ID)
			}
		}
	}
}

// sendWithRetry tries a channel up to the configured attempts, waiting
// attempt*backoff between tries
func (s *notificationServiceImpl) sendWithRetry(ctx context.Context, n port.Notifier, msg port.Message) (int, error) {
	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		if lastErr = n.Send(ctx, msg); lastErr == nil {
			return attempt, nil
		}
		if attempt == s.attempts {
			return attempt, lastErr
		}

		wait := time.Duration(attempt) * s.backoff
		select {
		case <-ctx.Done():
			return attempt, fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
		case <-time.After(wait):
		}
	}
	return s.attempts, lastErr
}

func (s *notificationServiceImpl) observe(channel, status string) {
	if s.metrics != nil {
		s.metrics.ObserveNotification(channel, status)
	}
}

// decisionFromEvent rebuilds the accepted decision carried by an event
func decisionFromEvent(evt *event.Event) workflow.Decision {
	return workflow.Decision{
		Role:     workflow.Role(evt.GetPayloadString(event.KeyRole)),
		Action:   workflow.Action(evt.GetPayloadString(event.KeyAction)),
		From:     workflow.Status(evt.GetPayloadString(event.KeyFrom)),
		To:       workflow.Status(evt.GetPayloadString(event.KeyTo)),
		Audience: workflow.Audience(evt.GetPayloadInt(event.KeyAudience)),
	}
}
