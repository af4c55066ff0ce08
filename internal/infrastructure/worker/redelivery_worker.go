package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/garyjia/travel-desk/internal/application/port"
	"github.com/garyjia/travel-desk/internal/domain/entity"
	"go.uber.org/zap"
)

// RedeliveryConfig holds configuration for the redelivery worker
type RedeliveryConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int           // total attempts per notification, inline ones included
	StaleAfter   time.Duration // pending records older than this were abandoned
	SendTimeout  time.Duration
}

// DefaultRedeliveryConfig returns default configuration
func DefaultRedeliveryConfig() RedeliveryConfig {
	return RedeliveryConfig{
		PollInterval: time.Minute,
		BatchSize:    20,
		MaxAttempts:  6,
		StaleAfter:   10 * time.Minute,
		SendTimeout:  30 * time.Second,
	}
}

// RedeliveryWorker retries notifications whose inline delivery failed or
// was abandoned by a crash
type RedeliveryWorker struct {
	config        RedeliveryConfig
	notifications port.NotificationRepository
	notifiers     map[string]port.Notifier
	metrics       port.WorkflowMetrics
	now           func() time.Time
	logger        *zap.Logger

	mu             sync.RWMutex
	cancel         context.CancelFunc
	done           chan struct{}
	isRunning      bool
	lastProcessed  time.Time
	processedCount int
	failedCount    int
	lastError      error
}

// NewRedeliveryWorker creates a new redelivery worker
func NewRedeliveryWorker(
	config RedeliveryConfig,
	notifications port.NotificationRepository,
	notifiers []port.Notifier,
	metrics port.WorkflowMetrics,
	logger *zap.Logger,
) *RedeliveryWorker {
	byChannel := make(map[string]port.Notifier, len(notifiers))
	for _, n := range notifiers {
		byChannel[n.Channel()] = n
	}

	return &RedeliveryWorker{
		config:        config,
		notifications: notifications,
		notifiers:     byChannel,
		metrics:       metrics,
		now:           time.Now,
		logger:        logger,
	}
}

// Name returns the worker name for identification
func (w *RedeliveryWorker) Name() string {
	return "NotificationRedeliveryWorker"
}

// Start begins the polling loop
func (w *RedeliveryWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isRunning {
		return fmt.Errorf("redelivery worker already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.isRunning = true

	w.logger.Info("Redelivery worker started",
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.Int("batch_size", w.config.BatchSize),
		zap.Int("max_attempts", w.config.MaxAttempts))

	go w.pollLoop(loopCtx, w.done)
	return nil
}

// Stop cancels the loop and waits for the current batch to finish
func (w *RedeliveryWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done

	w.mu.RLock()
	defer w.mu.RUnlock()
	w.logger.Info("Redelivery worker stopped",
		zap.Int("processed_count", w.processedCount),
		zap.Int("failed_count", w.failedCount))
	return nil
}

// Status returns a snapshot of the worker progress
func (w *RedeliveryWorker) Status() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()

	s := Status{
		Name:      w.Name(),
		Running:   w.isRunning,
		Processed: w.processedCount,
		Failed:    w.failedCount,
	}
	if !w.lastProcessed.IsZero() {
		s.LastRun = w.lastProcessed.UTC().Format(time.RFC3339)
	}
	if w.lastError != nil {
		s.LastError = w.lastError.Error()
	}
	return s
}

func (w *RedeliveryWorker) pollLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := w.RunOnce(ctx)
			if err != nil {
				w.logger.Error("Failed to redeliver notifications", zap.Error(err))
			}

			w.mu.Lock()
			w.lastError = err
			w.lastProcessed = w.now()
			w.mu.Unlock()
		}
	}
}

// RunOnce redelivers one batch of retryable notifications
func (w *RedeliveryWorker) RunOnce(ctx context.Context) error {
	staleBefore := w.now().Add(-w.config.StaleAfter)
	batch, err := w.notifications.ListRetryable(ctx, w.config.MaxAttempts, staleBefore, w.config.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to list retryable notifications: %w", err)
	}

	for _, n := range batch {
		if ctx.Err() != nil {
			return nil
		}

		if err := w.redeliver(ctx, n); err != nil {
			w.logger.Warn("Redelivery failed",
				zap.Int64("notification_id", n.ID),
				zap.Int64("request_id", n.RequestID),
				zap.String("channel", n.Channel),
				zap.Error(err))
			w.mu.Lock()
			w.failedCount++
			w.mu.Unlock()
			continue
		}

		w.mu.Lock()
		w.processedCount++
		w.mu.Unlock()
	}

	return nil
}

func (w *RedeliveryWorker) redeliver(ctx context.Context, n *entity.Notification) error {
	attempts := n.Attempts + 1

	notifier, ok := w.notifiers[n.Channel]
	if !ok {
		// no channel to retry on; park the record for good
		msg := fmt.Sprintf("channel %q is not configured", n.Channel)
		_ = w.notifications.MarkFailed(ctx, n.ID, w.config.MaxAttempts, msg)
		return fmt.Errorf("%s", msg)
	}

	sendCtx, cancel := context.WithTimeout(ctx, w.config.SendTimeout)
	defer cancel()

	err := notifier.Send(sendCtx, port.Message{To: n.Recipient, Subject: n.Subject, HTMLBody: n.Body})
	if err != nil {
		w.observe(n.Channel, entity.NotificationStatusFailed)
		if markErr := w.notifications.MarkFailed(ctx, n.ID, attempts, err.Error()); markErr != nil {
			return fmt.Errorf("%v (and failed to record: %w)", err, markErr)
		}
		return err
	}

	w.observe(n.Channel, entity.NotificationStatusSent)
	if err := w.notifications.MarkSent(ctx, n.ID, attempts, w.now().UTC()); err != nil {
		return err
	}

	w.logger.Info("Notification redelivered",
		zap.Int64("notification_id", n.ID),
		zap.String("channel", n.Channel),
		zap.Int("attempts", attempts))
	return nil
}

func (w *RedeliveryWorker) observe(channel, status string) {
	if w.metrics != nil {
		w.metrics.ObserveNotification(channel, status)
	}
}
