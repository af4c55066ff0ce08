package lognotify

import (
	"context"

	"github.com/garyjia/travel-desk/internal/application/port"
	"go.uber.org/zap"
)

// Channel is the notifier channel name of the log sink
const Channel = "log"

// Notifier writes notices to the log instead of delivering them. It is used
// when no delivery channel is enabled.
type Notifier struct {
	logger *zap.Logger
}

// New creates a log notifier
func New(logger *zap.Logger) *Notifier {
	return &Notifier{logger: logger.Named("notice")}
}

var _ port.Notifier = (*Notifier)(nil)

func (n *Notifier) Channel() string {
	return Channel
}

func (n *Notifier) Send(ctx context.Context, msg port.Message) error {
	n.logger.Info("Notice",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.HTMLBody))
	return nil
}
