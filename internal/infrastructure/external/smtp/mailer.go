package smtp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"
	"github.com/garyjia/travel-desk/internal/application/port"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Channel is the notifier channel name of the mailer
const Channel = "email"

// Config holds SMTP connection settings
type Config struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromName  string
	FromEmail string
	UseTLS    bool // implicit TLS; otherwise STARTTLS is used when offered
}

type sendFunc func(addr string, a sasl.Client, from string, to []string, r io.Reader) error

// Mailer delivers HTML notices over SMTP
type Mailer struct {
	cfg    Config
	send   sendFunc
	now    func() time.Time
	logger *zap.Logger
}

// NewMailer creates an SMTP mailer
func NewMailer(cfg Config, logger *zap.Logger) (*Mailer, error) {
	if cfg.Host == "" || cfg.Port <= 0 {
		return nil, errors.New("smtp host and port are required")
	}
	if _, err := mail.ParseAddress(cfg.FromEmail); err != nil {
		return nil, fmt.Errorf("invalid from address %q: %w", cfg.FromEmail, err)
	}

	var send sendFunc = gosmtp.SendMail
	if cfg.UseTLS {
		send = gosmtp.SendMailTLS
	}

	return &Mailer{
		cfg:    cfg,
		send:   send,
		now:    time.Now,
		logger: logger,
	}, nil
}

var _ port.Notifier = (*Mailer)(nil)

// Channel returns the channel name
func (m *Mailer) Channel() string {
	return Channel
}

// Send delivers one message. The SMTP client has no context support, so
// cancellation is only checked before dialing.
func (m *Mailer) Send(ctx context.Context, msg port.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := mail.ParseAddress(msg.To); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}

	var auth sasl.Client
	if m.cfg.Username != "" {
		auth = sasl.NewPlainClient("", m.cfg.Username, m.cfg.Password)
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	body := m.compose(msg)

	if err := m.send(addr, auth, m.cfg.FromEmail, []string{msg.To}, bytes.NewReader(body)); err != nil {
		m.logger.Error("Failed to send email",
			zap.String("to", msg.To),
			zap.String("addr", addr),
			zap.Error(err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.logger.Info("Email sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

// compose renders an RFC 5322 message with an HTML body
func (m *Mailer) compose(msg port.Message) []byte {
	from := mail.Address{Name: m.cfg.FromName, Address: m.cfg.FromEmail}
	domain := m.cfg.FromEmail[strings.LastIndex(m.cfg.FromEmail, "@")+1:]

	var b bytes.Buffer
	header := func(k, v string) {
		b.WriteString(k + ": " + v + "\r\n")
	}
	header("From", from.String())
	header("To", msg.To)
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", m.now().Format(time.RFC1123Z))
	header("Message-ID", "<"+uuid.NewString()+"@"+domain+">")
	header("MIME-Version", "1.0")
	header("Content-Type", `text/html; charset="UTF-8"`)
	header("Content-Transfer-Encoding", "8bit")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(msg.HTMLBody, "\r\n", "\n"), "\n", "\r\n"))
	b.WriteString("\r\n")
	return b.Bytes()
}
