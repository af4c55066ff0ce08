package lark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/garyjia/travel-desk/internal/application/port"
	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"
)

// Channel is the notifier channel name of the messenger
const Channel = "lark"

const (
	receiveIDTypeEmail = "email" // recipients are addressed by their work email
	msgTypePost        = "post"
)

// messageCreator is the slice of the im/v1 message API the messenger uses
type messageCreator interface {
	Create(ctx context.Context, req *larkim.CreateMessageReq, options ...larkcore.RequestOptionFunc) (*larkim.CreateMessageResp, error)
}

// Messenger delivers notices as Lark rich-text posts
type Messenger struct {
	messages messageCreator
	logger   *zap.Logger
}

// NewMessenger creates a messenger on top of an SDK client
func NewMessenger(client *lark.Client, logger *zap.Logger) *Messenger {
	return &Messenger{
		messages: client.Im.Message,
		logger:   logger,
	}
}

var _ port.Notifier = (*Messenger)(nil)

// Channel returns the channel name
func (m *Messenger) Channel() string {
	return Channel
}

// Send posts the notice to the recipient's Lark account
func (m *Messenger) Send(ctx context.Context, msg port.Message) error {
	if msg.To == "" {
		return errors.New("recipient cannot be empty")
	}

	content, err := postContent(msg.Subject, msg.HTMLBody)
	if err != nil {
		return fmt.Errorf("failed to build post content: %w", err)
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(receiveIDTypeEmail).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(msg.To).
			MsgType(msgTypePost).
			Content(content).
			Build()).
		Build()

	resp, err := m.messages.Create(ctx, req)
	if err != nil {
		m.logger.Error("Failed to send message", zap.String("receive_id", msg.To), zap.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}

	if !resp.Success() {
		m.logger.Error("API returned failure",
			zap.String("receive_id", msg.To),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}
	m.logger.Info("Message sent", zap.String("message_id", messageID), zap.String("receive_id", msg.To))

	return nil
}

type postElement struct {
	Tag  string `json:"tag"`
	Text string `json:"text"`
}

type postBody struct {
	Title   string          `json:"title"`
	Content [][]postElement `json:"content"`
}

var (
	blockEnd = regexp.MustCompile(`(?i)</p>|<br\s*/?>`)
	anyTag   = regexp.MustCompile(`<[^>]*>`)
)

// postContent renders an HTML notice as a post with one text line per paragraph
func postContent(title, htmlBody string) (string, error) {
	text := blockEnd.ReplaceAllString(htmlBody, "\n")
	text = html.UnescapeString(anyTag.ReplaceAllString(text, ""))

	var lines [][]postElement
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, []postElement{{Tag: "text", Text: line}})
		}
	}
	if lines == nil {
		lines = [][]postElement{}
	}

	out, err := json.Marshal(map[string]postBody{"en_us": {Title: title, Content: lines}})
	if err != nil {
		return "", err
	}
	return string(out), nil
}
