package lark

import (
	"context"
	"encoding/json"
	"fmt"

	larkIm "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/worktally/attendance-backend/internal/application/port"
)

// Messenger implements port.MessageSender on top of the Lark IM API.
// Receive IDs are chat IDs (the ops channel).
type Messenger struct {
	client *Client
	logger *zap.Logger
}

// NewMessenger creates a new Lark message sender adapter
func NewMessenger(client *Client, logger *zap.Logger) *Messenger {
	return &Messenger{
		client: client,
		logger: logger,
	}
}

// SendText sends a plain text message to a chat
func (m *Messenger) SendText(ctx context.Context, receiveID string, content string) error {
	if receiveID == "" {
		return fmt.Errorf("receiveID cannot be empty")
	}
	if content == "" {
		return fmt.Errorf("content cannot be empty")
	}

	body, err := json.Marshal(map[string]string{"text": content})
	if err != nil {
		return fmt.Errorf("failed to marshal message content: %w", err)
	}

	req := larkIm.NewCreateMessageReqBuilder().
		ReceiveIdType("chat_id").
		Body(larkIm.NewCreateMessageReqBodyBuilder().
			ReceiveId(receiveID).
			MsgType("text").
			Content(string(body)).
			Build()).
		Build()

	resp, err := m.client.client.Im.Message.Create(ctx, req)
	if err != nil {
		m.logger.Error("Failed to send message",
			zap.String("receive_id", receiveID),
			zap.Error(err))
		return fmt.Errorf("failed to send text message: %w", err)
	}
	if !resp.Success() {
		m.logger.Error("Lark API returned failure",
			zap.String("receive_id", receiveID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("lark API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}
	m.logger.Info("Message sent",
		zap.String("message_id", messageID),
		zap.String("receive_id", receiveID))

	return nil
}

// NoopSender is the MessageSender used when Lark credentials are not
// configured. It logs and discards.
type NoopSender struct {
	logger *zap.Logger
}

// NewNoopSender creates a sender that drops every message
func NewNoopSender(logger *zap.Logger) *NoopSender {
	return &NoopSender{logger: logger}
}

// SendText logs the message instead of delivering it
func (s *NoopSender) SendText(ctx context.Context, receiveID string, content string) error {
	s.logger.Info("Messaging disabled, dropping notification",
		zap.String("receive_id", receiveID),
		zap.String("content", content))
	return nil
}

var (
	_ port.MessageSender = (*Messenger)(nil)
	_ port.MessageSender = (*NoopSender)(nil)
)
