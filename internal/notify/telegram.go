package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ChatSender delivers primary-tier messages.
type ChatSender interface {
	Send(ctx context.Context, text string) error
}

// TelegramSender posts HTML-formatted messages to the operator chat.
// The chat id is resolved per message so a /setchat handover takes
// effect immediately.
type TelegramSender struct {
	api    *tgbotapi.BotAPI
	chatID func() int64
}

func NewTelegramSender(api *tgbotapi.BotAPI, chatID func() int64) *TelegramSender {
	return &TelegramSender{api: api, chatID: chatID}
}

func (s *TelegramSender) Send(_ context.Context, text string) error {
	msg := tgbotapi.NewMessage(s.chatID(), text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := s.api.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}
