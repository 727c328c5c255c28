package bot

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/openhours/doorkeeper/internal/domain"
	"github.com/openhours/doorkeeper/internal/ttlock"
)

// maxCodewordAttempts wrong codewords block a chat until restart.
const maxCodewordAttempts = 5

// ConfigStore is the schedule persistence the bot mutates. Every change
// goes through a whole-file read-modify-write.
type ConfigStore interface {
	Load() (*domain.ScheduleConfig, error)
	Update(fn func(*domain.ScheduleConfig) error) (*domain.ScheduleConfig, error)
}

// Actuator is the slice of the vendor client the bot needs for manual
// commands and status queries.
type Actuator interface {
	Authenticate(ctx context.Context) (string, error)
	Unlock(ctx context.Context, token string, lockID int64) (ttlock.Result, error)
	Lock(ctx context.Context, token string, lockID int64) (ttlock.Result, error)
	QueryStatus(ctx context.Context, token string, lockID int64) (int, error)
}

// sender is the outbound half of tgbotapi.BotAPI, split out so handler
// tests can capture messages.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot is the operator chat interface: schedule reconfiguration, manual
// lock/unlock, and status. One authorized chat id may mutate state; the
// codeword-guarded /setchat dialog hands authorization to a new chat.
type Bot struct {
	api      sender
	store    ConfigStore
	actuator Actuator
	lockID   int64
	codeword string
	logger   *slog.Logger

	// authorizedChat is read by the notifier goroutine, hence atomic.
	authorizedChat atomic.Int64

	// Per-chat dialog state and codeword bookkeeping. The bot handles
	// updates sequentially, so plain maps are fine.
	dialogs          map[int64]*dialog
	codewordAttempts map[int64]int
	blocked          map[int64]bool
}

func New(
	api sender,
	store ConfigStore,
	actuator Actuator,
	lockID int64,
	authorizedChat int64,
	codeword string,
	logger *slog.Logger,
) *Bot {
	b := &Bot{
		api:              api,
		store:            store,
		actuator:         actuator,
		lockID:           lockID,
		codeword:         codeword,
		logger:           logger.With("component", "bot"),
		dialogs:          make(map[int64]*dialog),
		codewordAttempts: make(map[int64]int),
		blocked:          make(map[int64]bool),
	}
	b.authorizedChat.Store(authorizedChat)
	return b
}

// AuthorizedChat returns the chat id that currently receives
// notifications and may issue privileged commands.
func (b *Bot) AuthorizedChat() int64 {
	return b.authorizedChat.Load()
}

// Run starts long polling and dispatches updates until ctx is canceled.
func (b *Bot) Run(ctx context.Context, api *tgbotapi.BotAPI) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := api.GetUpdatesChan(cfg)

	b.logger.Info("bot started", "authorized_chat", b.AuthorizedChat())

	for {
		select {
		case <-ctx.Done():
			api.StopReceivingUpdates()
			b.logger.Info("bot shut down")
			return
		case update, ok := <-updates:
			if !ok {
				b.logger.Info("updates channel closed")
				return
			}
			if update.Message == nil {
				continue
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate processes one incoming message.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if msg.IsCommand() {
		// A new command always abandons an in-flight dialog.
		delete(b.dialogs, chatID)
		b.handleCommand(ctx, chatID, msg.Command(), strings.TrimSpace(msg.CommandArguments()))
		return
	}

	if d, ok := b.dialogs[chatID]; ok {
		b.continueDialog(ctx, chatID, d, text)
		return
	}

	b.reply(chatID, "Unknown input. Send /menu for the command list.")
}

func (b *Bot) handleCommand(ctx context.Context, chatID int64, command, args string) {
	switch command {
	case "start", "menu", "help":
		b.handleMenu(chatID)
	case "status":
		b.handleStatus(ctx, chatID)
	case "setchat":
		b.startSetChat(chatID)
	default:
		if !b.isAuthorized(chatID) {
			b.reply(chatID, "This chat is not authorized. Use /setchat with the codeword to become the operator.")
			return
		}
		switch command {
		case "open":
			b.handleManualAction(ctx, chatID, domain.ActionUnlock)
		case "close":
			b.handleManualAction(ctx, chatID, domain.ActionLock)
		case "enable_schedule":
			b.handleSetEnabled(chatID, true)
		case "disable_schedule":
			b.handleSetEnabled(chatID, false)
		case "settime":
			b.startSetTime(chatID, args)
		case "setbreak":
			b.startSetBreak(chatID, args)
		case "settimezone":
			b.startSetTimezone(chatID, args)
		default:
			b.reply(chatID, "Unknown command. Send /menu for the command list.")
		}
	}
}

func (b *Bot) isAuthorized(chatID int64) bool {
	return chatID == b.AuthorizedChat()
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warn("send reply", "chat_id", chatID, "error", err)
	}
}
