package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openhours/doorkeeper/internal/domain"
)

// dialogStep is one waiting point in a multi-step conversation.
type dialogStep int

const (
	stepAskCodeword dialogStep = iota
	stepConfirmChat
	stepAskDay
	stepAskTime
	stepAskBreakAction
	stepAskBreakInterval
	stepAskTimezone
)

// dialog is the per-chat conversation state. kind is the command that
// started it; day and breakAdd accumulate earlier answers.
type dialog struct {
	kind     string // "setchat", "settime", "setbreak", "settimezone"
	step     dialogStep
	day      domain.Weekday
	breakAdd bool
}

func (b *Bot) continueDialog(ctx context.Context, chatID int64, d *dialog, text string) {
	switch d.step {
	case stepAskCodeword:
		b.checkCodeword(chatID, d, text)
	case stepConfirmChat:
		b.confirmChatChange(ctx, chatID, d, text)
	case stepAskDay:
		b.dialogDay(chatID, d, text)
	case stepAskTime:
		b.applySetTime(chatID, d.day, text)
		delete(b.dialogs, chatID)
	case stepAskBreakAction:
		b.dialogBreakAction(chatID, d, text)
	case stepAskBreakInterval:
		b.applySetBreak(chatID, d.day, d.breakAdd, text)
		delete(b.dialogs, chatID)
	case stepAskTimezone:
		b.applySetTimezone(chatID, text)
		delete(b.dialogs, chatID)
	}
}

// ---- /setchat ----

func (b *Bot) startSetChat(chatID int64) {
	if b.blocked[chatID] {
		b.reply(chatID, "⛔️ Too many wrong codewords from this chat. Contact the administrator.")
		return
	}
	b.dialogs[chatID] = &dialog{kind: "setchat", step: stepAskCodeword}
	b.reply(chatID, "Enter the codeword:")
}

func (b *Bot) checkCodeword(chatID int64, d *dialog, text string) {
	if text != b.codeword {
		b.codewordAttempts[chatID]++
		delete(b.dialogs, chatID)
		if b.codewordAttempts[chatID] >= maxCodewordAttempts {
			b.blocked[chatID] = true
			b.logger.Warn("chat blocked after repeated wrong codewords", "chat_id", chatID)
			b.reply(chatID, "⛔️ Too many wrong codewords from this chat. Contact the administrator.")
			return
		}
		b.reply(chatID, "Wrong codeword.")
		return
	}
	d.step = stepConfirmChat
	b.reply(chatID, "Codeword accepted. Move notifications to this chat? (yes/no)")
}

func (b *Bot) confirmChatChange(_ context.Context, chatID int64, _ *dialog, text string) {
	delete(b.dialogs, chatID)
	if !strings.EqualFold(text, "yes") {
		b.reply(chatID, "Canceled.")
		return
	}
	old := b.authorizedChat.Swap(chatID)
	b.logger.Info("authorized chat changed", "old", old, "new", chatID)
	b.reply(chatID, "This chat is now the operator chat and will receive notifications.")
}

// ---- /settime ----

func (b *Bot) startSetTime(chatID int64, args string) {
	if args != "" {
		fields := strings.Fields(args)
		if len(fields) != 2 {
			b.reply(chatID, "Usage: /settime <day> <HH:MM> or /settime <day> off")
			return
		}
		day, ok := parseDay(fields[0])
		if !ok {
			b.reply(chatID, "Unknown day. Use mon, tue, wed, thu, fri, sat or sun.")
			return
		}
		b.applySetTime(chatID, day, fields[1])
		return
	}
	b.dialogs[chatID] = &dialog{kind: "settime", step: stepAskDay}
	b.reply(chatID, "Which day? (mon … sun)")
}

func (b *Bot) dialogDay(chatID int64, d *dialog, text string) {
	day, ok := parseDay(text)
	if !ok {
		b.reply(chatID, "Unknown day. Use mon, tue, wed, thu, fri, sat or sun.")
		return
	}
	d.day = day
	switch d.kind {
	case "settime":
		d.step = stepAskTime
		b.reply(chatID, fmt.Sprintf("Opening time for %s in HH:MM (e.g. 09:00), or \"off\" for a day off:", day))
	case "setbreak":
		d.step = stepAskBreakAction
		b.reply(chatID, "add or del?")
	}
}

func (b *Bot) applySetTime(chatID int64, day domain.Weekday, value string) {
	var open *domain.TimeOfDay
	if !strings.EqualFold(value, "off") {
		t, err := domain.ParseTimeOfDay(value)
		if err != nil {
			b.reply(chatID, "Invalid time. Use HH:MM, e.g. 09:00.")
			return
		}
		open = &t
	}

	_, err := b.store.Update(func(cfg *domain.ScheduleConfig) error {
		cfg.OpenTimes[day] = open
		return nil
	})
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Could not update the schedule: %v", err))
		return
	}
	if open == nil {
		b.reply(chatID, fmt.Sprintf("%s is now a day off.", day))
		return
	}
	b.reply(chatID, fmt.Sprintf("Opening time for %s set to <b>%s</b>.", day, open))
}

// ---- /setbreak ----

func (b *Bot) startSetBreak(chatID int64, args string) {
	if args != "" {
		fields := strings.Fields(args)
		if len(fields) != 3 {
			b.reply(chatID, "Usage: /setbreak <day> add|del <HH:MM-HH:MM>")
			return
		}
		day, ok := parseDay(fields[0])
		if !ok {
			b.reply(chatID, "Unknown day. Use mon, tue, wed, thu, fri, sat or sun.")
			return
		}
		switch fields[1] {
		case "add":
			b.applySetBreak(chatID, day, true, fields[2])
		case "del":
			b.applySetBreak(chatID, day, false, fields[2])
		default:
			b.reply(chatID, "Usage: /setbreak <day> add|del <HH:MM-HH:MM>")
		}
		return
	}
	b.dialogs[chatID] = &dialog{kind: "setbreak", step: stepAskDay}
	b.reply(chatID, "Which day? (mon … sun)")
}

func (b *Bot) dialogBreakAction(chatID int64, d *dialog, text string) {
	switch strings.ToLower(text) {
	case "add":
		d.breakAdd = true
	case "del":
		d.breakAdd = false
	default:
		b.reply(chatID, "add or del?")
		return
	}
	d.step = stepAskBreakInterval
	b.reply(chatID, "Break interval in HH:MM-HH:MM (e.g. 13:00-14:00):")
}

func (b *Bot) applySetBreak(chatID int64, day domain.Weekday, add bool, value string) {
	interval, err := domain.ParseBreakInterval(value)
	if err != nil {
		b.reply(chatID, "Invalid interval. Use HH:MM-HH:MM with the end after the start.")
		return
	}

	found := false
	_, err = b.store.Update(func(cfg *domain.ScheduleConfig) error {
		if add {
			cfg.Breaks[day] = append(cfg.Breaks[day], interval)
			return nil
		}
		kept := cfg.Breaks[day][:0]
		for _, existing := range cfg.Breaks[day] {
			if existing == interval {
				found = true
				continue
			}
			kept = append(kept, existing)
		}
		cfg.Breaks[day] = kept
		return nil
	})
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Could not update the schedule: %v", err))
		return
	}

	switch {
	case add:
		b.reply(chatID, fmt.Sprintf("Break %s added on %s.", interval, day))
	case found:
		b.reply(chatID, fmt.Sprintf("Break %s removed on %s.", interval, day))
	default:
		b.reply(chatID, "No such break.")
	}
}

// ---- /settimezone ----

func (b *Bot) startSetTimezone(chatID int64, args string) {
	if args != "" {
		b.applySetTimezone(chatID, args)
		return
	}
	b.dialogs[chatID] = &dialog{kind: "settimezone", step: stepAskTimezone}
	b.reply(chatID, "Timezone name (e.g. Europe/Moscow):")
}

func (b *Bot) applySetTimezone(chatID int64, zone string) {
	if _, err := time.LoadLocation(zone); err != nil {
		b.reply(chatID, "Unknown timezone. Try again, e.g. Europe/Moscow.")
		return
	}
	_, err := b.store.Update(func(cfg *domain.ScheduleConfig) error {
		cfg.Timezone = zone
		return nil
	})
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Could not update the schedule: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Timezone set to <b>%s</b>.", zone))
}

func parseDay(s string) (domain.Weekday, bool) {
	day := domain.Weekday(strings.ToLower(s))
	return day, day.Valid()
}
