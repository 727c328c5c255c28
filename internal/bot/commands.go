package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openhours/doorkeeper/internal/domain"
	"github.com/openhours/doorkeeper/internal/schedule"
	"github.com/openhours/doorkeeper/internal/ttlock"
)

const menuText = `Doorkeeper commands:
/status — schedule and lock state
/open — unlock now
/close — lock now
/enable_schedule — turn the schedule on
/disable_schedule — turn the schedule off
/settime [day HH:MM|day off] — set a day's opening time
/setbreak [day add|del HH:MM-HH:MM] — manage a day's breaks
/settimezone [zone] — set the schedule timezone
/setchat — move notifications to this chat (codeword required)`

func (b *Bot) handleMenu(chatID int64) {
	b.reply(chatID, menuText)
}

func (b *Bot) handleStatus(ctx context.Context, chatID int64) {
	cfg, err := b.store.Load()
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Could not read the schedule: %v", err))
		return
	}

	var sb strings.Builder
	sb.WriteString("<b>Schedule status</b>\n")
	fmt.Fprintf(&sb, "Timezone: %s\n", cfg.Timezone)
	fmt.Fprintf(&sb, "Enabled: <b>%v</b>\n", cfg.ScheduleEnabled)

	sb.WriteString("\nOpen times:\n")
	for _, day := range domain.Weekdays {
		open := cfg.OpenTimes[day]
		if open == nil {
			fmt.Fprintf(&sb, "  %s: —\n", day)
			continue
		}
		fmt.Fprintf(&sb, "  %s: %s\n", day, open)
	}

	hasBreaks := false
	for _, day := range domain.Weekdays {
		if len(cfg.Breaks[day]) == 0 {
			continue
		}
		if !hasBreaks {
			sb.WriteString("\nBreaks:\n")
			hasBreaks = true
		}
		parts := make([]string, 0, len(cfg.Breaks[day]))
		for _, br := range cfg.Breaks[day] {
			parts = append(parts, br.String())
		}
		fmt.Fprintf(&sb, "  %s: %s\n", day, strings.Join(parts, ", "))
	}

	if next, ok := schedule.NextOpening(time.Now(), cfg); ok {
		fmt.Fprintf(&sb, "\nNext opening: %s\n", next.Format("Mon 2 Jan 15:04"))
	}

	if status := b.lockStatus(ctx); status != "" {
		fmt.Fprintf(&sb, "Lock: %s\n", status)
	}

	b.reply(chatID, sb.String())
}

// lockStatus is best-effort: not every lock model reports state.
func (b *Bot) lockStatus(ctx context.Context) string {
	token, err := b.actuator.Authenticate(ctx)
	if err != nil {
		b.logger.Warn("status: authenticate", "error", err)
		return ""
	}
	status, err := b.actuator.QueryStatus(ctx, token, b.lockID)
	if err != nil {
		b.logger.Warn("status: query lock", "error", err)
		return ""
	}
	switch status {
	case domain.LockStatusLocked:
		return "closed"
	case domain.LockStatusUnlocked:
		return "open"
	default:
		return fmt.Sprintf("unknown (%d)", status)
	}
}

// handleManualAction performs a single direct attempt, without the retry
// policy — the operator is watching and can simply repeat the command.
func (b *Bot) handleManualAction(ctx context.Context, chatID int64, action domain.Action) {
	token, err := b.actuator.Authenticate(ctx)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error while %s the lock: could not obtain token.\n%v", action.Verb(), err))
		return
	}

	var res ttlock.Result
	if action == domain.ActionLock {
		res, err = b.actuator.Lock(ctx, token, b.lockID)
	} else {
		res, err = b.actuator.Unlock(ctx, token, b.lockID)
	}
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error while %s the lock: %v", action.Verb(), err))
		return
	}
	if !res.OK() {
		b.reply(chatID, fmt.Sprintf("Error while %s the lock: %s (code %d)", action.Verb(), res.ErrMsg, res.ErrCode))
		return
	}
	b.reply(chatID, fmt.Sprintf("Lock <b>%s</b>.", action.Done()))
}

func (b *Bot) handleSetEnabled(chatID int64, enabled bool) {
	_, err := b.store.Update(func(cfg *domain.ScheduleConfig) error {
		cfg.ScheduleEnabled = enabled
		return nil
	})
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Could not update the schedule: %v", err))
		return
	}
	if enabled {
		b.reply(chatID, "Schedule <b>enabled</b>.")
	} else {
		b.reply(chatID, "Schedule <b>disabled</b>. The lock stays closed until re-enabled.")
	}
}
