package notifier

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/semmidev/dbackup/internal/config"
	"github.com/semmidev/dbackup/internal/domain"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier posts a run summary to a chat.
type TelegramNotifier struct {
	bot    sender
	chatID int64
}

func NewTelegram(cfg *config.TelegramConfig) (*TelegramNotifier, error) {
	chatID, err := strconv.ParseInt(cfg.ChatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat id %q: %w", cfg.ChatID, err)
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &TelegramNotifier{bot: bot, chatID: chatID}, nil
}

func (t *TelegramNotifier) Notify(ctx context.Context, result *domain.RunResult) error {
	msg := tgbotapi.NewMessage(t.chatID, formatSummary(result))
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram notification: %w", err)
	}
	return nil
}

func formatSummary(result *domain.RunResult) string {
	var b strings.Builder

	if result.Failed() > 0 {
		b.WriteString("❌ Backup Failed\n\n")
	} else {
		b.WriteString("✅ Backup Completed\n\n")
	}

	fmt.Fprintf(&b, "🕐 Run: %s\n", result.Timestamp)
	fmt.Fprintf(&b, "📦 Succeeded: %d\n", result.Succeeded())
	fmt.Fprintf(&b, "⚠️ Failed: %d\n", result.Failed())
	fmt.Fprintf(&b, "⏭ Skipped: %d\n", result.Skipped())

	for _, job := range result.Jobs {
		if job.Status == domain.JobFailed && job.Err != nil {
			fmt.Fprintf(&b, "\n• %s (%s): %v", job.Job.Project, job.Err.Stage, job.Err.Err)
		}
	}

	return b.String()
}
