package notification

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Domenick1991/seatbook/config"
	"github.com/Domenick1991/seatbook/internal/email"
	"github.com/Domenick1991/seatbook/internal/kafka"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// TelegramNotifier mirrors booking events into an operations chat.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    logrus.FieldLogger
}

func NewTelegramNotifier(cfg config.TelegramConfig, log logrus.FieldLogger) (*TelegramNotifier, error) {
	if cfg.Token == "" {
		log.Warn("telegram bot token is empty, telegram notifications disabled")
		return &TelegramNotifier{log: log}, nil
	}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, cfg.APIEndpoint, &http.Client{Timeout: 10 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot, chatID: cfg.ChatID, log: log}, nil
}

func (n *TelegramNotifier) Send(ctx context.Context, event kafka.BookingEvent) error {
	subject, err := email.Subject(event)
	if err != nil {
		return err
	}
	if n.bot == nil {
		n.log.WithField("event_id", event.EventID).Debug("telegram notification skipped, bot disabled")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	text := fmt.Sprintf("*%s*\nPassenger: %d\nAt: %s", subject, event.PassengerID, event.OccurredAt.Format("02.01.2006 15:04 UTC"))
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}
