package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"antigravity/internal/model"
	"antigravity/internal/pricing"
)

// TelegramNotifier pings managers about new booking requests so decisions
// don't wait on someone checking the dashboard.
type TelegramNotifier struct {
	bot      *tgbotapi.BotAPI
	chatIDs  []int64
	fallback *Mailer
	logger   *zerolog.Logger
}

// NewTelegramNotifier wraps a Mailer, adding Telegram pings on submission.
// Approval and cancellation go to the customer by email only.
func NewTelegramNotifier(token string, chatIDs []int64, mailer *Mailer, logger *zerolog.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramNotifier{
		bot:      bot,
		chatIDs:  chatIDs,
		fallback: mailer,
		logger:   logger,
	}, nil
}

// SendSubmission emails the receipt and pings the manager chats.
func (t *TelegramNotifier) SendSubmission(ctx context.Context, b *model.Booking) error {
	err := t.fallback.SendSubmission(ctx, b)

	text := fmt.Sprintf(
		"New booking request\n%s <%s>\n%s, %s - %s\nGuests: %d\nEstimated: $%s",
		b.CustomerName, b.CustomerEmail,
		b.StartTime.Format("Mon Jan 2"),
		b.StartTime.Format("3:04 PM"), b.EndTime.Format("3:04 PM"),
		b.GuestCount, pricing.FormatCents(b.CostCents),
	)
	for _, chatID := range t.chatIDs {
		if _, sendErr := t.bot.Send(tgbotapi.NewMessage(chatID, text)); sendErr != nil {
			t.logger.Warn().Err(sendErr).Int64("chat_id", chatID).Msg("telegram ping failed")
		}
	}
	return err
}

// SendApproval delegates to the mailer.
func (t *TelegramNotifier) SendApproval(ctx context.Context, b *model.Booking) error {
	return t.fallback.SendApproval(ctx, b)
}

// SendCancellation delegates to the mailer.
func (t *TelegramNotifier) SendCancellation(ctx context.Context, b *model.Booking) error {
	return t.fallback.SendCancellation(ctx, b)
}
