package notify

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"transport-register/internal/models"
)

// Sender is the part of the Telegram bot API used here
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts registration notices to coordinator chats
type Telegram struct {
	bot     Sender
	chatIDs []int64
}

// NewTelegram connects to the Bot API with the given token
func NewTelegram(token string, chatIDs []int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	bot.Debug = false
	return &Telegram{bot: bot, chatIDs: chatIDs}, nil
}

// NewTelegramWithSender builds a notifier around an existing sender
func NewTelegramWithSender(bot Sender, chatIDs []int64) *Telegram {
	return &Telegram{bot: bot, chatIDs: chatIDs}
}

// Name returns the notifier name
func (t *Telegram) Name() string { return "telegram" }

// NotifyRegistration sends the notice to every configured chat
func (t *Telegram) NotifyRegistration(ctx context.Context, reg models.Registration) error {
	text := Message(reg)
	var errs []error
	for _, chatID := range t.chatIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := t.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}
