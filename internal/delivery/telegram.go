package delivery

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tidings-app/tidings/internal/models"
)

// Telegram delivers messages through the Telegram Bot API to contacts that
// have a chat id on file.
type Telegram struct {
	bot *tgbotapi.BotAPI
}

func NewTelegram(token string) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: bot}, nil
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Send(ctx context.Context, contact models.Contact, text string) error {
	if contact.TelegramChatID == 0 {
		return ErrNoAddress
	}
	msg := tgbotapi.NewMessage(contact.TelegramChatID, text)
	_, err := t.bot.Send(msg)
	return err
}
