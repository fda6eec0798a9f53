package error_notificator

import (
	"context"
	"errors"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender: то, что нужно от бота (tgbotapi.BotAPI подходит)
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Infra struct {
	bot     Sender
	chatIDs []int64
	service string
}

func NewInfra(bot Sender, chatIDs []int64, service string) *Infra {
	return &Infra{bot: bot, chatIDs: chatIDs, service: service}
}

// NewTelegramInfra поднимает бота по токену
func NewTelegramInfra(token string, chatIDs []int64, service string) (*Infra, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}
	return NewInfra(bot, chatIDs, service), nil
}

func (i *Infra) Notify(ctx context.Context, err error, details string) error {
	text := fmt.Sprintf(
		"❗ Ошибка в сервисе (%s)\n\nОшибка: %v\n\nДетали: %s",
		i.service,
		err,
		details,
	)

	var errs []error
	for _, chatID := range i.chatIDs {
		if _, sendErr := i.bot.Send(tgbotapi.NewMessage(chatID, text)); sendErr != nil {
			log.Printf("[error_notificator] send fail to %d: %v", chatID, sendErr)
			errs = append(errs, sendErr)
		}
	}

	return errors.Join(errs...)
}

// Noop: когда токен не задан
type Noop struct{}

func (Noop) Notify(ctx context.Context, err error, details string) error { return nil }
