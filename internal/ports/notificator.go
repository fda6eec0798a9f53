package ports

import "context"

type Notificator interface {
	// Notify: отправляет сообщение об ошибке админам
	Notify(ctx context.Context, err error, details string) error
}
