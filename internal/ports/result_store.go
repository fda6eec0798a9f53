package ports

import (
	"context"
	"image"
	"time"
)

// ResultSet: результат одного взаимодействия, живёт только в памяти
type ResultSet struct {
	ID        string
	CreatedAt time.Time
	ExpiresAt time.Time

	AudioName string
	Audio     []byte
	Duration  time.Duration // 0, если не удалось определить

	Images []image.Image
	Errors []string
}

type ResultStore interface {
	Save(ctx context.Context, set *ResultSet, ttl time.Duration) (string, error)
	Get(ctx context.Context, id string) (*ResultSet, bool)
	Delete(ctx context.Context, id string) error
	Sweep(now time.Time) int
}
