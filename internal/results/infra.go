package results

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/speech2face/internal/ports"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

var ErrTooLarge = errors.New("result set exceeds store capacity")

type memoryStore struct {
	mu       sync.RWMutex
	data     map[string]*ports.ResultSet
	size     int64
	maxBytes int64 // <= 0: без ограничения
	log      *logger.ZapLogger
	now      func() time.Time
}

// NewMemoryStore: результаты живут только в памяти процесса.
// Когда суммарный объём превышает maxBytes, вытесняются самые старые наборы.
func NewMemoryStore(log *logger.ZapLogger, maxBytes int64) ports.ResultStore {
	return &memoryStore{
		data:     make(map[string]*ports.ResultSet),
		maxBytes: maxBytes,
		log:      log,
		now:      time.Now,
	}
}

func (s *memoryStore) Save(ctx context.Context, set *ports.ResultSet, ttl time.Duration) (string, error) {
	if set == nil {
		return "", errors.New("nil result set")
	}
	if ttl <= 0 {
		return "", errors.New("ttl must be positive")
	}

	n := sizeOf(set)
	if s.maxBytes > 0 && n > s.maxBytes {
		return "", fmt.Errorf("%w: %s", ErrTooLarge, humanize.Bytes(uint64(n)))
	}

	now := s.now()
	set.ID = uuid.NewString()
	set.CreatedAt = now
	set.ExpiresAt = now.Add(ttl)

	s.mu.Lock()
	evicted := 0
	for s.maxBytes > 0 && s.size+n > s.maxBytes && s.evictOldest() {
		evicted++
	}
	s.data[set.ID] = set
	s.size += n
	s.mu.Unlock()

	if evicted > 0 {
		s.log.Log(logger.LogEntry{
			Level:   "warn",
			Message: fmt.Sprintf("store is full, %d oldest result sets evicted", evicted),
			Service: "results",
		})
	}

	return set.ID, nil
}

func (s *memoryStore) Get(ctx context.Context, id string) (*ports.ResultSet, bool) {
	s.mu.RLock()
	set, ok := s.data[id]
	s.mu.RUnlock()
	if !ok || !s.now().Before(set.ExpiresAt) {
		return nil, false
	}
	return set, true
}

func (s *memoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	s.remove(id)
	s.mu.Unlock()
	return nil
}

// Sweep удаляет просроченные наборы, возвращает количество удалённых
func (s *memoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	removed := 0
	for id, set := range s.data {
		if !now.Before(set.ExpiresAt) {
			s.remove(id)
			removed++
		}
	}
	s.mu.Unlock()

	if removed > 0 {
		s.log.Log(logger.LogEntry{Level: "info", Message: "expired result sets removed", Service: "results"})
	}
	return removed
}

// remove и evictOldest вызываются под s.mu
func (s *memoryStore) remove(id string) {
	if set, ok := s.data[id]; ok {
		s.size -= sizeOf(set)
		delete(s.data, id)
	}
}

func (s *memoryStore) evictOldest() bool {
	var oldest *ports.ResultSet
	for _, set := range s.data {
		if oldest == nil || set.CreatedAt.Before(oldest.CreatedAt) {
			oldest = set
		}
	}
	if oldest == nil {
		return false
	}
	s.remove(oldest.ID)
	return true
}

// sizeOf: аудио плюс картинки как RGBA
func sizeOf(set *ports.ResultSet) int64 {
	n := int64(len(set.Audio))
	for _, img := range set.Images {
		if img == nil {
			continue
		}
		b := img.Bounds()
		n += int64(b.Dx()) * int64(b.Dy()) * 4
	}
	return n
}
