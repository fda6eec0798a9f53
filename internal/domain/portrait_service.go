package domain

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/speech2face/internal/ports"
	"github.com/dustin/go-humanize"
)

const (
	audioMIME      = "audio/mpeg"
	cleanupTimeout = 10 * time.Second
	serviceName    = "speech2face"
)

var (
	ErrEmptyAudio = errors.New("empty audio file")
	ErrUpload     = errors.New("file upload failed")
)

type PortraitService interface {
	// Generate: загрузка → 4 попытки генерации → удаление удалённого файла.
	// Ошибка возвращается только если до генерации дело не дошло.
	Generate(ctx context.Context, audio UploadedAudio) (*Interaction, error)
}

type PortraitConfig struct {
	Model          string
	Prompt         string // пусто: DefaultPrompt
	TempDir        string
	AttemptTimeout time.Duration
}

type portraitService struct {
	api      ports.PortraitAPI
	notifier ports.Notificator
	log      *logger.ZapLogger
	cfg      PortraitConfig
}

func NewPortraitService(
	api ports.PortraitAPI,
	notifier ports.Notificator,
	log *logger.ZapLogger,
	cfg PortraitConfig,
) PortraitService {
	cfg.Prompt = promptOrDefault(cfg.Prompt)
	return &portraitService{
		api:      api,
		notifier: notifier,
		log:      log,
		cfg:      cfg,
	}
}

func (s *portraitService) Generate(ctx context.Context, audio UploadedAudio) (*Interaction, error) {
	if len(audio.Data) == 0 {
		return nil, ErrEmptyAudio
	}

	start := time.Now()
	size := humanize.Bytes(uint64(len(audio.Data)))

	path, err := s.stage(audio)
	if err != nil {
		return nil, err
	}
	defer os.Remove(path)

	file, err := s.api.UploadAudio(ctx, path, audioMIME)
	if err != nil {
		s.log.Log(logger.LogEntry{Level: "error", Message: "audio upload failed: " + audio.Filename, Error: err, Service: serviceName})
		_ = s.notifier.Notify(ctx, err, fmt.Sprintf("upload failed: file=%s size=%s", audio.Filename, size))
		return nil, fmt.Errorf("%w: %w", ErrUpload, err)
	}
	defer s.cleanup(ctx, file)

	out := &Interaction{Attempts: make([]AttemptResult, 0, AttemptCount)}
	for i := 0; i < AttemptCount; i++ {
		res := s.attempt(ctx, file)
		if !res.OK() {
			s.log.Log(logger.LogEntry{Level: "warn", Message: fmt.Sprintf("attempt %d/%d: %s", i+1, AttemptCount, res.Message), Service: serviceName})
		}
		out.Attempts = append(out.Attempts, res)
	}

	s.log.Log(logger.LogEntry{
		Level: "info",
		Message: fmt.Sprintf("generated %d/%d portraits for %s (%s) in %.1fs",
			len(out.Images()), AttemptCount, audio.Filename, size, time.Since(start).Seconds()),
		Service: serviceName,
	})

	return out, nil
}

func (s *portraitService) attempt(ctx context.Context, file *ports.RemoteFile) AttemptResult {
	if s.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.AttemptTimeout)
		defer cancel()
	}

	parts, err := s.api.GenerateContent(ctx, ports.GenerateRequest{
		Model:  s.cfg.Model,
		Prompt: s.cfg.Prompt,
		File:   file,
	})
	if err != nil {
		return failedResult("❌ Generation failed: %v", err)
	}

	// берём первую часть с inline-данными, остальное отбрасываем
	for _, p := range parts {
		if p.InlineData == nil {
			continue
		}
		img, err := DecodeImage(p.InlineData)
		if err != nil {
			return failedResult("❌ Generation failed: %v", err)
		}
		return imageResult(img)
	}

	return AttemptResult{Message: NoImageWarning}
}

// cleanup: best effort, ошибки никуда не идут
func (s *portraitService) cleanup(ctx context.Context, file *ports.RemoteFile) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	_ = s.api.DeleteFile(ctx, file.Name)
}

// stage пишет аудио в уникальный temp-файл, вызывающий удаляет его сам
func (s *portraitService) stage(audio UploadedAudio) (string, error) {
	f, err := os.CreateTemp(s.cfg.TempDir, "speech2face-*.mp3")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	if _, err := f.Write(audio.Data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}

	return f.Name(), nil
}
