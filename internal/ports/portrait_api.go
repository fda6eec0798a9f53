package ports

import "context"

// RemoteFile: загруженный на сторону API файл
type RemoteFile struct {
	Name     string // нужен для удаления
	URI      string
	MIMEType string
}

// ContentPart: одна часть ответа модели
type ContentPart struct {
	Text       string
	InlineData []byte
	MIMEType   string
}

type GenerateRequest struct {
	Model  string
	Prompt string
	File   *RemoteFile
}

// PortraitAPI: низкоуровневый клиент к генеративному API
type PortraitAPI interface {
	UploadAudio(ctx context.Context, path, mimeType string) (*RemoteFile, error)

	// GenerateContent возвращает части первого кандидата ответа
	GenerateContent(ctx context.Context, req GenerateRequest) ([]ContentPart, error)

	DeleteFile(ctx context.Context, name string) error
}
