package domain

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	_ "golang.org/x/image/webp"
)

const (
	// AttemptCount: сколько раз дёргаем генерацию на одну загрузку
	AttemptCount = 4

	NoImageWarning = "⚠️ Only text was returned (no image)"
	NoImagesNotice = "No images were generated."
)

// UploadedAudio: то, что пришло из формы
type UploadedAudio struct {
	Filename    string
	ContentType string
	Data        []byte
}

// AttemptResult: результат одной попытки: либо картинка, либо сообщение
type AttemptResult struct {
	Image   image.Image
	Message string
}

func (a AttemptResult) OK() bool { return a.Image != nil }

func imageResult(img image.Image) AttemptResult {
	return AttemptResult{Image: img}
}

func failedResult(format string, args ...any) AttemptResult {
	return AttemptResult{Message: fmt.Sprintf(format, args...)}
}

// Interaction: все попытки одной загрузки в порядке выполнения
type Interaction struct {
	Attempts []AttemptResult
}

func (i *Interaction) Images() []image.Image {
	out := make([]image.Image, 0, len(i.Attempts))
	for _, a := range i.Attempts {
		if a.OK() {
			out = append(out, a.Image)
		}
	}
	return out
}

func (i *Interaction) Errors() []string {
	out := make([]string, 0, len(i.Attempts))
	for _, a := range i.Attempts {
		if !a.OK() {
			out = append(out, a.Message)
		}
	}
	return out
}

// DecodeImage: inline-байты ответа в картинку (png, jpeg, gif, webp)
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// EncodePNG готовит картинку к скачиванию
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// DownloadFilename: имя файла для n-й картинки (с нуля)
func DownloadFilename(idx int) string {
	return fmt.Sprintf("speech2face_%d.png", idx+1)
}
