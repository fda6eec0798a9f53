package delivery

import (
	"fmt"
	"time"

	"github.com/Vovarama1992/speech2face/internal/domain"
	"github.com/Vovarama1992/speech2face/internal/ports"
	"github.com/dustin/go-humanize"
)

type imageView struct {
	Index       int // с единицы
	Caption     string
	Filename    string
	URL         string
	DownloadURL string
}

type errorView struct {
	N       int
	Message string
}

type resultView struct {
	ID        string
	AudioName string
	AudioURL  string
	AudioSize string
	Duration  string

	Images  []imageView
	Columns [2][]imageView
	Notice  string
	Errors  []errorView

	// Fatal: загрузка не удалась, генерации не было
	Fatal string
}

func newResultView(set *ports.ResultSet) resultView {
	v := resultView{
		ID:        set.ID,
		AudioName: set.AudioName,
		AudioURL:  fmt.Sprintf("/portraits/%s/audio", set.ID),
		AudioSize: humanize.Bytes(uint64(len(set.Audio))),
	}
	if set.Duration > 0 {
		v.Duration = set.Duration.Round(100 * time.Millisecond).String()
	}

	for idx := range set.Images {
		iv := imageView{
			Index:       idx + 1,
			Caption:     fmt.Sprintf("Image %d", idx+1),
			Filename:    domain.DownloadFilename(idx),
			URL:         fmt.Sprintf("/portraits/%s/images/%d", set.ID, idx+1),
			DownloadURL: fmt.Sprintf("/portraits/%s/download/%d", set.ID, idx+1),
		}
		v.Images = append(v.Images, iv)
		v.Columns[idx%2] = append(v.Columns[idx%2], iv)
	}
	if len(v.Images) == 0 {
		v.Notice = domain.NoImagesNotice
	}

	for idx, msg := range set.Errors {
		v.Errors = append(v.Errors, errorView{N: idx + 1, Message: msg})
	}

	return v
}

// JSON-ответ для /api/portraits
type apiImage struct {
	Index       int    `json:"index"`
	Caption     string `json:"caption"`
	Filename    string `json:"filename"`
	URL         string `json:"url"`
	DownloadURL string `json:"download_url"`
}

type apiResult struct {
	ID       string     `json:"id,omitempty"`
	AudioURL string     `json:"audio_url,omitempty"`
	Images   []apiImage `json:"images"`
	Errors   []string   `json:"errors"`
	Notice   string     `json:"notice,omitempty"`
	Error    string     `json:"error,omitempty"`
}

func newAPIResult(v resultView) apiResult {
	out := apiResult{
		ID:       v.ID,
		AudioURL: v.AudioURL,
		Images:   make([]apiImage, 0, len(v.Images)),
		Errors:   make([]string, 0, len(v.Errors)),
		Notice:   v.Notice,
	}
	for _, iv := range v.Images {
		out.Images = append(out.Images, apiImage(iv))
	}
	for _, ev := range v.Errors {
		out.Errors = append(out.Errors, ev.Message)
	}
	return out
}
