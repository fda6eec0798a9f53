package delivery

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/speech2face/internal/audio"
	"github.com/Vovarama1992/speech2face/internal/domain"
	"github.com/Vovarama1992/speech2face/internal/ports"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
)

const (
	formField = "audio"
	// запас на multipart-обвязку поверх самого файла
	multipartOverhead = 1 << 20
)

var (
	errNotMP3      = errors.New("only mp3 files are accepted")
	errMissingFile = errors.New("missing audio file")
)

type PortraitHandler struct {
	svc       domain.PortraitService
	store     ports.ResultStore
	log       *logger.ZapLogger
	ttl       time.Duration
	maxUpload int64
}

func NewPortraitHandler(
	svc domain.PortraitService,
	store ports.ResultStore,
	log *logger.ZapLogger,
	ttl time.Duration,
	maxUpload int64,
) *PortraitHandler {
	return &PortraitHandler{
		svc:       svc,
		store:     store,
		log:       log,
		ttl:       ttl,
		maxUpload: maxUpload,
	}
}

// GET /
func (h *PortraitHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "index", nil)
}

// POST /portraits
func (h *PortraitHandler) Create(w http.ResponseWriter, r *http.Request) {
	view, status, err := h.run(w, r)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}
	h.render(w, status, "result", view)
}

// POST /api/portraits
func (h *PortraitHandler) CreateJSON(w http.ResponseWriter, r *http.Request) {
	view, status, err := h.run(w, r)
	if err != nil {
		h.writeJSON(w, status, apiResult{Images: []apiImage{}, Errors: []string{}, Error: err.Error()})
		return
	}

	out := newAPIResult(view)
	out.Error = view.Fatal
	h.writeJSON(w, status, out)
}

// GET /portraits/{id}
func (h *PortraitHandler) Show(w http.ResponseWriter, r *http.Request) {
	set, ok := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "result not found", http.StatusNotFound)
		return
	}
	h.render(w, http.StatusOK, "result", newResultView(set))
}

// GET /portraits/{id}/images/{n}
func (h *PortraitHandler) Image(w http.ResponseWriter, r *http.Request) {
	h.servePNG(w, r, false)
}

// GET /portraits/{id}/download/{n}
func (h *PortraitHandler) Download(w http.ResponseWriter, r *http.Request) {
	h.servePNG(w, r, true)
}

// GET /portraits/{id}/audio
func (h *PortraitHandler) Audio(w http.ResponseWriter, r *http.Request) {
	set, ok := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "result not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(set.Audio)))
	_, _ = w.Write(set.Audio)
}

// run: общий путь для HTML и JSON. err != nil означает, что рендерить нечего.
func (h *PortraitHandler) run(w http.ResponseWriter, r *http.Request) (resultView, int, error) {
	upload, status, err := h.readUpload(w, r)
	if err != nil {
		h.log.Log(logger.LogEntry{Level: "warn", Message: "invalid upload", Error: err})
		return resultView{}, status, err
	}

	// длительность нужна только для шапки страницы, до генерации и без фатальных ошибок
	var duration time.Duration
	if info, err := audio.Probe(upload.Data); err == nil {
		duration = info.Duration
	} else {
		h.log.Log(logger.LogEntry{Level: "warn", Message: "mp3 probe failed: " + upload.Filename, Error: err})
	}

	res, err := h.svc.Generate(r.Context(), upload)
	switch {
	case errors.Is(err, domain.ErrUpload):
		return resultView{Fatal: "❌ " + capitalize(err.Error())}, http.StatusBadGateway, nil
	case errors.Is(err, domain.ErrEmptyAudio):
		return resultView{}, http.StatusBadRequest, err
	case err != nil:
		h.log.Log(logger.LogEntry{Level: "error", Message: "generation failed", Error: err})
		return resultView{}, http.StatusInternalServerError, fmt.Errorf("failed to process audio: %w", err)
	}

	set := &ports.ResultSet{
		AudioName: upload.Filename,
		Audio:     upload.Data,
		Duration:  duration,
		Images:    res.Images(),
		Errors:    res.Errors(),
	}
	if _, err := h.store.Save(r.Context(), set, h.ttl); err != nil {
		h.log.Log(logger.LogEntry{Level: "error", Message: "failed to keep results", Error: err})
		return resultView{}, http.StatusInternalServerError, fmt.Errorf("failed to keep results: %w", err)
	}

	return newResultView(set), http.StatusOK, nil
}

func (h *PortraitHandler) readUpload(w http.ResponseWriter, r *http.Request) (domain.UploadedAudio, int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.UploadedAudio{}, http.StatusRequestEntityTooLarge, fmt.Errorf("file too large: %w", err)
		}
		return domain.UploadedAudio{}, http.StatusBadRequest, fmt.Errorf("invalid multipart: %w", err)
	}

	file, header, err := r.FormFile(formField)
	if err != nil {
		return domain.UploadedAudio{}, http.StatusBadRequest, errMissingFile
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".mp3") {
		return domain.UploadedAudio{}, http.StatusBadRequest, errNotMP3
	}
	if header.Size > h.maxUpload {
		return domain.UploadedAudio{}, http.StatusRequestEntityTooLarge, errors.New("file too large")
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return domain.UploadedAudio{}, http.StatusBadRequest, fmt.Errorf("failed to read file: %w", err)
	}

	return domain.UploadedAudio{
		Filename:    filepath.Base(header.Filename),
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, http.StatusOK, nil
}

func (h *PortraitHandler) servePNG(w http.ResponseWriter, r *http.Request, attachment bool) {
	set, ok := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "result not found", http.StatusNotFound)
		return
	}

	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil || n < 1 || n > len(set.Images) {
		http.Error(w, "image not found", http.StatusNotFound)
		return
	}

	data, err := domain.EncodePNG(set.Images[n-1])
	if err != nil {
		h.log.Log(logger.LogEntry{Level: "error", Message: "png encode failed", Error: err})
		http.Error(w, "failed to encode image", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if attachment {
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, domain.DownloadFilename(n-1)))
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

func (h *PortraitHandler) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		h.log.Log(logger.LogEntry{Level: "error", Message: "template render failed: " + name, Error: err})
	}
}

func (h *PortraitHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
