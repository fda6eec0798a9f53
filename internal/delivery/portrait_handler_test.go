package delivery_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/speech2face/internal/delivery"
	"github.com/Vovarama1992/speech2face/internal/domain"
	"github.com/Vovarama1992/speech2face/internal/results"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeService struct {
	res   *domain.Interaction
	err   error
	calls int
	got   domain.UploadedAudio
}

func (f *fakeService) Generate(ctx context.Context, audio domain.UploadedAudio) (*domain.Interaction, error) {
	f.calls++
	f.got = audio
	return f.res, f.err
}

func newServer(t *testing.T, svc domain.PortraitService, maxUpload int64) *httptest.Server {
	t.Helper()
	log := logger.NewZapLogger(zap.NewNop().Sugar())
	h := delivery.NewPortraitHandler(svc, results.NewMemoryStore(log, 64<<20), log, time.Minute, maxUpload)

	r := chi.NewRouter()
	delivery.RegisterRoutes(r, h, 0)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func upload(t *testing.T, url, filename string, data []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("audio", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(url, mw.FormDataContentType(), &body)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return buf.String()
}

func interaction(images int, messages ...string) *domain.Interaction {
	in := &domain.Interaction{}
	for i := 0; i < images; i++ {
		in.Attempts = append(in.Attempts, domain.AttemptResult{Image: image.NewRGBA(image.Rect(0, 0, 3+i, 2))})
	}
	for _, m := range messages {
		in.Attempts = append(in.Attempts, domain.AttemptResult{Message: m})
	}
	return in
}

func TestCreateFourImages(t *testing.T) {
	svc := &fakeService{res: interaction(4)}
	srv := newServer(t, svc, 1<<20)

	resp := upload(t, srv.URL+"/portraits", "voice.mp3", []byte("fake mp3"))
	body := readBody(t, resp)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, svc.calls)
	assert.Equal(t, "voice.mp3", svc.got.Filename)
	assert.Equal(t, []byte("fake mp3"), svc.got.Data)

	for i := 1; i <= 4; i++ {
		assert.Contains(t, body, fmt.Sprintf(`download="speech2face_%d.png"`, i))
		assert.Contains(t, body, fmt.Sprintf("Image %d", i))
	}
	assert.Equal(t, 4, strings.Count(body, `class="btn"`))
	assert.NotContains(t, body, domain.NoImagesNotice)
	assert.NotContains(t, body, "Messages from failed attempts")
}

func TestCreateMalformedMP3KeepsPortraits(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "audio", "testdata", "malformed.mp3"))
	require.NoError(t, err)

	svc := &fakeService{res: interaction(4)}
	srv := newServer(t, svc, 1<<20)

	resp := upload(t, srv.URL+"/portraits", "voice.mp3", data)
	body := readBody(t, resp)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, svc.calls)
	assert.Equal(t, 4, strings.Count(body, `class="btn"`))
}

func TestCreateShowsProbedDuration(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "audio", "testdata", "silence.mp3"))
	require.NoError(t, err)

	srv := newServer(t, &fakeService{res: interaction(1)}, 1<<20)

	resp := upload(t, srv.URL+"/portraits", "voice.mp3", data)
	body := readBody(t, resp)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, " · 1s</p>")
}

func TestCreateTextOnly(t *testing.T) {
	w := domain.NoImageWarning
	svc := &fakeService{res: interaction(0, w, w, w, w)}
	srv := newServer(t, svc, 1<<20)

	resp := upload(t, srv.URL+"/portraits", "voice.mp3", []byte("fake mp3"))
	body := readBody(t, resp)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, domain.NoImagesNotice)
	assert.NotContains(t, body, `class="btn"`)
	assert.Equal(t, 4, strings.Count(body, "Only text was returned (no image)"))
	for i := 1; i <= 4; i++ {
		assert.Contains(t, body, fmt.Sprintf("<strong>%d:</strong>", i))
	}
}

func TestCreateUploadFailure(t *testing.T) {
	svc := &fakeService{err: fmt.Errorf("%w: %w", domain.ErrUpload, errors.New("connection reset"))}
	srv := newServer(t, svc, 1<<20)

	resp := upload(t, srv.URL+"/portraits", "voice.mp3", []byte("fake mp3"))
	body := readBody(t, resp)

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, body, "File upload failed: connection reset")
	assert.NotContains(t, body, domain.NoImagesNotice)
}

func TestCreateMixed(t *testing.T) {
	svc := &fakeService{res: interaction(2, "❌ Generation failed: a", "❌ Generation failed: b")}
	srv := newServer(t, svc, 1<<20)

	resp := upload(t, srv.URL+"/portraits", "Voice.MP3", []byte("fake mp3"))
	body := readBody(t, resp)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, strings.Count(body, `class="btn"`))
	assert.Contains(t, body, "<strong>1:</strong> ❌ Generation failed: a")
	assert.Contains(t, body, "<strong>2:</strong> ❌ Generation failed: b")
}

func TestCreateRejectsNonMP3(t *testing.T) {
	svc := &fakeService{res: interaction(4)}
	srv := newServer(t, svc, 1<<20)

	resp := upload(t, srv.URL+"/portraits", "voice.wav", []byte("RIFF"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, svc.calls)
}

func TestCreateMissingFile(t *testing.T) {
	svc := &fakeService{res: interaction(4)}
	srv := newServer(t, svc, 1<<20)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("other", "x"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/portraits", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, svc.calls)
}

func TestCreateTooLarge(t *testing.T) {
	svc := &fakeService{res: interaction(4)}
	srv := newServer(t, svc, 16)

	resp := upload(t, srv.URL+"/portraits", "voice.mp3", bytes.Repeat([]byte("a"), 64))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Zero(t, svc.calls)
}

func TestCreateJSONAndDownloads(t *testing.T) {
	svc := &fakeService{res: interaction(2, "❌ Generation failed: boom")}
	srv := newServer(t, svc, 1<<20)

	resp := upload(t, srv.URL+"/api/portraits", "voice.mp3", []byte("fake mp3"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var out struct {
		ID       string `json:"id"`
		AudioURL string `json:"audio_url"`
		Images   []struct {
			Index       int    `json:"index"`
			Filename    string `json:"filename"`
			URL         string `json:"url"`
			DownloadURL string `json:"download_url"`
		} `json:"images"`
		Errors []string `json:"errors"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.ID)
	require.Len(t, out.Images, 2)
	assert.Equal(t, []string{"❌ Generation failed: boom"}, out.Errors)

	for i, img := range out.Images {
		assert.Equal(t, i+1, img.Index)
		assert.Equal(t, fmt.Sprintf("speech2face_%d.png", i+1), img.Filename)

		dl, err := http.Get(srv.URL + img.DownloadURL)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, dl.StatusCode)
		assert.Equal(t, "image/png", dl.Header.Get("Content-Type"))
		assert.Equal(t, fmt.Sprintf(`attachment; filename="speech2face_%d.png"`, i+1), dl.Header.Get("Content-Disposition"))

		decoded, err := png.Decode(dl.Body)
		dl.Body.Close()
		require.NoError(t, err)
		assert.Equal(t, 3+i, decoded.Bounds().Dx())

		inline, err := http.Get(srv.URL + img.URL)
		require.NoError(t, err)
		assert.Empty(t, inline.Header.Get("Content-Disposition"))
		inline.Body.Close()
	}

	au, err := http.Get(srv.URL + out.AudioURL)
	require.NoError(t, err)
	defer au.Body.Close()
	assert.Equal(t, "audio/mpeg", au.Header.Get("Content-Type"))
	assert.Equal(t, "fake mp3", readBody(t, au))

	page, err := http.Get(srv.URL + "/portraits/" + out.ID)
	require.NoError(t, err)
	defer page.Body.Close()
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Contains(t, readBody(t, page), `download="speech2face_2.png"`)
}

func TestCreateJSONUploadFailure(t *testing.T) {
	svc := &fakeService{err: fmt.Errorf("%w: %w", domain.ErrUpload, errors.New("quota"))}
	srv := newServer(t, svc, 1<<20)

	resp := upload(t, srv.URL+"/api/portraits", "voice.mp3", []byte("fake mp3"))
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var out struct {
		Images []any  `json:"images"`
		Error  string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Empty(t, out.Images)
	assert.Contains(t, out.Error, "File upload failed: quota")
}

func TestNotFound(t *testing.T) {
	svc := &fakeService{res: interaction(1)}
	srv := newServer(t, svc, 1<<20)

	for _, path := range []string{
		"/portraits/nope",
		"/portraits/nope/images/1",
		"/portraits/nope/download/1",
		"/portraits/nope/audio",
	} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}

	resp := upload(t, srv.URL+"/api/portraits", "voice.mp3", []byte("x"))
	var out struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	for _, n := range []string{"0", "2", "abc"} {
		r, err := http.Get(srv.URL + "/portraits/" + out.ID + "/download/" + n)
		require.NoError(t, err)
		r.Body.Close()
		assert.Equal(t, http.StatusNotFound, r.StatusCode, n)
	}
}

func TestIndexAndPing(t *testing.T) {
	srv := newServer(t, &fakeService{}, 1<<20)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	body := readBody(t, resp)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `name="audio"`)
	assert.Contains(t, body, `accept=".mp3,audio/mpeg"`)

	resp, err = http.Get(srv.URL + "/ping")
	require.NoError(t, err)
	assert.Equal(t, "pong", readBody(t, resp))
	resp.Body.Close()
}
