package delivery

import (
	"net/http"
	"time"

	"github.com/Vovarama1992/go-utils/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

func RegisterRoutes(r chi.Router, h *PortraitHandler, uploadsPerMinute int) {
	r.With(httputil.RecoverMiddleware).Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})

	// один лимитер на оба upload-эндпоинта
	limit := func(next http.Handler) http.Handler { return next }
	if uploadsPerMinute > 0 {
		limit = httprate.LimitByIP(uploadsPerMinute, time.Minute)
	}

	r.Group(func(pr chi.Router) {
		pr.Use(httputil.RecoverMiddleware)

		pr.Get("/", h.Index)

		// --- генерация ---
		pr.With(limit).Post("/portraits", h.Create)
		pr.With(limit).Post("/api/portraits", h.CreateJSON)

		// --- результаты ---
		pr.Get("/portraits/{id}", h.Show)
		pr.Get("/portraits/{id}/images/{n}", h.Image)
		pr.Get("/portraits/{id}/download/{n}", h.Download)
		pr.Get("/portraits/{id}/audio", h.Audio)
	})
}
