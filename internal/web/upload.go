package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PauloHFS/goth-blog/internal/logging"
	"github.com/PauloHFS/goth-blog/internal/middleware"
	"github.com/PauloHFS/goth-blog/internal/upload"
	"github.com/PauloHFS/goth-blog/internal/worker"
)

// Uploads not attached to any post by then are removed by the worker.
const orphanUploadTTL = 24 * time.Hour

// @Summary Enviar imagem
// @Tags uploads
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Imagem (jpg, png, gif, webp)"
// @Success 200 {object} map[string]any
// @Failure 400 {object} errorResponse
// @Failure 401 {object} errorResponse
// @Router /api/upload [post]
func handleUpload(deps HandlerDeps, w http.ResponseWriter, r *http.Request) error {
	logging.AddToEvent(r.Context(), slog.String("operation", "upload"))

	requester := middleware.GetRequester(r.Context())
	cfg := upload.ImageConfig.ForOwner(requester.UserID)
	cfg.MaxSize = deps.Config.MaxUploadBytes

	// room for the multipart envelope around the file itself
	r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxSize+64<<10)
	if err := r.ParseMultipartForm(cfg.MaxSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return badRequest("file too large")
		}
		return badRequest("invalid multipart form")
	}

	result, err := upload.SaveFile(r, "file", deps.Config.UploadDir, cfg)
	if err != nil {
		return err
	}

	logging.AddToEvent(r.Context(),
		slog.String("outcome", "success"),
		slog.String("file_url", result.URL),
		slog.String("mime_type", result.MIMEType),
		slog.Int64("file_size", result.Size),
	)

	if job, ok := worker.RemoveImageJob(result.URL, requester.UserID); ok {
		job.RunAt = time.Now().Add(orphanUploadTTL)
		if _, err := deps.Store.CreateJob(r.Context(), job); err != nil {
			logging.Get().Warn("failed to schedule orphan upload cleanup",
				slog.String("url", result.URL),
				slog.Any("error", err),
			)
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"url":     result.URL,
	})
	return nil
}

// uploadsHandler serves stored files. Directory listings are not exposed.
func uploadsHandler(dir string) http.Handler {
	fs := http.StripPrefix(strings.TrimSuffix(upload.URLPrefix, "/"), http.FileServer(http.Dir(dir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=86400")
		fs.ServeHTTP(w, r)
	})
}
