package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/kdimtricp/vidportal/internal/auth"
	"github.com/kdimtricp/vidportal/internal/models"
	"github.com/kdimtricp/vidportal/internal/videos"
)

// multipartOverhead is the slack allowed on top of the video size for
// boundaries, headers and the title field.
const multipartOverhead int64 = 1 << 20

type App struct {
	Videos   *videos.Service
	Verifier auth.Verifier
	// Ping reports metadata backend health; nil means always healthy.
	Ping func(ctx context.Context) error
	// UploadDir is served under /uploads when blobs live on local disk.
	UploadDir string
	// FrontendDir holds the built single-page app, if any.
	FrontendDir string
	CORSOrigins []string
}

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type uploadResponse struct {
	Message string       `json:"message"`
	Video   models.Video `json:"video"`
}

type viewResponse struct {
	Message string `json:"message"`
	Views   int64  `json:"views"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func RootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Video portal backend is running"))
}

func (app *App) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if app.Ping != nil {
		if err := app.Ping(r.Context()); err != nil {
			log.Error().Err(err).Msg("Health check failed")
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unhealthy", Message: "Metadata store unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "OK", Message: "Video portal backend is running"})
}

func (app *App) ListVideosHandler(w http.ResponseWriter, r *http.Request) {
	list, err := app.Videos.List(r.Context())
	if err != nil {
		app.writeServiceError(w, r, err)
		return
	}
	SetVideoCount(len(list))
	writeJSON(w, http.StatusOK, list)
}

func (app *App) UploadHandler(w http.ResponseWriter, r *http.Request) {
	maxSize := app.Videos.MaxUploadSize()
	tooLargeMsg := fmt.Sprintf("Video exceeds the maximum size of %d bytes", maxSize)
	if r.ContentLength > maxSize+multipartOverhead {
		recordUpload("rejected")
		writeError(w, http.StatusBadRequest, tooLargeMsg)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		recordUpload("rejected")
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusBadRequest, tooLargeMsg)
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	req := videos.UploadRequest{
		Title:   r.FormValue("title"),
		BaseURL: requestBaseURL(r),
	}
	if id, ok := auth.FromContext(r.Context()); ok {
		req.Uploader = id.UserID
	}

	file, header, err := r.FormFile("video")
	switch {
	case err == nil:
		defer file.Close()
		req.File = file
		req.Filename = header.Filename
		req.ContentType = header.Header.Get("Content-Type")
		req.Size = header.Size
	case errors.Is(err, http.ErrMissingFile):
	default:
		recordUpload("rejected")
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	video, err := app.Videos.Upload(r.Context(), req)
	if err != nil {
		if videos.KindOf(err) == videos.KindValidation {
			recordUpload("rejected")
		} else {
			recordUpload("failed")
		}
		app.writeServiceError(w, r, err)
		return
	}

	recordUpload("success")
	videosTotal.Inc()
	writeJSON(w, http.StatusCreated, uploadResponse{
		Message: "Video uploaded successfully",
		Video:   video,
	})
}

func (app *App) ViewHandler(w http.ResponseWriter, r *http.Request) {
	locationID := chi.URLParam(r, "locationId")

	views, err := app.Videos.RecordView(r.Context(), locationID)
	if err != nil {
		app.writeServiceError(w, r, err)
		return
	}

	viewsTotal.Inc()
	writeJSON(w, http.StatusOK, viewResponse{Message: "View counted", Views: views})
}

func (app *App) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	locationID := chi.URLParam(r, "locationId")

	removed, err := app.Videos.Delete(r.Context(), locationID)
	if err != nil {
		recordDelete("failed")
		app.writeServiceError(w, r, err)
		return
	}

	recordDelete("success")
	if removed {
		videosTotal.Dec()
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Video deleted successfully"})
}

// writeServiceError maps a service error to a status code. Internal causes
// are logged, never returned.
func (app *App) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	kind := videos.KindOf(err)
	recordError(kind.String())

	status := http.StatusInternalServerError
	switch kind {
	case videos.KindValidation:
		status = http.StatusBadRequest
	case videos.KindNotFound:
		status = http.StatusNotFound
	}

	message := videos.PublicMessage(err)
	if message == "" {
		message = "Something went wrong!"
	}

	if status >= 500 {
		log.Error().Err(err).Str("kind", kind.String()).Str("path", r.URL.Path).Msg("Request failed")
	}
	writeError(w, status, message)
}

func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
