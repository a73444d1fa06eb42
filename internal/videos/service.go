package videos

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kdimtricp/vidportal/internal/metadata"
	"github.com/kdimtricp/vidportal/internal/models"
	"github.com/kdimtricp/vidportal/internal/probe"
	"github.com/kdimtricp/vidportal/internal/storage"
)

// DefaultMaxUploadSize is 100 MiB.
const DefaultMaxUploadSize int64 = 100 << 20

type Config struct {
	MaxUploadSize int64
	// PublicBaseURL, when set, replaces the request-derived base of blob URLs.
	PublicBaseURL string
	// Prober is optional; without it duration stays zero.
	Prober probe.Prober
}

// Service implements upload, listing, view counting and deletion on top of a
// metadata store and a blob store.
type Service struct {
	store         metadata.Store
	storage       storage.Storage
	prober        probe.Prober
	maxUploadSize int64
	publicBaseURL string
	now           func() time.Time
}

func NewService(store metadata.Store, blobs storage.Storage, cfg Config) *Service {
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = DefaultMaxUploadSize
	}
	return &Service{
		store:         store,
		storage:       blobs,
		prober:        cfg.Prober,
		maxUploadSize: cfg.MaxUploadSize,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		now:           time.Now,
	}
}

func (s *Service) MaxUploadSize() int64 {
	return s.maxUploadSize
}

type UploadRequest struct {
	Title       string
	File        io.Reader
	Filename    string
	ContentType string
	Size        int64
	Uploader    string
	// BaseURL is scheme://host of the incoming request.
	BaseURL string
}

func (s *Service) List(ctx context.Context) ([]models.Video, error) {
	videos, err := s.store.List(ctx)
	if err != nil {
		return nil, &Error{Kind: KindStorage, Op: "list", Message: "Failed to fetch videos", Err: err}
	}
	return videos, nil
}

// Upload validates the request, writes the blob and only then appends the
// record, so a failure can leave a stray blob but never a dangling record.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (models.Video, error) {
	const op = "upload"

	if req.File == nil {
		return models.Video{}, validationError(op, "No video file provided")
	}
	format, ok := FormatFor(req.ContentType)
	if !ok {
		return models.Video{}, validationError(op, "Only video files are allowed!")
	}
	if req.Size > s.maxUploadSize {
		return models.Video{}, validationError(op, fmt.Sprintf("Video exceeds the maximum size of %d bytes", s.maxUploadSize))
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return models.Video{}, validationError(op, "Video title is required")
	}

	now := s.now().UTC()
	name := FileName(now, title, format)

	body := &limitedReader{r: req.File, remaining: s.maxUploadSize}
	err := s.storage.SaveFile(ctx, name, body, storage.FileInfo{
		Filename:    req.Filename,
		ContentType: req.ContentType,
		Size:        req.Size,
	})
	if err != nil {
		if body.exceeded {
			return models.Video{}, validationError(op, fmt.Sprintf("Video exceeds the maximum size of %d bytes", s.maxUploadSize))
		}
		return models.Video{}, blobError(op, "Failed to upload video", err)
	}

	baseURL := s.publicBaseURL
	if baseURL == "" {
		baseURL = req.BaseURL
	}

	video := models.NewVideo(title, name, s.storage.URL(name, baseURL), req.Uploader, format, s.duration(ctx, name))
	video.CreatedAt = now

	if err := s.store.Append(ctx, *video); err != nil {
		if cleanupErr := s.storage.DeleteFile(context.WithoutCancel(ctx), name); cleanupErr != nil {
			log.Warn().Err(cleanupErr).Str("location_id", name).Msg("Failed to remove blob after metadata append failure")
		}
		return models.Video{}, &Error{Kind: KindStorage, Op: op, Message: "Failed to upload video", Err: err}
	}

	log.Info().
		Str("id", video.ID).
		Str("location_id", name).
		Str("uploader", req.Uploader).
		Int64("size", req.Size).
		Msg("Video uploaded")
	return *video, nil
}

// RecordView increments the view counter of the record with the given
// locationId and returns the new count.
func (s *Service) RecordView(ctx context.Context, locationID string) (int64, error) {
	const op = "view"

	updated, err := s.store.Update(ctx, locationID, func(v *models.Video) error {
		if v.Views < 0 {
			v.Views = 0
		}
		v.Views++
		return nil
	})
	if err != nil {
		if errors.Is(err, metadata.ErrNotFound) {
			return 0, &Error{Kind: KindNotFound, Op: op, Message: "Video not found", Err: err}
		}
		return 0, &Error{Kind: KindStorage, Op: op, Message: "Failed to increment view count", Err: err}
	}
	return updated.Views, nil
}

// Delete removes the blob first and the record second. If the blob cannot be
// removed the record is left in place. It reports whether a record matched.
func (s *Service) Delete(ctx context.Context, locationID string) (bool, error) {
	const op = "delete"

	if locationID == "" || strings.Contains(locationID, "..") || strings.ContainsAny(locationID, `/\`) {
		return false, validationError(op, "Invalid video identifier")
	}

	if err := s.storage.DeleteFile(ctx, locationID); err != nil {
		return false, blobError(op, "Failed to delete video", err)
	}

	removed, err := s.store.RemoveByKey(ctx, locationID)
	if err != nil {
		return false, &Error{Kind: KindStorage, Op: op, Message: "Failed to delete video", Err: err}
	}

	log.Info().Str("location_id", locationID).Bool("matched", removed).Msg("Video deleted")
	return removed, nil
}

func (s *Service) duration(ctx context.Context, name string) float64 {
	if s.prober == nil {
		return 0
	}
	path, ok := s.storage.LocalPath(name)
	if !ok {
		return 0
	}
	d, err := s.prober.Duration(ctx, path)
	if err != nil {
		log.Warn().Err(err).Str("location_id", name).Msg("Failed to probe video duration")
		return 0
	}
	return d
}

func blobError(op, msg string, err error) error {
	var upstream *storage.UpstreamError
	if errors.As(err, &upstream) {
		return &Error{Kind: KindUpstream, Op: op, Message: msg, Err: err}
	}
	return &Error{Kind: KindStorage, Op: op, Message: msg, Err: err}
}

var errTooLarge = errors.New("payload exceeds maximum upload size")

// limitedReader fails once more than remaining bytes have been read.
type limitedReader struct {
	r         io.Reader
	remaining int64
	exceeded  bool
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		l.exceeded = true
		return 0, errTooLarge
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		l.exceeded = true
		return n, errTooLarge
	}
	return n, err
}
