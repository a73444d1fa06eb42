package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kdimtricp/vidportal/internal/api"
	"github.com/kdimtricp/vidportal/internal/auth"
	"github.com/kdimtricp/vidportal/internal/config"
	"github.com/kdimtricp/vidportal/internal/database"
	"github.com/kdimtricp/vidportal/internal/metadata"
	"github.com/kdimtricp/vidportal/internal/probe"
	"github.com/kdimtricp/vidportal/internal/storage"
	"github.com/kdimtricp/vidportal/internal/videos"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	setupLogging(cfg.Log)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, ping, err := openMetadata(cfg.Metadata)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open metadata store")
	}
	defer store.Close()

	blobs, uploadDir, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage")
	}

	verifier, err := auth.ParseStaticTokens(cfg.Auth.Tokens)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid AUTH_TOKENS")
	}
	if verifier.Len() == 0 {
		log.Warn().Msg("No auth tokens configured, protected routes will reject every request")
	}

	svcCfg := videos.Config{
		MaxUploadSize: cfg.Upload.MaxSize,
		PublicBaseURL: cfg.Server.PublicBaseURL,
	}
	if cfg.Upload.ProbeDuration {
		prober, err := probe.NewFFProbe()
		if err != nil {
			log.Warn().Err(err).Msg("Duration probing disabled")
		} else {
			svcCfg.Prober = prober
		}
	}

	app := &api.App{
		Videos:      videos.NewService(store, blobs, svcCfg),
		Verifier:    verifier,
		Ping:        ping,
		UploadDir:   uploadDir,
		FrontendDir: cfg.Server.FrontendDir,
		CORSOrigins: cfg.Server.CORSAllowedOrigins,
	}

	if list, err := store.List(ctx); err == nil {
		api.SetVideoCount(len(list))
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.NewRouter(app),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("metadata", cfg.Metadata.Backend).
			Str("storage", cfg.Storage.Backend).
			Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping HTTP server")
	} else {
		log.Info().Msg("HTTP server stopped")
	}
	cancel()
}

func setupLogging(cfg config.LogConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func openMetadata(cfg config.MetadataConfig) (metadata.Store, func(context.Context) error, error) {
	switch cfg.Backend {
	case "sqlite":
		db, err := database.NewDB(database.Config{SQLitePath: cfg.DBPath})
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("path", cfg.DBPath).Msg("Using SQLite metadata store")
		return sqliteStore{database.NewVideoRepository(db), db}, db.Ping, nil
	default:
		store, err := metadata.NewJSONStore(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("path", store.Path()).Msg("Using JSON metadata store")
		return store, nil, nil
	}
}

// openStorage returns the blob store and, for the local backend, the
// directory served under /uploads.
func openStorage(ctx context.Context, cfg config.StorageConfig) (storage.Storage, string, error) {
	switch cfg.Backend {
	case "s3":
		blobs, err := storage.NewMinioStorage(ctx, storage.S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
			PublicURL: cfg.S3PublicURL,
		})
		if err != nil {
			return nil, "", err
		}
		log.Info().Str("endpoint", cfg.S3Endpoint).Str("bucket", cfg.S3Bucket).Msg("Using S3 storage")
		return blobs, "", nil
	default:
		blobs, err := storage.NewLocalStorage(cfg.UploadDir)
		if err != nil {
			return nil, "", err
		}
		log.Info().Str("dir", blobs.BasePath()).Msg("Using local storage")
		return blobs, blobs.BasePath(), nil
	}
}

// sqliteStore closes the underlying database along with the repository.
type sqliteStore struct {
	*database.VideoRepository
	db *database.DB
}

func (s sqliteStore) Close() error {
	return s.db.Close()
}
