package videos

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdimtricp/vidportal/internal/metadata"
	"github.com/kdimtricp/vidportal/internal/models"
	"github.com/kdimtricp/vidportal/internal/storage"
)

type testEnv struct {
	svc       *Service
	store     *metadata.JSONStore
	blobs     *storage.LocalStorage
	uploadDir string
}

func setupService(t *testing.T, cfg Config) *testEnv {
	t.Helper()
	dir := t.TempDir()

	store, err := metadata.NewJSONStore(filepath.Join(dir, "data", "videos.json"))
	require.NoError(t, err)

	uploadDir := filepath.Join(dir, "uploads")
	blobs, err := storage.NewLocalStorage(uploadDir)
	require.NoError(t, err)

	return &testEnv{
		svc:       NewService(store, blobs, cfg),
		store:     store,
		blobs:     blobs,
		uploadDir: uploadDir,
	}
}

func uploadRequest(title string, content []byte) UploadRequest {
	return UploadRequest{
		Title:       title,
		File:        bytes.NewReader(content),
		Filename:    "clip.mp4",
		ContentType: "video/mp4",
		Size:        int64(len(content)),
		Uploader:    "admin_1",
		BaseURL:     "http://localhost:10000",
	}
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0
	}
	require.NoError(t, err)
	return len(entries)
}

type stubProber struct {
	duration float64
	err      error
}

func (p stubProber) Duration(ctx context.Context, path string) (float64, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, err
	}
	return p.duration, p.err
}

func TestService_TownHallScenario(t *testing.T) {
	env := setupService(t, Config{})
	ctx := context.Background()

	content := bytes.Repeat([]byte{0x42}, 5<<20)
	video, err := env.svc.Upload(ctx, uploadRequest("Town Hall", content))
	require.NoError(t, err)
	assert.Equal(t, "Town Hall", video.Title)
	assert.Equal(t, int64(0), video.Views)
	assert.Equal(t, "mp4", video.Format)
	assert.Equal(t, "admin_1", video.Uploader)
	assert.Equal(t, "http://localhost:10000/uploads/"+video.LocationID, video.URL)

	blobPath := filepath.Join(env.uploadDir, video.LocationID)
	stored, err := os.ReadFile(blobPath)
	require.NoError(t, err)
	assert.Equal(t, len(content), len(stored))

	views, err := env.svc.RecordView(ctx, video.LocationID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), views)
	views, err = env.svc.RecordView(ctx, video.LocationID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), views)

	removed, err := env.svc.Delete(ctx, video.LocationID)
	require.NoError(t, err)
	assert.True(t, removed)

	list, err := env.svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	_, err = os.Stat(blobPath)
	assert.True(t, os.IsNotExist(err))
}

func TestService_UploadValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *UploadRequest)
		message string
	}{
		{
			name:    "missing file",
			mutate:  func(r *UploadRequest) { r.File = nil },
			message: "No video file provided",
		},
		{
			name:    "missing title",
			mutate:  func(r *UploadRequest) { r.Title = "" },
			message: "Video title is required",
		},
		{
			name:    "blank title",
			mutate:  func(r *UploadRequest) { r.Title = "   " },
			message: "Video title is required",
		},
		{
			name:    "non-video media type",
			mutate:  func(r *UploadRequest) { r.ContentType = "image/png" },
			message: "Only video files are allowed!",
		},
		{
			name:   "declared size over limit",
			mutate: func(r *UploadRequest) { r.Size = 101 << 20 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupService(t, Config{})
			ctx := context.Background()

			req := uploadRequest("Valid", []byte("data"))
			tt.mutate(&req)

			_, err := env.svc.Upload(ctx, req)
			require.Error(t, err)
			assert.Equal(t, KindValidation, KindOf(err))
			if tt.message != "" {
				assert.Equal(t, tt.message, PublicMessage(err))
			}

			list, err := env.store.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, list)
			assert.Equal(t, 0, countFiles(t, env.uploadDir))
		})
	}
}

func TestService_UploadBodyOverLimit(t *testing.T) {
	env := setupService(t, Config{MaxUploadSize: 1024})
	ctx := context.Background()

	req := uploadRequest("Too Big", bytes.Repeat([]byte("x"), 4096))
	req.Size = 0 // undeclared

	_, err := env.svc.Upload(ctx, req)
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Equal(t, 0, countFiles(t, env.uploadDir))
}

func TestService_UploadAtLimit(t *testing.T) {
	env := setupService(t, Config{MaxUploadSize: 1024})

	_, err := env.svc.Upload(context.Background(), uploadRequest("Exact", bytes.Repeat([]byte("x"), 1024)))
	require.NoError(t, err)
}

func TestService_UploadUsesPublicBaseURL(t *testing.T) {
	env := setupService(t, Config{PublicBaseURL: "https://videos.example.com/"})

	video, err := env.svc.Upload(context.Background(), uploadRequest("Demo", []byte("data")))
	require.NoError(t, err)
	assert.Equal(t, "https://videos.example.com/uploads/"+video.LocationID, video.URL)
}

func TestService_UploadProbesDuration(t *testing.T) {
	env := setupService(t, Config{Prober: stubProber{duration: 42.5}})

	video, err := env.svc.Upload(context.Background(), uploadRequest("Demo", []byte("data")))
	require.NoError(t, err)
	assert.Equal(t, 42.5, video.Duration)

	env = setupService(t, Config{Prober: stubProber{err: errors.New("no ffprobe")}})
	video, err = env.svc.Upload(context.Background(), uploadRequest("Demo", []byte("data")))
	require.NoError(t, err, "probe failures must not fail the upload")
	assert.Equal(t, 0.0, video.Duration)
}

type failingStore struct {
	metadata.Store
	appendErr error
	removeErr error
}

func (f *failingStore) Append(ctx context.Context, v models.Video) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	return f.Store.Append(ctx, v)
}

func (f *failingStore) RemoveByKey(ctx context.Context, key string) (bool, error) {
	if f.removeErr != nil {
		return false, f.removeErr
	}
	return f.Store.RemoveByKey(ctx, key)
}

func TestService_UploadAppendFailureRemovesBlob(t *testing.T) {
	env := setupService(t, Config{})
	svc := NewService(&failingStore{Store: env.store, appendErr: errors.New("disk full")}, env.blobs, Config{})

	_, err := svc.Upload(context.Background(), uploadRequest("Demo", []byte("data")))
	require.Error(t, err)
	assert.Equal(t, KindStorage, KindOf(err))
	assert.Equal(t, "Failed to upload video", PublicMessage(err))
	assert.Equal(t, 0, countFiles(t, env.uploadDir))
}

type failingBlobs struct {
	storage.Storage
	saveErr   error
	deleteErr error
}

func (f *failingBlobs) SaveFile(ctx context.Context, name string, r io.Reader, info storage.FileInfo) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.Storage.SaveFile(ctx, name, r, info)
}

func (f *failingBlobs) DeleteFile(ctx context.Context, name string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.Storage.DeleteFile(ctx, name)
}

func TestService_UploadBlobFailureCreatesNoRecord(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind Kind
	}{
		{"local disk", errors.New("read-only file system"), KindStorage},
		{"object store", &storage.UpstreamError{Op: "put", Err: errors.New("503")}, KindUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupService(t, Config{})
			svc := NewService(env.store, &failingBlobs{Storage: env.blobs, saveErr: tt.err}, Config{})

			_, err := svc.Upload(context.Background(), uploadRequest("Demo", []byte("data")))
			require.Error(t, err)
			assert.Equal(t, tt.kind, KindOf(err))

			list, err := env.store.List(context.Background())
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestService_RecordViewNotFound(t *testing.T) {
	env := setupService(t, Config{})

	_, err := env.svc.RecordView(context.Background(), "missing.mp4")
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestService_DeleteMissingIsIdempotent(t *testing.T) {
	env := setupService(t, Config{})
	ctx := context.Background()

	kept, err := env.svc.Upload(ctx, uploadRequest("Keep", []byte("data")))
	require.NoError(t, err)

	removed, err := env.svc.Delete(ctx, "missing.mp4")
	require.NoError(t, err)
	assert.False(t, removed)

	list, err := env.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, kept.LocationID, list[0].LocationID)
}

func TestService_DeleteBlobFailureKeepsRecord(t *testing.T) {
	env := setupService(t, Config{})
	ctx := context.Background()

	video, err := env.svc.Upload(ctx, uploadRequest("Keep", []byte("data")))
	require.NoError(t, err)

	svc := NewService(env.store, &failingBlobs{Storage: env.blobs, deleteErr: &storage.UpstreamError{Op: "remove", Err: errors.New("timeout")}}, Config{})
	_, err = svc.Delete(ctx, video.LocationID)
	require.Error(t, err)
	assert.Equal(t, KindUpstream, KindOf(err))

	_, ok, err := env.store.FindByKey(ctx, video.LocationID)
	require.NoError(t, err)
	assert.True(t, ok, "record must survive a failed blob delete")
}

func TestService_DeleteRejectsTraversal(t *testing.T) {
	env := setupService(t, Config{})

	_, err := env.svc.Delete(context.Background(), "../data/videos.json")
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestService_ConcurrentUploadsAndViews(t *testing.T) {
	env := setupService(t, Config{})
	ctx := context.Background()

	seed, err := env.svc.Upload(ctx, uploadRequest("Seed", []byte("data")))
	require.NoError(t, err)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := env.svc.Upload(ctx, uploadRequest("Same Title", []byte("data")))
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := env.svc.RecordView(ctx, seed.LocationID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	list, err := env.svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, n+1)
	assert.Equal(t, n+1, countFiles(t, env.uploadDir))

	got, ok, err := env.store.FindByKey(ctx, seed.LocationID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(n), got.Views)
}

func TestProperty_UploadAddsExactlyOneRecord(t *testing.T) {
	env := setupService(t, Config{MaxUploadSize: 1 << 16})
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	properties.Property("a valid upload grows the list by one with a matching title", prop.ForAll(
		func(title string, size int) bool {
			before, err := env.svc.List(ctx)
			if err != nil {
				return false
			}
			video, err := env.svc.Upload(ctx, uploadRequest(title, bytes.Repeat([]byte("v"), size)))
			if err != nil {
				return false
			}
			after, err := env.svc.List(ctx)
			if err != nil || len(after) != len(before)+1 {
				return false
			}
			last := after[len(after)-1]
			if _, err := os.Stat(filepath.Join(env.uploadDir, last.LocationID)); err != nil {
				return false
			}
			return last.Title == video.Title && last.URL == video.URL
		},
		gen.Identifier(),
		gen.IntRange(1, 4096),
	))

	properties.TestingRun(t)
}
