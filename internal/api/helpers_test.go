package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kdimtricp/vidportal/internal/auth"
	"github.com/kdimtricp/vidportal/internal/metadata"
	"github.com/kdimtricp/vidportal/internal/storage"
	"github.com/kdimtricp/vidportal/internal/videos"
)

const (
	adminToken = "admin-token"
	userToken  = "user-token"
)

type testServer struct {
	Server    *httptest.Server
	App       *App
	Store     *metadata.JSONStore
	UploadDir string
}

func setupTestServer(t *testing.T, cfg videos.Config) *testServer {
	t.Helper()
	dir := t.TempDir()

	store, err := metadata.NewJSONStore(filepath.Join(dir, "data", "videos.json"))
	require.NoError(t, err)

	uploadDir := filepath.Join(dir, "uploads")
	blobs, err := storage.NewLocalStorage(uploadDir)
	require.NoError(t, err)

	verifier, err := auth.ParseStaticTokens(adminToken + ":admin_1:admin," + userToken + ":user_1:user")
	require.NoError(t, err)

	app := &App{
		Videos:    videos.NewService(store, blobs, cfg),
		Verifier:  verifier,
		UploadDir: uploadDir,
	}
	server := httptest.NewServer(NewRouter(app))
	t.Cleanup(server.Close)

	return &testServer{Server: server, App: app, Store: store, UploadDir: uploadDir}
}

// multipartBody builds an upload form. An empty contentType omits the file part.
func multipartBody(t *testing.T, title, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if title != "" {
		require.NoError(t, writer.WriteField("title", title))
	}
	if contentType != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="video"; filename="clip.mp4"`)
		h.Set("Content-Type", contentType)
		part, err := writer.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func (ts *testServer) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, ts.Server.URL+path, body)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (ts *testServer) upload(t *testing.T, token, title string, content []byte) *http.Response {
	t.Helper()
	body, ct := multipartBody(t, title, "video/mp4", content)
	return ts.do(t, http.MethodPost, "/api/videos/upload", token, body, ct)
}

func decodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}
