package api

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// NotFoundHandler answers unknown routes. API paths get a JSON 404; other GET
// requests fall through to the single-page app when one is configured.
func (app *App) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api") || app.FrontendDir == "" || (r.Method != http.MethodGet && r.Method != http.MethodHead) {
		writeError(w, http.StatusNotFound, "API route not found")
		return
	}

	clean := path.Clean("/" + r.URL.Path)
	candidate := filepath.Join(app.FrontendDir, filepath.FromSlash(clean))
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		http.ServeFile(w, r, candidate)
		return
	}
	http.ServeFile(w, r, filepath.Join(app.FrontendDir, "index.html"))
}
