package httpapi

import (
	"database/sql"
	"log/slog"
	"net/http"
	"os"

	"github.com/Fellisss/Weather1/internal/metrics"
)

// NewMux registers the service routes shared by every feature: health,
// Prometheus metrics, and static assets when staticDir exists.
func NewMux(db *sql.DB, staticDir string, m *metrics.Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db)
	if m != nil {
		mux.Handle("GET /metrics", m.Handler())
	}
	if staticDir != "" {
		if info, err := os.Stat(staticDir); err == nil && info.IsDir() {
			mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
		} else {
			slog.Warn("static dir not found, /static/ disabled", "dir", staticDir)
		}
	}
	return mux
}
