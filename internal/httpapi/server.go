package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Fellisss/Weather1/internal/config"
	"github.com/Fellisss/Weather1/internal/metrics"
	"github.com/Fellisss/Weather1/internal/utils"
)

func NewServer(cfg config.Config, mux *http.ServeMux, m *metrics.Metrics, logger *slog.Logger) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           Handler(mux, m, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Handler wraps mux with the request middleware chain. Unsafe requests a
// browser marks as cross-origin are refused with 403 before reaching mux.
func Handler(mux *http.ServeMux, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return withRequestID(requestLogger(logger, m, recoverer(logger, crossOriginGuard(logger, mux))))
}

func crossOriginGuard(logger *slog.Logger, next http.Handler) http.Handler {
	cop := http.NewCrossOriginProtection()
	cop.SetDenyHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.WarnContext(r.Context(), "cross-origin request rejected",
			"method", r.Method,
			"path", r.URL.Path,
			"origin", r.Header.Get("Origin"),
			"sec_fetch_site", r.Header.Get("Sec-Fetch-Site"),
		)
		utils.WriteError(w, http.StatusForbidden, "cross-origin request rejected")
	}))
	return cop.Handler(next)
}
