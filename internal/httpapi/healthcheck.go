package httpapi

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/Fellisss/Weather1/internal/migrate"
	"github.com/Fellisss/Weather1/internal/utils"
)

type healthStatus struct {
	Status        string `json:"status"`
	SchemaVersion string `json:"schemaVersion"`
	Observations  int64  `json:"observations"`
}

// schemaHealth reports whether the database answers and carries the schema
// this binary was built with.
type schemaHealth struct {
	db     *sql.DB
	latest string
}

func (h *schemaHealth) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	version, err := migrate.Current(ctx, h.db)
	if err != nil {
		slog.ErrorContext(ctx, "failed to check database connectivity", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to check database connectivity")
		return
	}

	st := healthStatus{Status: "ok", SchemaVersion: version}
	if err := h.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM observations`).Scan(&st.Observations); err != nil {
		slog.ErrorContext(ctx, "failed to count observations", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to query observations")
		return
	}

	// A server started against an older database file cannot serve the
	// current routes.
	if version != h.latest {
		st.Status = "migrations pending"
		utils.WriteJSON(w, http.StatusServiceUnavailable, st)
		return
	}
	utils.WriteJSON(w, http.StatusOK, st)
}

func registerHealthcheck(mux *http.ServeMux, db *sql.DB) {
	latest, err := migrate.Latest()
	if err != nil {
		slog.Error("failed to read embedded migrations", "error", err)
	}
	h := &schemaHealth{db: db, latest: latest}
	mux.HandleFunc("GET /healthz", h.handleHealthz)
}
