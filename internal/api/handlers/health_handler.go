package handlers

import (
	"context"
	"net/http"
	"time"

	appErr "github.com/fdk/resource-service/pkg/errors"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	db Pinger
}

// NewHealthHandler takes the database handle readiness depends on. A nil db is always ready.
func NewHealthHandler(db Pinger) *HealthHandler { return &HealthHandler{db: db} }

// Liveness godoc
// @Summary  Liveness probe
// @Tags     health
// @Produce  json
// @Success  200  {object}  types.APIResponse
// @Router   /healthz [get]
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeData(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness godoc
// @Summary  Readiness probe
// @Description  Ready when the database answers a ping.
// @Tags     health
// @Produce  json
// @Success  200  {object}  types.APIResponse
// @Failure  503  {object}  types.APIResponse
// @Router   /readyz [get]
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			writeError(w, r, appErr.Wrap(err, appErr.CodeUnavailable, "database unavailable"))
			return
		}
	}
	writeData(w, r, http.StatusOK, map[string]string{"status": "ready"})
}
