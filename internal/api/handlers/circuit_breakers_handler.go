package handlers

import (
	"net/http"

	"github.com/fdk/resource-service/internal/api/types"
	"github.com/fdk/resource-service/internal/ingest"
	"github.com/fdk/resource-service/pkg/logger"
)

// BreakerAdmin is the listener manager as seen by the admin endpoints.
type BreakerAdmin interface {
	Status() []ingest.BreakerStatus
	PauseAll()
	ResumeAll() bool
	Paused() bool
}

type CircuitBreakersHandler struct {
	admin BreakerAdmin
}

func NewCircuitBreakersHandler(admin BreakerAdmin) *CircuitBreakersHandler {
	return &CircuitBreakersHandler{admin: admin}
}

// Status godoc
// @Summary      Circuit breaker status
// @Description  State and call counts of every ingestion circuit breaker with its listeners.
// @Tags         admin
// @Produce      json
// @Success      200  {object}  types.APIResponse{data=[]ingest.BreakerStatus}
// @Security     ApiKeyAuth
// @Router       /v1/admin/circuit-breakers [get]
func (h *CircuitBreakersHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeData(w, r, http.StatusOK, h.admin.Status())
}

// Pause godoc
// @Summary      Pause all listeners
// @Tags         admin
// @Produce      json
// @Success      200  {object}  types.APIResponse{data=types.ListenersResponse}
// @Security     ApiKeyAuth
// @Router       /v1/admin/listeners/pause [post]
func (h *CircuitBreakersHandler) Pause(w http.ResponseWriter, r *http.Request) {
	logger.L().Warn("pausing all listeners on request")
	h.admin.PauseAll()
	writeData(w, r, http.StatusOK, types.ListenersResponse{Paused: h.admin.Paused()})
}

// Resume godoc
// @Summary      Resume all listeners
// @Description  Clears a manual pause. Listeners stay paused while any circuit breaker is OPEN.
// @Tags         admin
// @Produce      json
// @Success      200  {object}  types.APIResponse{data=types.ListenersResponse}
// @Security     ApiKeyAuth
// @Router       /v1/admin/listeners/resume [post]
func (h *CircuitBreakersHandler) Resume(w http.ResponseWriter, r *http.Request) {
	resumed := h.admin.ResumeAll()
	logger.L().Info("resume requested")
	writeData(w, r, http.StatusOK, types.ListenersResponse{Paused: !resumed})
}
