package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/fdk/resource-service/internal/api/types"
	"github.com/fdk/resource-service/internal/ingest"
	"github.com/fdk/resource-service/internal/models"
	appErr "github.com/fdk/resource-service/pkg/errors"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func resourceRouter(h *ResourcesHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/v1/resources", h.List)
	r.Get("/v1/resources/by-uri", h.ByURI)
	r.Get("/v1/resources/{id}", h.Get)
	return r
}

func TestGetResource(t *testing.T) {
	svc := new(mockResourceService)
	svc.On("GetResource", mock.Anything, "ds-1").
		Return(&models.Resource{ID: "ds-1", ResourceType: models.ResourceTypeDataset, Deleted: true, Timestamp: 7}, nil)
	svc.On("GetResource", mock.Anything, "nope").Return(nil, appErr.New(appErr.CodeNotFound, "resource not found"))
	h := resourceRouter(NewResourcesHandler(svc))

	rr := serve(h, http.MethodGet, "/v1/resources/ds-1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	got, _ := decode[models.Resource](t, rr)
	assert.True(t, got.Deleted)
	assert.Equal(t, int64(7), got.Timestamp)

	rr = serve(h, http.MethodGet, "/v1/resources/nope", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
	_, env := decode[any](t, rr)
	assert.Equal(t, "not_found", env.Error.Code)
}

func TestListResources(t *testing.T) {
	svc := new(mockResourceService)
	svc.On("ListResources", mock.Anything, models.ResourceTypeConcept).
		Return([]models.Resource{{ID: "c-1"}, {ID: "c-2"}}, nil).Once()
	h := resourceRouter(NewResourcesHandler(svc))

	rr := serve(h, http.MethodGet, "/v1/resources?type=concept", "")
	require.Equal(t, http.StatusOK, rr.Code)
	list, env := decode[[]models.Resource](t, rr)
	assert.Len(t, list, 2)
	assert.Equal(t, int64(2), env.Meta.Total)

	require.Equal(t, http.StatusBadRequest, serve(h, http.MethodGet, "/v1/resources?type=unicorn", "").Code)
	require.Equal(t, http.StatusBadRequest, serve(h, http.MethodGet, "/v1/resources", "").Code)
	svc.AssertExpectations(t)
}

func TestResourceByURI(t *testing.T) {
	svc := new(mockResourceService)
	ds := models.ResourceTypeDataService
	svc.On("GetResourceByURI", mock.Anything, "https://example.org/api", &ds).
		Return(&models.Resource{ID: "api-1", ResourceType: ds}, nil).Once()
	svc.On("GetResourceByURI", mock.Anything, "", (*models.ResourceType)(nil)).
		Return(nil, appErr.New(appErr.CodeInvalid, "uri is required")).Once()
	h := resourceRouter(NewResourcesHandler(svc))

	rr := serve(h, http.MethodGet, "/v1/resources/by-uri?uri=https://example.org/api&type=DATA_SERVICE", "")
	require.Equal(t, http.StatusOK, rr.Code)
	got, _ := decode[models.Resource](t, rr)
	assert.Equal(t, "api-1", got.ID)

	require.Equal(t, http.StatusBadRequest, serve(h, http.MethodGet, "/v1/resources/by-uri", "").Code)
	require.Equal(t, http.StatusBadRequest, serve(h, http.MethodGet, "/v1/resources/by-uri?uri=x&type=bad", "").Code)
	svc.AssertExpectations(t)
}

func TestCircuitBreakerAdmin(t *testing.T) {
	admin := &fakeAdmin{status: []ingest.BreakerStatus{{Name: ingest.BreakerDataset, State: ingest.StateOpen}}, open: true}
	h := NewCircuitBreakersHandler(admin)
	r := chi.NewRouter()
	r.Get("/status", h.Status)
	r.Post("/pause", h.Pause)
	r.Post("/resume", h.Resume)

	rr := serve(r, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, rr.Code)
	status, _ := decode[[]ingest.BreakerStatus](t, rr)
	require.Len(t, status, 1)
	assert.Equal(t, ingest.StateOpen, status[0].State)

	rr = serve(r, http.MethodPost, "/pause", "")
	got, _ := decode[types.ListenersResponse](t, rr)
	assert.True(t, got.Paused)

	rr = serve(r, http.MethodPost, "/resume", "")
	got, _ = decode[types.ListenersResponse](t, rr)
	assert.True(t, got.Paused, "open breaker keeps listeners paused")

	admin.open = false
	rr = serve(r, http.MethodPost, "/resume", "")
	got, _ = decode[types.ListenersResponse](t, rr)
	assert.False(t, got.Paused)
}

func TestHealthEndpoints(t *testing.T) {
	healthy := NewHealthHandler(pingFunc(func(context.Context) error { return nil }))
	rr := serve(http.HandlerFunc(healthy.Liveness), http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rr.Code)
	rr = serve(http.HandlerFunc(healthy.Readiness), http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusOK, rr.Code)

	down := NewHealthHandler(pingFunc(func(context.Context) error { return errors.New("connection refused") }))
	rr = serve(http.HandlerFunc(down.Readiness), http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	_, env := decode[any](t, rr)
	assert.Equal(t, "unavailable", env.Error.Code)
}
