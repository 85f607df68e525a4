package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fdk/resource-service/internal/api/types"
	"github.com/fdk/resource-service/internal/models"
	appErr "github.com/fdk/resource-service/pkg/errors"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func unionGraphRouter(h *UnionGraphsHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/v1/union-graphs", h.Create)
	r.Get("/v1/union-graphs", h.List)
	r.Get("/v1/union-graphs/{id}/status", h.Status)
	r.Get("/v1/union-graphs/{id}/graph", h.Graph)
	r.Post("/v1/union-graphs/{id}/reset", h.Reset)
	r.Delete("/v1/union-graphs/{id}", h.Delete)
	return r
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) (T, types.APIResponse) {
	t.Helper()
	var raw struct {
		types.APIResponse
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw))
	var data T
	if len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, &data))
	}
	return data, raw.APIResponse
}

func sampleOrder(t *testing.T, status models.OrderStatus) *models.UnionGraphOrder {
	t.Helper()
	yes := true
	o, err := models.NewOrder("order-1", models.OrderConfig{
		ResourceTypes:   []models.ResourceType{models.ResourceTypeDataset},
		UpdateTTLHours:  24,
		ResourceFilters: &models.ResourceFilters{Dataset: &models.DatasetFilters{IsOpenData: &yes}},
	}, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	o.Status = status
	return o
}

func TestCreateUnionGraph(t *testing.T) {
	svc := new(mockOrderService)
	order := sampleOrder(t, models.OrderStatusPending)
	svc.On("CreateOrder", mock.Anything, mock.MatchedBy(func(cfg models.OrderConfig) bool {
		return len(cfg.ResourceTypes) == 1 && cfg.ResourceTypes[0] == models.ResourceTypeDataset &&
			cfg.UpdateTTLHours == 24 && cfg.ResourceFilters != nil && *cfg.ResourceFilters.Dataset.IsOpenData
	})).Return(order, true, nil).Once()
	h := unionGraphRouter(NewUnionGraphsHandler(svc, UnionGraphFeatures{}))

	rr := serve(h, http.MethodPost, "/v1/union-graphs",
		`{"resourceTypes":["dataset","UNICORN"],"updateTtlHours":24,"resourceFilters":{"dataset":{"isOpenData":true}}}`)

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "/v1/union-graphs/order-1", rr.Header().Get("Location"))
	got, env := decode[types.UnionGraphResponse](t, rr)
	assert.True(t, env.Success)
	assert.Equal(t, "order-1", got.ID)
	assert.Equal(t, models.OrderStatusPending, got.Status)
	assert.Equal(t, []models.ResourceType{models.ResourceTypeDataset}, got.ResourceTypes)
	assert.True(t, *got.ResourceFilters.Dataset.IsOpenData)
	svc.AssertExpectations(t)
}

func TestCreateUnionGraphExistingConflicts(t *testing.T) {
	svc := new(mockOrderService)
	svc.On("CreateOrder", mock.Anything, models.OrderConfig{}).
		Return(sampleOrder(t, models.OrderStatusCompleted), false, nil).Once()
	h := unionGraphRouter(NewUnionGraphsHandler(svc, UnionGraphFeatures{}))

	rr := serve(h, http.MethodPost, "/v1/union-graphs", "")

	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "/v1/union-graphs/order-1", rr.Header().Get("Location"))
	got, _ := decode[types.UnionGraphResponse](t, rr)
	assert.Equal(t, models.OrderStatusCompleted, got.Status)
}

func TestCreateUnionGraphValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"resourceTypes":`},
		{"ttl too short", `{"updateTtlHours":3}`},
		{"negative ttl", `{"updateTtlHours":-5}`},
		{"plain http webhook", `{"webhookUrl":"http://example.org/hook"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockOrderService)
			h := unionGraphRouter(NewUnionGraphsHandler(svc, UnionGraphFeatures{}))
			rr := serve(h, http.MethodPost, "/v1/union-graphs", tt.body)
			require.Equal(t, http.StatusBadRequest, rr.Code)
			_, env := decode[any](t, rr)
			assert.Equal(t, "invalid", env.Error.Code)
			svc.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateUnionGraphServiceRejects(t *testing.T) {
	svc := new(mockOrderService)
	svc.On("CreateOrder", mock.Anything, mock.Anything).
		Return(nil, false, appErr.New(appErr.CodeInvalid, "dataset filters require DATASET")).Once()
	h := unionGraphRouter(NewUnionGraphsHandler(svc, UnionGraphFeatures{}))

	rr := serve(h, http.MethodPost, "/v1/union-graphs", `{"resourceTypes":["CONCEPT"],"resourceFilters":{"dataset":{"isOpenData":true}}}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListUnionGraphs(t *testing.T) {
	svc := new(mockOrderService)
	completed := models.OrderStatusCompleted
	svc.On("ListOrders", mock.Anything, (*models.OrderStatus)(nil)).
		Return([]models.UnionGraphOrder{*sampleOrder(t, models.OrderStatusPending)}, nil).Once()
	svc.On("ListOrders", mock.Anything, &completed).Return([]models.UnionGraphOrder{}, nil).Once()
	h := unionGraphRouter(NewUnionGraphsHandler(svc, UnionGraphFeatures{}))

	rr := serve(h, http.MethodGet, "/v1/union-graphs", "")
	require.Equal(t, http.StatusOK, rr.Code)
	list, env := decode[[]types.UnionGraphResponse](t, rr)
	assert.Len(t, list, 1)
	assert.Equal(t, int64(1), env.Meta.Total)

	rr = serve(h, http.MethodGet, "/v1/union-graphs?status=completed", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = serve(h, http.MethodGet, "/v1/union-graphs?status=DONE", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertExpectations(t)
}

func TestUnionGraphStatusAndGraph(t *testing.T) {
	svc := new(mockOrderService)
	pending := sampleOrder(t, models.OrderStatusPending)
	completed := sampleOrder(t, models.OrderStatusCompleted)
	completed.ID = "order-2"
	completed.GraphJSONLD = []byte(`{"@graph":[{"@id":"https://example.org/1"}]}`)
	svc.On("GetOrder", mock.Anything, "order-1").Return(pending, nil)
	svc.On("GetOrder", mock.Anything, "order-2").Return(completed, nil)
	svc.On("GetOrder", mock.Anything, "missing").Return(nil, appErr.New(appErr.CodeNotFound, "order not found"))
	h := unionGraphRouter(NewUnionGraphsHandler(svc, UnionGraphFeatures{}))

	rr := serve(h, http.MethodGet, "/v1/union-graphs/order-1/status", "")
	require.Equal(t, http.StatusOK, rr.Code)
	got, _ := decode[types.UnionGraphResponse](t, rr)
	assert.Equal(t, models.OrderStatusPending, got.Status)
	assert.Nil(t, got.ProcessedAt)

	rr = serve(h, http.MethodGet, "/v1/union-graphs/order-1/graph", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(h, http.MethodGet, "/v1/union-graphs/order-2/graph", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/ld+json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"@graph":[{"@id":"https://example.org/1"}]}`, rr.Body.String())

	rr = serve(h, http.MethodGet, "/v1/union-graphs/missing/status", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUnionGraphContentNegotiation(t *testing.T) {
	svc := new(mockOrderService)
	completed := sampleOrder(t, models.OrderStatusCompleted)
	completed.GraphJSONLD = []byte(`{"@graph":[{"@id":"https://example.org/datasets/1",` +
		`"@type":["http://www.w3.org/ns/dcat#Dataset"],` +
		`"http://purl.org/dc/terms/title":[{"@value":"Bysykkel","@language":"nb"}]}]}`)
	svc.On("GetOrder", mock.Anything, "order-1").Return(completed, nil)
	h := unionGraphRouter(NewUnionGraphsHandler(svc, UnionGraphFeatures{}))

	get := func(accept string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/union-graphs/order-1/graph", nil)
		if accept != "" {
			req.Header.Set("Accept", accept)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	for _, accept := range []string{"", "*/*", "application/ld+json", "application/json"} {
		rr := get(accept)
		require.Equal(t, http.StatusOK, rr.Code, accept)
		assert.Equal(t, "application/ld+json", rr.Header().Get("Content-Type"), accept)
		assert.JSONEq(t, string(completed.GraphJSONLD), rr.Body.String(), accept)
	}

	rr := get("text/turtle")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/turtle", rr.Header().Get("Content-Type"))
	assert.Equal(t, "Accept", rr.Header().Get("Vary"))
	assert.Contains(t, rr.Body.String(), "@prefix dcat:")
	assert.Contains(t, rr.Body.String(), "dcat:Dataset")
	assert.Contains(t, rr.Body.String(), `"Bysykkel"@nb`)

	rr = get("application/n-triples")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/n-triples", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(),
		"<https://example.org/datasets/1> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://www.w3.org/ns/dcat#Dataset> .\n")
	assert.Contains(t, rr.Body.String(),
		"<https://example.org/datasets/1> <http://purl.org/dc/terms/title> \"Bysykkel\"@nb .\n")

	rr = get("application/ld+json;q=0.1, text/turtle")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/turtle", rr.Header().Get("Content-Type"))

	for _, accept := range []string{"application/rdf+xml", "text/html"} {
		rr := get(accept)
		require.Equal(t, http.StatusNotAcceptable, rr.Code, accept)
		_, env := decode[any](t, rr)
		require.NotNil(t, env.Error)
		assert.Equal(t, string(appErr.CodeNotAcceptable), env.Error.Code)
	}
	svc.AssertNumberOfCalls(t, "GetOrder", 7)
}

func TestUnionGraphResetAndDeleteAreFeatureFlagged(t *testing.T) {
	svc := new(mockOrderService)
	disabled := unionGraphRouter(NewUnionGraphsHandler(svc, UnionGraphFeatures{}))

	require.Equal(t, http.StatusForbidden, serve(disabled, http.MethodPost, "/v1/union-graphs/order-1/reset", "").Code)
	require.Equal(t, http.StatusForbidden, serve(disabled, http.MethodDelete, "/v1/union-graphs/order-1", "").Code)
	svc.AssertNotCalled(t, "ResetOrder", mock.Anything, mock.Anything)

	svc.On("ResetOrder", mock.Anything, "order-1").Return(sampleOrder(t, models.OrderStatusPending), nil).Once()
	svc.On("ResetOrder", mock.Anything, "missing").Return(nil, appErr.New(appErr.CodeNotFound, "order not found")).Once()
	svc.On("DeleteOrder", mock.Anything, "order-1").Return(nil).Once()
	svc.On("DeleteOrder", mock.Anything, "missing").Return(appErr.New(appErr.CodeNotFound, "order not found")).Once()
	enabled := unionGraphRouter(NewUnionGraphsHandler(svc, UnionGraphFeatures{ResetEnabled: true, DeleteEnabled: true}))

	assert.Equal(t, http.StatusOK, serve(enabled, http.MethodPost, "/v1/union-graphs/order-1/reset", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(enabled, http.MethodPost, "/v1/union-graphs/missing/reset", "").Code)
	assert.Equal(t, http.StatusNoContent, serve(enabled, http.MethodDelete, "/v1/union-graphs/order-1", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(enabled, http.MethodDelete, "/v1/union-graphs/missing", "").Code)
	svc.AssertExpectations(t)
}
