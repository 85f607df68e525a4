package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/fdk/resource-service/internal/api/types"
	"github.com/fdk/resource-service/internal/api/validators"
	"github.com/fdk/resource-service/internal/models"
	"github.com/fdk/resource-service/internal/rdf"
	"github.com/fdk/resource-service/internal/services"
	appErr "github.com/fdk/resource-service/pkg/errors"
	"github.com/fdk/resource-service/pkg/logger"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxRequestBody = 1 << 20

// UnionGraphFeatures switches the destructive endpoints on.
type UnionGraphFeatures struct {
	ResetEnabled  bool
	DeleteEnabled bool
}

type UnionGraphsHandler struct {
	orders   services.OrderService
	features UnionGraphFeatures
}

func NewUnionGraphsHandler(orders services.OrderService, features UnionGraphFeatures) *UnionGraphsHandler {
	return &UnionGraphsHandler{orders: orders, features: features}
}

// Create godoc
// @Summary      Create a union graph
// @Description  Creates a union graph order, or returns the existing order with the same configuration with 409. The graph is built in the background. updateTtlHours must be 0 or greater than 3 and webhookUrl must use https.
// @Tags         union-graphs
// @Accept       json
// @Produce      json
// @Param        request  body      types.CreateUnionGraphRequest  false  "Union graph configuration"
// @Success      201      {object}  types.APIResponse{data=types.UnionGraphResponse}
// @Failure      400      {object}  types.APIResponse
// @Failure      409      {object}  types.APIResponse{data=types.UnionGraphResponse}
// @Security     ApiKeyAuth
// @Router       /v1/union-graphs [post]
func (h *UnionGraphsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req types.CreateUnionGraphRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeErrorStr(w, http.StatusBadRequest, appErr.CodeInvalid, "invalid json")
		return
	}
	if err := validators.New().Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, types.APIResponse{Error: types.FromValidation(err)})
		return
	}

	cfg, unknown := req.Config()
	if len(unknown) > 0 {
		logger.L().Warn("ignoring unknown resource types", zap.Strings("resource_types", unknown))
	}

	order, created, err := h.orders.CreateOrder(r.Context(), cfg)
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusConflict
	}
	w.Header().Set("Location", "/v1/union-graphs/"+order.ID)
	writeData(w, r, status, types.NewUnionGraphResponse(order))
}

// List godoc
// @Summary      List union graphs
// @Description  Lists all union graph orders, newest first, without graph data.
// @Tags         union-graphs
// @Produce      json
// @Param        status  query     string  false  "Only orders with this status"  Enums(PENDING, PROCESSING, COMPLETED, FAILED)
// @Success      200     {object}  types.APIResponse{data=[]types.UnionGraphResponse}
// @Security     ApiKeyAuth
// @Router       /v1/union-graphs [get]
func (h *UnionGraphsHandler) List(w http.ResponseWriter, r *http.Request) {
	var status *models.OrderStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := models.OrderStatus(strings.ToUpper(s))
		if !st.Valid() {
			writeErrorStr(w, http.StatusBadRequest, appErr.CodeInvalid, "unknown status")
			return
		}
		status = &st
	}
	orders, err := h.orders.ListOrders(r.Context(), status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{
		Success: true,
		Data:    types.NewUnionGraphList(orders),
		Meta:    &types.Meta{Total: int64(len(orders))},
	})
}

// Status godoc
// @Summary      Get union graph status
// @Tags         union-graphs
// @Produce      json
// @Param        id   path      string  true  "Union graph ID"
// @Success      200  {object}  types.APIResponse{data=types.UnionGraphResponse}
// @Failure      404  {object}  types.APIResponse
// @Security     ApiKeyAuth
// @Router       /v1/union-graphs/{id}/status [get]
func (h *UnionGraphsHandler) Status(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, types.NewUnionGraphResponse(order))
}

// Graph godoc
// @Summary      Get union graph
// @Description  Returns the built graph. The Accept header selects JSON-LD (default), Turtle or N-Triples. The order must be COMPLETED.
// @Tags         union-graphs
// @Produce      application/ld+json
// @Produce      text/turtle
// @Produce      application/n-triples
// @Param        id   path      string  true  "Union graph ID"
// @Success      200  {object}  object
// @Failure      400  {object}  types.APIResponse
// @Failure      404  {object}  types.APIResponse
// @Failure      406  {object}  types.APIResponse
// @Router       /v1/union-graphs/{id}/graph [get]
func (h *UnionGraphsHandler) Graph(w http.ResponseWriter, r *http.Request) {
	format, ok := rdf.Negotiate(r.Header.Get("Accept"))
	if !ok {
		writeErrorStr(w, http.StatusNotAcceptable, appErr.CodeNotAcceptable,
			"supported formats: application/ld+json, text/turtle, application/n-triples")
		return
	}
	order, err := h.orders.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if order.Status != models.OrderStatusCompleted {
		writeErrorStr(w, http.StatusBadRequest, appErr.CodeInvalid, "graph is not yet completed, current status: "+string(order.Status))
		return
	}
	if len(order.GraphJSONLD) == 0 {
		writeErrorStr(w, http.StatusNotFound, appErr.CodeNotFound, "graph not found")
		return
	}

	var body bytes.Buffer
	if err := rdf.Encode(&body, order.GraphJSONLD, format); err != nil {
		logger.L().Error("failed to serialize union graph", zap.String("order_id", order.ID), zap.String("format", string(format)), zap.Error(err))
		writeErrorStr(w, http.StatusInternalServerError, appErr.CodeInternal, "failed to serialize graph")
		return
	}
	w.Header().Set("Content-Type", string(format))
	w.Header().Set("Vary", "Accept")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body.Bytes())
}

// Reset godoc
// @Summary      Reset union graph to PENDING
// @Description  Requeues an order from any status. Disabled unless UNION_GRAPH_RESET_ENABLED is set.
// @Tags         union-graphs
// @Produce      json
// @Param        id   path      string  true  "Union graph ID"
// @Success      200  {object}  types.APIResponse{data=types.UnionGraphResponse}
// @Failure      403  {object}  types.APIResponse
// @Failure      404  {object}  types.APIResponse
// @Security     ApiKeyAuth
// @Router       /v1/union-graphs/{id}/reset [post]
func (h *UnionGraphsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.features.ResetEnabled {
		logger.L().Warn("rejected reset, endpoint disabled", zap.String("order_id", id))
		writeErrorStr(w, http.StatusForbidden, appErr.CodeForbidden, "reset is disabled")
		return
	}
	order, err := h.orders.ResetOrder(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, types.NewUnionGraphResponse(order))
}

// Delete godoc
// @Summary      Delete union graph
// @Description  Permanently removes an order and its graph. Disabled unless UNION_GRAPH_DELETE_ENABLED is set.
// @Tags         union-graphs
// @Param        id   path  string  true  "Union graph ID"
// @Success      204
// @Failure      403  {object}  types.APIResponse
// @Failure      404  {object}  types.APIResponse
// @Security     ApiKeyAuth
// @Router       /v1/union-graphs/{id} [delete]
func (h *UnionGraphsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.features.DeleteEnabled {
		logger.L().Warn("rejected delete, endpoint disabled", zap.String("order_id", id))
		writeErrorStr(w, http.StatusForbidden, appErr.CodeForbidden, "delete is disabled")
		return
	}
	if err := h.orders.DeleteOrder(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
