package handlers

import (
	"net/http"

	"github.com/fdk/resource-service/internal/api/types"
	"github.com/fdk/resource-service/internal/models"
	"github.com/fdk/resource-service/internal/services"
	appErr "github.com/fdk/resource-service/pkg/errors"
	"github.com/go-chi/chi/v5"
)

type ResourcesHandler struct {
	resources services.ResourceService
}

func NewResourcesHandler(resources services.ResourceService) *ResourcesHandler {
	return &ResourcesHandler{resources: resources}
}

// Get godoc
// @Summary      Get a resource
// @Description  Returns a resource by id, including soft deleted ones.
// @Tags         resources
// @Produce      json
// @Param        id   path      string  true  "Resource id"
// @Success      200  {object}  types.APIResponse{data=models.Resource}
// @Failure      404  {object}  types.APIResponse
// @Router       /v1/resources/{id} [get]
func (h *ResourcesHandler) Get(w http.ResponseWriter, r *http.Request) {
	res, err := h.resources.GetResource(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, res)
}

// List godoc
// @Summary      List resources of a type
// @Tags         resources
// @Produce      json
// @Param        type  query     string  true  "Resource type"  Enums(CONCEPT, DATASET, DATA_SERVICE, INFORMATION_MODEL, SERVICE, EVENT)
// @Success      200   {object}  types.APIResponse{data=[]models.Resource}
// @Failure      400   {object}  types.APIResponse
// @Router       /v1/resources [get]
func (h *ResourcesHandler) List(w http.ResponseWriter, r *http.Request) {
	rt, err := models.ParseResourceType(r.URL.Query().Get("type"))
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, appErr.CodeInvalid, err.Error())
		return
	}
	items, err := h.resources.ListResources(r.Context(), rt)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: items, Meta: &types.Meta{Total: int64(len(items))}})
}

// ByURI godoc
// @Summary      Find a resource by URI
// @Description  Returns the active resource with the newest timestamp for the URI.
// @Tags         resources
// @Produce      json
// @Param        uri   query     string  true   "Resource URI"
// @Param        type  query     string  false  "Resource type"
// @Success      200   {object}  types.APIResponse{data=models.Resource}
// @Failure      400   {object}  types.APIResponse
// @Failure      404   {object}  types.APIResponse
// @Router       /v1/resources/by-uri [get]
func (h *ResourcesHandler) ByURI(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var rt *models.ResourceType
	if s := q.Get("type"); s != "" {
		t, err := models.ParseResourceType(s)
		if err != nil {
			writeErrorStr(w, http.StatusBadRequest, appErr.CodeInvalid, err.Error())
			return
		}
		rt = &t
	}
	res, err := h.resources.GetResourceByURI(r.Context(), q.Get("uri"), rt)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, res)
}
