package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/fdk/resource-service/internal/api/middleware"
	"github.com/fdk/resource-service/internal/api/types"
	appErr "github.com/fdk/resource-service/pkg/errors"
	"github.com/fdk/resource-service/pkg/logger"
	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSON(w, status, types.APIResponse{
		Success: true,
		Data:    data,
		Meta:    &types.Meta{RequestID: middleware.GetRequestID(r.Context())},
	})
}

// writeError maps err to its HTTP status. Server side failures are logged.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := appErr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.L().Error("request failed",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(w, status, types.APIResponse{
		Error: types.FromAppError(err),
		Meta:  &types.Meta{RequestID: middleware.GetRequestID(r.Context())},
	})
}

func writeErrorStr(w http.ResponseWriter, status int, code appErr.Code, msg string) {
	writeJSON(w, status, types.APIResponse{Error: &types.APIError{Code: string(code), Message: msg}})
}
