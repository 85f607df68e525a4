package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/fdk/resource-service/internal/api/types"
	appErr "github.com/fdk/resource-service/pkg/errors"
	"github.com/fdk/resource-service/pkg/logger"
	"go.uber.org/zap"
)

const APIKeyHeader = "X-API-KEY"

// APIKey guards routes with a shared key sent in the X-API-KEY header. With no key configured
// every request is rejected.
func APIKey(key string) func(http.Handler) http.Handler {
	if key == "" {
		logger.L().Warn("API_KEY is not set, protected endpoints reject all requests")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(APIKeyHeader)
			if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				logger.L().Warn("rejected request without valid api key",
					zap.String("request_id", GetRequestID(r.Context())),
					zap.String("path", r.URL.Path),
				)
				writeError(w, http.StatusUnauthorized, appErr.CodeUnauthorized, "missing or invalid api key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, code appErr.Code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.APIResponse{Error: &types.APIError{Code: string(code), Message: msg}})
}
