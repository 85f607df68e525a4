package middleware

import "net/http"

// CORS allows any origin. The API key header is allowed and Location is exposed so browser
// clients can follow a created union graph.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type,Accept,"+APIKeyHeader+","+RequestIDHeader)
		h.Set("Access-Control-Expose-Headers", "Location,"+RequestIDHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
