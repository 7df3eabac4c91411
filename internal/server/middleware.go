package server

import (
	"net/http"
	"slices"
	"time"

	"github.com/delta-events/whatsapp-service/internal/logger"
)

// withMiddleware layers panic recovery, CORS and request logging around the
// route table. Recovery sits outermost so a panicking handler still yields a
// well-formed JSON error.
func (s *Server) withMiddleware(next http.Handler) http.Handler {
	return s.recoverPanic(s.cors(s.logRequests(next)))
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.DebugF("%s %s handled in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// originAllowed treats an empty allowlist as permissive, matching the local
// development default.
func (s *Server) originAllowed(origin string) bool {
	if len(s.allowedOrigins) == 0 {
		return true
	}
	return slices.Contains(s.allowedOrigins, origin) || slices.Contains(s.allowedOrigins, "*")
}

func (s *Server) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.ErrorF("Handler panic on %s %s: %v", r.Method, r.URL.Path, rec)
				writeError(w, http.StatusInternalServerError, "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
