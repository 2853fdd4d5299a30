package api

import (
	"net/http"
	"time"

	"github.com/kilianp07/teamcast/core/logger"
)

// Routes are the handlers mounted by NewRouter.
type Routes struct {
	Send      http.HandlerFunc
	Preview   http.HandlerFunc
	History   http.Handler
}

// NewRouter mounts the API under /api, guarded by token, and /healthz.
func NewRouter(routes Routes, token string, log logger.Logger) http.Handler {
	if log == nil {
		log = logger.NopLogger{}
	}
	apiMux := http.NewServeMux()
	apiMux.Handle("/api/send", routes.Send)
	apiMux.Handle("/api/preview", routes.Preview)
	if routes.History != nil {
		apiMux.Handle("/api/broadcasts", routes.History)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("/api/", RequireToken(token, apiMux))
	return accessLog(log, mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func accessLog(log logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Debugw("http request", map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	})
}
