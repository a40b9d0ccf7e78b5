// Package api is the inkfs server's HTTP surface (spec §6): a chi router
// wiring the metadata store, content store, and per-node write lock to the
// routes the remote client speaks.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/inkfs/inkfs/internal/logger"
	"github.com/inkfs/inkfs/server/internal/contentstore"
	"github.com/inkfs/inkfs/server/internal/metastore"
	"github.com/inkfs/inkfs/server/internal/nodelock"
)

// NewRouter builds the complete HTTP handler: request ID/real-IP/recovery/
// timeout middleware, a request logger, a liveness endpoint, and every
// route spec §6 defines.
func NewRouter(store metastore.Store, content *contentstore.Store, locker *nodelock.Locker) http.Handler {
	h := &handler{store: store, content: content, locker: locker}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", h.healthz)

	r.Route("/api", func(r chi.Router) {
		r.Get("/node/{id}", h.nodeInfo)

		r.Route("/dir/{id}", func(r chi.Router) {
			r.Get("/", h.dirInfo)
			r.Post("/new-dir", h.createDir)
			r.Post("/new-file", h.createFile)
			r.Post("/delete-dir", h.deleteDir)
			r.Post("/delete-file", h.deleteFile)
		})

		r.Route("/file/{id}", func(r chi.Router) {
			r.Get("/", h.fileInfo)
			r.Get("/data", h.fileData)
			r.Put("/data", h.writeFileData)
		})
	})

	return r
}

// requestLogger logs one debug line on request start and one info line on
// completion, matching the teacher's pkg/api/router.go requestLogger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("api request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Info("api request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		)
	})
}
