package api

import (
	"net/http"
	"time"

	"lendledger/domain/interfaces"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

// RequestObserver records one served request
type RequestObserver interface {
	ObserveRequest(route string, status int)
}

// Config wires the HTTP API
type Config struct {
	Positions      interfaces.PositionService
	Observer       RequestObserver
	MetricsHandler http.Handler
	RequestTimeout time.Duration
	// Now is the clock used when a request omits today; defaults to time.Now
	Now func() time.Time
}

// NewRouter builds the HTTP API
func NewRouter(cfg Config) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	h := &handlers{
		positions: cfg.Positions,
		timeout:   cfg.RequestTimeout,
		now:       cfg.Now,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(cfg.Observer))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/v1/positions/{address}", func(r chi.Router) {
		r.Get("/", h.getPosition)
		r.Get("/ledger/{token}/{side}", h.getLedger)
		r.Get("/history", h.getHistory)
	})

	return r
}

// requestLogger logs each request and reports it under its route pattern
func requestLogger(observer RequestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := ""
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				route = rctx.RoutePattern()
			}
			if observer != nil {
				observer.ObserveRequest(route, status)
			}

			log.WithFields(log.Fields{
				"method":    r.Method,
				"path":      r.URL.Path,
				"route":     route,
				"status":    status,
				"duration":  time.Since(start).String(),
				"requestID": middleware.GetReqID(r.Context()),
			}).Debug("Served request")
		})
	}
}
