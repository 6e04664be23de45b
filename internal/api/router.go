// Package api exposes the motion preview and video submission endpoints over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/book-expert/logger"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/book-expert/avatar-service/internal/core"
	"github.com/book-expert/avatar-service/internal/motion"
)

const logFmtRequest = "[%s] %s %s -> %d (%s)"

// Submitter hands a synthesis request to a worker and waits for its reply.
type Submitter interface {
	Submit(ctx context.Context, req core.SynthesisRequest) (*core.VideoCreatedEvent, error)
}

// Defaults fill preview fields a caller leaves out.
type Defaults struct {
	Mode      motion.Mode
	Intensity float64
	FPS       float64
	Duration  float64
	Limits    motion.Limits
}

// Router wires the handlers onto a chi mux.
type Router struct {
	mux       *chi.Mux
	submitter Submitter
	defaults  Defaults
	log       *logger.Logger
}

// NewRouter creates a Router. With a nil submitter POST /v1/videos answers 503.
func NewRouter(submitter Submitter, defaults Defaults, log *logger.Logger) *Router {
	return &Router{
		mux:       chi.NewRouter(),
		submitter: submitter,
		defaults:  defaults,
		log:       log,
	}
}

// Setup registers middleware and routes and returns the handler.
func (rt *Router) Setup() http.Handler {
	r := rt.mux

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(rt.logging)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", rt.healthz)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/motion/modes", rt.listModes)
		r.Post("/motion/preview", rt.preview)
		r.Post("/videos", rt.submitVideo)
	})

	return r
}

func (rt *Router) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		rt.log.Info(logFmtRequest, chimiddleware.GetReqID(r.Context()), r.Method, r.URL.Path,
			ww.Status(), time.Since(start))
	})
}
