// Package http provides the HTTP delivery layer of the URL shortener.
// It wires the shorten and resolve endpoints, in both API and function-gateway form,
// together with CORS, request logging, metrics and API docs.
package http

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vadimbarashkov/shortlink/pkg/middleware/recoverer"

	httpSwagger "github.com/swaggo/http-swagger"
)

const swaggerSpecPath = "./docs/swagger.yml"

var (
	allowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	allowedHeaders = []string{"Content-Type", "Authorization"}
)

// NewRouter builds the router. allowedOrigins defaults to any origin when empty.
func NewRouter(logger *httplog.Logger, shortener shortener, resolver resolver, allowedOrigins ...string) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()

	if slices.Contains(allowedOrigins, "*") {
		r.Use(allowAnyOrigin)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		ExposedHeaders:   []string{"Location"},
		AllowCredentials: false,
		MaxAge:           86400,
	}))
	r.Use(handlePreflight)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(recoverer.New(logger.Logger))

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/swagger.yml"),
	))
	r.Get("/docs/swagger.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, swaggerSpecPath)
	})

	h := newURLHandler(shortener, resolver)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", handlePing)
		r.Post("/shorten", h.shortenURL)
		r.Post("/resolve", h.resolveBody)
	})

	r.Route("/function", func(r chi.Router) {
		r.Post("/shorten-url", h.shortenURL)
		r.Post("/redirect-url", h.resolveBody)
	})

	r.Get("/{hash}", h.resolvePath)

	return r
}
