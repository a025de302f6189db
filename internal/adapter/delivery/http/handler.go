package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/shortlink/internal/entity"
	"github.com/vadimbarashkov/shortlink/internal/service"
)

// maxHashBodyBytes bounds the raw body read by the resolve endpoints.
const maxHashBodyBytes = 1 << 10

type shortener interface {
	Shorten(ctx context.Context, originalURL string) (*service.ShortenResult, error)
}

type resolver interface {
	Resolve(ctx context.Context, hash string) (service.Resolution, error)
}

func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "pong")
}

// allowAnyOrigin stamps the permissive CORS headers on every response,
// whether or not the request carries an Origin.
func allowAnyOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", strings.Join(allowedMethods, ", "))
		h.Set("Access-Control-Allow-Headers", strings.Join(allowedHeaders, ", "))

		next.ServeHTTP(w, r)
	})
}

// handlePreflight answers every OPTIONS request that reaches the router.
func handlePreflight(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type urlHandler struct {
	shortener shortener
	resolver  resolver
	validate  *validator.Validate
}

func newURLHandler(shortener shortener, resolver resolver) *urlHandler {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &urlHandler{
		shortener: shortener,
		resolver:  resolver,
		validate:  validate,
	}
}

func (h *urlHandler) shortenURL(w http.ResponseWriter, r *http.Request) {
	var req shortenRequest

	if err := render.DecodeJSON(r.Body, &req); err != nil {
		if errors.Is(err, io.EOF) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, emptyRequestBodyResponse)
			return
		}

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, invalidRequestBodyResponse)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, validationErrorResponse(err))
		return
	}

	res, err := h.shortener.Shorten(r.Context(), req.URL)
	if err != nil {
		if errors.Is(err, entity.ErrInvalidURL) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, urlRequiredResponse)
			return
		}

		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, storageErrorResponse(err))
		return
	}

	if res.Collision {
		httplog.LogEntrySetField(r.Context(), "hash_collision", slog.StringValue(res.Mapping.Hash))
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toShortenResponse(res))
}

// resolveBody resolves a hash sent as the raw request body.
func (h *urlHandler) resolveBody(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxHashBodyBytes))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, invalidRequestBodyResponse)
		return
	}

	h.resolve(w, r, strings.TrimSpace(string(body)))
}

// resolvePath resolves the hash in the URL path.
func (h *urlHandler) resolvePath(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, chi.URLParam(r, "hash"))
}

func (h *urlHandler) resolve(w http.ResponseWriter, r *http.Request, hash string) {
	res, err := h.resolver.Resolve(r.Context(), hash)
	if err != nil {
		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, storageErrorResponse(err))
		return
	}

	switch res.Outcome {
	case service.OutcomeInvalid:
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, invalidHashResponse)
	case service.OutcomeNotFound:
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, urlNotFoundResponse)
	case service.OutcomeResolved:
		if wantsStatus(r) {
			render.Status(r, http.StatusOK)
			render.JSON(w, r, toStatusResponse(res.Mapping))
			return
		}

		w.Header().Set("Cache-Control", "no-cache")
		http.Redirect(w, r, res.Mapping.OriginalURL, http.StatusMovedPermanently)
	default:
		httplog.LogEntrySetField(r.Context(), "outcome", slog.StringValue(res.Outcome.String()))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{Error: "unexpected resolve outcome"})
	}
}

// wantsStatus reports whether the caller asked for the JSON status instead of a redirect.
func wantsStatus(r *http.Request) bool {
	if r.URL.Query().Get("format") == "json" {
		return true
	}

	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}
