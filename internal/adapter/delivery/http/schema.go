package http

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/shortlink/internal/entity"
	"github.com/vadimbarashkov/shortlink/internal/service"
)

// shortenRequest is the body of a shorten call.
type shortenRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// shortenResponse describes the stored mapping for a shortened URL.
type shortenResponse struct {
	Hash          string    `json:"hash"`
	ShortURL      string    `json:"short_url"`
	OriginalURL   string    `json:"original_url"`
	ClickCount    int64     `json:"click_count"`
	AlreadyExists bool      `json:"already_exists"`
	CreatedAt     time.Time `json:"created_at"`
}

func toShortenResponse(res *service.ShortenResult) shortenResponse {
	return shortenResponse{
		Hash:          res.Mapping.Hash,
		ShortURL:      res.ShortURL,
		OriginalURL:   res.Mapping.OriginalURL,
		ClickCount:    res.Mapping.ClickCount,
		AlreadyExists: res.AlreadyExists,
		CreatedAt:     res.Mapping.CreatedAt,
	}
}

// statusResponse is the diagnostic projection of a resolve.
type statusResponse struct {
	Hash        string `json:"hash"`
	OriginalURL string `json:"original_url"`
	ClickCount  int64  `json:"click_count"`
}

func toStatusResponse(m *entity.Mapping) statusResponse {
	return statusResponse{
		Hash:        m.Hash,
		OriginalURL: m.OriginalURL,
		ClickCount:  m.ClickCount,
	}
}

// validationError represents an individual validation error.
type validationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error   string            `json:"error"`
	Details []validationError `json:"details,omitempty"`
}

var (
	emptyRequestBodyResponse   = errorResponse{Error: "empty request body"}
	invalidRequestBodyResponse = errorResponse{Error: "invalid request body"}
	urlRequiredResponse        = errorResponse{Error: entity.ErrInvalidURL.Error()}
	invalidHashResponse        = errorResponse{Error: entity.ErrInvalidHash.Error()}
	urlNotFoundResponse        = errorResponse{Error: "URL not found"}
)

func storageErrorResponse(err error) errorResponse {
	return errorResponse{Error: fmt.Sprintf("storage error: %v", err)}
}

func messageForTag(tag string) string {
	switch tag {
	case "required":
		return "this field is required"
	case "url":
		return "invalid url"
	default:
		return "invalid value"
	}
}

func validationErrorResponse(err error) errorResponse {
	resp := errorResponse{Error: "validation error"}

	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return resp
	}

	for _, e := range errs {
		resp.Details = append(resp.Details, validationError{
			Field:   e.Field(),
			Message: messageForTag(e.Tag()),
		})
	}

	if len(resp.Details) == 1 {
		resp.Error = fmt.Sprintf("%s: %s", resp.Details[0].Field, resp.Details[0].Message)
	}

	return resp
}
