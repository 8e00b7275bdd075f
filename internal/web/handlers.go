package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/PauloHFS/goth-blog/internal/config"
	"github.com/PauloHFS/goth-blog/internal/db"
	"github.com/PauloHFS/goth-blog/internal/logging"
	"github.com/PauloHFS/goth-blog/internal/middleware"
	"github.com/PauloHFS/goth-blog/internal/services"
	"github.com/PauloHFS/goth-blog/internal/upload"
)

const maxJSONBody = 1 << 20

type HandlerDeps struct {
	Config       *config.Config
	Store        *db.Store
	Posts        *services.PostService
	Auth         *services.AuthService
	Resolver     middleware.CredentialResolver
	LoginLimiter *middleware.RateLimiter
}

// AppHandler é um tipo customizado que permite retornar erros dos handlers
type AppHandler func(deps HandlerDeps, w http.ResponseWriter, r *http.Request) error

// Handle envolve nosso AppHandler para conformidade com http.HandlerFunc.
// Erros de serviço viram o status correspondente; o resto é 500 e vai pro log.
func Handle(deps HandlerDeps, h AppHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := h(deps, w, r)
		if err == nil {
			return
		}

		status, message := errorStatus(err)
		if status >= http.StatusInternalServerError {
			logging.Get().Error("request failed",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("request_id", middleware.RequestID(r.Context())),
				slog.Any("error", err),
			)
		}
		logging.AddToEvent(r.Context(),
			slog.String("outcome", "error"),
			slog.String("error", err.Error()),
		)
		respondError(w, status, message)
	}
}

func errorStatus(err error) (int, string) {
	var uploadErr *upload.UploadError
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest, services.PublicMessage(err)
	case errors.Is(err, services.ErrUnauthenticated):
		return http.StatusUnauthorized, services.PublicMessage(err)
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, services.PublicMessage(err)
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, services.PublicMessage(err)
	case errors.As(err, &uploadErr):
		return http.StatusBadRequest, uploadErr.Message
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func badRequest(message string) error {
	return &services.Error{Kind: services.ErrValidation, Message: message}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// decodeJSON reads exactly one JSON object into dst. Unknown fields are an
// error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			return badRequest("request body is empty")
		case errors.As(err, &maxErr):
			return badRequest("request body too large")
		case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
			return badRequest("malformed JSON")
		case errors.As(err, &typeErr):
			return badRequest(fmt.Sprintf("invalid value for field %q", typeErr.Field))
		default:
			// unknown fields come back as a plain error from encoding/json
			return badRequest(err.Error())
		}
	}
	if dec.More() {
		return badRequest("request body must contain a single JSON object")
	}
	return nil
}

func pagingFrom(r *http.Request) db.PagingParams {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return db.PagingParams{Page: page, PerPage: limit}
}
