package chat

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"QuoteChat/entity"
	"QuoteChat/internal/lib/api/cont"
	"QuoteChat/internal/lib/api/response"
	"QuoteChat/internal/lib/sl"
)

func statusOf(err error) int {
	switch {
	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, entity.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// renderError maps domain errors to status codes. Internal errors are logged
// and replaced by msg so that driver details never reach the client.
func renderError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, msg string) {
	status := statusOf(err)
	render.Status(r, status)
	if status == http.StatusInternalServerError {
		logger.Error(msg, sl.Err(err))
		render.JSON(w, r, response.Error(msg))
		return
	}
	logger.Debug(msg, sl.Err(err))
	render.JSON(w, r, response.Error(err.Error()))
}

func badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, response.Error(msg))
}

// requestLogger returns the handler logger and the authenticated actor; the
// actor is nil only when the route was mounted without authentication.
func requestLogger(log *slog.Logger, r *http.Request) (*slog.Logger, *entity.Actor) {
	logger := log.With(
		sl.Module("http.handlers.chat"),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
	return logger, cont.GetUser(r.Context())
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, response.Error("Unauthorized"))
}
