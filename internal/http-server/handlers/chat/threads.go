package chat

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"QuoteChat/entity"
	"QuoteChat/internal/lib/api/response"
	"QuoteChat/internal/lib/sl"
	"QuoteChat/internal/lib/validate"
)

type CreateThreadRequest struct {
	CustomerID int64 `json:"customer_id" validate:"gte=0"`
	ProductID  int64 `json:"product_id" validate:"required,gt=0"`
}

func (c *CreateThreadRequest) Bind(_ *http.Request) error {
	return validate.Struct(c)
}

type CreateThreadResponse struct {
	ThreadID string `json:"thread_id"`
}

// CreateThread opens (or returns) the thread for a customer and product.
func CreateThread(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger, actor := requestLogger(log, r)
		if actor == nil {
			unauthorized(w, r)
			return
		}

		var req CreateThreadRequest
		if err := render.Bind(r, &req); err != nil {
			logger.Debug("bind create thread", sl.Err(err))
			badRequest(w, r, "Invalid request: "+err.Error())
			return
		}

		threadID, err := handler.CreateThread(r.Context(), actor, req.CustomerID, req.ProductID)
		if err != nil {
			renderError(w, r, logger, err, "Failed to create thread")
			return
		}
		logger.With(slog.String("thread", threadID)).Debug("create thread")

		render.JSON(w, r, response.Ok(CreateThreadResponse{ThreadID: threadID}))
	}
}

// ListThreads returns the caller's inbox, optionally filtered by ?status=.
func ListThreads(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger, actor := requestLogger(log, r)
		if actor == nil {
			unauthorized(w, r)
			return
		}

		status := entity.ThreadStatus(r.URL.Query().Get("status"))
		threads, err := handler.ListThreads(r.Context(), actor, status)
		if err != nil {
			renderError(w, r, logger, err, "Failed to list threads")
			return
		}
		if threads == nil {
			threads = []entity.ThreadSummary{}
		}

		render.JSON(w, r, response.Ok(threads))
	}
}

func GetThread(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger, actor := requestLogger(log, r)
		if actor == nil {
			unauthorized(w, r)
			return
		}

		thread, err := handler.GetThread(r.Context(), actor, chi.URLParam(r, "thread_id"))
		if err != nil {
			renderError(w, r, logger, err, "Failed to get thread")
			return
		}

		render.JSON(w, r, response.Ok(thread))
	}
}
