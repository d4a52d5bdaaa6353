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

type SetStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending in_progress approved rejected"`
}

func (s *SetStatusRequest) Bind(_ *http.Request) error {
	return validate.Struct(s)
}

type SetStatusResponse struct {
	Ok bool `json:"ok"`
}

func SetStatus(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger, actor := requestLogger(log, r)
		if actor == nil {
			unauthorized(w, r)
			return
		}

		var req SetStatusRequest
		if err := render.Bind(r, &req); err != nil {
			logger.Debug("bind set status", sl.Err(err))
			badRequest(w, r, "Invalid request: "+err.Error())
			return
		}

		threadID := chi.URLParam(r, "thread_id")
		if err := handler.SetStatus(r.Context(), actor, threadID, entity.ThreadStatus(req.Status)); err != nil {
			renderError(w, r, logger, err, "Failed to set status")
			return
		}

		render.JSON(w, r, response.Ok(SetStatusResponse{Ok: true}))
	}
}
