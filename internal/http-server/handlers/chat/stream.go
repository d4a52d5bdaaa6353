package chat

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"QuoteChat/internal/ws"
)

// Stream upgrades to a websocket that receives new messages of the thread.
// Clients still fetch with a cursor after (re)connecting.
func Stream(log *slog.Logger, handler Core, hub *ws.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger, actor := requestLogger(log, r)
		if actor == nil {
			unauthorized(w, r)
			return
		}

		thread, err := handler.GetThread(r.Context(), actor, chi.URLParam(r, "thread_id"))
		if err != nil {
			renderError(w, r, logger, err, "Failed to open stream")
			return
		}

		ws.ServeWs(hub, thread.ID, actor, logger, w, r)
	}
}
