package chat

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"QuoteChat/internal/lib/sl"
)

// DownloadFile streams an attachment. The link itself is the credential: it
// carries an HMAC signature and expiry, so <img src> and <a href> work
// without a bearer token.
func DownloadFile(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger, _ := requestLogger(log, r)

		fileID := chi.URLParam(r, "file_id")
		q := r.URL.Query()
		filename, mimeType, reader, err := handler.OpenAttachment(r.Context(), fileID, q.Get("expires"), q.Get("sig"))
		if err != nil {
			renderError(w, r, logger, err, "Failed to open file")
			return
		}
		defer reader.Close()

		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", mimeType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
		w.Header().Set("X-Content-Type-Options", "nosniff")

		if _, err := io.Copy(w, reader); err != nil {
			logger.Error("failed to stream file", slog.String("file_id", fileID), sl.Err(err))
		}
	}
}
