package chat

import (
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"QuoteChat/entity"
	"QuoteChat/internal/lib/api/response"
	"QuoteChat/internal/lib/sl"
	"QuoteChat/internal/lib/validate"
)

// maxBodySize leaves room for the text part next to a full-size attachment.
const maxBodySize = entity.MaxFileSize + 64<<10

type SendMessageRequest struct {
	Text string `json:"text" validate:"required,max=8000"`
}

func (s *SendMessageRequest) Bind(_ *http.Request) error {
	return validate.Struct(s)
}

type MessagesResponse struct {
	Messages []entity.MessageView `json:"messages"`
}

// FetchMessages returns messages after ?since= (an RFC 3339 timestamp taken
// from a previous response) or the whole history.
func FetchMessages(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger, actor := requestLogger(log, r)
		if actor == nil {
			unauthorized(w, r)
			return
		}

		var since *time.Time
		if raw := r.URL.Query().Get("since"); raw != "" {
			ts, err := time.Parse(time.RFC3339Nano, raw)
			if err != nil {
				badRequest(w, r, "Invalid since: expected RFC 3339 timestamp")
				return
			}
			since = &ts
		}

		messages, err := handler.Fetch(r.Context(), actor, chi.URLParam(r, "thread_id"), since)
		if err != nil {
			renderError(w, r, logger, err, "Failed to fetch messages")
			return
		}
		if messages == nil {
			messages = []entity.MessageView{}
		}

		render.JSON(w, r, response.Ok(MessagesResponse{Messages: messages}))
	}
}

// SendMessage accepts JSON {"text"} or multipart/form-data with a text field
// and an optional attachment file.
func SendMessage(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger, actor := requestLogger(log, r)
		if actor == nil {
			unauthorized(w, r)
			return
		}
		threadID := chi.URLParam(r, "thread_id")
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

		var (
			text   string
			upload *entity.Upload
		)
		mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if mediaType == "multipart/form-data" {
			if err := r.ParseMultipartForm(entity.MaxFileSize); err != nil {
				logger.Debug("parse multipart", sl.Err(err))
				badRequest(w, r, "invalid multipart form")
				return
			}
			defer r.MultipartForm.RemoveAll()
			text = r.FormValue("text")

			if files := r.MultipartForm.File["attachment"]; len(files) > 0 {
				fh := files[0]
				if fh.Size > entity.MaxFileSize {
					render.Status(r, http.StatusRequestEntityTooLarge)
					render.JSON(w, r, response.Error(fmt.Sprintf("file %q exceeds the %d MB limit", fh.Filename, entity.MaxFileSize>>20)))
					return
				}
				file, err := fh.Open()
				if err != nil {
					logger.Error("failed to open uploaded file", slog.String("filename", fh.Filename), sl.Err(err))
					render.Status(r, http.StatusInternalServerError)
					render.JSON(w, r, response.Error("failed to read uploaded file"))
					return
				}
				defer file.Close()

				mimeType := fh.Header.Get("Content-Type")
				if mimeType == "" {
					mimeType = "application/octet-stream"
				}
				upload = &entity.Upload{
					Filename: fh.Filename,
					MIMEType: mimeType,
					Size:     fh.Size,
					Reader:   file,
				}
			}
		} else {
			var req SendMessageRequest
			if err := render.Bind(r, &req); err != nil {
				logger.Debug("bind send message", sl.Err(err))
				badRequest(w, r, "Invalid request: "+err.Error())
				return
			}
			text = req.Text
		}

		messages, err := handler.Send(r.Context(), actor, threadID, text, upload)
		if err != nil {
			renderError(w, r, logger, err, "Failed to send message")
			return
		}
		logger.With(
			slog.String("thread", threadID),
			slog.Int("messages", len(messages)),
		).Debug("send message")

		render.JSON(w, r, response.Ok(MessagesResponse{Messages: messages}))
	}
}
