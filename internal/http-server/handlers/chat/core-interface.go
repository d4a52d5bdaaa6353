package chat

import (
	"context"
	"io"
	"time"

	"QuoteChat/entity"
)

type Core interface {
	CreateThread(ctx context.Context, actor *entity.Actor, customerID, productID int64) (string, error)
	ListThreads(ctx context.Context, actor *entity.Actor, status entity.ThreadStatus) ([]entity.ThreadSummary, error)
	GetThread(ctx context.Context, actor *entity.Actor, threadID string) (*entity.Thread, error)
	Fetch(ctx context.Context, actor *entity.Actor, threadID string, since *time.Time) ([]entity.MessageView, error)
	Send(ctx context.Context, actor *entity.Actor, threadID, text string, upload *entity.Upload) ([]entity.MessageView, error)
	SetStatus(ctx context.Context, actor *entity.Actor, threadID string, status entity.ThreadStatus) error
	OpenAttachment(ctx context.Context, fileID, expires, sig string) (string, string, io.ReadCloser, error)
}
