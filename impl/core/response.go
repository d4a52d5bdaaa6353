package core

import (
	"QuoteChat/entity"
	"QuoteChat/internal/lib/fileurl"
)

func (c *Core) views(actor *entity.Actor, msgs []*entity.Message) []entity.MessageView {
	views := make([]entity.MessageView, 0, len(msgs))
	for _, msg := range msgs {
		views = append(views, c.view(actor.ID, msg))
	}
	return views
}

// view renders a message for viewerID. Bot messages are never "mine".
func (c *Core) view(viewerID int64, msg *entity.Message) entity.MessageView {
	v := entity.MessageView{
		ID:        msg.ID,
		Author:    msg.AuthorName,
		Text:      msg.Text,
		IsBot:     msg.IsBot,
		IsMine:    !msg.IsBot && msg.AuthorID == viewerID,
		Timestamp: msg.CreatedAt,
	}
	if msg.Attachment != nil && msg.Attachment.FileID != "" {
		url := fileurl.SignURL(msg.Attachment.FileID, c.fileSecret, c.fileTTL)
		v.AttachmentURL = &url
	}
	return v
}
