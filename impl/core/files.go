package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"QuoteChat/entity"
	"QuoteChat/internal/lib/fileurl"
	"QuoteChat/internal/lib/sl"
)

// storeAttachment uploads the file before the message that references it is
// committed. A failed commit leaves an orphaned file, never a dangling link.
func (c *Core) storeAttachment(ctx context.Context, actor *entity.Actor, threadID string, upload *entity.Upload) (*entity.Attachment, error) {
	if c.files == nil {
		return nil, fmt.Errorf("%w: attachments are not enabled", entity.ErrBadRequest)
	}
	if upload.Size > entity.MaxFileSize {
		return nil, fmt.Errorf("%w: %w", entity.ErrBadRequest, entity.FileTooLargeError(upload.Filename, upload.Size))
	}

	meta := entity.FileMetadata{
		MIMEType: upload.MIMEType,
		ThreadID: threadID,
		Uploader: actor.ID,
	}
	// Read one byte past the limit so oversized bodies with a lying header are caught.
	reader := io.LimitReader(upload.Reader, entity.MaxFileSize+1)
	fileID, size, err := c.files.UploadFile(ctx, upload.Filename, reader, meta)
	if errors.Is(err, entity.ErrFileTooLarge) {
		return nil, fmt.Errorf("%w: %w", entity.ErrBadRequest, err)
	}
	if err != nil {
		return nil, fmt.Errorf("upload attachment: %w", err)
	}
	if size > entity.MaxFileSize {
		return nil, fmt.Errorf("%w: %w", entity.ErrBadRequest, entity.FileTooLargeError(upload.Filename, size))
	}

	c.log.With(
		slog.String("thread", threadID),
		slog.String("file", fileID),
		slog.Int64("size", size),
	).Debug("attachment stored")

	return &entity.Attachment{
		FileID:   fileID,
		Filename: upload.Filename,
		MIMEType: upload.MIMEType,
		Size:     size,
	}, nil
}

// OpenAttachment verifies a signed download link and opens the file. The
// caller must close the returned reader.
func (c *Core) OpenAttachment(ctx context.Context, fileID, expires, sig string) (string, string, io.ReadCloser, error) {
	if c.files == nil {
		return "", "", nil, fmt.Errorf("%w: attachments are not enabled", entity.ErrNotFound)
	}
	if !fileurl.Verify(fileID, expires, sig, c.fileSecret) {
		return "", "", nil, fmt.Errorf("%w: invalid or expired link", entity.ErrForbidden)
	}

	filename, meta, reader, err := c.files.DownloadFile(ctx, fileID)
	if err != nil {
		c.log.With(
			slog.String("file", fileID),
			sl.Err(err),
		).Debug("open attachment")
		return "", "", nil, fmt.Errorf("file %s: %w", fileID, entity.ErrNotFound)
	}
	return filename, meta.MIMEType, reader, nil
}
