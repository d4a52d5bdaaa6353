package entity

import (
	"errors"
	"fmt"
	"io"
)

// MaxFileSize is the maximum allowed file size for uploads (2 MB).
const MaxFileSize = 2 << 20

// ErrFileTooLarge is returned when an uploaded file exceeds MaxFileSize.
var ErrFileTooLarge = errors.New("file too large")

// FileTooLargeError wraps ErrFileTooLarge with details about the offending file.
func FileTooLargeError(filename string, size int64) error {
	return fmt.Errorf("%w: %q is %d bytes, limit is %d MB", ErrFileTooLarge, filename, size, MaxFileSize>>20)
}

// Attachment references a stored file attached to a Message.
type Attachment struct {
	FileID   string `json:"file_id" bson:"file_id"`
	Filename string `json:"filename" bson:"filename"`
	MIMEType string `json:"mime_type" bson:"mime_type"`
	Size     int64  `json:"size" bson:"size"`
}

// FileMetadata is kept next to the stored file.
type FileMetadata struct {
	MIMEType string `bson:"mime_type"`
	ThreadID string `bson:"thread_id"`
	Uploader int64  `bson:"uploader"`
}

// Upload is an incoming attachment before it reaches file storage.
type Upload struct {
	Filename string
	MIMEType string
	Size     int64
	Reader   io.Reader
}
