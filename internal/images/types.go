// Package images stores uploaded images content-addressed on the local
// filesystem and keeps their metadata in the document store. Identical
// bytes uploaded twice share a single file on disk.
package images

import (
	"errors"
	"time"
)

// Image is the metadata recorded for one stored upload.
type Image struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	MIME      string    `json:"mime"`
	Size      int64     `json:"size"`
	SHA256    string    `json:"sha256"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	// ErrNotFound is returned when no image exists with the given ID.
	ErrNotFound = errors.New("image not found")
	// ErrTooLarge is returned when an upload exceeds the configured limit.
	ErrTooLarge = errors.New("image exceeds size limit")
	// ErrUnsupportedType is returned when the payload is not a supported
	// image format.
	ErrUnsupportedType = errors.New("unsupported image type")
)
