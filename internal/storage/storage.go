// Package storage uploads attachment bytes to an object store.
package storage

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Object describes a stored file.
type Object struct {
	Key          string
	URL          string
	ThumbnailURL string
}

// ObjectStore is the minimal surface the attachment linker needs.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (Object, error)
	Delete(ctx context.Context, key string) error
}

// ObjectKey builds a collision-free key under the conversation's prefix,
// keeping the original extension.
func ObjectKey(conversationID uuid.UUID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if len(ext) > 10 {
		ext = ""
	}
	return path.Join("conversations", conversationID.String(), uuid.NewString()+ext)
}

func isImage(contentType string) bool {
	return strings.HasPrefix(contentType, "image/")
}
