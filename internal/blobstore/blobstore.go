package blobstore

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/receiptwise/expense-tracker/constants"
)

// Store holds receipt images. Keys are slash-separated object paths; Delete
// is idempotent (removing a missing object succeeds).
type Store interface {
	Put(ctx context.Context, key string, contentType string, body io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error

	// PublicURL returns a browser-reachable URL for the object.
	PublicURL(key string) string
}

// ObjectPath builds the canonical object key for a user's upload:
// <uid>/<yyyy>/<mm>/<random>.<ext>. The leading segment carries the owner,
// which is how ownership is recovered from a storage event.
func ObjectPath(uid string, now time.Time, ext string) (string, error) {
	ext = constants.NormalizeExt(ext)
	if !constants.IsAllowedExt(ext) {
		return "", fmt.Errorf("unsupported image extension %q", ext)
	}
	return fmt.Sprintf("%s/%04d/%02d/%s.%s",
		uid, now.Year(), int(now.Month()), uuid.NewString(), ext), nil
}
