// Package storage keeps compiled resume PDFs in a local directory or an S3 bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"
)

// ErrNotFound is returned when an object does not exist
var ErrNotFound = errors.New("object not found")

// ContentTypePDF is the content type of every stored object
const ContentTypePDF = "application/pdf"

// Store persists PDF objects by key
type Store interface {
	// Put writes data under key, replacing nothing: keys are unique per upload.
	Put(ctx context.Context, key string, data []byte) error
	// URL returns a download URL for key, or "" when the store serves objects
	// itself through Open.
	URL(ctx context.Context, key string) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes key. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	unsafeKeyChar = regexp.MustCompile(`[/\\]+`)
)

// ObjectKey builds the key of a user's optimized resume:
// {userID}/{unixMillis}_{company}_{role}.pdf with whitespace runs replaced by
// underscores.
func ObjectKey(userID, company, role string, now time.Time) string {
	return fmt.Sprintf("%s/%d_%s_%s.pdf", userID, now.UnixMilli(), keySegment(company), keySegment(role))
}

func keySegment(s string) string {
	s = whitespaceRun.ReplaceAllString(strings.TrimSpace(s), "_")
	return unsafeKeyChar.ReplaceAllString(s, "-")
}

// validKey rejects keys that could escape the store's root
func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("invalid object key %q", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("invalid object key %q", key)
		}
	}
	return nil
}
