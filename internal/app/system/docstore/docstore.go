// internal/app/system/docstore/docstore.go
//
// Package docstore removes and links the documents behind workgroup
// submissions. Documents live in a waffle storage backend: local disk
// (served under /media/) or S3.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/dalemusser/waffle/pantry/storage"
)

// Storage types accepted by New.
const (
	TypeLocal = "local"
	TypeS3    = "s3"
)

// MediaPrefix is the URL prefix locally stored documents are served under.
const MediaPrefix = "/media"

// Config selects and configures a backend.
type Config struct {
	Type      string
	LocalPath string
	S3Region  string
	S3Bucket  string
	S3Prefix  string
}

// New builds the backend named by cfg.Type.
func New(ctx context.Context, cfg Config) (storage.Store, error) {
	switch cfg.Type {
	case TypeLocal, "":
		return storage.NewLocal(storage.LocalConfig{
			BasePath: cfg.LocalPath,
			BaseURL:  MediaPrefix,
		})
	case TypeS3:
		return storage.NewS3(ctx, storage.S3Config{
			Region: cfg.S3Region,
			Bucket: cfg.S3Bucket,
			Prefix: cfg.S3Prefix,
		})
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

// Remove deletes the document at path. A document that is already gone
// counts as removed.
func Remove(ctx context.Context, store storage.Store, path string) error {
	path = storage.NormalizePath(path)
	if err := storage.ValidatePath(path); err != nil {
		return err
	}
	if err := store.Delete(ctx, path); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return nil
}

// IsS3URL reports whether a submission's document URL points at S3.
func IsS3URL(documentURL string) bool {
	return strings.Contains(documentURL, "s3.amazonaws.com")
}

// SubmissionKey is the storage path of an uploaded submission document:
// group_work/{workgroup}/{sha1}/{filename}, where sha1 is the parent segment
// of the document URL. ok is false when the URL has no such segment.
func SubmissionKey(workgroupID int64, documentURL, filename string) (key string, ok bool) {
	p := documentURL
	if u, err := url.Parse(documentURL); err == nil && u.Path != "" {
		p = u.Path
	}
	parts := strings.Split(strings.TrimSuffix(p, "/"), "/")
	if len(parts) < 2 || parts[len(parts)-2] == "" {
		return "", false
	}
	return "group_work/" + strconv.FormatInt(workgroupID, 10) + "/" + parts[len(parts)-2] + "/" + filename, true
}
