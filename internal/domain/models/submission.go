// internal/domain/models/submission.go
package models

import (
	"net/url"
	"strings"
	"time"
)

// Submission is a document a workgroup member uploaded for the workgroup.
type Submission struct {
	ID               int64     `bson:"_id" json:"id"`
	WorkgroupID      int64     `bson:"workgroup_id" json:"workgroup"`
	UserID           int64     `bson:"user_id" json:"user"`
	DocumentID       string    `bson:"document_id" json:"document_id"`
	DocumentURL      string    `bson:"document_url" json:"document_url"`
	DocumentMimeType string    `bson:"document_mime_type" json:"document_mime_type"`
	DocumentFilename string    `bson:"document_filename,omitempty" json:"document_filename,omitempty"`
	CreatedAt        time.Time `bson:"created_at" json:"created"`
	UpdatedAt        time.Time `bson:"updated_at" json:"modified"`
}

// DocumentPath is the storage path of the submitted document: the unescaped
// URL path without the leading "/media/" prefix.
func (s Submission) DocumentPath() string {
	raw := s.DocumentURL
	if unq, err := url.PathUnescape(raw); err == nil {
		raw = unq
	}
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}
	p = strings.TrimPrefix(p, "/")
	return strings.TrimPrefix(p, "media/")
}

// HasDocument reports whether there is a stored document to clean up.
func (s Submission) HasDocument() bool {
	return s.DocumentPath() != ""
}
