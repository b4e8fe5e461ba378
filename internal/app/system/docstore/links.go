// internal/app/system/docstore/links.go
package docstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/groupwork/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/storage"
	"go.uber.org/zap"
)

// DefaultLinkTTL is how long a presigned document link stays valid.
const DefaultLinkTTL = 14 * 24 * time.Hour

// MaxPresignTTL is the longest expiry SigV4 presigned URLs accept.
const MaxPresignTTL = 7 * 24 * time.Hour

// Linker swaps S3 document URLs on submissions for presigned links.
// Submissions stored elsewhere pass through unchanged.
type Linker struct {
	Store storage.Store
	TTL   time.Duration
	Log   *zap.Logger
}

func (l Linker) expires() time.Duration {
	ttl := l.TTL
	if ttl <= 0 {
		ttl = DefaultLinkTTL
	}
	if ttl > MaxPresignTTL {
		ttl = MaxPresignTTL
	}
	return ttl
}

// Link returns s with a presigned document URL when the document is in S3.
// Backends without presigning hand out their public URL (/media/... for
// local disk). On failure the stored URL is kept.
func (l Linker) Link(ctx context.Context, s models.Submission) models.Submission {
	if l.Store == nil || !IsS3URL(s.DocumentURL) {
		return s
	}
	key, ok := SubmissionKey(s.WorkgroupID, s.DocumentURL, s.DocumentFilename)
	if !ok {
		return s
	}
	u, err := l.Store.PresignedURL(ctx, key, &storage.PresignOptions{Expires: l.expires()})
	if errors.Is(err, storage.ErrPresignNotSupported) {
		if pub := l.Store.URL(key); pub != "" {
			s.DocumentURL = pub
		}
		return s
	}
	if err != nil {
		if l.Log != nil {
			l.Log.Warn("presign submission document failed",
				zap.Int64("submission_id", s.ID),
				zap.String("key", key),
				zap.Error(err))
		}
		return s
	}
	s.DocumentURL = u
	return s
}

// LinkAll applies Link to each submission in place and returns subs.
func (l Linker) LinkAll(ctx context.Context, subs []models.Submission) []models.Submission {
	for i := range subs {
		subs[i] = l.Link(ctx, subs[i])
	}
	return subs
}
