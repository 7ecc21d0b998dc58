// Package storage is the upload gateway: it enforces size and type ceilings
// before any network call and maps uploads to namespaced object keys.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/qr-codes-api/internal/domain"
	s3infra "github.com/qr-codes-api/internal/infrastructure/s3"
)

// Upload ceilings. A file of exactly the ceiling is accepted.
const (
	MaxContentSize int64 = 2 << 30  // 2 GiB per content file
	MaxAvatarSize  int64 = 50 << 20 // 50 MiB per avatar
)

const contentCacheControl = "max-age=3600"

// UploadInput describes one file handed to the gateway.
type UploadInput struct {
	Reader      io.Reader
	Filename    string
	ContentType string
	Size        int64
}

type Service interface {
	// UploadContent stores a content file under a randomized key namespaced
	// by owner and returns its public URL and object key.
	UploadContent(ctx context.Context, ownerID string, in UploadInput) (url, key string, err error)
	// UploadAvatar stores the owner's avatar under a fixed key, overwriting
	// any previous avatar.
	UploadAvatar(ctx context.Context, ownerID string, in UploadInput) (url string, err error)
	// RemoveContent deletes a previously uploaded content object. Used as
	// compensating cleanup when a generation flow fails after uploads.
	RemoveContent(ctx context.Context, key string) error
}

type objectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, opts s3infra.UploadOptions) (string, error)
	Delete(ctx context.Context, key string) error
}

type service struct {
	contentStore objectStore
	avatarStore  objectStore
}

func NewService(contentStore, avatarStore objectStore) Service {
	return &service{contentStore: contentStore, avatarStore: avatarStore}
}

func (s *service) UploadContent(ctx context.Context, ownerID string, in UploadInput) (string, string, error) {
	if in.Size > MaxContentSize {
		return "", "", fmt.Errorf("file %s exceeds the 2 GiB limit: %w", in.Filename, domain.ErrBadRequest)
	}
	key := fmt.Sprintf("%s/%s%s", ownerID, uuid.NewString(), safeExt(in.Filename))
	url, err := s.contentStore.Upload(ctx, key, in.Reader, s3infra.UploadOptions{
		ContentType:  in.ContentType,
		CacheControl: contentCacheControl,
		Upsert:       false,
	})
	if err != nil {
		return "", "", err
	}
	return url, key, nil
}

func (s *service) UploadAvatar(ctx context.Context, ownerID string, in UploadInput) (string, error) {
	if in.Size > MaxAvatarSize {
		return "", fmt.Errorf("avatar exceeds the 50 MiB limit: %w", domain.ErrBadRequest)
	}
	if !strings.HasPrefix(in.ContentType, "image/") {
		return "", fmt.Errorf("avatar must be an image: %w", domain.ErrBadRequest)
	}
	// Fixed key per owner: a new avatar replaces the old object in place.
	key := fmt.Sprintf("%s/avatar%s", ownerID, safeExt(in.Filename))
	return s.avatarStore.Upload(ctx, key, in.Reader, s3infra.UploadOptions{
		ContentType: in.ContentType,
		Upsert:      true,
	})
}

func (s *service) RemoveContent(ctx context.Context, key string) error {
	return s.contentStore.Delete(ctx, key)
}

// safeExt extracts a lowercase file extension restricted to safe characters,
// so user-supplied names cannot smuggle path segments into object keys.
func safeExt(filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(filename)))
	if ext == "" {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
