// Package media stores user uploads.
//
// Uploads are sniffed by content, not by the client-supplied filename or header, and written to a
// [Storage] under users/{user}/{uuid}{ext}.
package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/linkfolio/linkfolio/pkg/apperr"
	"github.com/linkfolio/linkfolio/pkg/models"
)

// DefaultMaxSize is the largest accepted upload (10 MiB).
const DefaultMaxSize int64 = 10 << 20

// sniffLen is how much of the upload is inspected to detect its type.
const sniffLen = 512

// Storage persists uploaded objects and tells where they can be fetched from.
type Storage interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	URL(key string) string
}

// Object describes a stored upload.
type Object struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

type Service struct {
	storage Storage
	// MaxSize caps the upload size in bytes.
	MaxSize int64
}

func NewService(storage Storage) *Service {
	return &Service{storage: storage, MaxSize: DefaultMaxSize}
}

// Upload reads r, checks its size and type, and stores it for userID.
func (s *Service) Upload(ctx context.Context, userID models.UserID, r io.Reader) (*Object, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.MaxSize {
		return nil, apperr.New(apperr.CodeTooLarge, fmt.Sprintf("upload exceeds %d bytes", s.MaxSize))
	}
	if len(data) == 0 {
		return nil, apperr.Validation(map[string]string{"file": "is empty"})
	}

	mt := detect(data)
	if !Allowed(mt.String()) {
		return nil, apperr.New(apperr.CodeUnsupportedType, "unsupported media type "+mt.String())
	}

	key := fmt.Sprintf("users/%s/%s%s", userID, uuid.NewString(), mt.Extension())
	contentType := mt.String()
	if err := s.storage.Put(ctx, key, contentType, bytes.NewReader(data), int64(len(data))); err != nil {
		return nil, fmt.Errorf("store %s: %w", key, err)
	}

	return &Object{
		Key:         key,
		URL:         s.storage.URL(key),
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}

func detect(data []byte) *mimetype.MIME {
	if len(data) > sniffLen {
		data = data[:sniffLen]
	}
	return mimetype.Detect(data)
}

// Allowed reports whether uploads of the given content type are accepted: images, PDF, audio
// and video.
func Allowed(contentType string) bool {
	base, _, _ := strings.Cut(contentType, ";")
	base = strings.TrimSpace(strings.ToLower(base))
	switch {
	case base == "application/pdf":
		return true
	case strings.HasPrefix(base, "image/"),
		strings.HasPrefix(base, "audio/"),
		strings.HasPrefix(base, "video/"):
		return true
	}
	return false
}
