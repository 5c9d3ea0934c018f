// Package storage exposes the object-storage capability backing family
// files and preview images. The catalog only ever stores key strings;
// bytes live in a GCS bucket reached through signed upload URLs and a
// streaming read proxy.
package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/revitfy/revitfy/internal/clock"
	"github.com/revitfy/revitfy/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

var (
	ErrInvalidKey     = errors.New("invalid_storage_key")
	ErrObjectNotFound = errors.New("object_not_found")
)

// ObjectInfo carries the headers needed to proxy an object back to a client.
type ObjectInfo struct {
	ContentType string
	Size        int64
}

type Service interface {
	// SignUploadURL issues a V4 signed PUT URL for direct client uploads.
	SignUploadURL(ctx context.Context, key, contentType string) (string, time.Time, error)
	// Open streams an object. The caller closes the reader.
	Open(ctx context.Context, key string) (io.ReadCloser, *ObjectInfo, error)
}

type ServiceParam struct {
	fx.In

	Lifecycle fx.Lifecycle
	Cfg       config.Config
	Log       *zap.Logger
	Clock     clock.Clock
}

type gcsService struct {
	client *gcs.Client
	log    *zap.Logger
	clock  clock.Clock

	bucket string
	ttl    time.Duration
}

// NewService returns nil when no bucket is configured. Handlers treat a nil
// service as capability-unavailable.
func NewService(p ServiceParam) (Service, error) {
	bucket := strings.TrimSpace(p.Cfg.Storage.Bucket)
	if bucket == "" {
		p.Log.Named("storage").Info("object storage disabled, no bucket configured")
		return nil, nil
	}

	opts := []option.ClientOption{option.WithScopes(gcs.ScopeReadWrite)}
	if creds := strings.TrimSpace(p.Cfg.Storage.CredentialsFile); creds != "" {
		opts = append(opts, option.WithCredentialsFile(creds))
	}
	client, err := gcs.NewClient(context.Background(), opts...)
	if err != nil {
		return nil, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})

	ttl := time.Duration(p.Cfg.Storage.SignedURLTTL) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &gcsService{
		client: client,
		log:    p.Log.Named("storage"),
		clock:  p.Clock,
		bucket: bucket,
		ttl:    ttl,
	}, nil
}

func (s *gcsService) SignUploadURL(ctx context.Context, key, contentType string) (string, time.Time, error) {
	key = normalizeKey(key)
	if key == "" {
		return "", time.Time{}, ErrInvalidKey
	}

	expires := s.clock.Now().Add(s.ttl)
	url, err := s.client.Bucket(s.bucket).SignedURL(key, &gcs.SignedURLOptions{
		Scheme:      gcs.SigningSchemeV4,
		Method:      http.MethodPut,
		Expires:     expires,
		ContentType: strings.TrimSpace(contentType),
	})
	if err != nil {
		return "", time.Time{}, err
	}
	return url, expires, nil
}

func (s *gcsService) Open(ctx context.Context, key string) (io.ReadCloser, *ObjectInfo, error) {
	key = normalizeKey(key)
	if key == "" {
		return nil, nil, ErrInvalidKey
	}

	reader, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, nil, ErrObjectNotFound
		}
		return nil, nil, err
	}

	return reader, &ObjectInfo{
		ContentType: reader.Attrs.ContentType,
		Size:        reader.Attrs.Size,
	}, nil
}

func normalizeKey(key string) string {
	key = strings.Trim(strings.TrimSpace(key), "/")
	// reject traversal attempts outright
	if strings.Contains(key, "..") {
		return ""
	}
	return key
}
