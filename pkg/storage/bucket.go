package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"manualhub/pkg/logger"
)

// BucketService wraps the object store holding the manual PDFs. The
// rest of the system only ever sees the public URLs it returns.
type BucketService interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
	Close() error
}

type Config struct {
	Bucket       string
	EmulatorHost string // when set, talk to a local fake-gcs-server
	CDNDomain    string // optional domain fronting the bucket
}

func LoadConfig() Config {
	return Config{
		Bucket:       os.Getenv("MANUALHUB_GCS_BUCKET"),
		EmulatorHost: os.Getenv("MANUALHUB_GCS_EMULATOR_HOST"),
		CDNDomain:    os.Getenv("MANUALHUB_CDN_DOMAIN"),
	}
}

type bucketService struct {
	log    *logger.Logger
	client *storage.Client
	cfg    Config
}

func NewBucketService(ctx context.Context, log *logger.Logger, cfg Config) (BucketService, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("missing bucket name (MANUALHUB_GCS_BUCKET)")
	}

	var client *storage.Client
	var err error
	if cfg.EmulatorHost != "" {
		endpoint := strings.TrimRight(strings.TrimSpace(cfg.EmulatorHost), "/")
		_ = os.Setenv("STORAGE_EMULATOR_HOST", endpoint)
		client, err = storage.NewClient(ctx, option.WithoutAuthentication())
	} else {
		client, err = storage.NewClient(ctx, option.WithScopes(storage.ScopeReadWrite))
	}
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	svc := &bucketService{
		log:    log.With("service", "BucketService"),
		client: client,
		cfg:    cfg,
	}
	svc.log.Info("object storage initialized",
		"bucket", cfg.Bucket,
		"emulator_host", cfg.EmulatorHost,
		"cdn_domain", cfg.CDNDomain,
	)
	return svc, nil
}

func (s *bucketService) Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	w := s.client.Bucket(s.cfg.Bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=3600"

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize object %s: %w", key, err)
	}

	s.log.Debug("uploaded object", "key", key, "content_type", contentType)
	return s.PublicURL(key), nil
}

func (s *bucketService) Delete(ctx context.Context, key string) error {
	err := s.client.Bucket(s.cfg.Bucket).Object(key).Delete(ctx)
	if err != nil && err != storage.ErrObjectNotExist {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

func (s *bucketService) PublicURL(key string) string {
	escaped := escapeKey(key)
	if s.cfg.CDNDomain != "" {
		return fmt.Sprintf("https://%s/%s", s.cfg.CDNDomain, escaped)
	}
	if s.cfg.EmulatorHost != "" {
		host := strings.TrimRight(s.cfg.EmulatorHost, "/")
		return fmt.Sprintf("%s/storage/v1/b/%s/o/%s?alt=media",
			host, s.cfg.Bucket, url.PathEscape(key))
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.cfg.Bucket, escaped)
}

func (s *bucketService) Close() error {
	return s.client.Close()
}

// escapeKey escapes each path segment but keeps the separators, so
// public URLs stay readable.
func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
