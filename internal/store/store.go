// Package store puts harvested files into an S3-compatible object store.
package store

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// ObjectStore is the destination of uploads.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, r io.Reader, size int64) error
}

// Config holds the object store connection settings.
type Config struct {
	Driver    string // "minio" or "s3"
	Endpoint  string // URL; the scheme decides TLS for the minio driver
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Prefix    string // key prefix ("folder") inside the bucket
}

const (
	DriverMinio = "minio"
	DriverS3    = "s3"
)

// New returns the store for cfg.Driver.
func New(ctx context.Context, cfg Config) (ObjectStore, error) {
	switch cfg.Driver {
	case "", DriverMinio:
		return NewMinioStore(cfg)
	case DriverS3:
		return NewS3Store(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported object store driver %q", cfg.Driver)
	}
}

// Key returns the object key for a staged file name: the prefix, normalised
// to end in a single "/", followed by the name.
func Key(prefix, name string) string {
	prefix = strings.Trim(strings.ReplaceAll(prefix, "\\", "/"), "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// splitEndpoint turns "https://host:9000" into ("host:9000", true). A bare
// host is assumed to speak TLS.
func splitEndpoint(endpoint string) (string, bool, error) {
	if !strings.Contains(endpoint, "://") {
		return strings.TrimRight(endpoint, "/"), true, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("endpoint %q has no host", endpoint)
	}
	return u.Host, u.Scheme == "https", nil
}
