// Package filestore defines the backend adapter contract the feed pipeline
// consumes, plus the optional writer and signer capabilities used by the
// uploader and the catalog adapter.
//
// Every provider (MinIO, S3, Yandex Disk, JSON manifests, the metadata
// catalog) implements Adapter. Callers depend only on this package, never on
// a specific provider package.
//
// Usage:
//
//	cfg := filestore.DefaultConfig()
//	cfg.MinIO = filestore.MinIOConfig{Endpoint: "localhost:9000", ...}
//	store, err := minio.New(ctx, &cfg.MinIO)
//	if err != nil { ... }
//
//	items, err := store.List(ctx, realm.Visuals)
package filestore

import (
	"context"
	"io"
	"time"

	"github.com/koustreak/realms/internal/realm"
)

// Adapter is the capability set the feed pipeline needs from a backend.
type Adapter interface {
	// List returns the realm's entries. Placeholder objects are dropped;
	// directory entries are kept with IsDir set. An empty realm yields an
	// empty slice, not an error. Failures carry errs.ErrKindBackendUnavailable.
	List(ctx context.Context, id realm.ID) ([]RawListing, error)

	// ResolveAccessURL returns a URL the browser can fetch the item from.
	// Direct backends return the URL embedded at list time; indirect ones
	// perform a lookup. Failures carry errs.ErrKindResolveFailed.
	ResolveAccessURL(ctx context.Context, id realm.ID, item RawListing) (string, error)
}

// Writer is implemented by backends that accept uploads.
type Writer interface {
	// Put stores body under key in the realm. With upsert=false an existing
	// key fails with errs.ErrKindConflict before body is read.
	Put(ctx context.Context, id realm.ID, key string, body io.Reader, size int64, contentType string, upsert bool) error

	// Remove deletes key from the realm. Removing a missing key is not an error.
	Remove(ctx context.Context, id realm.ID, key string) error

	// PublicURL returns the browser URL for key, or "" when the backend
	// only serves signed URLs.
	PublicURL(id realm.ID, key string) string
}

// Signer is implemented by backends that issue time-limited URLs.
type Signer interface {
	Presign(ctx context.Context, id realm.ID, key string, ttl time.Duration) (string, error)
}
