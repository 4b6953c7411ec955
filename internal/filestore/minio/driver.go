// Package minio provides a MinIO implementation of filestore.Adapter and
// filestore.Writer.
//
// Usage:
//
//	cfg := filestore.DefaultConfig().MinIO
//	cfg.AccessKey, cfg.SecretKey = "minioadmin", "minioadmin"
//	store, err := minio.New(ctx, &cfg)
//	if err != nil { ... }
//
//	items, err := store.List(ctx, realm.Music)
package minio

import (
	"context"
	"io"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/koustreak/realms/internal/errs"
	"github.com/koustreak/realms/internal/filestore"
	"github.com/koustreak/realms/internal/realm"
)

// Driver is a MinIO implementation of the filestore capabilities.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	client *miniogo.Client
	layout filestore.Layout
}

// New connects to MinIO using cfg and returns a Driver.
// It calls Ping to validate the connection before returning.
func New(ctx context.Context, cfg *filestore.MinIOConfig) (*Driver, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to create minio client", err)
	}

	d := &Driver{client: client, layout: cfg.Layout}

	if err := d.Ping(ctx); err != nil {
		return nil, err
	}

	return d, nil
}

// Ping verifies the MinIO server is reachable by listing buckets.
func (d *Driver) Ping(ctx context.Context) error {
	if _, err := d.client.ListBuckets(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

// --- filestore.Adapter implementation ---

// List returns every object of the realm plus one folder entry per
// first-level prefix. With a public base URL the access URL is embedded.
func (d *Driver) List(ctx context.Context, id realm.ID) ([]filestore.RawListing, error) {
	bucket, prefix := d.layout.Target(string(id))

	var objects []filestore.RawListing
	opts := miniogo.ListObjectsOptions{Prefix: prefix, Recursive: true}
	for obj := range d.client.ListObjects(ctx, bucket, opts) {
		if obj.Err != nil {
			if errs.IsNotFound(mapError(obj.Err, "")) {
				return []filestore.RawListing{}, nil
			}
			return nil, errs.Rekind(errs.ErrKindBackendUnavailable, "failed to list objects", mapError(obj.Err, "list objects"))
		}
		objects = append(objects, filestore.RawListing{
			Size:    obj.Size,
			Mime:    obj.ContentType,
			Locator: obj.Key,
			URL:     d.layout.PublicURL(bucket, obj.Key),
		})
	}

	return filestore.ObjectEntries(prefix, objects), nil
}

// ResolveAccessURL returns the embedded public URL, or presigns one.
func (d *Driver) ResolveAccessURL(ctx context.Context, id realm.ID, item filestore.RawListing) (string, error) {
	if item.URL != "" {
		return item.URL, nil
	}
	bucket, _ := d.layout.Target(string(id))
	u, err := d.client.PresignedGetObject(ctx, bucket, item.Locator, d.layout.TTL(), nil)
	if err != nil {
		return "", errs.Wrap(errs.ErrKindResolveFailed, "failed to presign "+item.Locator, mapError(err, "presign"))
	}
	return u.String(), nil
}

// --- filestore.Signer implementation ---

// Presign returns a time-limited URL for key (relative to the realm).
func (d *Driver) Presign(ctx context.Context, id realm.ID, key string, ttl time.Duration) (string, error) {
	bucket, prefix := d.layout.Target(string(id))
	u, err := d.client.PresignedGetObject(ctx, bucket, prefix+key, ttl, nil)
	if err != nil {
		return "", mapError(err, "failed to generate presigned URL")
	}
	return u.String(), nil
}

// --- filestore.Writer implementation ---

// Put uploads body to key inside the realm.
func (d *Driver) Put(ctx context.Context, id realm.ID, key string, body io.Reader, size int64, contentType string, upsert bool) error {
	bucket, prefix := d.layout.Target(string(id))
	objectKey := prefix + key

	if !upsert {
		_, err := d.client.StatObject(ctx, bucket, objectKey, miniogo.StatObjectOptions{})
		if err == nil {
			return errs.New(errs.ErrKindConflict, "object already exists: "+objectKey)
		}
		if mapped := mapError(err, "stat object"); !errs.IsNotFound(mapped) {
			return mapped
		}
	}

	_, err := d.client.PutObject(ctx, bucket, objectKey, body, size, miniogo.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return mapError(err, "failed to put object")
	}
	return nil
}

// Remove deletes key inside the realm.
func (d *Driver) Remove(ctx context.Context, id realm.ID, key string) error {
	bucket, prefix := d.layout.Target(string(id))
	if err := d.client.RemoveObject(ctx, bucket, prefix+key, miniogo.RemoveObjectOptions{}); err != nil {
		return mapError(err, "failed to remove object")
	}
	return nil
}

// PublicURL returns the direct URL for key, or "" without a public base.
func (d *Driver) PublicURL(id realm.ID, key string) string {
	bucket, prefix := d.layout.Target(string(id))
	return d.layout.PublicURL(bucket, prefix+key)
}
