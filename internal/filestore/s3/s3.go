// Package s3 provides an AWS S3 (or S3-compatible) implementation of
// filestore.Adapter and filestore.Writer. Listings carry no URL; access
// URLs are presigned per item unless a public base URL is configured.
package s3

import (
	"context"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/koustreak/realms/internal/errs"
	"github.com/koustreak/realms/internal/filestore"
	"github.com/koustreak/realms/internal/realm"
)

// Driver implements the filestore capabilities on top of aws-sdk-go-v2.
// It is safe for concurrent use.
type Driver struct {
	client  *s3.Client
	presign *s3.PresignClient
	layout  filestore.Layout
}

// New builds an S3 client from cfg. Static credentials are used when an
// access key is set; otherwise the default AWS credential chain applies.
func New(ctx context.Context, cfg *filestore.S3Config) (*Driver, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to load aws config", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	return &Driver{
		client:  client,
		presign: s3.NewPresignClient(client),
		layout:  cfg.Layout,
	}, nil
}

// List pages through ListObjectsV2 for the realm prefix.
func (d *Driver) List(ctx context.Context, id realm.ID) ([]filestore.RawListing, error) {
	bucket, prefix := d.layout.Target(string(id))

	var objects []filestore.RawListing
	pager := s3.NewListObjectsV2Paginator(d.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			mapped := mapError(err, "list objects")
			if errs.IsNotFound(mapped) {
				return []filestore.RawListing{}, nil
			}
			return nil, errs.Rekind(errs.ErrKindBackendUnavailable, "failed to list objects", mapped)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			objects = append(objects, filestore.RawListing{
				Size:    aws.ToInt64(obj.Size),
				Locator: key,
				URL:     d.layout.PublicURL(bucket, key),
			})
		}
	}

	return filestore.ObjectEntries(prefix, objects), nil
}

// ResolveAccessURL presigns a GET for the item unless a URL is embedded.
func (d *Driver) ResolveAccessURL(ctx context.Context, id realm.ID, item filestore.RawListing) (string, error) {
	if item.URL != "" {
		return item.URL, nil
	}
	bucket, _ := d.layout.Target(string(id))
	u, err := d.presignKey(ctx, bucket, item.Locator, d.layout.TTL())
	if err != nil {
		return "", errs.Wrap(errs.ErrKindResolveFailed, "failed to presign "+item.Locator, err)
	}
	return u, nil
}

// Presign returns a time-limited URL for key (relative to the realm).
func (d *Driver) Presign(ctx context.Context, id realm.ID, key string, ttl time.Duration) (string, error) {
	bucket, prefix := d.layout.Target(string(id))
	return d.presignKey(ctx, bucket, prefix+key, ttl)
}

func (d *Driver) presignKey(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	req, err := d.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", mapError(err, "failed to generate presigned URL")
	}
	return req.URL, nil
}

// Put uploads body to key inside the realm.
func (d *Driver) Put(ctx context.Context, id realm.ID, key string, body io.Reader, size int64, contentType string, upsert bool) error {
	bucket, prefix := d.layout.Target(string(id))
	objectKey := prefix + key

	if !upsert {
		_, err := d.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(objectKey),
		})
		if err == nil {
			return errs.New(errs.ErrKindConflict, "object already exists: "+objectKey)
		}
		if mapped := mapError(err, "head object"); !errs.IsNotFound(mapped) {
			return mapped
		}
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(objectKey),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}
	if _, err := d.client.PutObject(ctx, input); err != nil {
		return mapError(err, "failed to put object")
	}
	return nil
}

// Remove deletes key inside the realm.
func (d *Driver) Remove(ctx context.Context, id realm.ID, key string) error {
	bucket, prefix := d.layout.Target(string(id))
	_, err := d.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(prefix + key),
	})
	if err != nil {
		return mapError(err, "failed to remove object")
	}
	return nil
}

// PublicURL returns the direct URL for key, or "".
func (d *Driver) PublicURL(id realm.ID, key string) string {
	bucket, prefix := d.layout.Target(string(id))
	return d.layout.PublicURL(bucket, prefix+key)
}
