// Package catalog adapts the uploaded-files table into a filestore.Adapter.
package catalog

import (
	"context"
	"sort"
	"time"

	"github.com/koustreak/realms/internal/catalog"
	"github.com/koustreak/realms/internal/errs"
	"github.com/koustreak/realms/internal/filestore"
	"github.com/koustreak/realms/internal/realm"
)

// Lister is the slice of catalog.Repository the adapter reads.
type Lister interface {
	ListByRealm(ctx context.Context, id realm.ID, limit int) ([]catalog.File, error)
}

// Adapter lists records newest first. Records carry the public URL written
// at upload time; records without one are presigned through signer.
type Adapter struct {
	files  Lister
	signer filestore.Signer
	ttl    time.Duration
	limit  int
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithSigner presigns records that have no stored URL.
func WithSigner(s filestore.Signer, ttl time.Duration) Option {
	return func(a *Adapter) {
		a.signer = s
		a.ttl = ttl
	}
}

// WithLimit caps the records read per listing.
func WithLimit(n int) Option {
	return func(a *Adapter) { a.limit = n }
}

// New returns an Adapter listing realms from the files catalog.
func New(files Lister, opts ...Option) *Adapter {
	a := &Adapter{files: files, ttl: filestore.DefaultPresignTTL}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// List returns one entry per record plus one IsDir entry per folder.
func (a *Adapter) List(ctx context.Context, id realm.ID) ([]filestore.RawListing, error) {
	files, err := a.files.ListByRealm(ctx, id, a.limit)
	if err != nil {
		return nil, errs.Rekind(errs.ErrKindBackendUnavailable, "failed to list catalog", err)
	}

	out := make([]filestore.RawListing, 0, len(files))
	folders := map[string]struct{}{}
	for _, f := range files {
		if f.Folder != "" {
			folders[f.Folder] = struct{}{}
		}
		if filestore.IsPlaceholder(f.Filename) {
			continue
		}
		out = append(out, filestore.RawListing{
			Name:    f.Filename,
			Size:    max(f.Size, 0),
			Mime:    f.Mime,
			Locator: f.ObjectKey,
			URL:     f.URL,
		})
	}

	names := make([]string, 0, len(folders))
	for name := range folders {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out = append(out, filestore.RawListing{Name: name, Locator: name + "/", IsDir: true})
	}
	return out, nil
}

// ResolveAccessURL returns the stored URL or a presigned one.
func (a *Adapter) ResolveAccessURL(ctx context.Context, id realm.ID, item filestore.RawListing) (string, error) {
	if item.URL != "" {
		return item.URL, nil
	}
	if a.signer == nil {
		return "", errs.Newf(errs.ErrKindResolveFailed, "no url recorded for %s", item.Locator)
	}
	u, err := a.signer.Presign(ctx, id, item.Locator, a.ttl)
	if err != nil {
		return "", errs.Wrap(errs.ErrKindResolveFailed, "failed to presign "+item.Locator, err)
	}
	return u, nil
}
