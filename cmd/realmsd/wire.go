package main

import (
	"context"
	"time"

	"github.com/koustreak/realms/internal/catalog"
	"github.com/koustreak/realms/internal/database"
	"github.com/koustreak/realms/internal/database/mysql"
	"github.com/koustreak/realms/internal/database/postgres"
	"github.com/koustreak/realms/internal/errs"
	"github.com/koustreak/realms/internal/filestore"
	fscatalog "github.com/koustreak/realms/internal/filestore/catalog"
	"github.com/koustreak/realms/internal/filestore/manifest"
	"github.com/koustreak/realms/internal/filestore/minio"
	"github.com/koustreak/realms/internal/filestore/s3"
	"github.com/koustreak/realms/internal/filestore/yandex"
)

// objectStore is a backend that lists, accepts uploads and signs URLs.
type objectStore interface {
	filestore.Adapter
	filestore.Writer
	filestore.Signer
}

func openDriver(ctx context.Context, cfg *database.Config) (database.DB, error) {
	switch cfg.Driver {
	case database.DriverPostgres:
		return postgres.New(ctx, cfg)
	case database.DriverMySQL:
		return mysql.New(ctx, cfg)
	default:
		return nil, errs.Newf(errs.ErrKindInvalidInput, "unsupported database driver %q", cfg.Driver)
	}
}

func openStore(ctx context.Context, cfg *filestore.Config, p filestore.Provider) (objectStore, error) {
	switch p {
	case filestore.ProviderMinIO:
		return minio.New(ctx, &cfg.MinIO)
	case filestore.ProviderS3:
		return s3.New(ctx, &cfg.S3)
	default:
		return nil, errs.Newf(errs.ErrKindInvalidInput, "%q is not an object store", p)
	}
}

// openAdapter returns the listing backend. Object-store providers reuse
// store.
func openAdapter(ctx context.Context, cfg *filestore.Config, store objectStore, repo *catalog.Repository) (filestore.Adapter, error) {
	switch cfg.Provider {
	case filestore.ProviderMinIO, filestore.ProviderS3:
		if store != nil && cfg.StoreProvider() == cfg.Provider {
			return store, nil
		}
		return openStore(ctx, cfg, cfg.Provider)
	case filestore.ProviderYandex:
		return yandex.New(&cfg.Yandex)
	case filestore.ProviderManifest:
		return manifest.New(&cfg.Manifest)
	case filestore.ProviderCatalog:
		if repo == nil {
			return nil, errs.New(errs.ErrKindInvalidInput, "catalog provider requires a database")
		}
		opts := []fscatalog.Option{fscatalog.WithLimit(cfg.Catalog.Limit)}
		if store != nil {
			opts = append(opts, fscatalog.WithSigner(store, presignTTL(cfg)))
		}
		return fscatalog.New(repo, opts...), nil
	default:
		return nil, errs.Newf(errs.ErrKindInvalidInput, "unknown backend provider %q", cfg.Provider)
	}
}

func presignTTL(cfg *filestore.Config) time.Duration {
	if cfg.StoreProvider() == filestore.ProviderS3 {
		return cfg.S3.TTL()
	}
	return cfg.MinIO.TTL()
}
