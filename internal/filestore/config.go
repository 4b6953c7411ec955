package filestore

import (
	"net/url"
	"strings"
	"time"
)

// Provider identifies the backend adapter.
type Provider string

const (
	ProviderMinIO    Provider = "minio"
	ProviderS3       Provider = "s3"
	ProviderYandex   Provider = "yandex"
	ProviderManifest Provider = "manifest"
	ProviderCatalog  Provider = "catalog"
)

// Valid reports whether p names a known adapter.
func (p Provider) Valid() bool {
	switch p {
	case ProviderMinIO, ProviderS3, ProviderYandex, ProviderManifest, ProviderCatalog:
		return true
	}
	return false
}

// Config selects and configures the backend adapter.
type Config struct {
	// Provider is the adapter used for listings.
	Provider Provider `yaml:"provider"`

	// Store is the object store that receives uploads and signs catalog
	// records (minio or s3). Empty follows Provider when it is one of them.
	Store Provider `yaml:"store"`

	MinIO    MinIOConfig    `yaml:"minio"`
	S3       S3Config       `yaml:"s3"`
	Yandex   YandexConfig   `yaml:"yandex"`
	Manifest ManifestConfig `yaml:"manifest"`
	Catalog  CatalogConfig  `yaml:"catalog"`
}

// StoreProvider returns the object store used for writes, or "" if none.
func (c *Config) StoreProvider() Provider {
	store := c.Store
	if store == "" {
		store = c.Provider
	}
	if store == ProviderMinIO || store == ProviderS3 {
		return store
	}
	return ""
}

// Layout controls how realms map onto buckets in object stores.
type Layout struct {
	// Bucket is the shared bucket when BucketPerRealm is false; objects of
	// each realm then live under "<realm>/".
	Bucket string `yaml:"bucket"`

	// BucketPerRealm stores every realm in a bucket named after it.
	BucketPerRealm bool `yaml:"bucket_per_realm"`

	// PublicBaseURL, when set, is prefixed to object paths to build direct
	// URLs at list time. When empty, access URLs are presigned per item.
	PublicBaseURL string `yaml:"public_base_url"`

	// PresignTTL bounds presigned URL lifetime.
	PresignTTL time.Duration `yaml:"presign_ttl"`
}

// MinIOConfig holds the settings of the MinIO adapter.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"` // host:port, e.g. "localhost:9000"
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	Region    string `yaml:"region"` // leave empty for MinIO
	Layout    `yaml:",inline"`
}

// S3Config holds the settings of the AWS S3 adapter.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"` // full URL for S3-compatible services; empty for AWS
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
	PathStyle bool   `yaml:"path_style"`
	Layout    `yaml:",inline"`
}

// YandexConfig holds the settings of the Yandex Disk public-folder adapter.
type YandexConfig struct {
	// APIBase is the REST root, normally "https://cloud-api.yandex.net".
	APIBase string `yaml:"api_base"`

	// PublicKeys maps realm names to public share links.
	PublicKeys map[string]string `yaml:"public_keys"`

	// Limit caps the number of entries requested per listing.
	Limit int `yaml:"limit"`

	Timeout time.Duration `yaml:"timeout"`
}

// ManifestConfig holds the settings of the JSON manifest adapter. Exactly
// one of Dir and BaseURL is used; Dir wins when both are set.
type ManifestConfig struct {
	Dir     string        `yaml:"dir"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// CatalogConfig holds the settings of the metadata-table adapter.
type CatalogConfig struct {
	// Limit caps the records read per listing; zero reads all.
	Limit int `yaml:"limit"`
}

const (
	DefaultPresignTTL    = 15 * time.Minute
	DefaultYandexAPIBase = "https://cloud-api.yandex.net"
	DefaultYandexLimit   = 1000
	DefaultHTTPTimeout   = 15 * time.Second
	DefaultCatalogLimit  = 500
)

// DefaultConfig returns a config for the manifest adapter reading
// ./content, with sensible defaults for the other providers.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderManifest,
		MinIO: MinIOConfig{
			Endpoint: "localhost:9000",
			Layout:   Layout{Bucket: "realms", PresignTTL: DefaultPresignTTL},
		},
		S3: S3Config{
			Region: "us-east-1",
			Layout: Layout{Bucket: "realms", PresignTTL: DefaultPresignTTL},
		},
		Yandex: YandexConfig{
			APIBase: DefaultYandexAPIBase,
			Limit:   DefaultYandexLimit,
			Timeout: DefaultHTTPTimeout,
		},
		Manifest: ManifestConfig{
			Dir:     "content",
			Timeout: DefaultHTTPTimeout,
		},
		Catalog: CatalogConfig{Limit: DefaultCatalogLimit},
	}
}

// Target returns the bucket and key prefix holding realm id's objects.
func (l Layout) Target(id string) (bucket, prefix string) {
	if l.BucketPerRealm {
		return id, ""
	}
	return l.Bucket, id + "/"
}

// TTL returns PresignTTL or the default.
func (l Layout) TTL() time.Duration {
	if l.PresignTTL <= 0 {
		return DefaultPresignTTL
	}
	return l.PresignTTL
}

// PublicURL builds the direct URL of key in bucket, or "" when no public
// base is configured.
func (l Layout) PublicURL(bucket, key string) string {
	if l.PublicBaseURL == "" {
		return ""
	}
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(l.PublicBaseURL, "/") + "/" + bucket + "/" + strings.Join(segments, "/")
}
