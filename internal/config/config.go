// Package config loads the realms server configuration: a YAML file, then
// an optional .env file, then REALMS_* environment overrides.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"go.yaml.in/yaml/v3"

	"github.com/koustreak/realms/internal/database"
	"github.com/koustreak/realms/internal/errs"
	"github.com/koustreak/realms/internal/feed"
	"github.com/koustreak/realms/internal/filestore"
	"github.com/koustreak/realms/internal/logger"
	"github.com/koustreak/realms/internal/realm"
	"github.com/koustreak/realms/internal/server"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "REALMS_"

// Config is the full server configuration.
type Config struct {
	Server   server.Config       `yaml:"server"`
	Log      logger.Config       `yaml:"log"`
	Feed     FeedConfig          `yaml:"feed"`
	Backend  filestore.Config    `yaml:"backend"`
	Database database.Config     `yaml:"database"`
	Upload   server.UploadConfig `yaml:"upload"`

	// Realms overrides per-realm extension allow-lists; "*" allows all.
	Realms map[string][]string `yaml:"realms"`
}

type FeedConfig struct {
	// Workers bounds concurrent access URL resolves per load.
	Workers int `yaml:"workers"`
}

// Default returns a config that runs with the manifest provider and no
// database.
func Default() *Config {
	db := database.DefaultConfig("")
	db.Migrate = true
	return &Config{
		Server:   server.DefaultConfig(),
		Log:      *logger.DefaultConfig(),
		Feed:     FeedConfig{Workers: feed.DefaultWorkers},
		Backend:  *filestore.DefaultConfig(),
		Database: *db,
		Upload:   server.UploadConfig{MaxBytes: server.DefaultMaxUploadBytes},
	}
}

// Load reads path (skipped when empty) over the defaults, applies .env and
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindNotFound, "read config "+path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "parse config "+path, err)
		}
	}

	// a missing .env is normal
	_ = godotenv.Load()

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays REALMS_* variables found by lookup.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"ADDR":              &c.Server.Addr,
		"LOG_LEVEL":         &c.Log.Level,
		"LOG_FORMAT":        &c.Log.Format,
		"DATABASE_DSN":      &c.Database.DSN,
		"JWT_SECRET":        &c.Upload.JWTSecret,
		"MINIO_ENDPOINT":    &c.Backend.MinIO.Endpoint,
		"MINIO_ACCESS_KEY":  &c.Backend.MinIO.AccessKey,
		"MINIO_SECRET_KEY":  &c.Backend.MinIO.SecretKey,
		"S3_ENDPOINT":       &c.Backend.S3.Endpoint,
		"S3_ACCESS_KEY":     &c.Backend.S3.AccessKey,
		"S3_SECRET_KEY":     &c.Backend.S3.SecretKey,
		"S3_REGION":         &c.Backend.S3.Region,
		"MANIFEST_DIR":      &c.Backend.Manifest.Dir,
		"MANIFEST_BASE_URL": &c.Backend.Manifest.BaseURL,
	}
	for key, dst := range strs {
		if v, found := lookup(EnvPrefix + key); found {
			*dst = v
		}
	}

	if v, found := lookup(EnvPrefix + "PROVIDER"); found {
		c.Backend.Provider = filestore.Provider(v)
	}
	if v, found := lookup(EnvPrefix + "STORE"); found {
		c.Backend.Store = filestore.Provider(v)
	}
	if v, found := lookup(EnvPrefix + "DATABASE_DRIVER"); found {
		c.Database.Driver = database.Driver(v)
	}
	if v, found := lookup(EnvPrefix + "WORKERS"); found {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errs.Wrap(errs.ErrKindInvalidInput, EnvPrefix+"WORKERS must be an integer", err)
		}
		c.Feed.Workers = n
	}
	return nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if !c.Backend.Provider.Valid() {
		return errs.Newf(errs.ErrKindInvalidInput, "unknown backend provider %q", c.Backend.Provider)
	}
	if s := c.Backend.Store; s != "" && s != filestore.ProviderMinIO && s != filestore.ProviderS3 {
		return errs.Newf(errs.ErrKindInvalidInput, "backend store must be minio or s3, got %q", s)
	}
	if c.Feed.Workers < 1 {
		return errs.Newf(errs.ErrKindInvalidInput, "feed.workers must be at least 1, got %d", c.Feed.Workers)
	}
	if c.Backend.Provider == filestore.ProviderCatalog && !c.Database.Enabled() {
		return errs.New(errs.ErrKindInvalidInput, "catalog provider requires database.dsn")
	}
	if c.Database.Enabled() {
		if err := c.Database.Validate(); err != nil {
			return err
		}
	}
	if c.Upload.MaxBytes < 0 {
		return errs.Newf(errs.ErrKindInvalidInput, "upload.max_bytes must not be negative, got %d", c.Upload.MaxBytes)
	}
	if _, err := c.Policies(); err != nil {
		return err
	}
	return nil
}

// Policies builds the realm policy table with the configured overrides.
func (c *Config) Policies() (*realm.Table, error) {
	return realm.NewTable(c.Realms)
}

// UploadsEnabled reports whether a writable store and a database are both
// configured.
func (c *Config) UploadsEnabled() bool {
	return c.Backend.StoreProvider() != "" && c.Database.Enabled()
}
