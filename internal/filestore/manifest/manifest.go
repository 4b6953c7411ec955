// Package manifest implements filestore.Adapter over per-realm JSON
// manifests ("<realm>.json"), each an array of shared-link entries. Links
// are usable as they are, so this is a direct-URL backend.
package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/koustreak/realms/internal/errs"
	"github.com/koustreak/realms/internal/filestore"
	"github.com/koustreak/realms/internal/realm"
)

// Entry is one record of a manifest file.
type Entry struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Mime string `json:"mime"`
	Size int64  `json:"size"`
}

// Store reads manifests from a directory or an HTTP base URL.
type Store struct {
	dir     string
	baseURL string
	client  *http.Client
}

// New builds a Store from cfg.
func New(cfg *filestore.ManifestConfig) (*Store, error) {
	if cfg.Dir == "" && cfg.BaseURL == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "manifest adapter needs a dir or base_url")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = filestore.DefaultHTTPTimeout
	}
	return &Store{
		dir:     cfg.Dir,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// List reads <realm>.json. A missing manifest means an empty realm.
func (s *Store) List(ctx context.Context, id realm.ID) ([]filestore.RawListing, error) {
	raw, err := s.read(ctx, string(id)+".json")
	if err != nil {
		if errs.IsNotFound(err) {
			return []filestore.RawListing{}, nil
		}
		return nil, errs.Rekind(errs.ErrKindBackendUnavailable, "failed to load manifest", err)
	}

	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, errs.Wrap(errs.ErrKindBackendUnavailable, "malformed manifest for "+string(id), err)
	}

	out := make([]filestore.RawListing, 0, len(entries))
	for _, e := range entries {
		name := e.Name
		if name == "" {
			name = nameFromURL(e.URL)
		}
		if name == "" || filestore.IsPlaceholder(name) {
			continue
		}
		size := e.Size
		if size < 0 {
			size = 0
		}
		out = append(out, filestore.RawListing{
			Name:    name,
			Size:    size,
			Mime:    e.Mime,
			Locator: e.URL,
			URL:     DirectLink(e.URL),
		})
	}
	return out, nil
}

// ResolveAccessURL returns the link embedded in the manifest.
func (s *Store) ResolveAccessURL(_ context.Context, _ realm.ID, item filestore.RawListing) (string, error) {
	if item.URL == "" {
		return "", errs.New(errs.ErrKindResolveFailed, "manifest entry has no url: "+item.Name)
	}
	return item.URL, nil
}

func (s *Store) read(ctx context.Context, name string) ([]byte, error) {
	if s.dir != "" {
		raw, err := os.ReadFile(filepath.Join(s.dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errs.Wrap(errs.ErrKindNotFound, "manifest missing", err)
		}
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindConnectionFailed, "read manifest", err)
		}
		return raw, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/"+name, nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "build manifest request", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "fetch manifest", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errs.New(errs.ErrKindNotFound, "manifest missing")
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, errs.Newf(errs.ErrKindQueryFailed, "fetch manifest: status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "read manifest body", err)
	}
	return raw, nil
}

var dlParam = regexp.MustCompile(`([?&]dl=)[01]`)

// DirectLink turns a Dropbox share link into a direct download link by
// forcing dl=1. Other URLs are returned unchanged.
func DirectLink(u string) string {
	if u == "" {
		return ""
	}
	return dlParam.ReplaceAllString(u, "${1}1")
}

func nameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return ""
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." {
		return ""
	}
	return name
}
