// Package yandex implements filestore.Adapter over Yandex Disk public
// folders. Each realm maps to one public share link; listings carry only
// paths, so every access URL costs one download-link request.
package yandex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/koustreak/realms/internal/errs"
	"github.com/koustreak/realms/internal/filestore"
	"github.com/koustreak/realms/internal/realm"
)

const (
	resourcesPath = "/v1/disk/public/resources"
	downloadPath  = "/v1/disk/public/resources/download"
)

// Client talks to the Yandex Disk REST API.
type Client struct {
	base   string
	keys   map[realm.ID]string
	limit  int
	client *http.Client
}

// New builds a Client from cfg. Realm names in cfg.PublicKeys must be valid.
func New(cfg *filestore.YandexConfig) (*Client, error) {
	keys := make(map[realm.ID]string, len(cfg.PublicKeys))
	for name, key := range cfg.PublicKeys {
		id, err := realm.Parse(name)
		if err != nil {
			return nil, err
		}
		if key = strings.TrimSpace(key); key != "" {
			keys[id] = key
		}
	}

	base := strings.TrimRight(cfg.APIBase, "/")
	if base == "" {
		base = filestore.DefaultYandexAPIBase
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = filestore.DefaultYandexLimit
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = filestore.DefaultHTTPTimeout
	}

	return &Client{
		base:   base,
		keys:   keys,
		limit:  limit,
		client: &http.Client{Timeout: timeout},
	}, nil
}

type resource struct {
	Name     string `json:"name"`
	Type     string `json:"type"` // "file" or "dir"
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
	Path     string `json:"path"`
}

type listing struct {
	Embedded struct {
		Items []resource `json:"items"`
	} `json:"_embedded"`
	Items []resource `json:"items"`
}

type link struct {
	Href   string `json:"href"`
	Method string `json:"method"`
}

// List fetches the top level of the realm's public folder.
func (c *Client) List(ctx context.Context, id realm.ID) ([]filestore.RawListing, error) {
	key, ok := c.keys[id]
	if !ok {
		return nil, errs.Newf(errs.ErrKindBackendUnavailable, "no public key configured for realm %q", id)
	}

	q := url.Values{}
	q.Set("public_key", key)
	q.Set("limit", strconv.Itoa(c.limit))

	var body listing
	if err := c.getJSON(ctx, resourcesPath, q, &body); err != nil {
		return nil, errs.Rekind(errs.ErrKindBackendUnavailable, "yandex list failed", err)
	}

	items := body.Embedded.Items
	if len(items) == 0 {
		items = body.Items
	}

	out := make([]filestore.RawListing, 0, len(items))
	for _, it := range items {
		if filestore.IsPlaceholder(it.Name) {
			continue
		}
		size := it.Size
		if size < 0 {
			size = 0
		}
		out = append(out, filestore.RawListing{
			Name:    it.Name,
			Size:    size,
			Mime:    it.MimeType,
			Locator: it.Path,
			IsDir:   it.Type == "dir",
		})
	}
	return out, nil
}

// ResolveAccessURL asks Yandex for a temporary direct download link.
func (c *Client) ResolveAccessURL(ctx context.Context, id realm.ID, item filestore.RawListing) (string, error) {
	key, ok := c.keys[id]
	if !ok {
		return "", errs.Newf(errs.ErrKindResolveFailed, "no public key configured for realm %q", id)
	}

	q := url.Values{}
	q.Set("public_key", key)
	if item.Locator != "" {
		q.Set("path", item.Locator)
	}

	var body link
	if err := c.getJSON(ctx, downloadPath, q, &body); err != nil {
		return "", errs.Rekind(errs.ErrKindResolveFailed, "yandex download link failed", err)
	}
	if body.Href == "" {
		return "", errs.New(errs.ErrKindResolveFailed, "yandex returned an empty download link for "+item.Locator)
	}
	return body.Href, nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path+"?"+q.Encode(), nil)
	if err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "build request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return mapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return mapStatus(resp.StatusCode, fmt.Sprintf("yandex %s (%d): %s", path, resp.StatusCode, strings.TrimSpace(string(text))))
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return errs.Wrap(errs.ErrKindQueryFailed, "decode yandex response", err)
	}
	return nil
}
