package filestore

import (
	"path"
	"sort"
	"strings"
)

// RawListing is one backend entry as the adapter saw it.
type RawListing struct {
	// Name is the display name (the last path segment for object stores).
	Name string

	// Size is the byte size of the entry, never negative.
	Size int64

	// Mime is the backend-reported MIME type. May be empty.
	Mime string

	// Locator is the backend-specific key or path of the entry.
	Locator string

	// URL is an access URL embedded in the listing (direct backends).
	// Empty when the backend needs a per-item lookup.
	URL string

	// IsDir marks folder entries. They are excluded from the file feed but
	// kept so callers can derive a folder list.
	IsDir bool
}

// Placeholder names some backends create to keep an empty folder alive.
var placeholders = map[string]struct{}{
	".keep":                   {},
	".emptyFolderPlaceholder": {},
}

// IsPlaceholder reports whether name is a folder-marker object.
func IsPlaceholder(name string) bool {
	_, ok := placeholders[path.Base(name)]
	return ok
}

// ObjectEntries converts flat object keys under prefix into listings: one
// file entry per key plus one IsDir entry for every first-level folder.
// Placeholder objects contribute their folder but no file entry.
func ObjectEntries(prefix string, objects []RawListing) []RawListing {
	out := make([]RawListing, 0, len(objects))
	folders := map[string]struct{}{}

	for _, obj := range objects {
		rel := strings.TrimPrefix(obj.Locator, prefix)
		rel = strings.TrimLeft(rel, "/")
		if rel == "" {
			continue
		}
		if idx := strings.IndexByte(rel, '/'); idx >= 0 {
			folders[rel[:idx]] = struct{}{}
		}
		if strings.HasSuffix(rel, "/") || IsPlaceholder(rel) {
			continue
		}
		obj.Name = path.Base(rel)
		if obj.Size < 0 {
			obj.Size = 0
		}
		out = append(out, obj)
	}

	names := make([]string, 0, len(folders))
	for name := range folders {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out = append(out, RawListing{Name: name, Locator: prefix + name + "/", IsDir: true})
	}
	return out
}
