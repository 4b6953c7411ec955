package manifest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/realms/internal/errs"
	"github.com/koustreak/realms/internal/filestore"
	"github.com/koustreak/realms/internal/realm"
)

const memes = `[
  {"name": "cat.png", "url": "https://www.dropbox.com/scl/fi/x/cat.png?rlkey=k&dl=0", "mime": "image/png", "size": 2048},
  {"url": "https://www.dropbox.com/s/y/Dancing%20Dog.mp4?dl=0"},
  {"name": ".keep", "url": "https://example.com/.keep"},
  {"name": "broken.gif", "size": -5}
]`

func TestDirectLink(t *testing.T) {
	assert.Equal(t, "https://www.dropbox.com/s/a/b.png?dl=1", DirectLink("https://www.dropbox.com/s/a/b.png?dl=0"))
	assert.Equal(t, "https://www.dropbox.com/scl/fi/x?rlkey=k&dl=1", DirectLink("https://www.dropbox.com/scl/fi/x?rlkey=k&dl=0"))
	assert.Equal(t, "https://cdn.example.com/a.png", DirectLink("https://cdn.example.com/a.png"))
	assert.Empty(t, DirectLink(""))
}

func TestStore_ListFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "memes.json"), []byte(memes), 0o644))

	s, err := New(&filestore.ManifestConfig{Dir: dir})
	require.NoError(t, err)

	items, err := s.List(context.Background(), realm.Memes)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "cat.png", items[0].Name)
	assert.Equal(t, "https://www.dropbox.com/scl/fi/x/cat.png?rlkey=k&dl=1", items[0].URL)
	assert.Equal(t, int64(2048), items[0].Size)

	assert.Equal(t, "Dancing Dog.mp4", items[1].Name)

	assert.Equal(t, "broken.gif", items[2].Name)
	assert.Equal(t, int64(0), items[2].Size)
	_, err = s.ResolveAccessURL(context.Background(), realm.Memes, items[2])
	assert.True(t, errs.IsResolveFailed(err))

	u, err := s.ResolveAccessURL(context.Background(), realm.Memes, items[0])
	require.NoError(t, err)
	assert.Equal(t, items[0].URL, u)
}

func TestStore_MissingManifestIsEmpty(t *testing.T) {
	s, err := New(&filestore.ManifestConfig{Dir: t.TempDir()})
	require.NoError(t, err)

	items, err := s.List(context.Background(), realm.Games)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestStore_MalformedManifest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "music.json"), []byte(`{not json`), 0o644))
	s, err := New(&filestore.ManifestConfig{Dir: dir})
	require.NoError(t, err)

	_, err = s.List(context.Background(), realm.Music)
	assert.True(t, errs.IsBackendUnavailable(err))
}

func TestStore_ListOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/content/memes.json":
			_, _ = w.Write([]byte(memes))
		case "/content/movies.json":
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	s, err := New(&filestore.ManifestConfig{BaseURL: srv.URL + "/content/"})
	require.NoError(t, err)
	ctx := context.Background()

	items, err := s.List(ctx, realm.Memes)
	require.NoError(t, err)
	assert.Len(t, items, 3)

	items, err = s.List(ctx, realm.Music)
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = s.List(ctx, realm.Movies)
	assert.True(t, errs.IsBackendUnavailable(err))
}

func TestNew_RequiresSource(t *testing.T) {
	_, err := New(&filestore.ManifestConfig{})
	assert.True(t, errs.IsInvalidInput(err))
}
