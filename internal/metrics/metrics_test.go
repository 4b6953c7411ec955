package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestRecorders(t *testing.T) {
	RecordFeedLoad("visuals", true, 3, 120*time.Millisecond)
	RecordFeedLoad("games", false, 0, time.Millisecond)
	RecordResolve(true)
	RecordSupersededLoad("visuals")
	RecordUpload("memes", 2048, true)

	body := scrape(t)
	assert.Contains(t, body, `realms_feed_loads_total{outcome="ok",realm="visuals"}`)
	assert.Contains(t, body, `realms_feed_loads_total{outcome="error",realm="games"}`)
	assert.Contains(t, body, `realms_feed_items{realm="visuals"} 3`)
	assert.Contains(t, body, `realms_superseded_loads_total{realm="visuals"}`)
	assert.Contains(t, body, "realms_upload_bytes_total")
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/api/v1/realms/{realm}/feed", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/realms/music/feed", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	body := scrape(t)
	assert.Contains(t, body, `route="/api/v1/realms/{realm}/feed"`)
	assert.NotContains(t, body, `route="/api/v1/realms/music/feed"`)
}
