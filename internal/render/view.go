package render

import (
	"time"

	"github.com/dustin/go-humanize"

	"github.com/koustreak/realms/internal/feed"
	"github.com/koustreak/realms/internal/realm"
)

// Unavailable is shown in place of a link that could not be resolved.
const Unavailable = "link unavailable"

// ItemView is one card of the gallery.
type ItemView struct {
	Name      string         `json:"name"`
	Mime      string         `json:"mime,omitempty"`
	SizeBytes uint64         `json:"size_bytes"`
	SizeLabel string         `json:"size_label"`
	Meta      string         `json:"meta"`
	Category  realm.Category `json:"category"`
	IconRef   string         `json:"icon_ref"`
	AccessURL string         `json:"access_url,omitempty"`
	Degraded  bool           `json:"degraded"`
}

// Thumb reports how the card thumbnail is drawn: "image", "video" or "icon".
// Degraded items always fall back to the icon.
func (v ItemView) Thumb() string {
	if v.Degraded || v.AccessURL == "" {
		return "icon"
	}
	switch v.Category {
	case realm.CategoryImage:
		return "image"
	case realm.CategoryVideo:
		return "video"
	default:
		return "icon"
	}
}

// FeedView is the JSON shape of a rendered feed.
type FeedView struct {
	Realm      string     `json:"realm"`
	Generation uint64     `json:"generation"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	ErrorKind  string     `json:"error_kind,omitempty"`
	Items      []ItemView `json:"items"`
	Degraded   int        `json:"degraded"`
	LoadedAt   time.Time  `json:"loaded_at"`
	DurationMs int64      `json:"duration_ms"`
}

const (
	StatusOK    = "ok"
	StatusEmpty = "empty"
	StatusError = "error"
)

// View builds the view model of r. Items is never nil.
func View(r feed.Result) FeedView {
	v := FeedView{
		Realm:      string(r.Realm),
		Generation: r.Generation,
		Items:      make([]ItemView, 0, len(r.Items)),
		LoadedAt:   r.LoadedAt,
		DurationMs: r.Duration.Milliseconds(),
	}

	if !r.OK() {
		v.Status = StatusError
		v.Error = r.Err.Error()
		v.ErrorKind = r.Kind().String()
		return v
	}

	for _, it := range r.Items {
		v.Items = append(v.Items, itemView(it))
	}
	v.Degraded = r.Degraded()
	v.Status = StatusOK
	if len(v.Items) == 0 {
		v.Status = StatusEmpty
	}
	return v
}

func itemView(it feed.Item) ItemView {
	size := humanize.Bytes(it.SizeBytes)
	mime := it.Mime
	if mime == "" {
		mime = "file"
	}
	return ItemView{
		Name:      it.Name,
		Mime:      it.Mime,
		SizeBytes: it.SizeBytes,
		SizeLabel: size,
		Meta:      mime + " • " + size,
		Category:  it.Category,
		IconRef:   it.IconRef,
		AccessURL: it.AccessURL,
		Degraded:  it.Degraded,
	}
}
