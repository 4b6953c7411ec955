package feed

import (
	"time"

	"github.com/koustreak/realms/internal/errs"
	"github.com/koustreak/realms/internal/realm"
)

// Item is one render-ready entry of a realm feed.
type Item struct {
	Name      string         `json:"name"`
	SizeBytes uint64         `json:"size_bytes"`
	Mime      string         `json:"mime,omitempty"`
	AccessURL string         `json:"access_url,omitempty"`
	Category  realm.Category `json:"category"`
	IconRef   string         `json:"icon_ref"`

	// Degraded is set when the access URL could not be resolved. The item
	// is still shown, with a fallback presentation.
	Degraded bool `json:"degraded"`
}

// Result is the outcome of one feed load. Err is nil for Ok results; an
// empty Ok result means the realm has nothing to show.
type Result struct {
	Realm      realm.ID
	Generation uint64
	Items      []Item
	Err        error
	LoadedAt   time.Time
	Duration   time.Duration
}

// OK reports whether the load succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Kind is the error kind of a failed load, ErrKindUnknown otherwise.
func (r Result) Kind() errs.ErrKind { return errs.KindOf(r.Err) }

// Degraded counts items without an access URL.
func (r Result) Degraded() int {
	n := 0
	for _, it := range r.Items {
		if it.Degraded {
			n++
		}
	}
	return n
}

// State is a step of the load state machine:
// Idle → Listing → Filtering → Sorting → Resolving → Done | Failed.
type State int

const (
	StateIdle State = iota
	StateListing
	StateFiltering
	StateSorting
	StateResolving
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListing:
		return "listing"
	case StateFiltering:
		return "filtering"
	case StateSorting:
		return "sorting"
	case StateResolving:
		return "resolving"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
