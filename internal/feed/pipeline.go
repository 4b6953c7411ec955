// Package feed turns a backend listing into an ordered, render-ready realm
// feed and coordinates reloads so only the newest result reaches the page.
//
// A load runs list → filter → sort → resolve → emit. Resolution fans out
// over a fixed worker pool; items that fail to resolve are kept as degraded
// entries, while a failed listing fails the whole load with
// errs.ErrKindBackendUnavailable.
package feed

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/koustreak/realms/internal/errs"
	"github.com/koustreak/realms/internal/filestore"
	"github.com/koustreak/realms/internal/logger"
	"github.com/koustreak/realms/internal/realm"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DefaultWorkers is the resolve pool size when none is configured.
const DefaultWorkers = 6

// Pipeline loads realm feeds from one backend adapter. It holds no
// per-load state and is safe for concurrent use.
type Pipeline struct {
	adapter  filestore.Adapter
	policies *realm.Table
	workers  int
	log      *logger.Logger
	onState  func(realm.ID, State)
	now      func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithWorkers sets the resolve pool size. Values below 1 keep the default.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n >= 1 {
			p.workers = n
		}
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(l *logger.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// WithStateHook registers fn to observe state transitions. fn is called
// from the loading goroutine and must not block.
func WithStateHook(fn func(realm.ID, State)) Option {
	return func(p *Pipeline) { p.onState = fn }
}

// NewPipeline builds a Pipeline over adapter. A nil policies table means
// realm.DefaultTable().
func NewPipeline(adapter filestore.Adapter, policies *realm.Table, opts ...Option) *Pipeline {
	if policies == nil {
		policies = realm.DefaultTable()
	}
	p := &Pipeline{
		adapter:  adapter,
		policies: policies,
		workers:  DefaultWorkers,
		log:      logger.Global(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Workers returns the resolve pool size.
func (p *Pipeline) Workers() int { return p.workers }

// Load runs one full feed load for id. It never returns a Go error: every
// failure is carried in Result.Err.
func (p *Pipeline) Load(ctx context.Context, id realm.ID) Result {
	start := p.now()
	res := Result{Realm: id, Items: []Item{}}
	log := p.log.With().Str("realm", string(id)).Str("load_id", uuid.NewString()).Logger()

	finish := func(state State) Result {
		p.transition(log, id, state)
		res.LoadedAt = p.now()
		res.Duration = res.LoadedAt.Sub(start)
		return res
	}

	// Unknown realms are rejected before the load enters the state machine.
	if !id.Valid() {
		res.Err = errs.Newf(errs.ErrKindInvalidInput, "unknown realm %q", id)
		res.LoadedAt = p.now()
		res.Duration = res.LoadedAt.Sub(start)
		return res
	}

	p.transition(log, id, StateIdle)

	p.transition(log, id, StateListing)
	raw, err := p.adapter.List(ctx, id)
	if err != nil {
		res.Err = errs.Rekind(errs.ErrKindBackendUnavailable, "failed to list realm "+string(id), err)
		log.WarnWith("listing failed", err, nil)
		return finish(StateFailed)
	}

	p.transition(log, id, StateFiltering)
	visible := p.filter(id, raw)
	if len(visible) == 0 {
		log.DebugWith("realm is empty", logger.Fields{"listed": len(raw)})
		return finish(StateDone)
	}

	p.transition(log, id, StateSorting)
	sortByName(visible)

	p.transition(log, id, StateResolving)
	res.Items = p.resolveAll(ctx, log, id, visible)

	res = finish(StateDone)
	log.InfoWith("feed loaded", logger.Fields{
		"listed":      len(raw),
		"items":       len(res.Items),
		"degraded":    res.Degraded(),
		"duration_ms": res.Duration.Milliseconds(),
	})
	return res
}

// Folders returns the realm's folder names in display order.
func (p *Pipeline) Folders(ctx context.Context, id realm.ID) ([]string, error) {
	if !id.Valid() {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "unknown realm %q", id)
	}
	raw, err := p.adapter.List(ctx, id)
	if err != nil {
		return nil, errs.Rekind(errs.ErrKindBackendUnavailable, "failed to list realm "+string(id), err)
	}

	names := []string{}
	for _, r := range raw {
		if r.IsDir && !filestore.IsPlaceholder(r.Name) {
			names = append(names, r.Name)
		}
	}
	c := newCollator()
	sort.SliceStable(names, func(i, j int) bool {
		return c.CompareString(names[i], names[j]) < 0
	})
	return names, nil
}

// filter drops folders, placeholders and entries the realm policy rejects.
// The input slice is never mutated.
func (p *Pipeline) filter(id realm.ID, raw []filestore.RawListing) []filestore.RawListing {
	out := make([]filestore.RawListing, 0, len(raw))
	for _, r := range raw {
		if r.IsDir || filestore.IsPlaceholder(r.Name) {
			continue
		}
		if !p.policies.IsAllowed(id, r.Name) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (p *Pipeline) transition(log *logger.Logger, id realm.ID, s State) {
	log.Debugf("load state %s", s)
	if p.onState != nil {
		p.onState(id, s)
	}
}

// sortByName orders entries by name, ignoring case and accents. Ties keep
// listing order.
func sortByName(items []filestore.RawListing) {
	c := newCollator()
	sort.SliceStable(items, func(i, j int) bool {
		return c.CompareString(items[i].Name, items[j].Name) < 0
	})
}

// newCollator returns a root-locale collator. Collators are not safe for
// concurrent use, so every sort gets its own.
func newCollator() *collate.Collator {
	return collate.New(language.Und, collate.Loose)
}

// newItem builds the feed entry for raw. url is empty for degraded items.
func newItem(id realm.ID, raw filestore.RawListing, url string) Item {
	cls := realm.Classify(id, raw.Name)
	mime := raw.Mime
	if mime == "" {
		mime = filestore.MimeByExt(cls.Ext)
	}
	size := raw.Size
	if size < 0 {
		size = 0
	}
	return Item{
		Name:      raw.Name,
		SizeBytes: uint64(size),
		Mime:      mime,
		AccessURL: url,
		Category:  cls.Category,
		IconRef:   cls.Category.IconRef(),
		Degraded:  url == "",
	}
}
