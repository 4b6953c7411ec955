// Package render turns emitted feed results into things people look at:
// the latest-result board, a JSON view model, an HTML gallery page and a
// CSV export.
package render

import (
	"context"
	"sync"

	"github.com/koustreak/realms/internal/feed"
	"github.com/koustreak/realms/internal/realm"
)

// Board keeps the latest emitted Result per realm. It implements feed.Sink.
type Board struct {
	mu     sync.RWMutex
	latest map[realm.ID]feed.Result
	// changed is closed and replaced whenever a result is stored.
	changed chan struct{}
}

// NewBoard returns an empty Board.
func NewBoard() *Board {
	return &Board{
		latest:  make(map[realm.ID]feed.Result),
		changed: make(chan struct{}),
	}
}

// Render stores r unless the board already holds a newer generation for
// the same realm.
func (b *Board) Render(r feed.Result) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cur, ok := b.latest[r.Realm]; ok && cur.Generation > r.Generation {
		return
	}
	b.latest[r.Realm] = r
	close(b.changed)
	b.changed = make(chan struct{})
}

// Wait blocks until the board holds a result for id with a generation
// newer than after, and returns it. It returns false when ctx ends first.
func (b *Board) Wait(ctx context.Context, id realm.ID, after uint64) (feed.Result, bool) {
	for {
		b.mu.RLock()
		r, ok := b.latest[id]
		changed := b.changed
		b.mu.RUnlock()
		if ok && r.Generation > after {
			return r, true
		}
		select {
		case <-ctx.Done():
			return feed.Result{}, false
		case <-changed:
		}
	}
}

// Latest returns the last Result rendered for id.
func (b *Board) Latest(id realm.ID) (feed.Result, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.latest[id]
	return r, ok
}

// Realms returns how many realms have a rendered result.
func (b *Board) Realms() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.latest)
}
