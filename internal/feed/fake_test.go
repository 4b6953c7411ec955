package feed

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/koustreak/realms/internal/errs"
	"github.com/koustreak/realms/internal/filestore"
	"github.com/koustreak/realms/internal/realm"
)

// fakeAdapter is a scriptable filestore.Adapter that also measures how
// many ResolveAccessURL calls overlap.
type fakeAdapter struct {
	mu        sync.Mutex
	listing   []filestore.RawListing
	listErr   error
	listCalls int
	onList    func(ctx context.Context, call int)

	delay    func(item filestore.RawListing) time.Duration
	failFor  map[string]bool
	panicFor string

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	resolved    atomic.Int32
}

func (f *fakeAdapter) List(ctx context.Context, _ realm.ID) ([]filestore.RawListing, error) {
	f.mu.Lock()
	f.listCalls++
	call := f.listCalls
	hook := f.onList
	f.mu.Unlock()

	if hook != nil {
		hook(ctx, call)
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]filestore.RawListing, len(f.listing))
	copy(out, f.listing)
	return out, nil
}

func (f *fakeAdapter) ResolveAccessURL(ctx context.Context, _ realm.ID, item filestore.RawListing) (string, error) {
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		prev := f.maxInFlight.Load()
		if cur <= prev || f.maxInFlight.CompareAndSwap(prev, cur) {
			break
		}
	}
	f.resolved.Add(1)

	if f.delay != nil {
		select {
		case <-time.After(f.delay(item)):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if item.Name == f.panicFor {
		panic("boom")
	}
	if f.failFor[item.Name] {
		return "", errs.New(errs.ErrKindResolveFailed, "link expired")
	}
	return "https://cdn.example.com/" + item.Name, nil
}

func files(names ...string) []filestore.RawListing {
	out := make([]filestore.RawListing, len(names))
	for i, n := range names {
		out[i] = filestore.RawListing{Name: n, Size: int64(100 + i), Locator: "root/" + n}
	}
	return out
}

func names(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}

// recordingSink keeps every rendered result.
type recordingSink struct {
	mu      sync.Mutex
	results []Result
}

func (s *recordingSink) Render(r Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
}

func (s *recordingSink) all() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Result, len(s.results))
	copy(out, s.results)
	return out
}
