package feed

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/koustreak/realms/internal/events"
	"github.com/koustreak/realms/internal/logger"
	"github.com/koustreak/realms/internal/metrics"
	"github.com/koustreak/realms/internal/realm"
)

// Sink receives emitted results. Render is called with the service lock
// held and must not block.
type Sink interface {
	Render(Result)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Result)

// Render calls f(r).
func (f SinkFunc) Render(r Result) { f(r) }

// Loader runs a single feed load. *Pipeline implements it.
type Loader interface {
	Load(ctx context.Context, id realm.ID) Result
}

// generation is the process-wide load counter. Tokens only grow, so a
// larger token always belongs to a later load.
var generation atomic.Uint64

type inflight struct {
	gen    uint64
	cancel context.CancelFunc
}

// Service serializes feed loads per realm. Starting a load cancels the
// realm's previous one, and a result reaches the Sink only while its
// generation is still the realm's newest.
type Service struct {
	loader    Loader
	sink      Sink
	publisher events.Publisher
	log       *logger.Logger

	mu     sync.Mutex
	active map[realm.ID]inflight
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithPublisher announces every emitted result as an events.TypeRendered event.
func WithPublisher(p events.Publisher) ServiceOption {
	return func(s *Service) { s.publisher = p }
}

// WithServiceLogger sets the service logger.
func WithServiceLogger(l *logger.Logger) ServiceOption {
	return func(s *Service) { s.log = l }
}

// NewService returns a Service that loads through loader and emits
// current results to sink.
func NewService(loader Loader, sink Sink, opts ...ServiceOption) *Service {
	s := &Service{
		loader: loader,
		sink:   sink,
		log:    logger.Global(),
		active: make(map[realm.ID]inflight),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reload runs a fresh load of id and reports whether its result was
// emitted. A result is dropped when a newer Reload of the same realm started
// meanwhile, or when ctx was cancelled by the caller.
func (s *Service) Reload(ctx context.Context, id realm.ID) (Result, bool) {
	gen := generation.Add(1)
	loadCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if prev, ok := s.active[id]; ok {
		prev.cancel()
	}
	s.active[id] = inflight{gen: gen, cancel: cancel}
	s.mu.Unlock()

	res := s.loader.Load(loadCtx, id)
	res.Generation = gen

	log := s.log.With().Str("realm", string(id)).Uint64("generation", gen).Logger()

	s.mu.Lock()
	cur, ok := s.active[id]
	current := ok && cur.gen == gen
	if current {
		delete(s.active, id)
	}
	if !current || ctx.Err() != nil {
		s.mu.Unlock()
		if !current {
			metrics.RecordSupersededLoad(string(id))
			log.Debug("load superseded, result discarded")
		} else {
			log.Debug("load abandoned by caller")
		}
		return res, false
	}
	s.sink.Render(res)
	s.mu.Unlock()

	metrics.RecordFeedLoad(string(id), res.OK(), len(res.Items), res.Duration)
	if s.publisher != nil {
		s.publisher.Publish(events.Event{
			Type:       events.TypeRendered,
			Realm:      string(id),
			Generation: gen,
			Items:      len(res.Items),
		})
	}
	return res, true
}

// Watch reloads a realm for every invalidation received on ch until ctx is
// done or ch is closed. Reloads run concurrently so a newer invalidation
// supersedes a slower earlier one. Watch returns after in-flight reloads end.
func (s *Service) Watch(ctx context.Context, ch <-chan events.Event) {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if ev.Type != events.TypeInvalidated {
				continue
			}
			id, err := realm.Parse(ev.Realm)
			if err != nil {
				s.log.WarnWith("ignoring invalidation", err, logger.Fields{"realm": ev.Realm})
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.Reload(ctx, id)
			}()
		}
	}
}
