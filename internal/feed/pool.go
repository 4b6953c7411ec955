package feed

import (
	"context"
	"fmt"

	"github.com/koustreak/realms/internal/errs"
	"github.com/koustreak/realms/internal/filestore"
	"github.com/koustreak/realms/internal/logger"
	"github.com/koustreak/realms/internal/metrics"
	"github.com/koustreak/realms/internal/realm"
	"golang.org/x/sync/errgroup"
)

// resolveAll resolves access URLs for sorted entries with at most
// p.workers concurrent adapter calls. Every index is queued once before the
// workers start and the queue is closed, so no item is taken twice or
// skipped. Results are written by index, so completion order never changes
// output order.
func (p *Pipeline) resolveAll(ctx context.Context, log *logger.Logger, id realm.ID, entries []filestore.RawListing) []Item {
	items := make([]Item, len(entries))

	queue := make(chan int, len(entries))
	for i := range entries {
		queue <- i
	}
	close(queue)

	workers := min(p.workers, len(entries))

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := range queue {
				items[i] = p.resolveOne(ctx, log, id, entries[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	return items
}

// resolveOne never fails: a resolution error yields a degraded item.
func (p *Pipeline) resolveOne(ctx context.Context, log *logger.Logger, id realm.ID, entry filestore.RawListing) Item {
	metrics.ResolveStarted()
	defer metrics.ResolveFinished()

	url, err := p.resolveURL(ctx, id, entry)
	if err != nil {
		log.WarnWith("access url unavailable", err, logger.Fields{"name": entry.Name})
		metrics.RecordResolve(true)
		return newItem(id, entry, "")
	}
	metrics.RecordResolve(false)
	return newItem(id, entry, url)
}

func (p *Pipeline) resolveURL(ctx context.Context, id realm.ID, entry filestore.RawListing) (url string, err error) {
	if err := ctx.Err(); err != nil {
		return "", errs.Wrap(errs.ErrKindResolveFailed, "load cancelled", err)
	}

	defer func() {
		if r := recover(); r != nil {
			url, err = "", errs.Newf(errs.ErrKindResolveFailed, "adapter panicked resolving %s: %v", entry.Name, r)
		}
	}()

	url, err = p.adapter.ResolveAccessURL(ctx, id, entry)
	if err != nil {
		return "", errs.Rekind(errs.ErrKindResolveFailed, fmt.Sprintf("failed to resolve %s", entry.Name), err)
	}
	if url == "" {
		return "", errs.Newf(errs.ErrKindResolveFailed, "empty access url for %s", entry.Name)
	}
	return url, nil
}
