// Package poller runs the two background ticking loops (calendars, task
// lists) that keep the entry stores fresh, per spec §4.8, plus the
// SIGHUP-triggered immediate resync the original carries (SPEC_FULL.md
// §12).
//
// Grounded on _examples/original_source/src/main.rs's two independent
// tokio loops and their `Notify`-based manual-trigger channels, adapted to
// Go's `time.Ticker` plus buffered trigger channels, and on
// _examples/jra3-linear-fuse/internal/sync/worker.go's ticker-driven
// worker shape for the host-side texture (stop/done channels, one
// goroutine per loop).
package poller

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/jra3/orgfs/internal/reconciler"
)

// DefaultInterval mirrors the original's POLL_INTERVAL.
const DefaultInterval = 120 * time.Second

// maxConcurrentSyncs bounds how many per-parent sync commands a single
// tick fans out at once, so a large number of calendars/task lists
// doesn't open unbounded concurrent remote calls.
const maxConcurrentSyncs = 4

// Poller owns the two ticking loops and the command channel they enqueue
// sync commands onto.
type Poller struct {
	Commands chan<- reconciler.Command
	Interval time.Duration

	CalendarIDs []string
	TaskListIDs []string

	// TriggerCalendars and TriggerTasklists are kicked (non-blocking
	// send) by a SIGHUP handler to force an immediate resync and reset
	// that loop's ticker, per SPEC_FULL.md §12.
	TriggerCalendars chan struct{}
	TriggerTasklists chan struct{}
}

// New returns a Poller for the given parents, writing sync commands to
// commands. The caller owns the channel's lifetime.
func New(commands chan<- reconciler.Command, calendarIDs, taskListIDs []string) *Poller {
	return &Poller{
		Commands:         commands,
		Interval:         DefaultInterval,
		CalendarIDs:      calendarIDs,
		TaskListIDs:      taskListIDs,
		TriggerCalendars: make(chan struct{}, 1),
		TriggerTasklists: make(chan struct{}, 1),
	}
}

// Run starts both loops and blocks until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	var g errgroup.Group
	g.Go(func() error {
		p.loop(ctx, "calendar", p.TriggerCalendars, p.CalendarIDs, reconciler.KindSyncCalendar)
		return nil
	})
	g.Go(func() error {
		p.loop(ctx, "tasklist", p.TriggerTasklists, p.TaskListIDs, reconciler.KindSyncTasklist)
		return nil
	})
	_ = g.Wait()
}

// Kick resets both loops' intervals and fires an immediate sync of every
// known parent, per spec's SIGHUP behavior.
func (p *Poller) Kick() {
	select {
	case p.TriggerCalendars <- struct{}{}:
	default:
	}
	select {
	case p.TriggerTasklists <- struct{}{}:
	default:
	}
}

func (p *Poller) loop(ctx context.Context, label string, trigger <-chan struct{}, parentIDs []string, kind reconciler.Kind) {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.syncAll(ctx, label, parentIDs, kind)
		case <-trigger:
			ticker.Reset(p.Interval)
			p.syncAll(ctx, label, parentIDs, kind)
		}
	}
}

// syncAll fans the per-parent sync commands out to the channel, with at
// most maxConcurrentSyncs sends in flight at once, and returns when every
// send has completed or ctx is done.
func (p *Poller) syncAll(ctx context.Context, label string, parentIDs []string, kind reconciler.Kind) {
	if len(parentIDs) == 0 {
		return
	}
	log.Printf("[poller] syncing %d %s parents", len(parentIDs), label)

	sem := semaphore.NewWeighted(maxConcurrentSyncs)
	var g errgroup.Group
	for _, id := range parentIDs {
		id := id
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				return nil
			}
			defer sem.Release(1)
			select {
			case p.Commands <- reconciler.Command{Kind: kind, ParentID: id}:
			case <-ctx.Done():
			}
			return nil
		})
	}
	_ = g.Wait()
}
