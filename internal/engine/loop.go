package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/starford/vaultgraph/internal/apperr"
	"github.com/starford/vaultgraph/internal/interaction"
)

type call struct {
	fn   func(*Engine) error
	done chan error
}

// Loop drives an Engine from a single goroutine at a fixed frame rate.
//
// Concurrency model: only the Run goroutine touches the engine. Other
// goroutines send work through channels (RequestRebuild, Do) and read the
// latest published Snapshot without locking.
type Loop struct {
	engine *Engine
	tick   time.Duration
	logger *slog.Logger

	// OnRebuild and OnFrame run on the loop goroutine after a snapshot is
	// published. They must not block.
	OnRebuild func(*Snapshot)
	OnFrame   func(*Snapshot)

	rebuildCh chan struct{}
	callCh    chan call
	stopped   chan struct{}
	snap      atomic.Pointer[Snapshot]
	pointer   interaction.Pointer
}

// NewLoop returns a loop ticking fps times per second.
func NewLoop(e *Engine, fps int, logger *slog.Logger) *Loop {
	if fps <= 0 {
		fps = 30
	}
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loop{
		engine:    e,
		tick:      time.Second / time.Duration(fps),
		logger:    logger,
		rebuildCh: make(chan struct{}, 1),
		callCh:    make(chan call),
		stopped:   make(chan struct{}),
	}
	l.snap.Store(e.Snapshot())
	return l
}

// Snapshot returns the most recently published snapshot.
func (l *Loop) Snapshot() *Snapshot { return l.snap.Load() }

// RequestRebuild schedules a rebuild. Requests made while one is pending
// are coalesced.
func (l *Loop) RequestRebuild() {
	select {
	case l.rebuildCh <- struct{}{}:
	default:
	}
}

// Do runs fn on the loop goroutine and waits for it.
func (l *Loop) Do(ctx context.Context, fn func(*Engine) error) error {
	c := call{fn: fn, done: make(chan error, 1)}
	select {
	case l.callCh <- c:
	case <-l.stopped:
		return fmt.Errorf("engine: loop stopped: %w", apperr.ErrUnavailable)
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-c.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ApplySettings replaces the engine settings on the loop goroutine.
func (l *Loop) ApplySettings(ctx context.Context, s Settings) error {
	return l.UpdateSettings(ctx, func(cur *Settings) { *cur = s })
}

// UpdateSettings runs mutate on a copy of the active settings and applies
// the result, all on the loop goroutine.
func (l *Loop) UpdateSettings(ctx context.Context, mutate func(*Settings)) error {
	return l.Do(ctx, func(e *Engine) error {
		s := e.Settings()
		mutate(&s)
		before := e.Version()
		if err := e.Apply(ctx, s); err != nil {
			return err
		}
		l.publish(e.Version() != before)
		return nil
	})
}

// SetPointer queues pointer input for the next frame. Pos, Inside and Down
// take the latest value. Edge flags (Pressed, Released, DoubleClicked)
// accumulate and Scroll adds up until a frame consumes them.
func (l *Loop) SetPointer(ctx context.Context, p interaction.Pointer) error {
	return l.Do(ctx, func(*Engine) error {
		cur := &l.pointer
		cur.Pos, cur.Inside, cur.Down = p.Pos, p.Inside, p.Down
		cur.Pressed = cur.Pressed || p.Pressed
		cur.Released = cur.Released || p.Released
		cur.DoubleClicked = cur.DoubleClicked || p.DoubleClicked
		cur.Scroll += p.Scroll
		return nil
	})
}

// Run performs the initial rebuild and then ticks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.stopped)

	l.rebuild(ctx)

	ticker := time.NewTicker(l.tick)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil

		case <-l.rebuildCh:
			l.rebuild(ctx)

		case c := <-l.callCh:
			c.done <- c.fn(l.engine)

		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			l.engine.Frame(min(dt, 4*l.tick.Seconds()), l.pointer, nil)
			l.pointer.Pressed, l.pointer.Released, l.pointer.DoubleClicked = false, false, false
			l.pointer.Scroll = 0
			l.publish(false)
		}
	}
}

func (l *Loop) rebuild(ctx context.Context) {
	if err := l.engine.Rebuild(ctx); err != nil {
		l.logger.Warn("engine: rebuild failed", slog.String("error", err.Error()))
		return
	}
	l.publish(true)
}

func (l *Loop) publish(rebuilt bool) {
	s := l.engine.Snapshot()
	l.snap.Store(s)
	if rebuilt && l.OnRebuild != nil {
		l.OnRebuild(s)
	}
	if !rebuilt && l.OnFrame != nil {
		l.OnFrame(s)
	}
}
