// Package pager drives cursor-based pagination for a scrolling feed.
//
// A Driver owns the fetch state of one feed. It requests the next page in
// two situations: the reader scrolled close to the bottom, or the content
// loaded so far is too short to scroll at all. At most one request is in
// flight at a time, and every pending timer is cancelled when the feed is
// reset or closed.
package pager

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Errors returned by Start.
var (
	ErrClosed  = errors.New("pager: driver closed")
	ErrStarted = errors.New("pager: driver already started")
)

// State is the fetch state of a driver.
type State int

const (
	Idle State = iota
	Fetching
	Exhausted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Page is one response from a Source. An empty NextCursor means there are
// no further pages.
type Page[T any] struct {
	Items      []T
	NextCursor string
}

// Source fetches the page starting at cursor. The first page has an empty
// cursor.
type Source[T any] interface {
	FetchPage(ctx context.Context, cursor string) (Page[T], error)
}

// SourceFunc adapts a function to a Source.
type SourceFunc[T any] func(ctx context.Context, cursor string) (Page[T], error)

func (f SourceFunc[T]) FetchPage(ctx context.Context, cursor string) (Page[T], error) {
	return f(ctx, cursor)
}

// Viewport reports the scroll geometry of the view showing the feed.
// Implementations are called with the driver's lock held and must not
// call back into the driver.
type Viewport interface {
	ScrollTop() int
	ViewportHeight() int
	ContentHeight() int
}

// Options holds the pagination thresholds.
type Options struct {
	// ScrollThreshold is the distance from the bottom of the content at
	// which a scroll requests the next page.
	ScrollThreshold int
	// ScrollableMargin is how much taller than the viewport the content
	// must be before the view counts as scrollable.
	ScrollableMargin int
	// SettleDelay lets the view reflow before scrollability is checked.
	SettleDelay time.Duration
	// RetryDelay is the pause after an auto-triggered page before the
	// next scrollability check.
	RetryDelay time.Duration
}

// DefaultOptions returns the stock thresholds.
func DefaultOptions() Options {
	return Options{
		ScrollThreshold:  300,
		ScrollableMargin: 100,
		SettleDelay:      200 * time.Millisecond,
		RetryDelay:       500 * time.Millisecond,
	}
}

// Option configures a Driver.
type Option func(*settings)

type settings struct {
	opts     Options
	sched    Scheduler
	logger   *log.Logger
	onChange func()
}

// WithOptions overrides the thresholds.
func WithOptions(o Options) Option {
	return func(s *settings) { s.opts = o }
}

// WithScheduler replaces the wall-clock scheduler.
func WithScheduler(sched Scheduler) Option {
	return func(s *settings) { s.sched = sched }
}

// WithLogger sets the logger used for debug events and fetch failures.
func WithLogger(l *log.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithOnChange registers a callback invoked after the items or the state
// change. It runs outside the driver's lock, possibly on a fetch goroutine.
func WithOnChange(f func()) Option {
	return func(s *settings) { s.onChange = f }
}

// autoState tracks the not-scrollable loop.
type autoState int

const (
	autoIdle     autoState = iota
	autoSettling           // waiting for the view to reflow
	autoBackoff            // pausing after an auto-triggered page
	autoFetching           // the in-flight request was auto-triggered
)

// Driver orchestrates page requests for a single feed.
type Driver[T any] struct {
	src Source[T]
	vp  Viewport
	settings

	mu       sync.Mutex
	items    []T
	cursor   string
	hasNext  bool
	state    State
	err      error
	auto     autoState
	timer    Timer
	timerSeq uint64
	gen      uint64
	closed   bool

	ctx         context.Context
	cancel      context.CancelFunc
	cancelFetch context.CancelFunc
	wg          sync.WaitGroup
}

// New returns a driver reading from src and measuring vp. Call Start to
// load the first page.
func New[T any](src Source[T], vp Viewport, options ...Option) *Driver[T] {
	s := settings{
		opts:   DefaultOptions(),
		sched:  RealScheduler,
		logger: log.New(io.Discard),
	}
	for _, o := range options {
		o(&s)
	}
	return &Driver[T]{
		src:      src,
		vp:       vp,
		settings: s,
		hasNext:  true,
	}
}

// Start requests the first page. The context bounds every request the
// driver makes until Close. A driver starts once; use Reset to reload.
func (d *Driver[T]) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	if d.ctx != nil {
		d.mu.Unlock()
		return ErrStarted
	}
	d.ctx, d.cancel = context.WithCancel(ctx)
	changed := d.fetchLocked(false)
	d.mu.Unlock()
	d.notify(changed)
	return nil
}

// Reset drops every loaded item and reloads from the first page, e.g.
// after the filter changed. Results of requests issued before the reset
// are discarded.
func (d *Driver[T]) Reset() {
	d.mu.Lock()
	if d.closed || d.ctx == nil {
		d.mu.Unlock()
		return
	}
	d.gen++
	d.stopTimerLocked()
	if d.cancelFetch != nil {
		d.cancelFetch()
		d.cancelFetch = nil
	}
	d.items = nil
	d.cursor = ""
	d.hasNext = true
	d.state = Idle
	d.err = nil
	d.auto = autoIdle
	d.fetchLocked(false)
	d.mu.Unlock()
	d.notify(true)
}

// Close cancels pending timers and the in-flight request. No request is
// issued after Close returns and late results are dropped.
func (d *Driver[T]) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	d.gen++
	d.stopTimerLocked()
	if d.cancel != nil {
		d.cancel()
	}
}

// Wait blocks until no request goroutine is running.
func (d *Driver[T]) Wait() {
	d.wg.Wait()
}

// Items returns a copy of every item loaded so far, in page order.
func (d *Driver[T]) Items() []T {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]T, len(d.items))
	copy(out, d.items)
	return out
}

// Len returns the number of loaded items.
func (d *Driver[T]) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.items)
}

// State returns the current fetch state.
func (d *Driver[T]) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// HasNext reports whether another page may exist.
func (d *Driver[T]) HasNext() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hasNext
}

// Err returns the error of the most recent failed request, cleared by the
// next successful one. A failure leaves the driver idle so a later signal
// can retry.
func (d *Driver[T]) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// ShouldFetchNext reports whether a request may be issued right now.
func (d *Driver[T]) ShouldFetchNext() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.canFetchLocked()
}

// OnScroll is the scroll-proximity signal. It requests the next page when
// the bottom of the content is within the scroll threshold.
func (d *Driver[T]) OnScroll() {
	d.mu.Lock()
	changed := false
	if d.canFetchLocked() && d.nearBottomLocked() {
		d.logger.Debug("scroll near bottom, fetching next page", "items", len(d.items))
		changed = d.fetchLocked(false)
	}
	d.mu.Unlock()
	d.notify(changed)
}

// Check re-arms the not-scrollable loop, e.g. after the view was resized
// or to retry after a failure.
func (d *Driver[T]) Check() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.canFetchLocked() || d.auto != autoIdle && d.auto != autoSettling {
		return
	}
	d.settleLocked()
}

func (d *Driver[T]) canFetchLocked() bool {
	return !d.closed && d.ctx != nil && d.state == Idle && d.hasNext
}

func (d *Driver[T]) nearBottomLocked() bool {
	remaining := d.vp.ContentHeight() - (d.vp.ScrollTop() + d.vp.ViewportHeight())
	return remaining <= d.opts.ScrollThreshold
}

func (d *Driver[T]) scrollableLocked() bool {
	return d.vp.ContentHeight() > d.vp.ViewportHeight()+d.opts.ScrollableMargin
}

// fetchLocked issues the next request if allowed. It reports whether the
// state changed.
func (d *Driver[T]) fetchLocked(auto bool) bool {
	if !d.canFetchLocked() {
		return false
	}
	d.stopTimerLocked()
	d.state = Fetching
	if auto {
		d.auto = autoFetching
	} else {
		d.auto = autoIdle
	}

	ctx, cancel := context.WithCancel(d.ctx)
	d.cancelFetch = cancel
	gen, cursor := d.gen, d.cursor

	d.wg.Add(1)
	go d.run(ctx, cancel, gen, cursor, auto)
	return true
}

func (d *Driver[T]) run(ctx context.Context, cancel context.CancelFunc, gen uint64, cursor string, auto bool) {
	defer d.wg.Done()
	defer cancel()

	start := time.Now()
	page, err := d.src.FetchPage(ctx, cursor)

	d.mu.Lock()
	if d.closed || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.cancelFetch = nil
	d.auto = autoIdle

	if err != nil {
		d.state = Idle
		d.err = err
		d.mu.Unlock()
		d.logger.Warn("fetch page failed", "cursor", cursor, "err", err)
		d.notify(true)
		return
	}

	d.items = append(d.items, page.Items...)
	d.cursor = page.NextCursor
	d.hasNext = page.NextCursor != ""
	d.err = nil
	if d.hasNext {
		d.state = Idle
	} else {
		d.state = Exhausted
	}
	d.logger.Debug("page loaded",
		"items", len(page.Items),
		"total", len(d.items),
		"more", d.hasNext,
		"auto", auto,
		"took", time.Since(start).Round(time.Millisecond))

	if d.hasNext && len(d.items) > 0 {
		if auto {
			d.scheduleLocked(d.opts.RetryDelay, autoBackoff, d.settleLocked)
		} else {
			d.settleLocked()
		}
	}
	d.mu.Unlock()
	d.notify(true)
}

// settleLocked waits for the view to reflow, then checks scrollability.
func (d *Driver[T]) settleLocked() {
	d.scheduleLocked(d.opts.SettleDelay, autoSettling, d.checkLocked)
}

func (d *Driver[T]) checkLocked() {
	d.auto = autoIdle
	if !d.canFetchLocked() || len(d.items) == 0 || d.scrollableLocked() {
		return
	}
	d.logger.Debug("view not scrollable, fetching next page", "items", len(d.items))
	d.fetchLocked(true)
}

// scheduleLocked replaces the pending timer and moves the loop to next.
// The callback runs with the lock held and is dropped if the timer was
// superseded or the driver was reset or closed in the meantime.
func (d *Driver[T]) scheduleLocked(delay time.Duration, next autoState, fn func()) {
	d.stopTimerLocked()
	d.auto = next
	d.timerSeq++
	seq, gen := d.timerSeq, d.gen
	d.timer = d.sched.AfterFunc(delay, func() {
		d.mu.Lock()
		if d.closed || gen != d.gen || seq != d.timerSeq {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		before := d.state
		fn()
		changed := d.state != before
		d.mu.Unlock()
		d.notify(changed)
	})
}

func (d *Driver[T]) stopTimerLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	// Invalidate callbacks that already fired but have not taken the lock.
	d.timerSeq++
	if d.auto == autoSettling || d.auto == autoBackoff {
		d.auto = autoIdle
	}
}

func (d *Driver[T]) notify(changed bool) {
	if changed && d.onChange != nil {
		d.onChange()
	}
}
