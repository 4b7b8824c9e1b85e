// Package stream populates cells sequentially and interruptibly, revealing
// each value one character at a time before committing it to the store.
//
// A Writer processes its FIFO queue on the goroutine that calls Process or
// Run. Pause, Resume, Cancel and the read-only accessors may be called from
// any goroutine, including from an Observer. Pausing blocks the processing
// goroutine at its next checkpoint until Resume; it never commits a
// partially revealed value.
package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ukaji3/gridcore-go/pkg/gridcore/formula"
	"github.com/ukaji3/gridcore-go/pkg/gridcore/grid"
	"github.com/ukaji3/gridcore-go/pkg/gridcore/models"
)

// DefaultRecentWindow is how long a committed cell counts as recent.
const DefaultRecentWindow = 2 * time.Second

// Store is the write side of the cell store.
type Store interface {
	Set(row, col int, partial models.Cell)
}

// Evaluator computes formula results.
type Evaluator interface {
	Evaluate(text string) string
}

// Options configures a Writer.
type Options struct {
	// RevealDelay is the wait between revealed characters.
	RevealDelay time.Duration
	// RecentWindow is how long IsRecent reports a committed cell.
	RecentWindow time.Duration
	// Observer receives reveal, commit and status events.
	Observer Observer
	// Now returns the current time. Nil means time.Now.
	Now func() time.Time
	// Logger receives status transitions and failures.
	Logger *slog.Logger
}

// DefaultOptions returns the default writer options.
func DefaultOptions() Options {
	return Options{
		RevealDelay:  20 * time.Millisecond,
		RecentWindow: DefaultRecentWindow,
	}
}

// run identifies one Process or Run invocation. State updates from a run
// that has been canceled or has finished are discarded.
type run struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
}

// Writer is the streaming write coordinator.
type Writer struct {
	store  Store
	eval   Evaluator
	opts   Options
	logger *slog.Logger

	mu       sync.Mutex
	status   Status
	resumeTo Status
	resume   chan struct{} // non-nil while paused, closed by Resume
	queue    []Entry
	progress Progress
	active   *grid.Ref
	revealed []rune
	recent   map[grid.Ref]time.Time
	err      error
	cur      *run
}

// NewWriter returns an idle writer committing to store. Formula values are
// computed with eval.
func NewWriter(store Store, eval Evaluator, opts Options) *Writer {
	if opts.RecentWindow <= 0 {
		opts.RecentWindow = DefaultRecentWindow
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		store:  store,
		eval:   eval,
		opts:   opts,
		logger: logger.With(slog.String("component", "stream")),
		status: StatusIdle,
		recent: make(map[grid.Ref]time.Time),
	}
}

// Queue appends an entry. It does not start processing. Queueing after a
// stream completed or failed starts a fresh stream.
func (w *Writer) Queue(row, col int, value string, delay time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.status == StatusCompleted || w.status == StatusError {
		w.status = StatusIdle
		w.progress = Progress{}
		w.err = nil
	}
	w.queue = append(w.queue, Entry{Row: row, Col: col, Value: value, Delay: delay})
	w.progress.Total++
}

// Process commits the queued entries in FIFO order and returns when the
// queue is drained. It returns ErrCanceled after Cancel and the context
// error when ctx is done, with the writer reset to idle in both cases.
func (w *Writer) Process(ctx context.Context) error {
	return w.process(ctx, nil)
}

// Run is Process with entries pulled from src once the queue is empty. The
// status is StatusConnecting until src yields its first entry. A source
// error moves the writer to StatusError and is returned as *Error.
func (w *Writer) Run(ctx context.Context, src Source) error {
	return w.process(ctx, src)
}

func (w *Writer) process(ctx context.Context, src Source) error {
	rctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	r := &run{ctx: rctx, cancel: cancel}

	w.mu.Lock()
	if w.cur != nil {
		w.mu.Unlock()
		return ErrBusy
	}
	w.cur = r
	w.err = nil
	if src != nil && len(w.queue) == 0 {
		w.setStatusLocked(StatusConnecting)
	} else {
		w.setStatusLocked(StatusStreaming)
	}
	w.mu.Unlock()
	w.emit(Event{Kind: EventStatus, Status: w.Status()})

	seq := 0
	for {
		if err := w.checkpoint(r); err != nil {
			return w.abort(r, err)
		}
		e, ok, err := w.next(r, src, seq+1)
		if err != nil {
			if r.ctx.Err() != nil {
				return w.abort(r, context.Cause(r.ctx))
			}
			return w.fail(r, &Error{Op: "read", Seq: seq + 1, Err: err})
		}
		if !ok {
			break
		}
		seq++
		if err := w.write(r, e); err != nil {
			return w.abort(r, err)
		}
		if err := sleep(r.ctx, e.Delay); err != nil {
			return w.abort(r, err)
		}
	}

	w.mu.Lock()
	if w.cur != r {
		w.mu.Unlock()
		return ErrCanceled
	}
	w.cur = nil
	w.active = nil
	w.revealed = nil
	w.setStatusLocked(StatusCompleted)
	w.mu.Unlock()
	w.emit(Event{Kind: EventStatus, Status: StatusCompleted})
	return nil
}

// next dequeues the next entry, falling back to src when the queue is
// empty. ok is false when both are exhausted.
func (w *Writer) next(r *run, src Source, seq int) (e Entry, ok bool, err error) {
	w.mu.Lock()
	if w.cur != r {
		w.mu.Unlock()
		return Entry{}, false, ErrCanceled
	}
	if len(w.queue) > 0 {
		e = w.queue[0]
		w.queue = w.queue[1:]
		w.mu.Unlock()
		return e, true, nil
	}
	w.mu.Unlock()

	if src == nil {
		return Entry{}, false, nil
	}
	e, err = src.Next(r.ctx)
	if errors.Is(err, io.EOF) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cur != r {
		return Entry{}, false, ErrCanceled
	}
	w.progress.Total++
	switch {
	case w.status == StatusConnecting:
		w.setStatusLocked(StatusStreaming)
	case w.status == StatusPaused && w.resumeTo == StatusConnecting:
		w.resumeTo = StatusStreaming
	}
	w.logger.Debug("entry received", slog.Int("seq", seq), slog.String("cell", grid.Ref{Row: e.Row, Col: e.Col}.String()))
	return e, true, nil
}

// write reveals e character by character and commits it.
func (w *Writer) write(r *run, e Entry) error {
	ref := grid.Ref{Row: e.Row, Col: e.Col}
	if !w.update(r, func() {
		w.active = &ref
		w.revealed = w.revealed[:0]
	}) {
		return ErrCanceled
	}

	for _, ch := range e.Value {
		if err := w.checkpoint(r); err != nil {
			return err
		}
		var text string
		if !w.update(r, func() {
			w.revealed = append(w.revealed, ch)
			text = string(w.revealed)
		}) {
			return ErrCanceled
		}
		w.emit(Event{Kind: EventReveal, Ref: ref, Text: text})
		if err := sleep(r.ctx, w.opts.RevealDelay); err != nil {
			return err
		}
	}
	if err := w.checkpoint(r); err != nil {
		return err
	}

	cell := models.Cell{Value: models.String(e.Value), Formula: models.String("")}
	if formula.IsFormula(e.Value) {
		cell = models.Cell{Value: models.String(w.eval.Evaluate(e.Value)), Formula: models.String(e.Value)}
	}
	if !w.update(r, func() {
		w.store.Set(e.Row, e.Col, cell)
		now := w.opts.Now()
		for k, t := range w.recent {
			if now.Sub(t) >= w.opts.RecentWindow {
				delete(w.recent, k)
			}
		}
		w.recent[ref] = now
		w.progress.Current++
		w.active = nil
		w.revealed = w.revealed[:0]
	}) {
		return ErrCanceled
	}
	w.emit(Event{Kind: EventCommit, Ref: ref, Text: *cell.Value})
	return nil
}

// update runs fn under the lock if r is still the current run.
func (w *Writer) update(r *run, fn func()) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cur != r {
		return false
	}
	fn()
	return true
}

// checkpoint blocks while the writer is paused. It returns the cancellation
// cause once the run is canceled.
func (w *Writer) checkpoint(r *run) error {
	for {
		if r.ctx.Err() != nil {
			return context.Cause(r.ctx)
		}
		w.mu.Lock()
		resume := w.resume
		w.mu.Unlock()
		if resume == nil {
			return nil
		}
		select {
		case <-resume:
		case <-r.ctx.Done():
			return context.Cause(r.ctx)
		}
	}
}

// abort resets the writer after cancellation. A context error from the
// caller's ctx is returned as is.
func (w *Writer) abort(r *run, cause error) error {
	w.mu.Lock()
	if w.cur == r {
		w.resetLocked()
	}
	w.mu.Unlock()
	if cause == nil {
		cause = ErrCanceled
	}
	w.logger.Debug("stream stopped", slog.Any("cause", cause))
	return cause
}

func (w *Writer) fail(r *run, err *Error) error {
	w.mu.Lock()
	if w.cur != r {
		w.mu.Unlock()
		return ErrCanceled
	}
	dropped := len(w.queue)
	w.cur = nil
	w.queue = nil
	w.active = nil
	w.revealed = nil
	w.err = err
	w.closeResumeLocked()
	w.setStatusLocked(StatusError)
	w.mu.Unlock()
	w.logger.Error("stream failed", slog.Int("dropped", dropped), slog.Any("error", err))
	w.emit(Event{Kind: EventStatus, Status: StatusError})
	return err
}

// Pause suspends processing at the next checkpoint. It is a no-op unless
// the writer is connecting or streaming.
func (w *Writer) Pause() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.status != StatusStreaming && w.status != StatusConnecting {
		return
	}
	w.resumeTo = w.status
	w.resume = make(chan struct{})
	w.setStatusLocked(StatusPaused)
}

// Resume continues a paused stream. It is a no-op unless paused.
func (w *Writer) Resume() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.status != StatusPaused {
		return
	}
	w.closeResumeLocked()
	w.setStatusLocked(w.resumeTo)
}

// Cancel drops the queue and any partially revealed value and returns the
// writer to idle. The processing goroutine stops at its next checkpoint
// without committing. Cancel on an idle writer is a no-op.
func (w *Writer) Cancel() {
	w.mu.Lock()
	if w.status == StatusIdle && w.cur == nil && len(w.queue) == 0 {
		w.mu.Unlock()
		return
	}
	r := w.cur
	w.resetLocked()
	w.mu.Unlock()
	if r != nil {
		r.cancel(ErrCanceled)
	}
}

func (w *Writer) resetLocked() {
	w.cur = nil
	w.queue = nil
	w.active = nil
	w.revealed = nil
	w.progress = Progress{}
	w.err = nil
	w.closeResumeLocked()
	w.setStatusLocked(StatusIdle)
}

func (w *Writer) closeResumeLocked() {
	if w.resume != nil {
		close(w.resume)
		w.resume = nil
	}
}

func (w *Writer) setStatusLocked(s Status) {
	if w.status != s {
		w.logger.Debug("status changed", slog.String("from", string(w.status)), slog.String("to", string(s)))
	}
	w.status = s
}

func (w *Writer) emit(e Event) {
	if w.opts.Observer != nil {
		w.opts.Observer(e)
	}
}

// Status returns the current status.
func (w *Writer) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// Progress returns the committed and total entry counts.
func (w *Writer) Progress() Progress {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.progress
}

// ActiveCell returns the cell being revealed, if any.
func (w *Writer) ActiveCell() (grid.Ref, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.active == nil {
		return grid.Ref{}, false
	}
	return *w.active, true
}

// Revealed returns the revealed prefix of the active cell's value.
func (w *Writer) Revealed() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return string(w.revealed)
}

// Pending returns the number of queued entries.
func (w *Writer) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queue)
}

// IsRecent reports whether (row, col) was committed within the recent
// window.
func (w *Writer) IsRecent(row, col int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.recent[grid.Ref{Row: row, Col: col}]
	return ok && w.opts.Now().Sub(t) < w.opts.RecentWindow
}

// Err returns the failure of the last stream, if it ended in StatusError.
func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-t.C:
		return nil
	}
}
