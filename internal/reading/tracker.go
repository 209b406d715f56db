package reading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"hanzireader/internal/config"
	"hanzireader/internal/logging"
	"hanzireader/internal/store"
)

const (
	defaultDebounce     = 100 * time.Millisecond
	defaultWriteTimeout = 2 * time.Second
)

// ErrInvalidProgress is returned for non-finite scroll or percentage values.
var ErrInvalidProgress = errors.New("invalid progress")

// ErrTrackerClosed is returned by writes issued after Close.
var ErrTrackerClosed = errors.New("tracker closed")

// ProgressStore is the slice of the store the tracker needs.
type ProgressStore interface {
	GetReadingProgress(ctx context.Context, bookID string) (store.ReadingProgress, bool, error)
	PutReadingProgress(ctx context.Context, progress store.ReadingProgress) error
}

// Content identifies what the view is rendering. Switching books or toggling
// segmented rendering changes the scroll geometry, so either counts as new
// content.
type Content struct {
	BookID    string
	Segmented bool
}

// Restoration is the one-time scroll restore handed out by Activate.
type Restoration struct {
	generation uint64
	Position   Position
	// Found reports whether progress was stored for the book.
	Found bool
}

// TrackerOption customises a Tracker.
type TrackerOption func(*Tracker)

// WithLogger routes tracker diagnostics to logger.
func WithLogger(logger *slog.Logger) TrackerOption {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logging.NewComponentLogger(logger, "reading")
		}
	}
}

// WithDebounce sets the quiet window after the last scroll sample before it is
// written.
func WithDebounce(d time.Duration) TrackerOption {
	return func(t *Tracker) {
		if d > 0 {
			t.debounce = d
		}
	}
}

// WithWriteTimeout bounds each debounced or flushed write.
func WithWriteTimeout(d time.Duration) TrackerOption {
	return func(t *Tracker) {
		if d > 0 {
			t.writeTimeout = d
		}
	}
}

// WithClock overrides the clock used for LastRead.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// OptionsFromConfig maps the [reading] section onto tracker options.
func OptionsFromConfig(cfg *config.Config) []TrackerOption {
	if cfg == nil {
		return nil
	}
	return []TrackerOption{WithDebounce(cfg.Debounce()), WithWriteTimeout(cfg.WriteTimeout())}
}

type sample struct {
	content  Content
	position Position
	seq      uint64
}

// Tracker persists the reading position of the active content.
type Tracker struct {
	store        ProgressStore
	logger       *slog.Logger
	debounce     time.Duration
	writeTimeout time.Duration
	now          func() time.Time
	sampler      *logging.ProgressSampler

	mu         sync.Mutex
	content    Content
	generation uint64
	position   Position
	restored   bool
	sampled    bool
	seq        uint64
	pending    *sample
	timer      *time.Timer
	timerToken uint64
	closed     bool

	// writeMu serialises writes; lastWritten holds the newest sequence
	// persisted per book.
	writeMu     sync.Mutex
	lastWritten map[string]uint64
	degraded    atomic.Bool
}

// NewTracker constructs a tracker over progressStore.
func NewTracker(progressStore ProgressStore, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		store:        progressStore,
		logger:       logging.NewComponentLogger(nil, "reading"),
		debounce:     defaultDebounce,
		writeTimeout: defaultWriteTimeout,
		now:          time.Now,
		sampler:      logging.NewProgressSampler(5),
		lastWritten:  make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Activate makes content current and loads its saved position. The returned
// Restoration must be passed to Restore once the view has laid out the
// content. A read failure leaves the position at zero and is returned for
// the caller to log; the tracker stays usable.
func (t *Tracker) Activate(ctx context.Context, content Content) (Restoration, error) {
	content.BookID = strings.TrimSpace(content.BookID)
	if content.BookID == "" {
		return Restoration{}, fmt.Errorf("activate: %w: book id is empty", ErrInvalidProgress)
	}
	pending, generation := t.switchContent(content, true)
	t.writePending(pending)

	progress, found, err := t.store.GetReadingProgress(logging.WithBookID(ctx, content.BookID), content.BookID)
	if err != nil {
		t.noteStoreError(err)
		logging.WarnWithContext(t.logger, "reading progress load failed; starting at the top", "progress_load_failed",
			logging.BookID(content.BookID),
			logging.Error(err),
			logging.Hint("run hanzireader store health"),
			logging.Impact("book opens at the beginning"),
		)
		return Restoration{generation: generation}, err
	}

	if t.degraded.CompareAndSwap(true, false) {
		t.logger.Info("store reachable again; reading progress persisted",
			logging.BookID(content.BookID),
			logging.EventType("progress_persistence_restored"),
		)
	}

	restoration := Restoration{generation: generation, Found: found}
	if found {
		restoration.Position = Position{
			ScrollPosition:     clampScroll(progress.ScrollPosition),
			ProgressPercentage: clampPercent(progress.ProgressPercentage),
		}
	}

	t.mu.Lock()
	// A sample recorded while the load was in flight is newer than the
	// stored position.
	if t.generation == generation && !t.sampled {
		t.position = restoration.Position
	}
	t.mu.Unlock()

	t.logger.Debug("reading progress loaded",
		logging.BookID(content.BookID),
		logging.Bool("found", found),
		logging.Float64("progress_percentage", restoration.Position.ProgressPercentage),
	)
	return restoration, nil
}

// Restore applies a restoration once. It returns the saved position and true
// only while the content the restoration was issued for is still current and
// the restoration has not been used. Otherwise the view keeps the current
// content's default position and false is returned.
func (t *Tracker) Restore(r Restoration) (Position, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if r.generation == 0 || r.generation != t.generation {
		t.logger.Debug("stale scroll restore suppressed",
			logging.Int64("restoration_generation", int64(r.generation)),
			logging.Int64("current_generation", int64(t.generation)),
		)
		return Position{}, false
	}
	if t.restored {
		return Position{}, false
	}
	t.restored = true
	return r.Position, true
}

// SetContent records that the rendered content changed. A pending write for
// the previous content is flushed first, then the exposed position resets.
// Setting the current content again is a no-op.
func (t *Tracker) SetContent(ctx context.Context, content Content) error {
	content.BookID = strings.TrimSpace(content.BookID)
	pending, _ := t.switchContent(content, false)
	if pending == nil {
		return nil
	}
	return t.write(ctx, *pending)
}

func (t *Tracker) switchContent(content Content, force bool) (*sample, uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !force && content == t.content {
		return nil, t.generation
	}
	pending := t.takePendingLocked()
	t.content = content
	t.generation++
	t.position = Position{}
	t.restored = false
	t.sampled = false
	return pending, t.generation
}

// UpdateProgress records an explicit position and writes it immediately.
// Values are clamped: scroll to >= 0, percentage to [0,100]. Any pending
// debounced sample is superseded.
func (t *Tracker) UpdateProgress(ctx context.Context, scrollPosition, progressPercentage float64) error {
	if !finite(scrollPosition) || !finite(progressPercentage) {
		return fmt.Errorf("%w: scroll=%v percentage=%v", ErrInvalidProgress, scrollPosition, progressPercentage)
	}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrTrackerClosed
	}
	if t.content.BookID == "" {
		t.mu.Unlock()
		return fmt.Errorf("%w: no active book", ErrInvalidProgress)
	}
	_ = t.takePendingLocked()
	s := t.recordLocked(Position{
		ScrollPosition:     clampScroll(scrollPosition),
		ProgressPercentage: clampPercent(progressPercentage),
	})
	t.mu.Unlock()
	return t.write(ctx, s)
}

// Scroll records a high-frequency scroll sample. The percentage is derived
// from the scrollable extent and the write is deferred until no further
// sample arrives within the debounce window.
func (t *Tracker) Scroll(scrollPosition, maxScrollableExtent float64) {
	pos := Position{
		ScrollPosition:     clampScroll(scrollPosition),
		ProgressPercentage: Percentage(scrollPosition, maxScrollableExtent),
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.content.BookID == "" {
		return
	}
	s := t.recordLocked(pos)
	t.pending = &s
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timerToken++
	token := t.timerToken
	t.timer = time.AfterFunc(t.debounce, func() { t.fire(token) })
}

func (t *Tracker) recordLocked(pos Position) sample {
	t.position = pos
	t.sampled = true
	t.seq++
	return sample{content: t.content, position: pos, seq: t.seq}
}

// takePendingLocked cancels the debounce timer and returns the pending sample.
func (t *Tracker) takePendingLocked() *sample {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.timerToken++
	pending := t.pending
	t.pending = nil
	return pending
}

func (t *Tracker) fire(token uint64) {
	t.mu.Lock()
	if token != t.timerToken || t.pending == nil {
		t.mu.Unlock()
		return
	}
	s := *t.pending
	t.pending = nil
	t.timer = nil
	t.mu.Unlock()
	t.writePending(&s)
}

// writePending writes s on a detached context so the write completes even
// when the view that produced it has gone away.
func (t *Tracker) writePending(s *sample) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), t.writeTimeout)
	defer cancel()
	_ = t.write(ctx, *s)
}

// Flush writes the pending sample now.
func (t *Tracker) Flush(ctx context.Context) error {
	t.mu.Lock()
	pending := t.takePendingLocked()
	t.mu.Unlock()
	if pending == nil {
		return nil
	}
	return t.write(ctx, *pending)
}

// Close flushes the pending sample and stops accepting new ones.
func (t *Tracker) Close(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	pending := t.takePendingLocked()
	t.mu.Unlock()
	if pending == nil {
		return nil
	}
	return t.write(ctx, *pending)
}

// Position returns the current exposed position.
func (t *Tracker) Position() Position {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.position
}

// Content returns the current content identity.
func (t *Tracker) Content() Content {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.content
}

// Degraded reports whether the tracker stopped persisting because the store
// is unavailable. Samples stay in memory until the next Activate reads from
// the store successfully, which resumes persistence.
func (t *Tracker) Degraded() bool {
	return t.degraded.Load()
}

func (t *Tracker) write(ctx context.Context, s sample) error {
	if s.content.BookID == "" {
		return nil
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if s.seq <= t.lastWritten[s.content.BookID] {
		t.logger.Debug("older progress sample skipped",
			logging.BookID(s.content.BookID),
			logging.Int64("seq", int64(s.seq)),
		)
		return nil
	}
	if t.degraded.Load() {
		return nil
	}

	record := store.ReadingProgress{
		BookID:             s.content.BookID,
		ScrollPosition:     s.position.ScrollPosition,
		ProgressPercentage: s.position.ProgressPercentage,
		LastRead:           t.now(),
	}
	if err := t.store.PutReadingProgress(logging.WithBookID(ctx, s.content.BookID), record); err != nil {
		t.noteStoreError(err)
		if !t.degraded.Load() {
			logging.WarnWithContext(t.logger, "reading progress write dropped", "progress_write_failed",
				logging.BookID(s.content.BookID),
				logging.Error(err),
				logging.Hint("check disk space and run hanzireader store health"),
				logging.Impact("the latest position may not be restored next time"),
			)
		}
		return err
	}
	t.lastWritten[s.content.BookID] = s.seq

	attrs := []logging.Attr{
		logging.BookID(s.content.BookID),
		logging.Float64("progress_percentage", s.position.ProgressPercentage),
	}
	if t.sampler.ShouldLog(s.position.ProgressPercentage, s.content.BookID) {
		t.logger.Info("reading progress saved", logging.Args(attrs...)...)
	} else {
		t.logger.Debug("reading progress saved", logging.Args(attrs...)...)
	}
	return nil
}

func (t *Tracker) noteStoreError(err error) {
	if !errors.Is(err, store.ErrStoreUnavailable) {
		return
	}
	if t.degraded.CompareAndSwap(false, true) {
		logging.WarnWithContext(t.logger, "store unavailable; reading progress kept in memory only", "progress_persistence_disabled",
			logging.Error(err),
			logging.Hint("check the data_dir path and permissions"),
			logging.Impact("reading positions are lost when the reader exits"),
		)
	}
}
