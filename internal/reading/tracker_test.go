package reading

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"hanzireader/internal/store"
	"hanzireader/internal/testsupport"
)

type memStore struct {
	mu      sync.Mutex
	records map[string]store.ReadingProgress
	puts    []store.ReadingProgress
	putErr  error
	getErr  error
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]store.ReadingProgress)}
}

func (m *memStore) GetReadingProgress(_ context.Context, bookID string) (store.ReadingProgress, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return store.ReadingProgress{}, false, m.getErr
	}
	p, ok := m.records[bookID]
	return p, ok, nil
}

func (m *memStore) PutReadingProgress(_ context.Context, p store.ReadingProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts = append(m.puts, p)
	if m.putErr != nil {
		return m.putErr
	}
	m.records[p.BookID] = p
	return nil
}

func (m *memStore) RecentReadingProgress(_ context.Context, limit int) ([]store.ReadingProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.ReadingProgress, 0, len(m.records))
	for _, p := range m.records {
		out = append(out, p)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) putCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.puts)
}

func (m *memStore) lastPut() store.ReadingProgress {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts[len(m.puts)-1]
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func activate(t *testing.T, tr *Tracker, content Content) Restoration {
	t.Helper()
	r, err := tr.Activate(context.Background(), content)
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	return r
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		name           string
		scroll, extent float64
		want           float64
	}{
		{"zero extent", 50, 0, 0},
		{"negative extent", 50, -5, 0},
		{"midway", 50, 200, 25},
		{"past the end", 300, 200, 100},
		{"negative scroll", -10, 200, 0},
		{"nan scroll", math.NaN(), 200, 0},
		{"infinite extent", 10, math.Inf(1), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Percentage(tt.scroll, tt.extent); got != tt.want {
				t.Fatalf("Percentage(%v, %v) = %v, want %v", tt.scroll, tt.extent, got, tt.want)
			}
		})
	}
}

func TestPages(t *testing.T) {
	if got := TotalPages(41, 20); got != 3 {
		t.Fatalf("TotalPages(41,20) = %d", got)
	}
	if got := TotalPages(0, 20); got != 0 {
		t.Fatalf("TotalPages(0,20) = %d", got)
	}
	if got := TotalPages(40, 0); got != 2 {
		t.Fatalf("TotalPages with default lines per page = %d", got)
	}
	cases := []struct {
		pct   float64
		total int
		want  int
	}{
		{0, 3, 1},
		{34, 3, 2},
		{50, 3, 2},
		{100, 3, 3},
		{150, 3, 3},
		{10, 0, 0},
	}
	for _, c := range cases {
		if got := CurrentPage(c.pct, c.total); got != c.want {
			t.Fatalf("CurrentPage(%v,%d) = %d, want %d", c.pct, c.total, got, c.want)
		}
	}
}

func TestUpdateProgressClampsAndWrites(t *testing.T) {
	mem := newMemStore()
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	tr := NewTracker(mem, WithClock(func() time.Time { return now }))
	activate(t, tr, Content{BookID: "liaozhai"})

	if err := tr.UpdateProgress(context.Background(), -5, 140); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}
	got := mem.lastPut()
	if got.ScrollPosition != 0 || got.ProgressPercentage != 100 || !got.LastRead.Equal(now) {
		t.Fatalf("unexpected record %+v", got)
	}
	if pos := tr.Position(); pos.ProgressPercentage != 100 {
		t.Fatalf("unexpected position %+v", pos)
	}
}

func TestUpdateProgressRejectsNonFinite(t *testing.T) {
	mem := newMemStore()
	tr := NewTracker(mem)
	activate(t, tr, Content{BookID: "b"})

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if err := tr.UpdateProgress(context.Background(), v, 10); !errors.Is(err, ErrInvalidProgress) {
			t.Fatalf("scroll %v: expected ErrInvalidProgress, got %v", v, err)
		}
		if err := tr.UpdateProgress(context.Background(), 10, v); !errors.Is(err, ErrInvalidProgress) {
			t.Fatalf("percentage %v: expected ErrInvalidProgress, got %v", v, err)
		}
	}
	if n := mem.putCount(); n != 0 {
		t.Fatalf("expected no writes, got %d", n)
	}
}

func TestScrollBurstWritesOnlyLastSample(t *testing.T) {
	mem := newMemStore()
	tr := NewTracker(mem, WithDebounce(30*time.Millisecond))
	activate(t, tr, Content{BookID: "b"})

	for i := 1; i <= 5; i++ {
		tr.Scroll(float64(i*100), 1000)
	}
	waitFor(t, func() bool { return mem.putCount() == 1 })
	time.Sleep(60 * time.Millisecond)
	if n := mem.putCount(); n != 1 {
		t.Fatalf("expected one coalesced write, got %d", n)
	}
	got := mem.lastPut()
	if got.ScrollPosition != 500 || got.ProgressPercentage != 50 {
		t.Fatalf("expected last sample, got %+v", got)
	}
}

func TestScrollZeroExtentRecordsZeroPercent(t *testing.T) {
	mem := newMemStore()
	tr := NewTracker(mem, WithDebounce(time.Hour))
	activate(t, tr, Content{BookID: "short-story"})

	tr.Scroll(0, 0)
	if err := tr.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := mem.lastPut(); got.ProgressPercentage != 0 {
		t.Fatalf("expected 0%%, got %+v", got)
	}
}

func TestUpdateProgressSupersedesPendingScroll(t *testing.T) {
	mem := newMemStore()
	tr := NewTracker(mem, WithDebounce(20*time.Millisecond))
	activate(t, tr, Content{BookID: "b"})

	tr.Scroll(100, 1000)
	if err := tr.UpdateProgress(context.Background(), 900, 90); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}
	time.Sleep(60 * time.Millisecond)
	if n := mem.putCount(); n != 1 {
		t.Fatalf("expected only the explicit write, got %d", n)
	}
	if got := mem.lastPut(); got.ProgressPercentage != 90 {
		t.Fatalf("unexpected record %+v", got)
	}
}

func TestOlderSampleNeverOverwritesNewer(t *testing.T) {
	mem := newMemStore()
	tr := NewTracker(mem)
	content := Content{BookID: "b"}

	newer := sample{content: content, position: Position{ScrollPosition: 800, ProgressPercentage: 80}, seq: 2}
	older := sample{content: content, position: Position{ScrollPosition: 100, ProgressPercentage: 10}, seq: 1}
	if err := tr.write(context.Background(), newer); err != nil {
		t.Fatalf("write newer: %v", err)
	}
	if err := tr.write(context.Background(), older); err != nil {
		t.Fatalf("write older: %v", err)
	}
	if n := mem.putCount(); n != 1 {
		t.Fatalf("expected older sample to be skipped, got %d writes", n)
	}
	if got := mem.records["b"]; got.ProgressPercentage != 80 {
		t.Fatalf("stored record regressed: %+v", got)
	}
}

func TestStaleRestoreIsSuppressed(t *testing.T) {
	mem := newMemStore()
	mem.records["b"] = store.ReadingProgress{BookID: "b", ScrollPosition: 600, ProgressPercentage: 60}
	tr := NewTracker(mem)
	ctx := context.Background()

	restore := activate(t, tr, Content{BookID: "b"})
	if !restore.Found || restore.Position.ProgressPercentage != 60 {
		t.Fatalf("unexpected restoration %+v", restore)
	}
	if err := tr.SetContent(ctx, Content{BookID: "b", Segmented: true}); err != nil {
		t.Fatalf("SetContent: %v", err)
	}

	pos, ok := tr.Restore(restore)
	if ok || pos != (Position{}) {
		t.Fatalf("expected stale restore to be suppressed, got %+v ok=%v", pos, ok)
	}
	if got := tr.Position(); got != (Position{}) {
		t.Fatalf("expected default position for new content, got %+v", got)
	}
}

func TestRestoreAppliesOnce(t *testing.T) {
	mem := newMemStore()
	mem.records["b"] = store.ReadingProgress{BookID: "b", ScrollPosition: 250, ProgressPercentage: 25}
	tr := NewTracker(mem)

	restore := activate(t, tr, Content{BookID: "b"})
	if got := tr.Position(); got.ScrollPosition != 250 {
		t.Fatalf("expected loaded position exposed, got %+v", got)
	}
	pos, ok := tr.Restore(restore)
	if !ok || pos.ScrollPosition != 250 {
		t.Fatalf("first restore: %+v ok=%v", pos, ok)
	}
	if _, ok := tr.Restore(restore); ok {
		t.Fatal("second restore should be a no-op")
	}
}

func TestActivateMissingBookStartsAtZero(t *testing.T) {
	tr := NewTracker(newMemStore())
	restore := activate(t, tr, Content{BookID: "new-book"})
	if restore.Found || restore.Position != (Position{}) {
		t.Fatalf("unexpected restoration %+v", restore)
	}
	if _, err := tr.Activate(context.Background(), Content{BookID: "  "}); !errors.Is(err, ErrInvalidProgress) {
		t.Fatalf("expected empty book id to be rejected, got %v", err)
	}
}

func TestActivateReadFailureKeepsTrackerUsable(t *testing.T) {
	mem := newMemStore()
	mem.getErr = &store.OpError{Op: "get", Kind: store.ErrReadFailed, Err: errors.New("disk I/O error")}
	tr := NewTracker(mem)

	restore, err := tr.Activate(context.Background(), Content{BookID: "b"})
	if !errors.Is(err, store.ErrReadFailed) {
		t.Fatalf("expected read failure, got %v", err)
	}
	if pos, ok := tr.Restore(restore); !ok || pos != (Position{}) {
		t.Fatalf("expected zero restore, got %+v ok=%v", pos, ok)
	}
	if err := tr.UpdateProgress(context.Background(), 10, 1); err != nil {
		t.Fatalf("UpdateProgress after failed load: %v", err)
	}
}

func TestUnavailableStoreDegradesToMemory(t *testing.T) {
	mem := newMemStore()
	mem.putErr = &store.OpError{Op: "open", Kind: store.ErrStoreUnavailable, Err: errors.New("quota exceeded")}
	tr := NewTracker(mem)
	activate(t, tr, Content{BookID: "b"})
	ctx := context.Background()

	if err := tr.UpdateProgress(ctx, 100, 10); !errors.Is(err, store.ErrStoreUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
	if !tr.Degraded() {
		t.Fatal("expected tracker to be degraded")
	}
	if err := tr.UpdateProgress(ctx, 200, 20); err != nil {
		t.Fatalf("degraded UpdateProgress: %v", err)
	}
	if n := mem.putCount(); n != 1 {
		t.Fatalf("expected no further writes, got %d", n)
	}
	if got := tr.Position(); got.ProgressPercentage != 20 {
		t.Fatalf("expected in-memory position, got %+v", got)
	}
}

func TestActivateAfterRecoveryResumesPersistence(t *testing.T) {
	mem := newMemStore()
	mem.putErr = &store.OpError{Op: "open", Kind: store.ErrStoreUnavailable, Err: errors.New("database is locked")}
	tr := NewTracker(mem)
	ctx := context.Background()
	activate(t, tr, Content{BookID: "a"})
	if err := tr.UpdateProgress(ctx, 50, 5); !errors.Is(err, store.ErrStoreUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}

	mem.mu.Lock()
	mem.putErr = nil
	mem.getErr = &store.OpError{Op: "open", Kind: store.ErrStoreUnavailable, Err: errors.New("still locked")}
	mem.mu.Unlock()
	if _, err := tr.Activate(ctx, Content{BookID: "b"}); err == nil {
		t.Fatal("expected failed load while the store is down")
	}
	if !tr.Degraded() {
		t.Fatal("a failed load must not leave degraded mode")
	}

	mem.mu.Lock()
	mem.getErr = nil
	mem.mu.Unlock()
	activate(t, tr, Content{BookID: "c"})
	if tr.Degraded() {
		t.Fatal("expected a successful load to resume persistence")
	}
	if err := tr.UpdateProgress(ctx, 300, 30); err != nil {
		t.Fatalf("UpdateProgress after recovery: %v", err)
	}
	if got := mem.lastPut(); got.BookID != "c" || got.ProgressPercentage != 30 {
		t.Fatalf("expected write for c after recovery, got %+v", got)
	}
}

func TestSetContentFlushesPendingForPreviousBook(t *testing.T) {
	mem := newMemStore()
	tr := NewTracker(mem, WithDebounce(time.Hour))
	ctx := context.Background()
	activate(t, tr, Content{BookID: "first"})

	tr.Scroll(300, 600)
	if err := tr.SetContent(ctx, Content{BookID: "second"}); err != nil {
		t.Fatalf("SetContent: %v", err)
	}
	got := mem.lastPut()
	if got.BookID != "first" || got.ProgressPercentage != 50 {
		t.Fatalf("expected pending sample for first book, got %+v", got)
	}
	if err := tr.SetContent(ctx, Content{BookID: "second"}); err != nil {
		t.Fatalf("repeat SetContent: %v", err)
	}
	if n := mem.putCount(); n != 1 {
		t.Fatalf("repeat SetContent should not write, got %d", n)
	}
}

func TestCloseFlushesAndStopsSampling(t *testing.T) {
	mem := newMemStore()
	tr := NewTracker(mem, WithDebounce(time.Hour))
	activate(t, tr, Content{BookID: "b"})
	ctx := context.Background()

	tr.Scroll(10, 100)
	if err := tr.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if n := mem.putCount(); n != 1 {
		t.Fatalf("expected Close to flush, got %d writes", n)
	}
	tr.Scroll(50, 100)
	if err := tr.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if n := mem.putCount(); n != 1 {
		t.Fatalf("samples after Close must be ignored, got %d writes", n)
	}
	if err := tr.UpdateProgress(ctx, 1, 1); !errors.Is(err, ErrTrackerClosed) {
		t.Fatalf("expected ErrTrackerClosed, got %v", err)
	}
}

func TestTrackerPersistsThroughStore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first := NewTracker(s, OptionsFromConfig(cfg)...)
	activate(t, first, Content{BookID: "shuihu"})
	if err := first.UpdateProgress(ctx, 4200, 37.5); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}
	if err := first.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second := NewTracker(s, OptionsFromConfig(cfg)...)
	restore := activate(t, second, Content{BookID: "shuihu"})
	pos, ok := second.Restore(restore)
	if !ok || pos.ScrollPosition != 4200 || pos.ProgressPercentage != 37.5 {
		t.Fatalf("unexpected restore %+v ok=%v", pos, ok)
	}
}
