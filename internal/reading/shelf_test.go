package reading

import (
	"context"
	"testing"
	"time"

	"hanzireader/internal/store"
	"hanzireader/internal/testsupport"
)

func TestShelfPercentDefaultsToZero(t *testing.T) {
	mem := newMemStore()
	mem.records["read"] = store.ReadingProgress{BookID: "read", ProgressPercentage: 66.6}
	shelf := NewShelf(mem)
	ctx := context.Background()

	if pct, err := shelf.Percent(ctx, "unread"); err != nil || pct != 0 {
		t.Fatalf("unread book: pct=%v err=%v", pct, err)
	}
	if pct, err := shelf.Percent(ctx, "read"); err != nil || pct != 66.6 {
		t.Fatalf("read book: pct=%v err=%v", pct, err)
	}
}

func TestLabelRounds(t *testing.T) {
	cases := map[float64]string{
		0:    "0%",
		42.5: "43%",
		99.4: "99%",
		120:  "100%",
		-3:   "0%",
	}
	for in, want := range cases {
		if got := Label(in); got != want {
			t.Fatalf("Label(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestShelfEntriesNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, book := range []string{"older", "newer"} {
		p := store.ReadingProgress{BookID: book, ProgressPercentage: float64(25 * (i + 1)), LastRead: base.Add(time.Duration(i) * time.Hour)}
		if err := s.PutReadingProgress(ctx, p); err != nil {
			t.Fatalf("PutReadingProgress: %v", err)
		}
	}

	entries, err := NewShelf(s).Entries(ctx, 10)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 2 || entries[0].BookID != "newer" || entries[0].Label != "50%" {
		t.Fatalf("unexpected entries %+v", entries)
	}
}
