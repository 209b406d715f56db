package logging

import "testing"

func TestNewProgressSamplerDefaultsBucket(t *testing.T) {
	for _, size := range []float64{0, -1} {
		if s := NewProgressSampler(size); s.bucketSize != 5 {
			t.Errorf("NewProgressSampler(%v).bucketSize = %v, want 5", size, s.bucketSize)
		}
	}
	if s := NewProgressSampler(10); s.bucketSize != 10 {
		t.Errorf("bucketSize = %v, want 10", s.bucketSize)
	}
}

func TestProgressSamplerNil(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50, "book-1") {
		t.Error("nil sampler should always log")
	}
	s.Reset()
}

func TestProgressSamplerSequence(t *testing.T) {
	s := NewProgressSampler(5)
	steps := []struct {
		percent float64
		book    string
		want    bool
	}{
		{0, "xiyouji", true},
		{3, "xiyouji", false},
		{5, "xiyouji", true},
		{2, "xiyouji", true}, // jumping back is a new bucket too
		{4, "xiyouji", false},
		{40, "hongloumeng", true},
		{1, "xiyouji", false}, // back to a book already logged at this bucket
		{41, "hongloumeng", false},
		{100, "hongloumeng", true},
		{105, "hongloumeng", false},
		{-1, "sanguo", true},
		{-1, "sanguo", false},
	}
	for i, step := range steps {
		if got := s.ShouldLog(step.percent, step.book); got != step.want {
			t.Fatalf("step %d ShouldLog(%v, %q) = %v, want %v", i, step.percent, step.book, got, step.want)
		}
	}
}

func TestProgressSamplerReset(t *testing.T) {
	s := NewProgressSampler(5)
	s.ShouldLog(50, "book")
	s.Reset()
	if s.current != "" || len(s.buckets) != 0 {
		t.Fatalf("expected empty state after reset, got %q %v", s.current, s.buckets)
	}
	if !s.ShouldLog(50, "book") {
		t.Error("should log after reset")
	}
}
