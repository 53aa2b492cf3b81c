package sampler

import "testing"

func TestRingEvictsOldestFirst(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		produced int
	}{
		{name: "under capacity", capacity: 5, produced: 3},
		{name: "exactly full", capacity: 4, produced: 4},
		{name: "wrapped", capacity: 3, produced: 10},
		{name: "single slot", capacity: 1, produced: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRing(tt.capacity)
			for i := 0; i < tt.produced; i++ {
				r.Add(Sample{Tick: i})
			}

			want := min(tt.produced, tt.capacity)
			if r.Len() != want {
				t.Fatalf("len = %d, want %d", r.Len(), want)
			}

			got := r.Snapshot()
			if len(got) != want {
				t.Fatalf("snapshot len = %d, want %d", len(got), want)
			}

			first := tt.produced - want
			for i, s := range got {
				if s.Tick != first+i {
					t.Errorf("snapshot[%d].Tick = %d, want %d", i, s.Tick, first+i)
				}
			}
		})
	}
}

func TestRingMinimumCapacity(t *testing.T) {
	r := NewRing(0)
	if r.Cap() != 1 {
		t.Fatalf("cap = %d, want 1", r.Cap())
	}
}

func TestSeriesLast(t *testing.T) {
	if _, ok := (Series{}).Last(); ok {
		t.Error("expected no last sample for empty series")
	}

	s := Series{{Tick: 0}, {Tick: 1}}
	last, ok := s.Last()
	if !ok || last.Tick != 1 {
		t.Errorf("last = %+v (ok=%v), want tick 1", last, ok)
	}
}
