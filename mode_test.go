package prfs

import (
	"sync"
	"testing"
)

// TestModeStoreDefault tests that a fresh store starts read-only
func TestModeStoreDefault(t *testing.T) {
	s := NewModeStore()
	if got := s.Get(); got != ModeReadOnly {
		t.Errorf("expected read-only at start, got %v", got)
	}
}

// TestModeStoreSetGet tests storing and reading valid modes
func TestModeStoreSetGet(t *testing.T) {
	s := NewModeStore()

	for _, m := range []Mode{ModeNormal, ModeReadOnly, ModeReversed} {
		s.Set(int32(m))
		if got := s.Get(); got != m {
			t.Errorf("set %v, got %v", m, got)
		}
	}
}

// TestModeStoreClampOnRead tests that out-of-range values read back as
// read-only while Raw preserves them
func TestModeStoreClampOnRead(t *testing.T) {
	s := NewModeStore()

	for _, v := range []int32{-1, 3, 7, 100, -42} {
		s.Set(v)
		if got := s.Get(); got != ModeReadOnly {
			t.Errorf("value %d should clamp to read-only, got %v", v, got)
		}
		if raw := s.Raw(); raw != v {
			t.Errorf("Raw() should preserve %d verbatim, got %d", v, raw)
		}
	}
}

// TestModeStoreIdempotentReads tests repeated reads without an
// intervening Set return the same value
func TestModeStoreIdempotentReads(t *testing.T) {
	s := NewModeStore()
	s.Set(int32(ModeReversed))

	first := s.Get()
	for i := 0; i < 100; i++ {
		if got := s.Get(); got != first {
			t.Fatalf("read %d returned %v, expected %v", i, got, first)
		}
	}
}

// TestModeStoreConcurrent tests that concurrent get/set never observes
// a value outside the clamped range
func TestModeStoreConcurrent(t *testing.T) {
	s := NewModeStore()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(seed int32) {
			defer wg.Done()
			for j := int32(0); j < 1000; j++ {
				s.Set((seed + j) % 5)
			}
		}(int32(i))
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				if m := s.Get(); m != ModeNormal && m != ModeReadOnly && m != ModeReversed {
					t.Errorf("observed invalid mode %v", m)
					return
				}
			}
		}()
	}
	wg.Wait()
}

// TestModeString tests the mode names used in logs
func TestModeString(t *testing.T) {
	cases := map[Mode]string{
		ModeNormal:   "normal",
		ModeReadOnly: "read-only",
		ModeReversed: "reversed",
		Mode(9):      "invalid",
	}
	for m, want := range cases {
		if got := m.String(); got != want {
			t.Errorf("Mode(%d).String() = %q, want %q", int(m), got, want)
		}
	}
}
