package prfs

import "sync/atomic"

// Mode is the global access policy applied to every write-intent open.
type Mode int32

const (
	// ModeNormal backs up ordinary files before the first write and
	// enforces write-once semantics on backup files.
	ModeNormal Mode = 0
	// ModeReadOnly denies every write regardless of file identity.
	ModeReadOnly Mode = 1
	// ModeReversed allows writes to backup-named files only, so that
	// old backups can be truncated or removed to reclaim space.
	ModeReversed Mode = 2
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeReadOnly:
		return "read-only"
	case ModeReversed:
		return "reversed"
	}
	return "invalid"
}

// ModeStore holds the process-wide mode as a single atomic scalar.
// Set stores any value verbatim; Get clamps out-of-range values to
// ModeReadOnly, so an operator writing garbage leaves the system in
// its safest state rather than an undefined one.
type ModeStore struct {
	v atomic.Int32
}

// NewModeStore returns a store initialized to ModeReadOnly. The system
// starts safe until an operator explicitly switches it.
func NewModeStore() *ModeStore {
	s := &ModeStore{}
	s.v.Store(int32(ModeReadOnly))
	return s
}

// Set stores v without validation. Range checking happens on read.
func (s *ModeStore) Set(v int32) {
	s.v.Store(v)
}

// Get returns the current mode, clamped to ModeReadOnly for any value
// outside the valid range.
func (s *ModeStore) Get() Mode {
	v := s.v.Load()
	if v < int32(ModeNormal) || v > int32(ModeReversed) {
		return ModeReadOnly
	}
	return Mode(v)
}

// Raw returns the last value written, unclamped, so an operator can
// see exactly what was stored.
func (s *ModeStore) Raw() int32 {
	return s.v.Load()
}
