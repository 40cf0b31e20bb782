package audit

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hardenfs/prfs"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := Open(filepath.Join(t.TempDir(), "audit.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := newTestStore(t)

	s.RecordDecision("/data/report.txt", prfs.ModeNormal, prfs.OutcomeBackup, "/data/_1234567890123_report.txt")
	s.RecordDecision("/data/report.txt", prfs.ModeReadOnly, prfs.OutcomeDenyPolicy, "filesystem is read-only")
	s.RecordDecision("/data/other.txt", prfs.ModeNormal, prfs.OutcomeAllow, "freshly created")

	recent, err := s.Recent(10)
	require.NoError(t, err)
	require.Len(t, recent, 3)

	// Newest first.
	assert.Equal(t, "/data/other.txt", recent[0].Name)
	assert.Equal(t, prfs.OutcomeAllow, recent[0].Outcome)
	assert.Equal(t, "/data/report.txt", recent[2].Name)
	assert.Equal(t, prfs.ModeNormal, recent[2].Mode)
	assert.Equal(t, prfs.OutcomeBackup, recent[2].Outcome)
	assert.False(t, recent[0].At.IsZero())
}

func TestRecentLimit(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 5; i++ {
		s.RecordDecision("/data/report.txt", prfs.ModeNormal, prfs.OutcomeAllow, "")
	}

	recent, err := s.Recent(2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	// A non-positive limit falls back to the default rather than
	// returning nothing.
	recent, err = s.Recent(0)
	require.NoError(t, err)
	assert.Len(t, recent, 5)
}

func TestForName(t *testing.T) {
	s := newTestStore(t)
	s.RecordDecision("/data/a.txt", prfs.ModeNormal, prfs.OutcomeBackup, "first")
	s.RecordDecision("/data/b.txt", prfs.ModeNormal, prfs.OutcomeAllow, "")
	s.RecordDecision("/data/a.txt", prfs.ModeReadOnly, prfs.OutcomeDenyPolicy, "second")

	decisions, err := s.ForName("/data/a.txt", 10)
	require.NoError(t, err)
	require.Len(t, decisions, 2)

	// Oldest first.
	assert.Equal(t, "first", decisions[0].Detail)
	assert.Equal(t, "second", decisions[1].Detail)
}

func TestCountByOutcome(t *testing.T) {
	s := newTestStore(t)
	s.RecordDecision("/a", prfs.ModeNormal, prfs.OutcomeAllow, "")
	s.RecordDecision("/b", prfs.ModeNormal, prfs.OutcomeAllow, "")
	s.RecordDecision("/c", prfs.ModeReadOnly, prfs.OutcomeDenyPolicy, "")

	counts, err := s.CountByOutcome()
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[prfs.OutcomeAllow])
	assert.Equal(t, int64(1), counts[prfs.OutcomeDenyPolicy])
	assert.Zero(t, counts[prfs.OutcomeDenyBackup])
}

func TestStoreImplementsRecorder(t *testing.T) {
	var _ prfs.DecisionRecorder = (*Store)(nil)
}
