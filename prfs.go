// Package prfs implements a write-interception layer that makes
// ransomware damage reversible: every modification to an existing
// regular file is preceded by an immutable, timestamp-named backup
// copy, and a global three-way mode switch governs which files may be
// written at all.
package prfs

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

var (
	// ErrPolicyDenied is returned when the current mode or the
	// write-once rule on backup files forbids a write.
	ErrPolicyDenied = errors.New("write denied by policy")
	// ErrBackupFailed is returned when a required backup could not be
	// made. The write is denied, identically to ErrPolicyDenied from
	// the caller's point of view, but the two are distinguishable.
	ErrBackupFailed = errors.New("backup creation failed")
)

// FS wraps a backing filesystem and routes every operation through the
// access guard. Reads pass straight through; writes are admitted,
// denied, or preceded by a backup according to the current mode.
type FS struct {
	base  afero.Fs
	guard *Guard
	cache *statCache
}

// Option is a functional option for configuring an FS
type Option func(*FS)

// WithLogger sets the logger used for guard decisions.
func WithLogger(log *slog.Logger) Option {
	return func(p *FS) {
		p.guard.log = log
	}
}

// WithCopyBufferSize sets the buffer size for backup copies
func WithCopyBufferSize(size int) Option {
	return func(p *FS) {
		p.guard.bufSize = size
	}
}

// WithRecorder attaches a decision recorder (an audit log). Recording
// is best-effort: recorder failures never change a decision.
func WithRecorder(rec DecisionRecorder) Option {
	return func(p *FS) {
		p.guard.rec = rec
	}
}

// WithClock overrides the wall clock used to derive backup tags.
func WithClock(now func() time.Time) Option {
	return func(p *FS) {
		p.guard.now = now
	}
}

// WithStatCache enables read-path stat caching with the specified TTL
func WithStatCache(enabled bool, ttl time.Duration) Option {
	return func(p *FS) {
		negativeTTL := ttl / 2 // negative entries expire faster
		p.cache = newStatCache(enabled, ttl, negativeTTL, 1000)
	}
}

// New creates a guarded filesystem over base, consulting modes on
// every write-intent operation.
func New(base afero.Fs, modes *ModeStore, opts ...Option) *FS {
	p := &FS{
		base:  base,
		cache: newStatCache(false, 0, 0, 0), // disabled by default
	}
	p.guard = NewGuard(base, modes)
	for _, opt := range opts {
		opt(p)
	}
	p.guard.invalidate = func(name string) { p.cache.invalidate(name) }
	return p
}

// Name returns the name of the filesystem
func (p *FS) Name() string {
	return "prfs"
}

// Guard returns the access guard, for wiring into open paths that do
// not go through this FS (spec'd as the open-event hook).
func (p *FS) Guard() *Guard {
	return p.guard
}

// cleanPath normalizes a path
func cleanPath(path string) string {
	cleaned := filepath.ToSlash(filepath.Clean(path))
	if !strings.HasPrefix(cleaned, "/") {
		cleaned = "/" + cleaned
	}
	return cleaned
}
