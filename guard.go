package prfs

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// Outcome labels a guard decision for logs, metrics and the audit log.
type Outcome string

const (
	// OutcomeAllow is a write admitted without a backup.
	OutcomeAllow Outcome = "allow"
	// OutcomeBackup is a write admitted after a successful backup.
	OutcomeBackup Outcome = "backup"
	// OutcomeDenyPolicy is a write denied by mode or the write-once
	// rule on backup files.
	OutcomeDenyPolicy Outcome = "deny_policy"
	// OutcomeDenyBackup is a write denied because the backup it owed
	// could not be made.
	OutcomeDenyBackup Outcome = "deny_backup"
)

// DecisionRecorder receives every write-intent decision the guard
// makes. Implementations must tolerate concurrent calls.
type DecisionRecorder interface {
	RecordDecision(name string, mode Mode, outcome Outcome, detail string)
}

// Event describes a single file-open call with the classification the
// guard needs: the target name, the requested open flags, and whether
// the open itself created the file.
type Event struct {
	Name string
	Flag int
	// Created reports that the file did not exist immediately before
	// this open. The creation path sets it explicitly rather than the
	// guard inferring it from flags.
	Created bool
}

// WriteIntent reports whether the event carries write intent. Any
// access other than a pure read counts.
func (e Event) WriteIntent() bool {
	return e.Flag&(os.O_WRONLY|os.O_RDWR|os.O_APPEND|os.O_CREATE|os.O_TRUNC) != 0
}

// Guard is the state machine invoked on every file-open. It classifies
// the open, consults the mode store, and on a qualifying write makes a
// full-file backup before allowing the write through. Backup creation
// failure converts the allow into a deny: a write never reaches an
// original file unless either no backup was owed or the backup exists.
type Guard struct {
	fs      afero.Fs
	modes   *ModeStore
	log     *slog.Logger
	rec     DecisionRecorder
	now     func() time.Time
	bufSize int
	locks   nameLocks

	// invalidate, when set, is called with the path of every backup
	// file the guard creates, so a caching layer above never holds a
	// stale miss for a name that now exists.
	invalidate func(name string)
}

// NewGuard creates a guard over fs, consulting modes on every event.
func NewGuard(fs afero.Fs, modes *ModeStore) *Guard {
	return &Guard{
		fs:      fs,
		modes:   modes,
		log:     slog.Default(),
		now:     time.Now,
		bufSize: 32 * 1024,
	}
}

// Authorize runs the decision procedure for one open event. A nil
// return means the open may proceed; any required backup has already
// been made. Pure reads are always admitted without consulting the
// mode store.
func (g *Guard) Authorize(ev Event) error {
	if !ev.WriteIntent() {
		return nil
	}

	name := cleanPath(ev.Name)
	mode := g.modes.Get()

	switch mode {
	case ModeNormal:
		// Serialize backup-and-admit per name so two concurrent
		// write-opens of the same original order their backups.
		unlock := g.locks.lock(name)
		defer unlock()

		if IsBackupName(name) {
			if ev.Created {
				// The backup's own creation.
				return g.allow(name, mode, OutcomeAllow, "backup creation")
			}
			return g.deny(name, mode, OutcomeDenyPolicy, "backup file is write-once")
		}
		if ev.Created {
			return g.allow(name, mode, OutcomeAllow, "freshly created")
		}
		backup, err := g.makeBackup(name)
		if err != nil {
			return g.denyBackup(name, mode, err)
		}
		return g.allow(name, mode, OutcomeBackup, backup)

	case ModeReadOnly:
		return g.deny(name, mode, OutcomeDenyPolicy, "filesystem is read-only")

	case ModeReversed:
		if IsBackupName(name) {
			return g.allow(name, mode, OutcomeAllow, "backup file in reversed mode")
		}
		return g.deny(name, mode, OutcomeDenyPolicy, "only backup files writable in reversed mode")
	}

	// Unreachable while ModeStore clamps, kept as a fail-closed default.
	return g.deny(name, mode, OutcomeDenyPolicy, "invalid mode")
}

func (g *Guard) allow(name string, mode Mode, outcome Outcome, detail string) error {
	g.log.Debug("write admitted",
		"name", name,
		"mode", mode.String(),
		"detail", detail)
	g.record(name, mode, outcome, detail)
	metricDecisions.WithLabelValues(string(outcome)).Inc()
	return nil
}

func (g *Guard) deny(name string, mode Mode, outcome Outcome, detail string) error {
	g.log.Info("write denied",
		"name", name,
		"mode", mode.String(),
		"detail", detail)
	g.record(name, mode, outcome, detail)
	metricDecisions.WithLabelValues(string(outcome)).Inc()
	return fmt.Errorf("%w: %s", ErrPolicyDenied, detail)
}

func (g *Guard) denyBackup(name string, mode Mode, err error) error {
	g.log.Warn("backup failed, write denied",
		"name", name,
		"error", err)
	g.record(name, mode, OutcomeDenyBackup, err.Error())
	metricDecisions.WithLabelValues(string(OutcomeDenyBackup)).Inc()
	return fmt.Errorf("%w: %v", ErrBackupFailed, err)
}

// Mode returns the current mode as the guard would observe it.
func (g *Guard) Mode() Mode {
	return g.modes.Get()
}

func (g *Guard) record(name string, mode Mode, outcome Outcome, detail string) {
	if g.rec != nil {
		g.rec.RecordDecision(name, mode, outcome, detail)
	}
}

// nameLocks is a keyed mutex set. Entries are reference counted and
// removed on release so the map stays bounded by in-flight opens.
type nameLocks struct {
	mu sync.Mutex
	m  map[string]*nameLock
}

type nameLock struct {
	mu   sync.Mutex
	refs int
}

func (l *nameLocks) lock(name string) (unlock func()) {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[string]*nameLock)
	}
	nl, ok := l.m[name]
	if !ok {
		nl = &nameLock{}
		l.m[name] = nl
	}
	nl.refs++
	l.mu.Unlock()

	nl.mu.Lock()
	return func() {
		nl.mu.Unlock()
		l.mu.Lock()
		nl.refs--
		if nl.refs == 0 {
			delete(l.m, name)
		}
		l.mu.Unlock()
	}
}
