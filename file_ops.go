package prfs

import (
	"os"
	"time"

	"github.com/spf13/afero"
)

// Stat returns file info from the backing filesystem, via the cache.
func (p *FS) Stat(name string) (os.FileInfo, error) {
	name = cleanPath(name)

	if info, ok := p.cache.getStat(name); ok {
		return info, nil
	}
	if p.cache.isNegative(name) {
		return nil, &os.PathError{Op: "stat", Path: name, Err: os.ErrNotExist}
	}

	info, err := p.base.Stat(name)
	if err == nil {
		p.cache.putStat(name, info)
		return info, nil
	}
	if os.IsNotExist(err) {
		p.cache.putNegative(name)
	}
	return nil, err
}

// exists is the pre-open probe that classifies an open as
// freshly-created or pre-existing. It goes straight to the backing
// filesystem: a stale negative cache entry here would let an existing
// file pass as freshly created, and that is exactly how a backup
// could be rewritten.
func (p *FS) exists(name string) bool {
	_, err := p.base.Stat(name)
	return err == nil
}

// Open opens a file for reading
func (p *FS) Open(name string) (afero.File, error) {
	return p.OpenFile(name, os.O_RDONLY, 0)
}

// OpenFile opens a file with the specified flags and permissions.
// Write-intent opens are authorized by the guard before the backing
// filesystem sees them; a denied open returns a *os.PathError wrapping
// ErrPolicyDenied or ErrBackupFailed and leaves no side effects beyond
// any backup already made.
func (p *FS) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	name = cleanPath(name)

	ev := Event{Name: name, Flag: flag}
	if ev.WriteIntent() {
		preexisting := p.exists(name)
		if !preexisting && flag&os.O_CREATE == 0 {
			// Nothing to protect: let the backing open report the error.
			return p.base.OpenFile(name, flag, perm)
		}
		ev.Created = !preexisting

		if err := p.guard.Authorize(ev); err != nil {
			return nil, &os.PathError{Op: "open", Path: name, Err: err}
		}

		p.cache.invalidate(name)
	}

	return p.base.OpenFile(name, flag, perm)
}

// Create creates a file, routed through the guard like any other
// write-intent open.
func (p *FS) Create(name string) (afero.File, error) {
	return p.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
}

// Mkdir creates a directory. Directories carry no content to back up;
// creation is denied outside Normal mode.
func (p *FS) Mkdir(name string, perm os.FileMode) error {
	name = cleanPath(name)

	if err := p.authorizeDirCreate(name); err != nil {
		return &os.PathError{Op: "mkdir", Path: name, Err: err}
	}

	err := p.base.Mkdir(name, perm)
	if err == nil {
		p.cache.invalidate(name)
	}
	return err
}

// MkdirAll creates a directory and all parent directories
func (p *FS) MkdirAll(name string, perm os.FileMode) error {
	name = cleanPath(name)

	if err := p.authorizeDirCreate(name); err != nil {
		return &os.PathError{Op: "mkdir", Path: name, Err: err}
	}

	err := p.base.MkdirAll(name, perm)
	if err == nil {
		p.cache.invalidate(name)
	}
	return err
}

// Remove deletes a file. Ordinary files are backed up before removal
// in Normal mode, so a delete is as reversible as an overwrite; backup
// files can only be removed in Reversed mode.
func (p *FS) Remove(name string) error {
	name = cleanPath(name)

	if err := p.authorizeDestroy(name); err != nil {
		return &os.PathError{Op: "remove", Path: name, Err: err}
	}

	err := p.base.Remove(name)
	if err == nil {
		p.cache.invalidate(name)
	}
	return err
}

// RemoveAll removes a path and all children. A single file behaves
// exactly like Remove. Removing a directory tree would destroy any
// sibling backups taken inside it, which cannot be made reversible, so
// trees are denied except in Reversed mode when the tree holds nothing
// but backup files and directories.
func (p *FS) RemoveAll(name string) error {
	name = cleanPath(name)

	info, err := p.base.Stat(name)
	if err != nil {
		if os.IsNotExist(err) {
			// Same contract as os.RemoveAll.
			return nil
		}
		return err
	}

	if !info.IsDir() {
		return p.Remove(name)
	}

	g := p.guard
	mode := g.Mode()
	switch mode {
	case ModeReversed:
		err = afero.Walk(p.base, name, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() || IsBackupName(path) {
				return nil
			}
			return &os.PathError{Op: "remove", Path: path,
				Err: g.deny(cleanPath(path), mode, OutcomeDenyPolicy, "only backup files writable in reversed mode")}
		})
		if err != nil {
			return err
		}
		err = p.base.RemoveAll(name)
		if err == nil {
			g.record(name, mode, OutcomeAllow, "backup tree removal in reversed mode")
			p.cache.clear()
		}
		return err
	case ModeNormal:
		return &os.PathError{Op: "remove", Path: name,
			Err: g.deny(name, mode, OutcomeDenyPolicy, "directory tree removal is not reversible")}
	case ModeReadOnly:
		return &os.PathError{Op: "remove", Path: name,
			Err: g.deny(name, mode, OutcomeDenyPolicy, "filesystem is read-only")}
	}
	return &os.PathError{Op: "remove", Path: name,
		Err: g.deny(name, mode, OutcomeDenyPolicy, "invalid mode")}
}

// Rename renames a file. Backup files never change name; ordinary
// pre-existing sources (and overwritten destinations) are backed up
// first in Normal mode.
func (p *FS) Rename(oldname, newname string) error {
	oldname = cleanPath(oldname)
	newname = cleanPath(newname)

	if err := p.authorizeRename(oldname, newname); err != nil {
		return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: err}
	}

	if err := p.base.Rename(oldname, newname); err != nil {
		return err
	}
	p.cache.invalidate(oldname)
	p.cache.invalidate(newname)
	return nil
}

// Chmod changes file permissions. Metadata-only: no backup is owed,
// but ReadOnly mode still denies it.
func (p *FS) Chmod(name string, mode os.FileMode) error {
	name = cleanPath(name)

	if err := p.authorizeMetadata(name); err != nil {
		return &os.PathError{Op: "chmod", Path: name, Err: err}
	}

	err := p.base.Chmod(name, mode)
	if err == nil {
		p.cache.invalidate(name)
	}
	return err
}

// Chown changes file ownership
func (p *FS) Chown(name string, uid, gid int) error {
	name = cleanPath(name)

	if err := p.authorizeMetadata(name); err != nil {
		return &os.PathError{Op: "chown", Path: name, Err: err}
	}

	err := p.base.Chown(name, uid, gid)
	if err == nil {
		p.cache.invalidate(name)
	}
	return err
}

// Chtimes changes file access and modification times
func (p *FS) Chtimes(name string, atime, mtime time.Time) error {
	name = cleanPath(name)

	if err := p.authorizeMetadata(name); err != nil {
		return &os.PathError{Op: "chtimes", Path: name, Err: err}
	}

	err := p.base.Chtimes(name, atime, mtime)
	if err == nil {
		p.cache.invalidate(name)
	}
	return err
}

// CacheStats returns read-cache statistics
func (p *FS) CacheStats() CacheStats {
	return p.cache.Stats()
}

// ClearCache removes all read-cache entries
func (p *FS) ClearCache() {
	p.cache.clear()
}

// authorizeDirCreate applies mode policy to directory creation.
func (p *FS) authorizeDirCreate(name string) error {
	g := p.guard
	mode := g.Mode()
	switch mode {
	case ModeNormal:
		return g.allow(name, mode, OutcomeAllow, "directory creation")
	case ModeReadOnly:
		return g.deny(name, mode, OutcomeDenyPolicy, "filesystem is read-only")
	case ModeReversed:
		return g.deny(name, mode, OutcomeDenyPolicy, "only backup files writable in reversed mode")
	}
	return g.deny(name, mode, OutcomeDenyPolicy, "invalid mode")
}

// authorizeDestroy applies mode policy to the removal of a single
// file, making a backup first where one is owed.
func (p *FS) authorizeDestroy(name string) error {
	g := p.guard
	mode := g.Mode()
	switch mode {
	case ModeNormal:
		unlock := g.locks.lock(name)
		defer unlock()

		if IsBackupName(name) {
			return g.deny(name, mode, OutcomeDenyPolicy, "backup file is write-once")
		}
		if !p.exists(name) {
			// Let the backing remove report the missing file.
			return g.allow(name, mode, OutcomeAllow, "no such file")
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
	return g.deny(name, mode, OutcomeDenyPolicy, "invalid mode")
}

// authorizeRename applies mode policy to renames. In Normal mode both
// the disappearing source and any overwritten destination are backed
// up before the rename happens.
func (p *FS) authorizeRename(oldname, newname string) error {
	g := p.guard
	mode := g.Mode()
	switch mode {
	case ModeNormal:
		if IsBackupName(oldname) || IsBackupName(newname) {
			return g.deny(oldname, mode, OutcomeDenyPolicy, "backup file is write-once")
		}
		if oldname == newname {
			// A no-op rename destroys nothing, so no backup is owed.
			return g.allow(oldname, mode, OutcomeAllow, "rename to same name")
		}
		for _, name := range []string{oldname, newname} {
			unlock := g.locks.lock(name)
			if !p.exists(name) {
				unlock()
				continue
			}
			backup, err := g.makeBackup(name)
			unlock()
			if err != nil {
				return g.denyBackup(name, mode, err)
			}
			g.record(name, mode, OutcomeBackup, backup)
		}
		return g.allow(oldname, mode, OutcomeAllow, "rename to "+newname)
	case ModeReadOnly:
		return g.deny(oldname, mode, OutcomeDenyPolicy, "filesystem is read-only")
	case ModeReversed:
		// Renaming a backup out of the backup namespace would launder
		// its write-once status, so both ends must be backup names.
		if IsBackupName(oldname) && IsBackupName(newname) {
			return g.allow(oldname, mode, OutcomeAllow, "backup rename in reversed mode")
		}
		return g.deny(oldname, mode, OutcomeDenyPolicy, "only backup files writable in reversed mode")
	}
	return g.deny(oldname, mode, OutcomeDenyPolicy, "invalid mode")
}

// authorizeMetadata applies mode policy to metadata-only changes.
func (p *FS) authorizeMetadata(name string) error {
	g := p.guard
	if mode := g.Mode(); mode == ModeReadOnly {
		return g.deny(name, mode, OutcomeDenyPolicy, "filesystem is read-only")
	}
	return nil
}
