package prfs

import (
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"time"

	"github.com/spf13/afero"
)

// BackupInfo describes one backup file discovered on disk.
type BackupInfo struct {
	// Path is the full path to the backup file.
	Path string
	// OriginalPath is the path the backup was taken from.
	OriginalPath string
	// CreatedAt is the backup time decoded from the tag.
	CreatedAt time.Time
	// Size is the backup's size in bytes.
	Size int64
}

// ListBackups enumerates every backup file directly inside dir,
// ordered oldest first. Ordering follows the tag, so it is
// chronological within a rollover span. Any consumer can rebuild this
// view from a plain directory listing; no index is kept.
func ListBackups(fsys afero.Fs, dir string) ([]BackupInfo, error) {
	dir = cleanPath(dir)

	f, err := fsys.Open(dir)
	if err != nil {
		return nil, err
	}
	infos, err := f.Readdir(-1)
	f.Close()
	if err != nil {
		return nil, err
	}

	var backups []BackupInfo
	for _, info := range infos {
		if info.IsDir() || !IsBackupName(info.Name()) {
			continue
		}
		full := path.Join(dir, info.Name())
		original, _ := OriginalName(full)
		created, _ := TagTime(info.Name())
		backups = append(backups, BackupInfo{
			Path:         full,
			OriginalPath: original,
			CreatedAt:    created,
			Size:         info.Size(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return path.Base(backups[i].Path) < path.Base(backups[j].Path)
	})
	return backups, nil
}

// BackupsFor returns the backups of a single original, oldest first.
func BackupsFor(fsys afero.Fs, name string) ([]BackupInfo, error) {
	name = cleanPath(name)

	all, err := ListBackups(fsys, path.Dir(name))
	if err != nil {
		return nil, err
	}
	var matched []BackupInfo
	for _, b := range all {
		if b.OriginalPath == name {
			matched = append(matched, b)
		}
	}
	return matched, nil
}

// Restore copies a backup's bytes back over its original. The backup
// itself is left untouched. Restore does not consult the mode store:
// it is restore tooling acting on the backing filesystem directly, and
// the operator is expected to hold the system out of Normal mode while
// restoring.
func Restore(fsys afero.Fs, backupPath string) error {
	backupPath = cleanPath(backupPath)

	original, ok := OriginalName(backupPath)
	if !ok {
		return fmt.Errorf("%s is not a backup file", backupPath)
	}

	src, err := fsys.Open(backupPath)
	if err != nil {
		return fmt.Errorf("open backup: %w", err)
	}
	defer src.Close()

	dst, err := fsys.OpenFile(original, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("open original: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("restore %s: %w", original, err)
	}
	return dst.Close()
}

// CleanOldBackups removes backups in dir whose tag is older than
// maxAge relative to now, returning the number removed. Intended to
// run while the system is in Reversed mode; against a guarded FS in
// any other mode the removals are denied.
func CleanOldBackups(fsys afero.Fs, dir string, maxAge time.Duration, now time.Time) (int, error) {
	backups, err := ListBackups(fsys, dir)
	if err != nil {
		return 0, err
	}

	cutoff := now.Add(-maxAge)
	removed := 0
	for _, b := range backups {
		if b.CreatedAt.After(cutoff) {
			continue
		}
		if err := fsys.Remove(b.Path); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
