package prfs

import (
	"fmt"
	"io"
	"os"
)

// makeBackup copies the entire content of name into a freshly created
// backup-named sibling. The length copied is the original's size at
// the moment of copying; it is not re-checked afterwards. Returns the
// backup path on success. On failure a short or partial backup file
// may remain; the triggering write is denied either way.
func (g *Guard) makeBackup(name string) (string, error) {
	src, err := g.fs.Open(name)
	if err != nil {
		return "", fmt.Errorf("open original: %w", err)
	}
	defer src.Close()

	backup := BackupName(name, g.now())

	// O_EXCL makes a tag collision fail creation instead of silently
	// overwriting an earlier backup.
	dst, err := g.fs.OpenFile(backup, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("create backup %s: %w", backup, err)
	}

	buf := make([]byte, g.bufSize)
	n, err := io.CopyBuffer(dst, src, buf)
	if err != nil {
		dst.Close()
		return "", fmt.Errorf("copy to %s: %w", backup, err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close backup %s: %w", backup, err)
	}

	if g.invalidate != nil {
		g.invalidate(backup)
	}
	metricBackups.Inc()
	metricBackupBytes.Add(float64(n))
	g.log.Info("backup created",
		"original", name,
		"backup", backup,
		"bytes", n)
	return backup, nil
}
