/*
Package prfs provides a write-interception filesystem layer that makes
ransomware damage reversible by copying every file to an immutable,
timestamp-named backup before its first modification.

# Overview

PRFS (Protected Reversible File System) wraps any afero.Fs and gates
every write through a global three-way mode switch:

  - Normal (0): writes to ordinary pre-existing files trigger a
    full-content backup first; backup files are write-once.
  - ReadOnly (1): no write succeeds, regardless of file identity. This
    is the initial mode and the fallback for any invalid mode value.
  - Reversed (2): only backup-named files may be written, so old
    backups can be deleted to reclaim space; ordinary files are
    write-denied.

The central safety property is fail-closed: a write never reaches an
original file unless either no backup was owed, or the backup was
successfully made first. A failed backup denies the write.

# Backup Names

A backup of /data/report.txt taken at Unix second 1234567890 and
millisecond 123 is named /data/_1234567890123_report.txt. The
15-character tag is an underscore, the low-order ten digits of the
second, three millisecond digits, and a closing underscore. Tags sort
lexicographically in chronological order, so any tool that can list a
directory can enumerate, order, and restore backups:

	backups, _ := prfs.ListBackups(fs, "/data")
	for _, b := range backups {
	    fmt.Println(b.CreatedAt, b.Path, "->", b.OriginalPath)
	}

Classification is structural only: any base name with that shape is
treated as a backup, including hand-crafted ones.

# Basic Usage

	package main

	import (
	    "os"

	    "github.com/hardenfs/prfs"
	    "github.com/spf13/afero"
	)

	func main() {
	    modes := prfs.NewModeStore() // starts read-only
	    fs := prfs.New(afero.NewOsFs(), modes)

	    modes.Set(int32(prfs.ModeNormal))

	    // First write to a pre-existing file copies it to a
	    // _NNNNNNNNNNNNN_ sibling, then the write proceeds.
	    f, err := fs.OpenFile("/data/report.txt", os.O_WRONLY, 0644)

	    // Writing a backup file that already exists is denied (WORM).
	    _, err = fs.OpenFile("/data/_1234567890123_report.txt", os.O_WRONLY, 0644)
	}

# Concurrency

The mode is a single atomic scalar read on every write path; a
concurrent mode change is observed as either the old or new value,
never a torn one. Backups and admission are serialized per file name,
so two concurrent write-opens of the same original order their
backups. Writers reaching the backing filesystem without going through
this layer are not excluded; ordering between a backup snapshot and
such a writer is not guaranteed.

# Mode Control

The mode is meant to be switched by a privileged external actor. The
modectl subpackage exposes the switch two ways, in the style of a proc
file: an HTTP endpoint speaking decimal ASCII, and a watched mode
file. Values are stored and read back verbatim; the guard clamps
out-of-range values to ReadOnly when it consults the store.
*/
package prfs
