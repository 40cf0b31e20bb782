package prfs

import (
	"testing"
	"time"

	"github.com/spf13/afero"
)

// TestListBackups tests enumeration is filtered and oldest first
func TestListBackups(t *testing.T) {
	base := afero.NewMemMapFs()
	mustWriteFile(t, base, "/data/report.txt", []byte("live"))
	mustWriteFile(t, base, "/data/_1234567892000_report.txt", []byte("v3"))
	mustWriteFile(t, base, "/data/_1234567890000_report.txt", []byte("v1"))
	mustWriteFile(t, base, "/data/_1234567891000_report.txt", []byte("v2"))
	mustWriteFile(t, base, "/data/_1234567890500_notes.txt", []byte("n1"))
	mustWriteFile(t, base, "/data/sub/_1234567890000_deep.txt", []byte("d"))

	backups, err := ListBackups(base, "/data")
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 4 {
		t.Fatalf("expected 4 backups, got %d", len(backups))
	}
	// Nested directories are not descended into.
	for _, b := range backups {
		if b.OriginalPath == "/data/sub/deep.txt" {
			t.Error("listing descended into a subdirectory")
		}
	}
	for i := 1; i < len(backups); i++ {
		if backups[i].CreatedAt.Before(backups[i-1].CreatedAt) {
			t.Errorf("backups out of order at %d: %v after %v",
				i, backups[i-1].CreatedAt, backups[i].CreatedAt)
		}
	}
	if backups[0].OriginalPath != "/data/report.txt" {
		t.Errorf("oldest original = %q", backups[0].OriginalPath)
	}
	if backups[0].Size != 2 {
		t.Errorf("size = %d, want 2", backups[0].Size)
	}
}

// TestBackupsFor tests per-original filtering
func TestBackupsFor(t *testing.T) {
	base := afero.NewMemMapFs()
	mustWriteFile(t, base, "/data/_1234567890000_report.txt", []byte("v1"))
	mustWriteFile(t, base, "/data/_1234567891000_report.txt", []byte("v2"))
	mustWriteFile(t, base, "/data/_1234567890500_notes.txt", []byte("n1"))

	backups, err := BackupsFor(base, "/data/report.txt")
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 2 {
		t.Fatalf("expected 2 backups, got %d", len(backups))
	}
	for _, b := range backups {
		if b.OriginalPath != "/data/report.txt" {
			t.Errorf("stray original %q", b.OriginalPath)
		}
	}
}

// TestRestore tests a backup's bytes come back over the original
func TestRestore(t *testing.T) {
	base := afero.NewMemMapFs()
	mustWriteFile(t, base, "/data/report.txt", []byte("encrypted garbage"))
	mustWriteFile(t, base, "/data/_1234567890123_report.txt", []byte("the real content"))

	if err := Restore(base, "/data/_1234567890123_report.txt"); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, base, "/data/report.txt"); string(got) != "the real content" {
		t.Errorf("restored content %q", got)
	}
	// The backup survives the restore.
	if got := readFile(t, base, "/data/_1234567890123_report.txt"); string(got) != "the real content" {
		t.Errorf("backup content %q", got)
	}
}

// TestRestoreRecreatesMissingOriginal tests restore after deletion
func TestRestoreRecreatesMissingOriginal(t *testing.T) {
	base := afero.NewMemMapFs()
	mustWriteFile(t, base, "/data/_1234567890123_report.txt", []byte("survivor"))

	if err := Restore(base, "/data/_1234567890123_report.txt"); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, base, "/data/report.txt"); string(got) != "survivor" {
		t.Errorf("restored content %q", got)
	}
}

// TestRestoreRejectsOrdinaryFile tests only backup names restore
func TestRestoreRejectsOrdinaryFile(t *testing.T) {
	base := afero.NewMemMapFs()
	mustWriteFile(t, base, "/data/report.txt", []byte("live"))

	if err := Restore(base, "/data/report.txt"); err == nil {
		t.Error("expected an error restoring a non-backup path")
	}
}

// TestCleanOldBackups tests the age cutoff
func TestCleanOldBackups(t *testing.T) {
	base := afero.NewMemMapFs()
	old := time.Unix(1234567890, 0)
	fresh := old.Add(48 * time.Hour)
	mustWriteFile(t, base, BackupName("/data/report.txt", old), []byte("old"))
	mustWriteFile(t, base, BackupName("/data/report.txt", fresh), []byte("fresh"))
	mustWriteFile(t, base, "/data/report.txt", []byte("live"))

	removed, err := CleanOldBackups(base, "/data", 24*time.Hour, fresh)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := base.Stat(BackupName("/data/report.txt", old)); err == nil {
		t.Error("old backup still present")
	}
	if _, err := base.Stat(BackupName("/data/report.txt", fresh)); err != nil {
		t.Error("fresh backup removed")
	}
	if _, err := base.Stat("/data/report.txt"); err != nil {
		t.Error("live file removed")
	}
}
