package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/hardenfs/prfs"
)

var backupsMaxAge time.Duration

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "Inspect and manage the backup namespace",
}

var backupsListCmd = &cobra.Command{
	Use:   "list DIR",
	Short: "List backup files in a directory, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupsList,
}

var backupsRestoreCmd = &cobra.Command{
	Use:   "restore BACKUP",
	Short: "Copy a backup's content back over its original",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupsRestore,
}

var backupsCleanCmd = &cobra.Command{
	Use:   "clean DIR",
	Short: "Remove backups older than --max-age (run in reversed mode)",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupsClean,
}

func init() {
	rootCmd.AddCommand(backupsCmd)
	backupsCmd.AddCommand(backupsListCmd, backupsRestoreCmd, backupsCleanCmd)
	backupsCleanCmd.Flags().DurationVar(&backupsMaxAge, "max-age", 30*24*time.Hour,
		"remove backups older than this")
}

func runBackupsList(cmd *cobra.Command, args []string) error {
	dir, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	backups, err := prfs.ListBackups(afero.NewOsFs(), dir)
	if err != nil {
		return err
	}
	for _, b := range backups {
		fmt.Printf("%s  %10d  %s -> %s\n",
			b.CreatedAt.UTC().Format(time.RFC3339), b.Size, b.Path, b.OriginalPath)
	}
	return nil
}

func runBackupsRestore(cmd *cobra.Command, args []string) error {
	backup, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	if err := prfs.Restore(afero.NewOsFs(), backup); err != nil {
		return err
	}
	original, _ := prfs.OriginalName(backup)
	fmt.Printf("restored %s\n", original)
	return nil
}

func runBackupsClean(cmd *cobra.Command, args []string) error {
	dir, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	removed, err := prfs.CleanOldBackups(afero.NewOsFs(), dir, backupsMaxAge, time.Now())
	if err != nil {
		return err
	}
	fmt.Printf("removed %d backups\n", removed)
	return nil
}
