package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newBackupCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Snapshot the history database into the backup directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, m, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer m.Store().Close()

			path, err := m.Store().CreateBackup()
			if err != nil {
				return fmt.Errorf("creating backup: %w", err)
			}
			fmt.Println(path)
			return nil
		},
	}
}

func newRestoreCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <backup.db>",
		Short: "Replace the history database with a backup",
		Long: `Replace the live history database with the given backup file. The
current database is snapshotted into the backup directory first; if that
snapshot cannot be written the restore does not happen.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, m, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer m.Store().Close()

			if err := m.Store().Restore(args[0]); err != nil {
				return fmt.Errorf("restoring from %s: %w", args[0], err)
			}
			fmt.Printf("restored from %s\n", args[0])
			return nil
		},
	}
}
