package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func adminCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{Use: "admin", Short: "Backup and restore"}

	var output string
	backup := &cobra.Command{
		Use:   "backup",
		Short: "Download a full JSON backup",
		RunE: e.authed(func(cmd *cobra.Command, _ []string) error {
			dir := "."
			if output != "" {
				dir = filepath.Dir(output)
			}
			tmp, err := os.CreateTemp(dir, ".feedctl-backup-*")
			if err != nil {
				return err
			}
			defer func() {
				_ = os.Remove(tmp.Name())
			}()
			name, err := e.api.Admin().Backup(cmd.Context(), tmp)
			if closeErr := tmp.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				return err
			}
			target := output
			if target == "" {
				target = filepath.Base(name)
			}
			if err := os.Rename(tmp.Name(), target); err != nil {
				return err
			}
			fmt.Fprintf(e.out, "backup saved to %s\n", target)
			return nil
		}),
	}
	backup.Flags().StringVarP(&output, "output", "o", "", "file to write (default: server file name)")

	var yes bool
	restore := &cobra.Command{
		Use:   "restore FILE",
		Short: "Replace ALL backend data with a backup file",
		Args:  cobra.ExactArgs(1),
		RunE: e.authed(func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("restore replaces every record; re-run with --yes to confirm")
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() {
				_ = f.Close()
			}()
			sum, err := e.api.Admin().Restore(cmd.Context(), filepath.Base(args[0]), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "restored backup v%d: %d feeds, %d customers, %d invoices, %d payments, %d expenses\n",
				sum.Version, sum.Feeds, sum.Customers, sum.Invoices, sum.Payments, sum.Expenses)
			return nil
		}),
	}
	restore.Flags().BoolVar(&yes, "yes", false, "confirm the data replacement")

	schedule := &cobra.Command{
		Use:   "schedule-backup",
		Short: "Ask the worker to write a backup into the server's backup directory",
		RunE: e.authed(func(cmd *cobra.Command, _ []string) error {
			id, err := e.api.Admin().ScheduleBackup(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "backup queued as task %s\n", id)
			return nil
		}),
	}

	cmd.AddCommand(backup, restore, schedule)
	return cmd
}
