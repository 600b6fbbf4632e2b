package main

import (
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"ssfpatch/internal/savefile"
)

func runRestore(args []string, stdout io.Writer) error {
	var (
		dest    string
		backup  bool
		yes     bool
		verbose bool
	)
	fs := pflag.NewFlagSet("restore", pflag.ContinueOnError)
	fs.StringVar(&dest, "to", "", "destination (default: the save the backup was taken from)")
	fs.BoolVar(&backup, "backup", false, "back up the destination before overwriting it")
	fs.BoolVarP(&yes, "yes", "y", false, "overwrite without asking")
	fs.BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	if done, err := parseFlags(fs, args, "ssfpatch restore [flags] BACKUP"); done || err != nil {
		return err
	}
	backupPath, err := oneArg(fs, "BACKUP")
	if err != nil {
		return err
	}
	if dest == "" {
		orig, ok := savefile.OriginalPath(backupPath)
		if !ok {
			return usageErrorf("%s is not named like a backup; pass --to", backupPath)
		}
		dest = orig
	}
	logger := newLogger("restore", verbose).With("backup", backupPath, "save", dest)

	if !yes {
		ok, err := confirm(fmt.Sprintf("Overwrite %s with %s?", dest, backupPath))
		if err != nil {
			return err
		}
		if !ok {
			logger.Info("aborted, nothing written")
			return nil
		}
	}

	res, err := savefile.Restore(backupPath, dest, savefile.Options{Backup: backup})
	if err != nil {
		return err
	}
	if res.BackupPath != "" {
		logger.Info("backup created", "backup_of_save", res.BackupPath)
	}
	logger.Info("restored", "bytes", res.Bytes)
	fmt.Fprintln(stdout, dest)
	return nil
}
