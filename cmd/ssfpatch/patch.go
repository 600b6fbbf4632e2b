package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"ssfpatch"
	"ssfpatch/internal/config"
	"ssfpatch/internal/savefile"
)

type patchFlags struct {
	configPath        string
	preset            string
	selector          string
	property          string
	value             string
	valueFile         string
	output            string
	dryRun            bool
	noBackup          bool
	backupCompression string
	chunkSize         int
	yes               bool
	verbose           bool
}

func runPatch(args []string, stdout io.Writer) error {
	var f patchFlags
	fs := pflag.NewFlagSet("patch", pflag.ContinueOnError)
	fs.StringVar(&f.configPath, "config", "", "YAML recipe listing patches (default: $"+config.EnvVar+")")
	fs.StringVar(&f.preset, "preset", "", "built-in patch: "+strings.Join(ssfpatch.PresetNames(), ", "))
	fs.StringVar(&f.selector, "selector", "", "block name substring (case, '-' and '_' insensitive)")
	fs.StringVar(&f.property, "property", "", "JSON property to replace at any depth")
	fs.StringVar(&f.value, "value", "", "replacement value as JSON")
	fs.StringVar(&f.valueFile, "value-file", "", "file holding the replacement value (JSON or JSONC)")
	fs.StringVarP(&f.output, "output", "o", "", "write the patched save here instead of replacing SAVE")
	fs.BoolVar(&f.dryRun, "dry-run", false, "patch in memory and report, write nothing")
	fs.BoolVar(&f.noBackup, "no-backup", false, "do not back up SAVE before replacing it")
	fs.StringVar(&f.backupCompression, "backup-compression", "", "backup compression: none, lz4, zstd")
	fs.IntVar(&f.chunkSize, "chunk-size", 0, "uncompressed chunk size when re-encoding (default 1 MiB)")
	fs.BoolVarP(&f.yes, "yes", "y", false, "replace SAVE without asking")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "debug logging")

	if done, err := parseFlags(fs, args, "ssfpatch patch [flags] SAVE"); done || err != nil {
		return err
	}
	path, err := oneArg(fs, "SAVE")
	if err != nil {
		return err
	}
	logger := newLogger("patch", f.verbose).With("save", path)

	recipe, specs, err := resolvePatches(&f, fs)
	if err != nil {
		return err
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading save: %w", err)
	}
	logger.Debug("read save", "bytes", len(file))

	res, err := ssfpatch.PatchFile(file, specs, ssfpatch.PatchOptions{ChunkSize: recipe.ChunkSize})
	if err != nil {
		return err
	}
	logDiagnostics(logger, res.Decoded)
	for i, p := range res.Patches {
		for _, b := range p.Modified {
			logger.Info("patched block",
				"patch", i,
				"property", specs[i].Property,
				"block", b.Name,
				"replaced", b.Replaced,
				"old_len", b.OldLen,
				"new_len", b.NewLen)
		}
	}
	logger.Info("patched",
		"blocks_modified", res.BlocksModified(),
		"properties_replaced", res.PropertiesReplaced(),
		"payload_digest", res.PayloadDigest.Short(),
		"checksum", res.Checksum,
		"bytes", len(res.Output))

	switch {
	case f.dryRun:
		logger.Info("dry run, nothing written")
		return nil

	case f.output != "":
		if err := savefile.WriteNew(f.output, res.Output); err != nil {
			return err
		}
		logger.Info("wrote", "output", f.output)
		fmt.Fprintln(stdout, f.output)
		return nil
	}

	if !f.yes {
		ok, err := confirm(fmt.Sprintf("Overwrite %s?", path))
		if err != nil {
			return err
		}
		if !ok {
			logger.Info("aborted, nothing written")
			return nil
		}
	}
	return installPatched(logger, stdout, path, res.Output, recipe)
}

// resolvePatches merges the recipe (if any) with patches given by flags.
func resolvePatches(f *patchFlags, fs *pflag.FlagSet) (*config.Recipe, []ssfpatch.PatchSpec, error) {
	recipe := config.Default()
	if p := config.Path(f.configPath); p != "" {
		r, err := config.Load(p)
		if err != nil {
			return nil, nil, &usageError{err: err}
		}
		recipe = r
	}
	if fs.Changed("chunk-size") {
		recipe.ChunkSize = f.chunkSize
	}
	if fs.Changed("backup-compression") {
		recipe.Backup.Compression = f.backupCompression
	}
	if f.noBackup {
		disabled := false
		recipe.Backup.Enabled = &disabled
	}
	if _, err := recipe.BackupCompression(); err != nil {
		return nil, nil, &usageError{err: err}
	}

	specs, err := recipe.Specs()
	if err != nil {
		return nil, nil, err
	}

	switch {
	case f.preset != "":
		if f.selector != "" || f.property != "" || f.value != "" || f.valueFile != "" {
			return nil, nil, usageErrorf("--preset cannot be combined with --selector/--property/--value")
		}
		spec, err := ssfpatch.Preset(f.preset)
		if err != nil {
			return nil, nil, err
		}
		specs = append(specs, spec)

	case f.selector != "" || f.property != "":
		if (f.value == "") == (f.valueFile == "") {
			return nil, nil, usageErrorf("exactly one of --value and --value-file is required")
		}
		value := []byte(f.value)
		if f.valueFile != "" {
			v, err := config.ReadValueFile(f.valueFile)
			if err != nil {
				return nil, nil, err
			}
			value = v
		}
		specs = append(specs, ssfpatch.PatchSpec{Selector: f.selector, Property: f.property, Value: value})
	}

	if len(specs) == 0 {
		return nil, nil, usageErrorf("nothing to patch: give --preset, --selector/--property/--value, or --config")
	}
	return recipe, specs, nil
}

func installPatched(logger *slog.Logger, stdout io.Writer, path string, out []byte, recipe *config.Recipe) error {
	compression, _ := recipe.BackupCompression()
	res, err := savefile.Replace(path, out, savefile.Options{
		Backup:      recipe.BackupEnabled(),
		Compression: compression,
	})
	if err != nil {
		return err
	}
	if res.BackupPath != "" {
		logger.Info("backup created", "backup", res.BackupPath, "compression", compression.String())
	}
	logger.Info("save replaced", "bytes", res.Bytes)
	fmt.Fprintln(stdout, path)
	return nil
}

// confirm asks on the terminal. Without a terminal it refuses, so scripts
// must pass --yes.
func confirm(question string) (bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, usageErrorf("stdin is not a terminal; pass --yes to replace the save")
	}
	fmt.Fprintf(os.Stderr, "%s [y/N] ", question)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
