package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"ssfpatch"
	"ssfpatch/internal/savefile"
)

func runInspect(args []string, stdout io.Writer) error {
	var (
		opts       ssfpatch.ReportOptions
		reportPath string
		verbose    bool
	)
	fs := pflag.NewFlagSet("inspect", pflag.ContinueOnError)
	fs.StringVar(&reportPath, "report", "", "write the report to this file instead of stdout")
	fs.StringVar(&opts.Contains, "contains", "", "only keep JSON fragments containing this text")
	fs.IntVar(&opts.MaxFragments, "max-fragments", 64, "maximum JSON fragments to extract from binary payloads")
	fs.IntVar(&opts.MaxStrings, "max-strings", 200, "maximum printable strings to list")
	fs.BoolVar(&opts.IncludeBlocks, "blocks", false, "summarize SMBH blocks")
	fs.BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	if done, err := parseFlags(fs, args, "ssfpatch inspect [flags] SAVE"); done || err != nil {
		return err
	}
	path, err := oneArg(fs, "SAVE")
	if err != nil {
		return err
	}
	logger := newLogger("inspect", verbose).With("save", path)

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading save: %w", err)
	}
	report, err := ssfpatch.BuildReport(filepath.Base(path), file, opts)
	if err != nil {
		return err
	}
	logger.Debug("decoded",
		"chunks", report.Chunks,
		"payload_bytes", report.ActualDecompressedBytes,
		"kind", report.PayloadKind)

	if reportPath == "" {
		return ssfpatch.WriteReport(stdout, report)
	}
	var buf bytes.Buffer
	if err := ssfpatch.WriteReport(&buf, report); err != nil {
		return err
	}
	if err := savefile.WriteNew(reportPath, buf.Bytes()); err != nil {
		return err
	}
	logger.Info("report written", "report", reportPath, "bytes", buf.Len())
	return nil
}

func runBlocks(args []string, stdout io.Writer) error {
	var verbose bool
	fs := pflag.NewFlagSet("blocks", pflag.ContinueOnError)
	fs.BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	if done, err := parseFlags(fs, args, "ssfpatch blocks [flags] SAVE"); done || err != nil {
		return err
	}
	path, err := oneArg(fs, "SAVE")
	if err != nil {
		return err
	}
	logger := newLogger("blocks", verbose).With("save", path)

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading save: %w", err)
	}
	dec, err := ssfpatch.DecodeContainer(file)
	if err != nil {
		return err
	}
	logDiagnostics(logger, dec)

	seq, err := ssfpatch.ParseBlocks(dec.Payload)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tSIZE\tJSON")
	for i, b := range seq.Blocks {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%v\n", i, b.Name, len(b.Payload), ssfpatch.LooksLikeJSON(b.Payload))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	logger.Debug("listed blocks",
		"blocks", len(seq.Blocks),
		"prefix_bytes", len(seq.Prefix),
		"suffix_bytes", len(seq.Suffix))
	return nil
}
