package main

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"nwbconv/internal/convert"
	converrors "nwbconv/internal/errors"
	"nwbconv/internal/exporter"
	"nwbconv/internal/files"
	"nwbconv/pkg/contracts/domain"
)

var (
	batchOutDir  string
	batchForce   bool
	batchSummary string
	batchWorkers int
	batchPattern string
)

// batchCmd converts every recording file in a directory
var batchCmd = &cobra.Command{
	Use:   "batch <source-dir>",
	Short: "Convert every recording file in a directory",
	Long: `Convert all recording files in a directory whose names follow the
animal_[signal_]session_tag convention. Files matching the glob pattern
but outside the convention are reported and skipped.

Conversions run concurrently, one file per worker. Batch mode never
prompts: files whose destination already exists are skipped unless
--force is given. A failing file does not stop the rest of the batch;
the command exits non-zero if any file failed.`,
	Example: `  # Convert a directory of sessions
  $ nwbconv batch ./recordings

  # Reconvert everything into a separate directory with a summary
  $ nwbconv batch ./recordings -o out/ --force --summary batch.xlsx`,
	Args: batchArgs,
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVarP(&batchOutDir, "out-dir", "o", "", "directory receiving exported containers (default alongside each source)")
	batchCmd.Flags().BoolVarP(&batchForce, "force", "f", false, "reconvert files whose destination already exists")
	batchCmd.Flags().StringVar(&batchSummary, "summary", "", "write a combined conversion summary to this path (.csv or .xlsx)")
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 0, "concurrent conversions (default from configuration)")
	batchCmd.Flags().StringVar(&batchPattern, "pattern", "", "glob matching candidate files (default from configuration)")

	// Silence usage to avoid showing help on every error
	batchCmd.SilenceUsage = true
}

func batchArgs(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return converrors.Usage("expected exactly one <source-dir> argument")
	}
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	dir := args[0]

	pattern := batchPattern
	if pattern == "" {
		pattern = appCfg.Batch.Pattern
	}
	workers := batchWorkers
	if workers <= 0 {
		workers = appCfg.Batch.Workers
	}

	discovery := files.NewDiscovery("")
	recordings, unrecognized, err := discovery.FindRecordingFiles(dir, pattern)
	if err != nil {
		printError("%v", err)
		if errors.Is(err, os.ErrNotExist) {
			return converrors.SourceNotFound(dir)
		}
		return err
	}
	for _, name := range unrecognized {
		printWarning("skipping %s: name outside the animal_[signal_]session_tag convention", name)
	}
	if len(recordings) == 0 {
		printInfo("no recording files matching %s in %s", pattern, dir)
		return nil
	}

	manager := files.NewManager(appLogger)
	force := batchForce || appCfg.Output.Overwrite
	pending, existing := manager.Partition(recordings, batchOutDir, force)
	for _, rec := range existing {
		printWarning("skipping %s: destination exists (use --force to reconvert)", rec.Name)
	}
	if len(pending) == 0 {
		printInfo("nothing to convert in %s", dir)
		return nil
	}

	printInfo("converting %d files with %d workers", len(pending), workers)

	conv := newConverter()
	opts := convert.Options{OutDir: batchOutDir}

	reports := make([]*domain.ConversionReport, len(pending))
	var failed atomic.Int64

	g := new(errgroup.Group)
	g.SetLimit(workers)
	ctx := cmd.Context()
	for i, rec := range pending {
		g.Go(func() error {
			report, err := conv.Run(ctx, rec.Path, opts)
			reports[i] = report
			if err != nil {
				failed.Add(1)
				printError("%s: %v", rec.Name, err)
				return nil
			}
			printSuccess("%s → %s (%d converted, %d skipped)",
				rec.Name, report.Destination, report.Converted, report.Skipped)
			return nil
		})
	}
	// Workers report per-file failures through the counter instead of
	// returning errors, so one bad file cannot cancel the group.
	_ = g.Wait()

	if batchSummary != "" {
		var collected []domain.ConversionReport
		for _, report := range reports {
			if report != nil {
				collected = append(collected, *report)
			}
		}
		summary := exporter.NewSummaryExporter(appLogger)
		if err := summary.WriteSummary(batchSummary, collected); err != nil {
			printError("failed to write summary: %v", err)
			return err
		}
		printInfo("summary written to %s", batchSummary)
	}

	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d conversions failed", n, len(pending))
	}
	printSuccess("batch complete: %d files converted", len(pending))
	return nil
}
