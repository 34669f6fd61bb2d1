package main

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/table"
	"github.com/jedib0t/go-pretty/text"
	"github.com/spf13/cobra"

	"nwbconv/internal/convert"
	converrors "nwbconv/internal/errors"
	"nwbconv/pkg/contracts/domain"
)

// inspectCmd previews classification without writing a container
var inspectCmd = &cobra.Command{
	Use:   "inspect <source-file>",
	Short: "Preview channel classification without writing output",
	Long: `Classify every channel of a recording file and render the outcome as
a table without writing a container. Inspection tolerates filenames
outside the animal_[signal_]session_tag convention.`,
	Example: `  # Preview what a conversion would produce
  $ nwbconv inspect mouse01_lfp_session3_day1.json`,
	Args: inspectArgs,
	RunE: runInspect,
}

func init() {
	// Silence usage to avoid showing help on every error
	inspectCmd.SilenceUsage = true
}

func inspectArgs(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return converrors.Usage("expected exactly one <source-file> argument")
	}
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	conv := newConverter()

	report, err := conv.Run(cmd.Context(), args[0], convert.Options{DryRun: true})
	if err != nil {
		printError("%v", err)
		return err
	}

	out := cmd.OutOrStdout()
	if report.Prefix != "" {
		fmt.Fprintf(out, "Common prefix: %q\n", report.Prefix)
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)

	// Don't uppercase the header values.
	t.Style().Format.Header = text.FormatDefault

	t.AppendHeader(table.Row{"Channel", "Output", "Status", "Mode", "Rate", "Samples", "Shape", "Range", "Detail"})
	for _, channel := range report.Channels {
		t.AppendRow(inspectRow(channel))
	}
	t.Render()

	fmt.Fprintf(out, "%d converted, %d skipped\n", report.Converted, report.Skipped)
	return nil
}

// inspectRow converts one channel result to a table row. Rate and
// Samples stay empty for skipped channels rather than showing zeros.
func inspectRow(channel domain.ChannelResult) table.Row {
	rate := ""
	if channel.Rate != 0 {
		rate = strconv.FormatFloat(channel.Rate, 'g', -1, 64)
	}
	samples := ""
	if channel.Samples != 0 {
		samples = strconv.Itoa(channel.Samples)
	}
	return table.Row{
		channel.Channel,
		channel.OutputName,
		channel.Status,
		channel.Mode,
		rate,
		samples,
		channel.Shape,
		channel.Range,
		channel.Detail,
	}
}
