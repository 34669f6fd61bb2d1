package main

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"nwbconv/internal/convert"
	converrors "nwbconv/internal/errors"
	"nwbconv/internal/exporter"
	"nwbconv/internal/files"
	"nwbconv/pkg/contracts/domain"
)

var (
	convertOutDir      string
	convertForce       bool
	convertSummary     string
	convertSubject     string
	convertSessionID   string
	convertInstitution string
	convertNotes       string
)

// convertCmd is the single-file conversion command
var convertCmd = &cobra.Command{
	Use:   "convert <source-file> [session-description] [experimenter-name]",
	Short: "Convert one recording session to an exchange container",
	Long: `Convert one MATLAB-exported recording session into an NWB exchange
container.

Every channel of the source record is classified into a time/value
series; channels without a usable numeric field are skipped with a
diagnostic and the rest of the run continues. The destination defaults
to the source directory and the source filename with a .nwb.json
extension.

If the destination already exists you will be prompted before it is
overwritten. Use --force to skip the prompt.`,
	Example: `  # Convert a session next to its source
  $ nwbconv convert mouse01_lfp_session3_day1.json

  # Add a session description and experimenter
  $ nwbconv convert rat7_s2_day4.json "probe test" "J. Doe"

  # Convert into a separate directory and keep a summary
  $ nwbconv convert mouse01_lfp_session3_day1.json -o out/ --summary run.xlsx`,
	Args: convertArgs,
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVarP(&convertOutDir, "out-dir", "o", "", "directory receiving the exported container (default alongside the source)")
	convertCmd.Flags().BoolVarP(&convertForce, "force", "f", false, "overwrite an existing destination without prompting")
	convertCmd.Flags().StringVar(&convertSummary, "summary", "", "write a conversion summary to this path (.csv or .xlsx)")
	convertCmd.Flags().StringVar(&convertSubject, "subject", "", "subject identifier override")
	convertCmd.Flags().StringVar(&convertSessionID, "session-id", "", "session identifier override")
	convertCmd.Flags().StringVar(&convertInstitution, "institution", "", "institution recorded in the session metadata")
	convertCmd.Flags().StringVar(&convertNotes, "notes", "", "free-text notes recorded in the session metadata")

	// Silence usage to avoid showing help on every error
	convertCmd.SilenceUsage = true
}

func convertArgs(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return converrors.Usage("missing required <source-file> argument")
	}
	if len(args) > 3 {
		return converrors.Usage("too many arguments: expected <source-file> [session-description] [experimenter-name]")
	}
	return nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	sourcePath := args[0]

	opts := convert.Options{
		OutDir:      convertOutDir,
		SubjectID:   convertSubject,
		SessionID:   convertSessionID,
		Institution: convertInstitution,
		Notes:       convertNotes,
	}
	if len(args) > 1 {
		opts.Description = args[1]
	}
	if len(args) > 2 {
		opts.Experimenter = args[2]
	}

	conv := newConverter()

	dest, err := conv.DestinationPath(sourcePath, convertOutDir)
	if err != nil {
		printError("%v", err)
		return err
	}

	// Confirm overwrite unless --force or configured otherwise
	manager := files.NewManager(appLogger)
	if manager.Exists(dest) && !convertForce && !appCfg.Output.Overwrite {
		confirm := false
		prompt := &survey.Confirm{
			Message: fmt.Sprintf("Destination %s exists. Overwrite?", dest),
		}
		if err := survey.AskOne(prompt, &confirm); err != nil {
			printError("confirmation prompt failed: %v", err)
			return fmt.Errorf("confirmation prompt failed: %w", err)
		}
		if !confirm {
			printInfo("Conversion cancelled")
			return fmt.Errorf("destination %s exists, conversion declined", dest)
		}
	}

	report, err := conv.Run(cmd.Context(), sourcePath, opts)
	if report != nil {
		printChannelOutcomes(report)
	}
	if err != nil {
		printError("conversion failed: %v", err)
		return err
	}

	printSuccess("%s → %s (%d converted, %d skipped)",
		report.Source, report.Destination, report.Converted, report.Skipped)

	if convertSummary != "" {
		summary := exporter.NewSummaryExporter(appLogger)
		if err := summary.WriteSummary(convertSummary, []domain.ConversionReport{*report}); err != nil {
			printError("failed to write summary: %v", err)
			return err
		}
		printInfo("summary written to %s", convertSummary)
	}
	return nil
}

// printChannelOutcomes renders one line per channel, including skips,
// so a failed export still shows what classification produced.
func printChannelOutcomes(report *domain.ConversionReport) {
	for _, ch := range report.Channels {
		if ch.Status == domain.StatusSkipped {
			printWarning("skipped %s: %s", ch.Channel, ch.Detail)
			continue
		}
		printInfo("%s → %s (%s, %d samples)", ch.Channel, ch.OutputName, ch.Mode, ch.Samples)
	}
}
