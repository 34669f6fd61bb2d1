// Package convert orchestrates the conversion of one recorded session
// file into an output container. It wires the loader, the channel
// classifier, the name deriver, and the container assembler into a
// single pass and reports the outcome per channel.
//
// # Pipeline
//
// A run proceeds through fixed stages:
//
//  1. Load the source file into an ordered record (internal/source)
//  2. Derive the common name prefix over channels and their sub-fields
//     (internal/naming)
//  3. Classify each channel into a time series (internal/classify),
//     skipping channels without a usable numeric field
//  4. Assemble the container and export it atomically (internal/nwb)
//
// Per-channel classification failures are isolated: the channel is
// logged with structural diagnostics and omitted, and the run
// continues. Load and export failures abort the run for that file.
//
// # Usage
//
//	conv := convert.New(cfg, logger)
//	report, err := conv.Run(ctx, "mouse01_lfp_session3_day1.json", convert.Options{
//		Description:  "baseline recording",
//		Experimenter: "jane",
//	})
//
// The returned ConversionReport carries one entry per channel plus run
// totals, and feeds both the CLI output and the summary exporters.
package convert
