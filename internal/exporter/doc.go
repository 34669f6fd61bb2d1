// Package exporter writes conversion run summaries to files for review
// outside the terminal.
//
// This package contains two main components:
//
// CSVWriter: Core CSV writing functionality with support for headers,
// appending, and UTF-8 BOM for Excel compatibility.
//
// SummaryExporter: Renders conversion reports either as a flat CSV with
// one row per channel, or as an Excel workbook with a run overview
// sheet and a per-channel detail sheet.
//
// Example usage:
//
//	summary := exporter.NewSummaryExporter(logger)
//
//	// Format chosen from the extension: .xlsx gets a workbook,
//	// anything else a CSV.
//	err := summary.WriteSummary("reports/batch.xlsx", reports)
package exporter
