package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"nwbconv/pkg/contracts/domain"
)

// Workbook sheet names.
const (
	runsSheet     = "Runs"
	channelsSheet = "Channels"
)

// SummaryExporter writes conversion run summaries for offline review.
// Rows keep the converter's channel discovery order, and reports keep
// the order the caller collected them in.
type SummaryExporter struct {
	csvWriter *CSVWriter
	logger    *slog.Logger
}

// NewSummaryExporter creates a new summary exporter
func NewSummaryExporter(logger *slog.Logger) *SummaryExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SummaryExporter{
		csvWriter: NewCSVWriter(logger),
		logger:    logger,
	}
}

// WriteSummary writes reports to outputPath, choosing the format from
// the file extension. ".xlsx" produces a workbook, everything else CSV.
func (s *SummaryExporter) WriteSummary(outputPath string, reports []domain.ConversionReport) error {
	if strings.EqualFold(filepath.Ext(outputPath), ".xlsx") {
		return s.WriteWorkbook(outputPath, reports)
	}
	return s.WriteCSVSummary(outputPath, reports)
}

// WriteCSVSummary writes one CSV row per channel across all reports
func (s *SummaryExporter) WriteCSVSummary(outputPath string, reports []domain.ConversionReport) error {
	var csvRecords [][]string
	for _, report := range reports {
		for _, channel := range report.Channels {
			csvRecords = append(csvRecords, s.channelToCSVRow(report.Source, channel))
		}
	}
	return s.csvWriter.WriteSimpleCSV(outputPath, s.channelHeaders(), csvRecords)
}

// WriteWorkbook writes an Excel workbook with a run overview sheet and
// a per-channel detail sheet
func (s *SummaryExporter) WriteWorkbook(outputPath string, reports []domain.ConversionReport) error {
	s.logger.Info("writing summary workbook",
		slog.String("file_path", outputPath),
		slog.Int("run_count", len(reports)))

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), runsSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(channelsSheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", channelsSheet, err)
	}

	var runRows [][]interface{}
	var channelRows [][]interface{}
	for _, report := range reports {
		runRows = append(runRows, s.runRow(report))
		for _, channel := range report.Channels {
			channelRows = append(channelRows, s.channelRow(report.Source, channel))
		}
	}

	if err := s.writeSheet(f, runsSheet, s.runHeaders(), runRows); err != nil {
		return fmt.Errorf("failed to fill sheet %s: %w", runsSheet, err)
	}
	if err := s.writeSheet(f, channelsSheet, s.channelHeaders(), channelRows); err != nil {
		return fmt.Errorf("failed to fill sheet %s: %w", channelsSheet, err)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// writeSheet fills a sheet with a header row followed by data rows
func (s *SummaryExporter) writeSheet(f *excelize.File, sheet string, headers []string, rows [][]interface{}) error {
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
	}
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
	}
	return nil
}

// runHeaders returns the column headers for the run overview
func (s *SummaryExporter) runHeaders() []string {
	return []string{
		"Source", "Destination", "Prefix", "Converted", "Skipped",
		"Exported", "StartedAt", "ProcessingMs",
	}
}

// channelHeaders returns the column headers for per-channel rows
func (s *SummaryExporter) channelHeaders() []string {
	return []string{
		"Source", "Channel", "OutputName", "Status", "Mode",
		"Rate", "Samples", "Shape", "Range", "Detail",
	}
}

// runRow converts one report to a run overview row
func (s *SummaryExporter) runRow(report domain.ConversionReport) []interface{} {
	return []interface{}{
		report.Source,
		report.Destination,
		report.Prefix,
		report.Converted,
		report.Skipped,
		report.Exported,
		report.StartedAt.UTC().Format(time.RFC3339),
		report.ProcessingTime,
	}
}

// channelRow converts one channel result to a workbook row. Rate and
// Samples stay empty for skipped channels rather than showing zeros.
func (s *SummaryExporter) channelRow(source string, channel domain.ChannelResult) []interface{} {
	var rate interface{} = ""
	if channel.Rate != 0 {
		rate = channel.Rate
	}
	var samples interface{} = ""
	if channel.Samples != 0 {
		samples = channel.Samples
	}
	return []interface{}{
		source,
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

// channelToCSVRow converts one channel result to a CSV row
func (s *SummaryExporter) channelToCSVRow(source string, channel domain.ChannelResult) []string {
	rate := ""
	if channel.Rate != 0 {
		rate = formatFloat(channel.Rate)
	}
	samples := ""
	if channel.Samples != 0 {
		samples = formatInt(int64(channel.Samples))
	}
	return []string{
		source,
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
