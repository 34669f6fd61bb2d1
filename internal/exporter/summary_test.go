package exporter

import (
	"bytes"
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"nwbconv/pkg/contracts/domain"
)

func newTestSummaryExporter() *SummaryExporter {
	return NewSummaryExporter(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// sampleReports returns two conversion reports covering regular,
// irregular, and skipped channels.
func sampleReports() []domain.ConversionReport {
	return []domain.ConversionReport{
		{
			Source:      "/data/expA_session1_day2.json",
			Destination: "/data/expA_session1_day2.nwb.json",
			Prefix:      "expA_",
			Channels: []domain.ChannelResult{
				{
					Channel:    "expA_wheel",
					OutputName: "wheel",
					Status:     domain.StatusConverted,
					Mode:       domain.ModeRegular,
					Rate:       100,
					Samples:    1200,
					Shape:      "1200x1",
					Range:      "-1.5..2.25",
				},
				{
					Channel:    "expA_lick",
					OutputName: "lick",
					Status:     domain.StatusConverted,
					Mode:       domain.ModeIrregular,
					Samples:    64,
					Shape:      "64x1",
					Range:      "0..1",
				},
				{
					Channel: "expA_meta",
					Status:  domain.StatusSkipped,
					Detail:  "channel expA_meta has no usable numeric field",
				},
			},
			Converted:      2,
			Skipped:        1,
			Exported:       true,
			StartedAt:      time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC),
			ProcessingTime: 42,
		},
		{
			Source: "/data/expB_session2_day1.json",
			Prefix: "expB_",
			Channels: []domain.ChannelResult{
				{
					Channel:    "expB_pos",
					OutputName: "pos",
					Status:     domain.StatusConverted,
					Mode:       domain.ModeRegular,
					Rate:       50,
					Samples:    500,
					Shape:      "500x2",
					Range:      "0..320",
				},
			},
			Converted:      1,
			Exported:       false,
			StartedAt:      time.Date(2025, 3, 14, 10, 31, 0, 0, time.UTC),
			ProcessingTime: 7,
		},
	}
}

func TestSummaryExporter_WriteCSVSummary(t *testing.T) {
	exporter := newTestSummaryExporter()
	outputPath := filepath.Join(t.TempDir(), "summary.csv")

	err := exporter.WriteCSVSummary(outputPath, sampleReports())
	require.NoError(t, err)

	file, err := os.Open(outputPath)
	require.NoError(t, err)
	defer file.Close()

	// Skip BOM
	bom := make([]byte, 3)
	_, err = file.Read(bom)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xEF, 0xBB, 0xBF}, bom)

	reader := csv.NewReader(file)
	rows, err := reader.ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 5) // header + 4 channels
	assert.Equal(t, []string{
		"Source", "Channel", "OutputName", "Status", "Mode",
		"Rate", "Samples", "Shape", "Range", "Detail",
	}, rows[0])
	assert.Equal(t, []string{
		"/data/expA_session1_day2.json", "expA_wheel", "wheel", "converted", "regular",
		"100", "1200", "1200x1", "-1.5..2.25", "",
	}, rows[1])

	// Irregular channels have no rate column value
	assert.Equal(t, "expA_lick", rows[2][1])
	assert.Equal(t, "irregular", rows[2][4])
	assert.Equal(t, "", rows[2][5])

	// Skipped channels carry only the diagnostic detail
	assert.Equal(t, []string{
		"/data/expA_session1_day2.json", "expA_meta", "", "skipped", "",
		"", "", "", "", "channel expA_meta has no usable numeric field",
	}, rows[3])

	assert.Equal(t, "/data/expB_session2_day1.json", rows[4][0])
	assert.Equal(t, "expB_pos", rows[4][1])
}

func TestSummaryExporter_WriteCSVSummaryEmpty(t *testing.T) {
	exporter := newTestSummaryExporter()
	outputPath := filepath.Join(t.TempDir(), "empty.csv")

	err := exporter.WriteCSVSummary(outputPath, nil)
	require.NoError(t, err)

	content, err := os.ReadFile(outputPath)
	require.NoError(t, err)

	withoutBOM := bytes.TrimPrefix(content, []byte{0xEF, 0xBB, 0xBF})
	assert.Equal(t, "Source,Channel,OutputName,Status,Mode,Rate,Samples,Shape,Range,Detail\n", string(withoutBOM))
}

func TestSummaryExporter_WriteWorkbook(t *testing.T) {
	exporter := newTestSummaryExporter()
	outputPath := filepath.Join(t.TempDir(), "summary.xlsx")

	err := exporter.WriteWorkbook(outputPath, sampleReports())
	require.NoError(t, err)

	f, err := excelize.OpenFile(outputPath)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Runs", "Channels"}, f.GetSheetList())

	runs, err := f.GetRows("Runs")
	require.NoError(t, err)
	require.Len(t, runs, 3) // header + 2 reports
	assert.Equal(t, []string{
		"Source", "Destination", "Prefix", "Converted", "Skipped",
		"Exported", "StartedAt", "ProcessingMs",
	}, runs[0])
	assert.Equal(t, []string{
		"/data/expA_session1_day2.json", "/data/expA_session1_day2.nwb.json", "expA_",
		"2", "1", "TRUE", "2025-03-14T10:30:00Z", "42",
	}, runs[1])
	assert.Equal(t, []string{
		"/data/expB_session2_day1.json", "", "expB_",
		"1", "0", "FALSE", "2025-03-14T10:31:00Z", "7",
	}, runs[2])

	// Channel detail sheet, checked cell by cell since trailing blanks
	// are trimmed by GetRows.
	cell := func(ref string) string {
		value, err := f.GetCellValue("Channels", ref)
		require.NoError(t, err)
		return value
	}
	assert.Equal(t, "Source", cell("A1"))
	assert.Equal(t, "Detail", cell("J1"))
	assert.Equal(t, "expA_wheel", cell("B2"))
	assert.Equal(t, "100", cell("F2"))
	assert.Equal(t, "1200", cell("G2"))
	assert.Equal(t, "", cell("F3")) // irregular channel has no rate
	assert.Equal(t, "skipped", cell("D4"))
	assert.Equal(t, "channel expA_meta has no usable numeric field", cell("J4"))
	assert.Equal(t, "expB_pos", cell("B5"))
}

func TestSummaryExporter_WriteWorkbookCreatesDirectories(t *testing.T) {
	exporter := newTestSummaryExporter()
	outputPath := filepath.Join(t.TempDir(), "nested", "deeper", "summary.xlsx")

	err := exporter.WriteWorkbook(outputPath, sampleReports())
	require.NoError(t, err)

	_, err = os.Stat(outputPath)
	assert.NoError(t, err)
}

func TestSummaryExporter_WriteSummaryDispatch(t *testing.T) {
	exporter := newTestSummaryExporter()
	tempDir := t.TempDir()

	xlsxPath := filepath.Join(tempDir, "out.XLSX")
	require.NoError(t, exporter.WriteSummary(xlsxPath, sampleReports()))
	f, err := excelize.OpenFile(xlsxPath)
	require.NoError(t, err)
	assert.Contains(t, f.GetSheetList(), "Runs")
	require.NoError(t, f.Close())

	csvPath := filepath.Join(tempDir, "out.csv")
	require.NoError(t, exporter.WriteSummary(csvPath, sampleReports()))
	content, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(content, []byte{0xEF, 0xBB, 0xBF}))
	assert.Contains(t, string(content), "Source,Channel,OutputName")
}
