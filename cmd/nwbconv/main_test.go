package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	converrors "nwbconv/internal/errors"
	"nwbconv/internal/infrastructure"
	"nwbconv/pkg/contracts/domain"
)

// resetCLIState returns the package-level flag targets and shared app
// state to their defaults so each test drives a fresh Execute.
func resetCLIState(t *testing.T) {
	t.Helper()

	configFile = ""
	enableTrace = false
	convertOutDir = ""
	convertForce = false
	convertSummary = ""
	convertSubject = ""
	convertSessionID = ""
	convertInstitution = ""
	convertNotes = ""
	batchOutDir = ""
	batchForce = false
	batchSummary = ""
	batchWorkers = 0
	batchPattern = ""

	appCfg = nil
	appLogger = nil
	appProviders = nil
	appMetrics = nil

	infrastructure.ResetLoggerForTesting()
	t.Cleanup(infrastructure.ResetLoggerForTesting)
}

// setupCLITest prepares an isolated environment: logs go to a temp
// file instead of the terminal and the metrics snapshot stays in the
// temp dir.
func setupCLITest(t *testing.T) string {
	t.Helper()
	resetCLIState(t)

	tmpDir := t.TempDir()
	t.Setenv("NWBCONV_LOGGING_OUTPUT", "file")
	t.Setenv("NWBCONV_LOGGING_FILE_PATH", filepath.Join(tmpDir, "logs", "nwbconv.log"))
	t.Setenv("NWBCONV_TELEMETRY_METRICS_FILE", filepath.Join(tmpDir, "metrics.prom"))
	return tmpDir
}

func executeCLI(out io.Writer, args ...string) error {
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func writeSession(t *testing.T, path, payload string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(payload), 0644))
}

func readExportDoc(t *testing.T, path string) (string, map[string]interface{}, []map[string]interface{}) {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc struct {
		FormatVersion string                   `json:"format_version"`
		Session       map[string]interface{}   `json:"session"`
		Acquisition   []map[string]interface{} `json:"acquisition"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	return doc.FormatVersion, doc.Session, doc.Acquisition
}

func TestConvertArgsValidation(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode string
	}{
		{name: "no arguments", args: nil, wantCode: converrors.CodeUsage},
		{name: "source only", args: []string{"a.json"}},
		{name: "source and description", args: []string{"a.json", "desc"}},
		{name: "source description experimenter", args: []string{"a.json", "desc", "who"}},
		{name: "too many arguments", args: []string{"a", "b", "c", "d"}, wantCode: converrors.CodeUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := convertArgs(convertCmd, tt.args)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, converrors.IsCode(err, tt.wantCode))
			assert.Equal(t, converrors.ExitUsage, converrors.ExitCode(err))
		})
	}
}

func TestBatchAndInspectArgsValidation(t *testing.T) {
	assert.True(t, converrors.IsCode(batchArgs(batchCmd, nil), converrors.CodeUsage))
	assert.True(t, converrors.IsCode(batchArgs(batchCmd, []string{"a", "b"}), converrors.CodeUsage))
	assert.NoError(t, batchArgs(batchCmd, []string{"dir"}))

	assert.True(t, converrors.IsCode(inspectArgs(inspectCmd, nil), converrors.CodeUsage))
	assert.NoError(t, inspectArgs(inspectCmd, []string{"a.json"}))
}

func TestInspectRow(t *testing.T) {
	converted := inspectRow(domain.ChannelResult{
		Channel:    "expA_wheel",
		OutputName: "wheel",
		Status:     domain.StatusConverted,
		Mode:       domain.ModeRegular,
		Rate:       100,
		Samples:    1200,
		Shape:      "1200x1",
		Range:      "-1..1",
	})
	assert.Equal(t, "expA_wheel", converted[0])
	assert.Equal(t, "100", converted[4])
	assert.Equal(t, "1200", converted[5])

	skipped := inspectRow(domain.ChannelResult{
		Channel: "expA_meta",
		Status:  domain.StatusSkipped,
		Detail:  "channel expA_meta has no usable numeric field",
	})
	assert.Equal(t, "", skipped[4]) // no rate
	assert.Equal(t, "", skipped[5]) // no samples
	assert.Equal(t, "channel expA_meta has no usable numeric field", skipped[8])
}

func TestConvertCommandEndToEnd(t *testing.T) {
	tmpDir := setupCLITest(t)
	outDir := filepath.Join(tmpDir, "out")

	source := filepath.Join(tmpDir, "mouse01_lfp_session3_day1.json")
	writeSession(t, source, `{
		"mouse01_wheel": {"times": [0, 0.1, 0.2, 0.3], "values": [1.5, 2.5, 3.5, 4.5]},
		"mouse01_notes": "calibration pass"
	}`)

	err := executeCLI(io.Discard, "convert", source, "probe test", "J. Doe", "--out-dir", outDir)
	require.NoError(t, err)

	dest := filepath.Join(outDir, "mouse01_lfp_session3_day1.nwb.json")
	version, session, acquisition := readExportDoc(t, dest)

	assert.Equal(t, "nwb-exchange/1", version)
	assert.Equal(t, "mouse01_lfp_session3_day1", session["identifier"])
	assert.Equal(t, "mouse01", session["subject_id"])
	assert.Equal(t, "probe test", session["session_description"])
	assert.Equal(t, "J. Doe", session["experimenter"])

	require.Len(t, acquisition, 1)
	assert.Equal(t, "wheel", acquisition[0]["name"])
	assert.InDelta(t, 10.0, acquisition[0]["rate"].(float64), 1e-9)
}

func TestConvertCommandForceOverwrite(t *testing.T) {
	tmpDir := setupCLITest(t)
	outDir := filepath.Join(tmpDir, "out")
	require.NoError(t, os.MkdirAll(outDir, 0755))

	source := filepath.Join(tmpDir, "rat7_s2_day4.json")
	writeSession(t, source, `{"rat7_sig": {"times": [0, 0.5], "values": [1, 2]}}`)

	dest := filepath.Join(outDir, "rat7_s2_day4.nwb.json")
	require.NoError(t, os.WriteFile(dest, []byte("stale"), 0644))

	err := executeCLI(io.Discard, "convert", source, "--out-dir", outDir, "--force")
	require.NoError(t, err)

	version, _, _ := readExportDoc(t, dest)
	assert.Equal(t, "nwb-exchange/1", version)
}

func TestConvertCommandSourceNotFound(t *testing.T) {
	tmpDir := setupCLITest(t)

	err := executeCLI(io.Discard, "convert", filepath.Join(tmpDir, "mouse01_sess_day.json"))
	require.Error(t, err)
	assert.True(t, converrors.IsCode(err, converrors.CodeSourceNotFound))
	assert.Equal(t, converrors.ExitFailure, converrors.ExitCode(err))
}

func TestConvertCommandUsageExitCode(t *testing.T) {
	setupCLITest(t)

	err := executeCLI(io.Discard, "convert")
	require.Error(t, err)
	assert.Equal(t, converrors.ExitUsage, converrors.ExitCode(err))
}

func TestBatchCommandEndToEnd(t *testing.T) {
	tmpDir := setupCLITest(t)
	sourceDir := filepath.Join(tmpDir, "recordings")
	outDir := filepath.Join(tmpDir, "out")
	require.NoError(t, os.MkdirAll(sourceDir, 0755))

	writeSession(t, filepath.Join(sourceDir, "m1_lfp_s1_d1.json"),
		`{"m1_wheel": {"times": [0, 0.1, 0.2], "values": [1, 2, 3]}}`)
	writeSession(t, filepath.Join(sourceDir, "m2_lfp_s1_d1.json"),
		`{"m2_wheel": {"times": [0, 0.1, 0.2], "values": [4, 5, 6]}}`)
	writeSession(t, filepath.Join(sourceDir, "scratch.json"), `{"x": 1}`)

	summaryPath := filepath.Join(tmpDir, "summary.csv")
	err := executeCLI(io.Discard, "batch", sourceDir,
		"--out-dir", outDir, "--summary", summaryPath, "--workers", "2")
	require.NoError(t, err)

	for _, stem := range []string{"m1_lfp_s1_d1", "m2_lfp_s1_d1"} {
		version, _, acquisition := readExportDoc(t, filepath.Join(outDir, stem+".nwb.json"))
		assert.Equal(t, "nwb-exchange/1", version)
		require.Len(t, acquisition, 1)
		assert.Equal(t, "wheel", acquisition[0]["name"])
	}

	// The unrecognized name produced no container
	assert.NoFileExists(t, filepath.Join(outDir, "scratch.nwb.json"))

	summary, err := os.ReadFile(summaryPath)
	require.NoError(t, err)
	assert.Contains(t, string(summary), "m1_wheel")
	assert.Contains(t, string(summary), "m2_wheel")
}

func TestBatchCommandSkipsExistingDestinations(t *testing.T) {
	tmpDir := setupCLITest(t)
	sourceDir := filepath.Join(tmpDir, "recordings")
	outDir := filepath.Join(tmpDir, "out")
	require.NoError(t, os.MkdirAll(sourceDir, 0755))
	require.NoError(t, os.MkdirAll(outDir, 0755))

	writeSession(t, filepath.Join(sourceDir, "m1_lfp_s1_d1.json"),
		`{"m1_wheel": {"times": [0, 0.1], "values": [1, 2]}}`)

	dest := filepath.Join(outDir, "m1_lfp_s1_d1.nwb.json")
	require.NoError(t, os.WriteFile(dest, []byte("already here"), 0644))

	err := executeCLI(io.Discard, "batch", sourceDir, "--out-dir", outDir)
	require.NoError(t, err)

	// Without --force the existing destination stays untouched
	content, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "already here", string(content))
}

func TestBatchCommandMissingDirectory(t *testing.T) {
	tmpDir := setupCLITest(t)

	err := executeCLI(io.Discard, "batch", filepath.Join(tmpDir, "missing"))
	require.Error(t, err)
	assert.True(t, converrors.IsCode(err, converrors.CodeSourceNotFound))
	assert.Equal(t, converrors.ExitFailure, converrors.ExitCode(err))
}

func TestInspectCommandEndToEnd(t *testing.T) {
	tmpDir := setupCLITest(t)

	source := filepath.Join(tmpDir, "mouse01_lfp_session3_day1.json")
	writeSession(t, source, `{
		"mouse01_wheel": {"times": [0, 0.1, 0.2, 0.3], "values": [1, 2, 3, 4]},
		"mouse01_notes": "text only"
	}`)

	var out bytes.Buffer
	err := executeCLI(&out, "inspect", source)
	require.NoError(t, err)

	rendered := out.String()
	assert.Contains(t, rendered, "Common prefix: \"mouse01_\"")
	assert.Contains(t, rendered, "Channel")
	assert.Contains(t, rendered, "wheel")
	assert.Contains(t, rendered, "regular")
	assert.Contains(t, rendered, "skipped")
	assert.Contains(t, rendered, "1 converted, 1 skipped")

	// Inspection never writes a container
	assert.NoFileExists(t, filepath.Join(tmpDir, "mouse01_lfp_session3_day1.nwb.json"))
}

func TestVersionCommand(t *testing.T) {
	resetCLIState(t)

	var out bytes.Buffer
	err := executeCLI(&out, "version")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "nwbconv version")

	// The version command must not initialize the application
	assert.Nil(t, appCfg)
}
