package convert

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nwbconv/internal/config"
	converrors "nwbconv/internal/errors"
	"nwbconv/internal/shared/testutil"
	"nwbconv/pkg/contracts/domain"
)

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newTestConverter(t *testing.T) (*Converter, *testutil.BufferedSlogHandler) {
	t.Helper()
	logger, handler := testutil.NewTestLogger(t)
	return New(config.Default(), logger), handler
}

func readExport(t *testing.T, path string) map[string]interface{} {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(content, &doc))
	return doc
}

func acquisitionNames(doc map[string]interface{}) []string {
	entries := doc["acquisition"].([]interface{})
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.(map[string]interface{})["name"].(string))
	}
	return names
}

func TestRunConvertsCanonicalSession(t *testing.T) {
	tmp := t.TempDir()
	source := writeSource(t, tmp, "mouse01_session3_day1.json", `{
		"expA_wheel": {"times": [0, 0.1, 0.2, 0.3], "values": [1, 2, 3, 4]},
		"expA_lick":  {"times": [0.5, 0.6, 0.7],    "values": [9, 8, 7]}
	}`)

	conv, _ := newTestConverter(t)
	outDir := filepath.Join(tmp, "out")

	report, err := conv.Run(context.Background(), source, Options{
		Description:  "baseline recording",
		Experimenter: "jane",
		OutDir:       outDir,
	})
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.True(t, report.Exported)
	assert.Equal(t, "expA_", report.Prefix)
	assert.Equal(t, 2, report.Converted)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, filepath.Join(outDir, "mouse01_session3_day1.nwb.json"), report.Destination)

	doc := readExport(t, report.Destination)
	assert.Equal(t, "nwb-exchange/1", doc["format_version"])

	session := doc["session"].(map[string]interface{})
	assert.Equal(t, "mouse01_session3_day1", session["identifier"])
	assert.Equal(t, "baseline recording", session["session_description"])
	assert.Equal(t, "jane", session["experimenter"])
	assert.Equal(t, "mouse01", session["subject_id"])
	assert.Equal(t, "session3", session["session_id"])
	// Earliest channel start wins
	assert.Equal(t, 0.0, session["session_start_time"])

	assert.Equal(t, []string{"wheel", "lick"}, acquisitionNames(doc))

	wheel := doc["acquisition"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "unknown", wheel["unit"])
	assert.InDelta(t, 10.0, wheel["rate"].(float64), 1e-9)
	assert.Equal(t, 0.0, wheel["starting_time"])
	assert.NotContains(t, wheel, "timestamps")
}

func TestRunSubjectAndSessionOverrides(t *testing.T) {
	tmp := t.TempDir()
	source := writeSource(t, tmp, "rat7_ephys_s2_day4.json", `{
		"sig": {"times": [0, 1], "values": [5, 6]}
	}`)

	conv, _ := newTestConverter(t)
	report, err := conv.Run(context.Background(), source, Options{
		SubjectID:   "override-subject",
		SessionID:   "override-session",
		Institution: "somewhere",
		Notes:       "pilot",
		OutDir:      filepath.Join(tmp, "out"),
	})
	require.NoError(t, err)

	session := readExport(t, report.Destination)["session"].(map[string]interface{})
	assert.Equal(t, "rat7_ephys_s2_day4", session["identifier"])
	assert.Equal(t, "override-subject", session["subject_id"])
	assert.Equal(t, "override-session", session["session_id"])
	assert.Equal(t, "somewhere", session["institution"])
	assert.Equal(t, "pilot", session["notes"])
}

func TestRunSkipsUnusableChannels(t *testing.T) {
	tmp := t.TempDir()
	source := writeSource(t, tmp, "mouse01_session3_day1.json", `{
		"expA_sig":   {"times": [0, 1, 2], "values": [1, 2, 3]},
		"expA_notes": {"comment": "operator remark"}
	}`)

	conv, handler := newTestConverter(t)
	report, err := conv.Run(context.Background(), source, Options{OutDir: filepath.Join(tmp, "out")})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Converted)
	assert.Equal(t, 1, report.Skipped)
	assert.True(t, report.Exported)

	// Skipped channels still participate in the prefix fold
	assert.Equal(t, "expA_", report.Prefix)

	var skip domain.ChannelResult
	for _, ch := range report.Channels {
		if ch.Status == domain.StatusSkipped {
			skip = ch
		}
	}
	assert.Equal(t, "expA_notes", skip.Channel)
	assert.Contains(t, skip.Detail, "no usable numeric field")
	assert.Contains(t, skip.Detail, "comment text")

	testutil.AssertLogContains(t, handler, slog.LevelWarn, "channel skipped")

	doc := readExport(t, report.Destination)
	assert.Equal(t, []string{"sig"}, acquisitionNames(doc))
}

func TestRunFallbackChannel(t *testing.T) {
	tmp := t.TempDir()
	source := writeSource(t, tmp, "mouse01_session3_day1.json", `{
		"stuff": {"trial": [4], "data": [10, 11, 12, 13, 14]}
	}`)

	conv, _ := newTestConverter(t)
	report, err := conv.Run(context.Background(), source, Options{OutDir: filepath.Join(tmp, "out")})
	require.NoError(t, err)

	require.Equal(t, 1, report.Converted)
	ch := report.Channels[0]
	assert.Equal(t, domain.ModeRegular, ch.Mode)
	assert.Equal(t, 1.0, ch.Rate)
	assert.Equal(t, 5, ch.Samples)
	assert.Contains(t, ch.Detail, "synthetic timestamps from field data")

	entry := readExport(t, report.Destination)["acquisition"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "stuff.data", entry["description"])
	assert.Equal(t, 0.0, entry["starting_time"])
}

func TestRunIrregularChannel(t *testing.T) {
	tmp := t.TempDir()
	source := writeSource(t, tmp, "mouse01_session3_day1.json", `{
		"events": {"times": [0, 0.1, 0.2, 0.7, 0.8], "values": [1, 1, 1, 1, 1]}
	}`)

	conv, _ := newTestConverter(t)
	report, err := conv.Run(context.Background(), source, Options{OutDir: filepath.Join(tmp, "out")})
	require.NoError(t, err)

	assert.Equal(t, domain.ModeIrregular, report.Channels[0].Mode)

	entry := readExport(t, report.Destination)["acquisition"].([]interface{})[0].(map[string]interface{})
	assert.NotContains(t, entry, "rate")
	assert.Equal(t, []interface{}{0.0, 0.1, 0.2, 0.7, 0.8}, entry["timestamps"])
}

func TestRunSessionStartIsEarliestChannelStart(t *testing.T) {
	tmp := t.TempDir()
	source := writeSource(t, tmp, "mouse01_session3_day1.json", `{
		"late":  {"times": [5.0, 5.1], "values": [1, 2]},
		"early": {"times": [2.5, 2.6], "values": [3, 4]}
	}`)

	conv, _ := newTestConverter(t)
	report, err := conv.Run(context.Background(), source, Options{OutDir: filepath.Join(tmp, "out")})
	require.NoError(t, err)

	session := readExport(t, report.Destination)["session"].(map[string]interface{})
	assert.Equal(t, 2.5, session["session_start_time"])
}

func TestRunCollidingOutputNamesLastWins(t *testing.T) {
	tmp := t.TempDir()
	source := writeSource(t, tmp, "mouse01_session3_day1.json", `{
		"run_a_sig": {"times": [0, 1], "values": [1, 2]},
		"run_b_sig": {"times": [0, 1], "values": [30, 40]}
	}`)

	conv, handler := newTestConverter(t)
	report, err := conv.Run(context.Background(), source, Options{OutDir: filepath.Join(tmp, "out")})
	require.NoError(t, err)

	// Prefix run_ leaves remainders a_sig and b_sig, both collapsing
	// to their last segment
	assert.Equal(t, "run_", report.Prefix)
	assert.Equal(t, 2, report.Converted)

	doc := readExport(t, report.Destination)
	require.Equal(t, []string{"sig"}, acquisitionNames(doc))

	entry := doc["acquisition"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, []interface{}{30.0, 40.0}, entry["data"])

	testutil.AssertLogContains(t, handler, slog.LevelWarn, "acquisition name collision, previous entry overwritten")
}

func TestRunTimestampCountMismatchWarns(t *testing.T) {
	tmp := t.TempDir()
	source := writeSource(t, tmp, "mouse01_session3_day1.json", `{
		"ch": {"times": [0, 1, 2], "values": [1, 2, 3, 4, 5]}
	}`)

	conv, handler := newTestConverter(t)
	_, err := conv.Run(context.Background(), source, Options{OutDir: filepath.Join(tmp, "out")})
	require.NoError(t, err)

	testutil.AssertLogContains(t, handler, slog.LevelWarn, "timestamp count does not match sample count")
}

func TestRunSourceNotFound(t *testing.T) {
	conv, _ := newTestConverter(t)

	report, err := conv.Run(context.Background(), filepath.Join(t.TempDir(), "mouse01_session3_day1.json"), Options{})
	require.Error(t, err)
	assert.Nil(t, report)
	assert.True(t, converrors.IsCode(err, converrors.CodeSourceNotFound))
}

func TestRunRejectsFilenameOutsideConvention(t *testing.T) {
	tmp := t.TempDir()
	source := writeSource(t, tmp, "bad.json", `{"ch": {"times": [0, 1], "values": [1, 2]}}`)

	conv, _ := newTestConverter(t)
	report, err := conv.Run(context.Background(), source, Options{OutDir: filepath.Join(tmp, "out")})
	require.Error(t, err)
	assert.Nil(t, report)
	assert.True(t, converrors.IsCode(err, converrors.CodeUsage))
	assert.Equal(t, converrors.ExitUsage, converrors.ExitCode(err))
}

func TestRunDryRunToleratesAnyFilename(t *testing.T) {
	tmp := t.TempDir()
	source := writeSource(t, tmp, "scratch.json", `{
		"expA_sig": {"times": [0, 1], "values": [1, 2]}
	}`)

	conv, _ := newTestConverter(t)
	outDir := filepath.Join(tmp, "out")
	report, err := conv.Run(context.Background(), source, Options{OutDir: outDir, DryRun: true})
	require.NoError(t, err)

	assert.False(t, report.Exported)
	assert.Empty(t, report.Destination)
	assert.Equal(t, 1, report.Converted)

	_, statErr := os.Stat(outDir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunExportFailureStillReturnsReport(t *testing.T) {
	tmp := t.TempDir()
	source := writeSource(t, tmp, "mouse01_session3_day1.json", `{
		"sig": {"times": [0, 1], "values": [1, 2]}
	}`)

	// A regular file where the output directory should be makes
	// MkdirAll fail
	blocker := filepath.Join(tmp, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	conv, handler := newTestConverter(t)
	report, err := conv.Run(context.Background(), source, Options{OutDir: filepath.Join(blocker, "out")})
	require.Error(t, err)
	require.NotNil(t, report)

	assert.True(t, converrors.IsCode(err, converrors.CodeExport))
	assert.False(t, report.Exported)
	assert.Empty(t, report.Destination)
	assert.Equal(t, 1, report.Converted)

	testutil.AssertLogContains(t, handler, slog.LevelError, "export failed")
}

func TestRunMalformedSource(t *testing.T) {
	tmp := t.TempDir()
	source := writeSource(t, tmp, "mouse01_session3_day1.json", `[1, 2, 3]`)

	conv, _ := newTestConverter(t)
	report, err := conv.Run(context.Background(), source, Options{})
	require.Error(t, err)
	assert.Nil(t, report)
	assert.True(t, converrors.IsCode(err, converrors.CodeLoad))
}

func TestDestinationPath(t *testing.T) {
	cfg := config.Default()
	conv := New(cfg, nil)

	dest, err := conv.DestinationPath("/data/mouse01_lfp_session3_day1.json", "/out")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/out", "mouse01_lfp_session3_day1.nwb.json"), dest)

	// Without an override the source directory is used
	dest, err = conv.DestinationPath("/data/mouse01_session3_day1.json", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/data", "mouse01_session3_day1.nwb.json"), dest)

	_, err = conv.DestinationPath("/data/bad.json", "/out")
	require.Error(t, err)
	assert.True(t, converrors.IsCode(err, converrors.CodeUsage))
}

func TestFoldNamesIncludesQualifiedSubfields(t *testing.T) {
	tmp := t.TempDir()
	// A single channel folds with its qualified sub-field names, so
	// the prefix still trims back to the channel's word boundary
	source := writeSource(t, tmp, "mouse01_session3_day1.json", `{
		"expA_sig": {"times": [0, 1], "values": [1, 2]}
	}`)

	conv, _ := newTestConverter(t)
	report, err := conv.Run(context.Background(), source, Options{OutDir: filepath.Join(tmp, "out")})
	require.NoError(t, err)

	assert.Equal(t, "expA_", report.Prefix)
	assert.Equal(t, "sig", report.Channels[0].OutputName)
}
