package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"nwbconv/internal/classify"
	"nwbconv/internal/config"
	converrors "nwbconv/internal/errors"
	"nwbconv/internal/infrastructure"
	"nwbconv/internal/naming"
	"nwbconv/internal/ndarray"
	"nwbconv/internal/nwb"
	"nwbconv/internal/source"
	"nwbconv/pkg/contracts/domain"
)

// Options carries per-run inputs that are not part of the application
// configuration. Empty subject and session ids fall back to the
// components parsed from the source filename.
type Options struct {
	Description  string
	Experimenter string
	SubjectID    string
	SessionID    string
	Institution  string
	Notes        string

	// OutDir overrides the configured destination directory.
	OutDir string

	// DryRun classifies and reports without writing a container, and
	// tolerates source filenames outside the tag convention.
	DryRun bool
}

// Converter runs the conversion pipeline for single source files.
type Converter struct {
	config  *config.Config
	logger  *slog.Logger
	metrics *infrastructure.ConversionMetrics
	tracer  trace.Tracer
}

// New creates a converter. A nil logger falls back to slog.Default.
func New(cfg *config.Config, logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{
		config: cfg,
		logger: logger,
	}
}

// AttachTelemetry wires optional metrics and tracing into the
// converter. Both may be nil.
func (c *Converter) AttachTelemetry(metrics *infrastructure.ConversionMetrics, tracer trace.Tracer) {
	c.metrics = metrics
	c.tracer = tracer
}

// DestinationPath derives the container destination for a source file.
// An empty outDir falls back to the configured destination directory.
// Filenames outside the tag convention are rejected as usage errors.
func (c *Converter) DestinationPath(sourcePath, outDir string) (string, error) {
	tag, err := domain.ParseRecordingTag(sourcePath)
	if err != nil {
		return "", converrors.Usage("%v", err)
	}
	if outDir == "" {
		outDir = c.config.Output.DestinationDir(sourcePath)
	}
	return filepath.Join(outDir, tag.OutputFileName()), nil
}

// Run converts one source file. Channels that cannot be classified are
// skipped and reported; load and export failures abort the run. The
// returned report is non-nil whenever the source loaded, including on
// export failure, so callers can still render per-channel outcomes.
func (c *Converter) Run(ctx context.Context, sourcePath string, opts Options) (report *domain.ConversionReport, err error) {
	started := time.Now()
	ctx = infrastructure.EnsureRunID(ctx)

	if c.tracer != nil {
		var span trace.Span
		ctx, span = c.tracer.Start(ctx, "conversion.run",
			trace.WithAttributes(attribute.String("source", filepath.Base(sourcePath))))
		defer span.End()
	}

	infrastructure.RecordActiveRunChange(ctx, c.metrics, 1)
	defer func() {
		infrastructure.RecordActiveRunChange(ctx, c.metrics, -1)
		infrastructure.RecordRunMetrics(ctx, c.metrics, sourcePath, time.Since(started), err == nil, err)
		if err != nil {
			infrastructure.RecordError(ctx, err)
		}
	}()

	tag, tagErr := domain.ParseRecordingTag(sourcePath)
	if tagErr != nil && !opts.DryRun {
		return nil, converrors.Usage("%v", tagErr)
	}

	c.logger.DebugContext(ctx, "loading source", slog.String("source", sourcePath))
	rec, err := source.Load(sourcePath)
	if err != nil {
		c.logger.ErrorContext(ctx, "source load failed",
			slog.String("source", sourcePath),
			slog.String("error", err.Error()))
		return nil, err
	}
	c.logger.InfoContext(ctx, "source loaded",
		slog.String("source", sourcePath),
		slog.Int("channels", rec.Len()))

	prefix := naming.CommonPrefix(foldNames(rec))

	report = &domain.ConversionReport{
		Source:    sourcePath,
		Prefix:    prefix,
		Channels:  make([]domain.ChannelResult, 0, rec.Len()),
		StartedAt: started,
	}

	var emitted []*classify.Series
	for _, ch := range rec.Fields() {
		s, cerr := classify.Classify(ch)
		if cerr != nil {
			report.Channels = append(report.Channels, c.skipResult(ctx, ch.Name, cerr))
			report.Skipped++
			infrastructure.RecordChannelSkip(ctx, c.metrics)
			continue
		}

		s.OutputName = naming.Strip(s.Channel, prefix)
		if s.TimeCount != s.SampleCount() && !s.Synthetic {
			c.logger.WarnContext(ctx, "timestamp count does not match sample count",
				slog.String("channel", s.Channel),
				slog.Int("timestamps", s.TimeCount),
				slog.Int("samples", s.SampleCount()))
		}

		emitted = append(emitted, s)
		report.Channels = append(report.Channels, convertedResult(s))
		report.Converted++

		c.logger.DebugContext(ctx, "channel classified",
			slog.String("channel", s.Channel),
			slog.String("output_name", s.OutputName),
			slog.String("mode", modeString(s)),
			slog.Int("samples", s.SampleCount()))
		infrastructure.RecordChannelMetrics(ctx, c.metrics, pathString(s), modeString(s), int64(s.SampleCount()))
	}

	infrastructure.AddSpanEvent(ctx, "classification.complete", map[string]interface{}{
		"channels":  rec.Len(),
		"converted": report.Converted,
		"skipped":   report.Skipped,
		"prefix":    prefix,
	})

	session := c.sessionMetadata(sourcePath, tag, tagErr == nil, opts, emitted)
	file := nwb.NewFile(session, c.logger)
	for _, s := range emitted {
		file.AddAcquisition(seriesEntry(s))
	}

	if opts.DryRun {
		report.ProcessingTime = time.Since(started).Milliseconds()
		return report, nil
	}

	dest, err := c.DestinationPath(sourcePath, opts.OutDir)
	if err != nil {
		return nil, err
	}
	if mkErr := os.MkdirAll(filepath.Dir(dest), 0755); mkErr != nil {
		err = converrors.Export(dest, mkErr)
		c.logger.ErrorContext(ctx, "export failed",
			slog.String("destination", dest),
			slog.String("error", mkErr.Error()))
		infrastructure.RecordExportMetrics(ctx, c.metrics, 0, err)
		report.ProcessingTime = time.Since(started).Milliseconds()
		return report, err
	}

	if expErr := file.Export(dest); expErr != nil {
		err = expErr
		c.logger.ErrorContext(ctx, "export failed",
			slog.String("destination", dest),
			slog.String("error", expErr.Error()))
		infrastructure.RecordExportMetrics(ctx, c.metrics, 0, err)
		report.ProcessingTime = time.Since(started).Milliseconds()
		return report, err
	}

	var exportedBytes int64
	if info, statErr := os.Stat(dest); statErr == nil {
		exportedBytes = info.Size()
	}
	infrastructure.RecordExportMetrics(ctx, c.metrics, exportedBytes, nil)

	report.Destination = dest
	report.Exported = true
	report.ProcessingTime = time.Since(started).Milliseconds()

	c.logger.InfoContext(ctx, "conversion complete",
		slog.String("source", sourcePath),
		slog.String("destination", dest),
		slog.Int("converted", report.Converted),
		slog.Int("skipped", report.Skipped),
		slog.Int64("duration_ms", report.ProcessingTime))

	return report, nil
}

// foldNames collects the discovery-ordered name set the prefix fold
// runs over: every channel name followed by that channel's sub-field
// names qualified with the channel name.
func foldNames(rec *source.Record) []string {
	names := make([]string, 0, rec.Len())
	for _, ch := range rec.Fields() {
		names = append(names, ch.Name)
		if ch.Kind != source.KindRecord {
			continue
		}
		for _, f := range ch.Record.Fields() {
			names = append(names, naming.Qualified(ch.Name, f.Name))
		}
	}
	return names
}

// sessionMetadata assembles the session attributes for the container.
// The session start time is the earliest finite channel start time, or
// zero when nothing was emitted.
func (c *Converter) sessionMetadata(sourcePath string, tag domain.RecordingTag, tagged bool, opts Options, emitted []*classify.Series) domain.SessionMetadata {
	identifier := stem(sourcePath)
	subject := opts.SubjectID
	sessionID := opts.SessionID
	if tagged {
		identifier = tag.Stem()
		if subject == "" {
			subject = tag.SubjectID
		}
		if sessionID == "" {
			sessionID = tag.SessionID
		}
	}

	return domain.SessionMetadata{
		Identifier:       identifier,
		Description:      opts.Description,
		Experimenter:     opts.Experimenter,
		SubjectID:        subject,
		SessionID:        sessionID,
		SessionStartTime: earliestStart(emitted),
		ReferenceTime:    time.Now().UTC(),
		Institution:      opts.Institution,
		Notes:            opts.Notes,
	}
}

func (c *Converter) skipResult(ctx context.Context, channel string, err error) domain.ChannelResult {
	result := domain.ChannelResult{
		Channel: channel,
		Status:  domain.StatusSkipped,
		Detail:  err.Error(),
	}

	var convErr *converrors.ConversionError
	if errors.As(err, &convErr) {
		result.Detail = convErr.Message
		if diags, ok := convErr.Details.([]classify.FieldDiagnostic); ok && len(diags) > 0 {
			result.Detail = fmt.Sprintf("%s: %s", convErr.Message, formatDiagnostics(diags))
			c.logger.WarnContext(ctx, "channel skipped",
				slog.String("channel", channel),
				slog.Any("fields", diags))
			return result
		}
	}

	c.logger.WarnContext(ctx, "channel skipped",
		slog.String("channel", channel),
		slog.String("detail", result.Detail))
	return result
}

func convertedResult(s *classify.Series) domain.ChannelResult {
	result := domain.ChannelResult{
		Channel:    s.Channel,
		OutputName: s.OutputName,
		Status:     domain.StatusConverted,
		Mode:       modeString(s),
		Samples:    s.SampleCount(),
		Shape:      s.Data.ShapeString(),
		Range:      rangeString(s.Data),
	}
	if s.IsRegular {
		result.Rate = s.Rate
	}
	if s.Synthetic {
		result.Detail = fmt.Sprintf("synthetic timestamps from field %s", s.ValueField)
	}
	return result
}

// seriesEntry builds the container entry for one classified channel.
// The description keeps the pre-strip name so outputs trace back to
// their source fields.
func seriesEntry(s *classify.Series) *nwb.TimeSeries {
	var ts *nwb.TimeSeries
	if s.IsRegular {
		ts = nwb.NewRegularSeries(s.OutputName, s.Data, s.StartTime, s.Rate)
	} else {
		ts = nwb.NewIrregularSeries(s.OutputName, s.Data, s.Timestamps)
	}
	ts.Description = s.FullName()
	return ts
}

func earliestStart(emitted []*classify.Series) float64 {
	earliest := math.Inf(1)
	for _, s := range emitted {
		if !math.IsNaN(s.StartTime) && !math.IsInf(s.StartTime, 0) && s.StartTime < earliest {
			earliest = s.StartTime
		}
	}
	if math.IsInf(earliest, 1) {
		return 0
	}
	return earliest
}

func modeString(s *classify.Series) string {
	if s.IsRegular {
		return domain.ModeRegular
	}
	return domain.ModeIrregular
}

func pathString(s *classify.Series) string {
	if s.Synthetic {
		return "fallback"
	}
	return "canonical"
}

func rangeString(a *ndarray.Array) string {
	if a.IsEmpty() {
		return ""
	}
	min, max := a.Range()
	if math.IsNaN(min) {
		return ""
	}
	return fmt.Sprintf("%g..%g", min, max)
}

func formatDiagnostics(diags []classify.FieldDiagnostic) string {
	parts := make([]string, 0, len(diags))
	for _, d := range diags {
		p := d.Field + " " + d.Kind
		if d.Shape != "" {
			p += " " + d.Shape
		}
		if d.Range != "" {
			p += " (" + d.Range + ")"
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, "; ")
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
