package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"nwbconv/internal/config"
	"nwbconv/internal/convert"
	"nwbconv/internal/infrastructure"
)

var (
	configFile  string
	enableTrace bool

	// Shared application state, populated by initializeApp before any
	// subcommand runs.
	appCfg       *config.Config
	appLogger    *slog.Logger
	appProviders *infrastructure.OTelProviders
	appMetrics   *infrastructure.ConversionMetrics
)

// rootCmd is the root command
var rootCmd = &cobra.Command{
	Use:   "nwbconv",
	Short: "Convert MATLAB session exports into NWB exchange containers",
	Long: `nwbconv converts MATLAB-exported recording sessions into NWB exchange
containers. Each channel of the source file is classified into a
time/value series, the common channel-name prefix is stripped, and the
result is written next to the source (or into --out-dir) as
<name>.nwb.json.

Source filenames follow animal_[signal_]session_tag.ext; the components
become the subject and session identifiers of the exported container.`,
	Example: `  # Convert one session
  $ nwbconv convert mouse01_lfp_session3_day1.json

  # Convert with a session description and experimenter
  $ nwbconv convert rat7_s2_day4.json "probe test" "J. Doe"

  # Convert a whole directory
  $ nwbconv batch ./recordings --summary batch.xlsx

  # Preview classification without writing anything
  $ nwbconv inspect mouse01_lfp_session3_day1.json`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initializeApp,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "configuration file to read (default probes nwbconv.yaml, config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&enableTrace, "trace", false, "emit spans for this run to stdout")

	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(versionCmd)
}

// initializeApp loads configuration and brings up logging and
// telemetry. Configuration and telemetry problems degrade with a
// warning instead of refusing to run.
func initializeApp(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		slog.Warn("failed to load config, using defaults", "error", err)
		cfg = config.Default()
	}
	if enableTrace {
		cfg.Telemetry.EnableTracing = true
	}
	appCfg = cfg

	if err := cfg.Logging.EnsureLogDir(); err != nil {
		slog.Warn("failed to create log directory", "error", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}
	appLogger = logger

	providers, err := infrastructure.InitializeOTel(infrastructure.NewOTelConfig(cfg.Telemetry), logger)
	if err != nil {
		logger.Warn("telemetry initialization failed, continuing without it",
			slog.String("error", err.Error()))
		return nil
	}
	appProviders = providers

	if providers.Meter != nil {
		metrics, err := infrastructure.CreateConversionMetrics(providers.Meter)
		if err != nil {
			logger.Warn("conversion metric creation failed",
				slog.String("error", err.Error()))
			return nil
		}
		appMetrics = metrics
	}
	return nil
}

// newConverter builds a converter wired to the shared app state.
func newConverter() *convert.Converter {
	conv := convert.New(appCfg, appLogger)
	if appProviders != nil {
		conv.AttachTelemetry(appMetrics, appProviders.Tracer)
	}
	return conv
}
