package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tropicly/labeler/internal/config"
	"github.com/tropicly/labeler/internal/logging"
	"github.com/tropicly/labeler/internal/samplecsv"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	AppName string = "labeler"
)

// global flags
var (
	configDir string
	logLevel  string
)

// global variables
var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager = logging.NewSlogManager()

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger = slog.Default()

	// Session tags every log line with the loaded file and cursor
	Session *logging.SessionContext = logging.NewSessionContext()

	SessionStartTime time.Time = time.Now()

	logFile *os.File
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "labeler",
	Short: "Label geographic sample points on a satellite map",
	Long: `labeler serves a local web page showing one sample point of a CSV file at a
time on satellite imagery. Step through the samples with the keyboard, edit
their label and validation, and download the result as CSV.`,
	Version:       fmt.Sprintf("%s (built %s)", CurrentVersion, BuildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		return setupLogging()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeLogging()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "Directory containing "+config.FileName)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd, checkCmd, exportCmd, pushCmd)
}

// loadConfig reads the config file. A missing file leaves the defaults in place.
func loadConfig() error {
	err := config.Load(configDir)
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return nil
	}
	return err
}

func setupLogging() error {
	level := config.GetString("logLevel")
	if logLevel != "" {
		level = logLevel
	}

	f, err := logging.OpenLogFile(config.GetString("logsDir"), AppName, SessionStartTime)
	if err != nil {
		return err
	}
	logFile = f

	opts := []logging.Option{logging.WithContext(Session.Attrs)}
	if gl := config.GetGraylogConfig(); gl.Enabled {
		opts = append(opts, logging.WithGraylog(gl.Address))
	}
	if err := SlogManager.Setup(logFile, level, opts...); err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	Logger = SlogManager.Logger()
	Logger.Info("Starting", "app", AppName, "version", CurrentVersion, "buildDate", BuildDate)
	return nil
}

func closeLogging() {
	_ = SlogManager.Close()
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

// csvOptions converts the csv config section into decoder options.
func csvOptions() (samplecsv.Options, error) {
	cfg := config.GetCSVConfig()
	opts := samplecsv.Options{Strict: cfg.Strict}
	if cfg.Delimiter != "" {
		r, size := utf8.DecodeRuneInString(cfg.Delimiter)
		if size != len(cfg.Delimiter) {
			return opts, fmt.Errorf("csv.delimiter must be a single character, got %q", cfg.Delimiter)
		}
		opts.Comma = r
	}
	return opts, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		closeLogging()
		os.Exit(1)
	}
}
