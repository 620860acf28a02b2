package cmd

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/s0up4200/bazarrwatch/bazarr"
	"github.com/s0up4200/bazarrwatch/config"
	"github.com/s0up4200/bazarrwatch/entry"
	"github.com/s0up4200/bazarrwatch/metrics"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  zerolog.Logger

	version   = "dev"
	buildTime = "unknown"

	// Command flags
	entryID string
	urlFlag string
	apiKey  string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "bazarrwatch",
	Short: "Monitor a Bazarr instance for wanted subtitles and health issues",
	Long: `bazarrwatch polls a Bazarr instance on a fixed interval and exposes the
number of movies and episodes waiting for subtitles, plus any health issues
Bazarr reports, as sensors over HTTP and as Prometheus metrics.`,
	PersistentPreRunE: initializeApp,
	SilenceUsage:      true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// SetVersion records build information shown by --version
func SetVersion(v, built string) {
	version = v
	buildTime = built
	rootCmd.Version = fmt.Sprintf("%s (built %s)", version, buildTime)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")

	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(reauthCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
}

// initializeApp loads the configuration and sets up logging
func initializeApp(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger = setupLogger(cfg.Logging, isatty.IsTerminal(os.Stderr.Fd()))
	return nil
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig, terminal bool) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !cfg.Color || !terminal,
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

// newBazarrClient builds an instrumented API client honouring refresh.timeout
func newBazarrClient() *bazarr.Client {
	httpClient := &http.Client{
		Transport: metrics.InstrumentTransport(http.DefaultTransport),
	}
	return bazarr.NewClient(logger,
		bazarr.WithHTTPClient(httpClient),
		bazarr.WithTimeout(cfg.Refresh.Timeout),
		bazarr.WithUserAgent("bazarrwatch/"+version),
	)
}

func openStore() (*entry.Store, error) {
	store, err := entry.Open(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open entry store: %w", err)
	}
	return store, nil
}

// printResult renders a flow result for the terminal
func printResult(res entry.Result) {
	switch res.Type {
	case entry.ResultCreateEntry:
		fmt.Printf("✓ Created entry %s\n", res.Entry.Title)
		printEntry(*res.Entry)
	case entry.ResultAbort:
		switch res.Reason {
		case entry.ReasonReauthSuccessful:
			fmt.Println("✓ API key replaced")
		case entry.ReasonAlreadyConfigured:
			fmt.Println("This Bazarr instance is already configured.")
		default:
			fmt.Printf("Aborted: %s\n", res.Reason)
		}
	case entry.ResultForm:
		if code := res.Errors["base"]; code != "" {
			fmt.Printf("✗ %s\n", describeError(code))
		}
		if tokenURL := res.Placeholders["api_token_url"]; tokenURL != "" {
			fmt.Printf("  Find your API key at %s\n", tokenURL)
		}
	}
}

func printEntry(e entry.Entry) {
	fmt.Printf("  ID:  %s\n", e.ID)
	fmt.Printf("  URL: %s\n", e.URL)
}

func describeError(code string) string {
	switch code {
	case bazarr.ErrorCodeInvalidAPIKey:
		return "Bazarr rejected the API key"
	case bazarr.ErrorCodeCannotConnect:
		return "Cannot connect to Bazarr"
	default:
		return code
	}
}
