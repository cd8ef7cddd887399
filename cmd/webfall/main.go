package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"webfall/cleaner"
	"webfall/config"
	"webfall/engine"
	"webfall/models"
	"webfall/report"
	"webfall/scraper"
)

var version = "dev"

var (
	mode            string
	outputFormat    string
	outputFile      string
	selector        string
	headerFlags     []string
	rodProfile      string
	chromedpProfile string
	logLevel        string
	logFormat       string
)

// errRetrievalFailed signals a non-zero exit without cobra printing usage.
var errRetrievalFailed = fmt.Errorf("retrieval failed")

func main() {
	rootCmd := &cobra.Command{
		Use:     "webfall [URL]",
		Short:   "Fetch a web page through a cascade of increasingly capable clients",
		Version: version,
		Long: `webfall fetches the rendered content of a single URL by trying retrieval
strategies in increasing order of cost until one succeeds: a plain HTTP
client, an HTTP client with a Chrome TLS fingerprint, and three headless
browser backends. The winning strategy's markup is returned raw or
normalized into readable text, Markdown, or a readability article.`,
		Example: `  # Cleaned text to stdout
  webfall https://example.com

  # Raw HTML into a file (parent directories are created)
  webfall -m raw -o out/page.html https://example.com

  # Structured JSON record, reusing an authenticated browser profile
  webfall -f json --rod-profile ~/.config/scrape-profile https://example.com

  # Markdown of just the article element
  webfall -m markdown -s article https://example.com

  # Extra request headers on every strategy
  webfall -H 'Authorization: Bearer tok' -H 'X-Trace: 1' https://example.com`,
		Args:          cobra.ExactArgs(1),
		RunE:          run,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.Flags().StringVarP(&mode, "mode", "m", cleaner.ModeCleaned, "Normalization mode (raw, cleaned, markdown, article)")
	rootCmd.Flags().StringVarP(&outputFormat, "format", "f", report.FormatText, "Output format (text, json); inferred from -o extension when not set")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (stdout when omitted)")
	rootCmd.Flags().StringVarP(&selector, "selector", "s", "", "CSS selector to scope extraction to")
	rootCmd.Flags().StringArrayVarP(&headerFlags, "header", "H", nil, "Extra request header as 'Key: Value' (repeatable)")
	rootCmd.Flags().StringVar(&rodProfile, "rod-profile", "", "Browser profile directory for the rod-profile strategy")
	rootCmd.Flags().StringVar(&chromedpProfile, "chromedp-profile", "", "Browser profile directory for the chromedp strategy")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&logFormat, "log-format", "", "Log format (text, json)")

	if err := rootCmd.Execute(); err != nil {
		if err != errRetrievalFailed {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	initLogger(cfg.Log)

	if !cleaner.ValidMode(mode) {
		return fmt.Errorf("invalid mode: %s", mode)
	}
	if outputFile != "" && !cmd.Flags().Changed("format") {
		if inferred := report.InferFormat(outputFile); inferred != "" {
			outputFormat = inferred
		}
	}
	if !report.ValidFormat(outputFormat) {
		return fmt.Errorf("invalid output format: %s", outputFormat)
	}
	headers, err := parseHeaders(headerFlags)
	if err != nil {
		return err
	}

	// Flags win over env-configured profile paths.
	if rodProfile == "" {
		rodProfile = cfg.Profiles.Rod
	}
	if chromedpProfile == "" {
		chromedpProfile = cfg.Profiles.Chromedp
	}

	// An interrupt during a long browser attempt cancels this context; the
	// engines' deferred teardown still kills the spawned process.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	browser := engine.DetectBrowser(cfg.Browser.Bin, cfg.Browser.Headless, cfg.Browser.NoSandbox)
	engines := []engine.Engine{
		engine.NewHTTPEngine(cfg.HTTP.Timeout),
		engine.NewStealthHTTPEngine(cfg.HTTP.StealthTimeout),
		engine.NewRodEngine(browser, cfg.Browser.NavTimeout, cfg.Browser.SettleDelay),
		engine.NewRodProfileEngine(browser, rodProfile, cfg.Browser.NavTimeout, cfg.Browser.ProfileSettleDelay),
		engine.NewChromedpEngine(browser, chromedpProfile, cfg.Browser.NavTimeout, cfg.Browser.ProfileSettleDelay),
	}

	casc := scraper.New(engines, cleaner.NewCleaner(cfg.Cleaner.MinArticleChars))
	result := casc.Run(ctx, &models.Job{
		URL:      args[0],
		Mode:     mode,
		Selector: selector,
		Headers:  headers,
	})

	rendering, err := report.Render(result, outputFormat)
	if err != nil {
		return err
	}
	// A failed file write falls back to console inside Deliver; the result
	// itself still decides the exit code.
	_ = report.Deliver(rendering, outputFile, os.Stdout)

	if !result.Succeeded() {
		return errRetrievalFailed
	}
	return nil
}

// parseHeaders turns repeated "Key: Value" flag values into a header map.
// Later repeats of the same key win.
func parseHeaders(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		key, value, found := strings.Cut(h, ":")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return nil, fmt.Errorf("invalid header %q, want 'Key: Value'", h)
		}
		headers[key] = strings.TrimSpace(value)
	}
	return headers, nil
}

// initLogger configures slog on stderr so stdout stays clean for content.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
