// ABOUTME: Root cobra command shared by the audit and serve subcommands.
// ABOUTME: Loads configuration once and applies command-line overrides on top of it.

package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jfeddern/VulnAudit/internal/config"
)

// rootOptions carries state shared between the root command and its subcommands
type rootOptions struct {
	configPath string
	logger     *logrus.Logger
	cfg        *config.Config
}

func newRootCommand(logger *logrus.Logger) *cobra.Command {
	opts := &rootOptions{logger: logger}

	cmd := &cobra.Command{
		Use:   "vulnaudit",
		Short: "Audit pinned Python dependencies for known vulnerabilities",
		Long: `vulnaudit checks pinned Python dependencies against the PyPI JSON API
vulnerability feed.

Usage modes:
  vulnaudit audit   One-shot audit; exits non-zero when vulnerabilities are found
  vulnaudit serve   Periodic audits exposed as Prometheus metrics and JSON`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML config file")
	flags.String("log-level", "", "Log level: trace, debug, info, warn, error")
	flags.StringP("dependency-file", "f", "", "Path to JSON file with the dependency list")
	flags.String("feed-url", "", "Base URL of the PyPI JSON API")
	flags.String("cache-dir", "", "Directory for cached feed responses (empty keeps the cache in memory)")
	flags.Int("concurrency", 0, "Maximum number of concurrent feed requests")
	flags.Duration("timeout", 0, "Timeout for a single feed request")
	flags.Bool("mock", false, "Enable mock mode for local testing (no external API calls)")

	cmd.AddCommand(newAuditCommand(opts), newServeCommand(opts))
	return cmd
}

// load builds the configuration from file and environment, then applies flags
// the user set explicitly.
func (o *rootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("dependency-file") {
		cfg.DependencyFile, _ = flags.GetString("dependency-file")
	}
	if flags.Changed("feed-url") {
		cfg.FeedURL, _ = flags.GetString("feed-url")
	}
	if flags.Changed("cache-dir") {
		cfg.CacheDir, _ = flags.GetString("cache-dir")
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency, _ = flags.GetInt("concurrency")
	}
	if flags.Changed("timeout") {
		cfg.Timeout, _ = flags.GetDuration("timeout")
	}
	if flags.Changed("mock") {
		cfg.MockMode, _ = flags.GetBool("mock")
	}
	if flags.Changed("port") {
		cfg.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("scrape-interval") {
		cfg.ScrapeInterval, _ = flags.GetDuration("scrape-interval")
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	o.logger.SetLevel(cfg.Level())
	o.cfg = cfg
	return nil
}
