// ABOUTME: One-shot audit subcommand.
// ABOUTME: Audits the configured dependencies once and reports vulnerabilities as text or JSON.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jfeddern/VulnAudit/internal/engine"
	"github.com/jfeddern/VulnAudit/internal/providers"
	"github.com/jfeddern/VulnAudit/internal/types"
)

// errVulnerabilitiesFound signals a completed audit with findings
var errVulnerabilitiesFound = errors.New("vulnerabilities found")

func newAuditCommand(opts *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit the dependency list once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "text" && format != "json" {
				return fmt.Errorf("unsupported format %q: must be text or json", format)
			}
			return runAudit(cmd, opts, format)
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	return cmd
}

func runAudit(cmd *cobra.Command, opts *rootOptions, format string) error {
	ctx := cmd.Context()
	logger := opts.logger

	source, err := providers.CreateDependencySource(opts.cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create dependency source: %w", err)
	}

	svc, err := providers.CreateVulnerabilityService(opts.cfg, logger, nil)
	if err != nil {
		return fmt.Errorf("failed to create vulnerability service: %w", err)
	}
	if closer, ok := svc.(interface{ Close() }); ok {
		defer closer.Close()
	}

	deps, err := source.Dependencies(ctx)
	if err != nil {
		return err
	}

	auditEngine := engine.NewEngine(svc, source, &engine.Config{Concurrency: opts.cfg.Concurrency}, logger)
	audit, err := auditEngine.Audit(ctx, deps)
	if err != nil {
		return fmt.Errorf("audit failed: %w", err)
	}

	for _, report := range audit.Report() {
		if len(report.Vulnerabilities) == 0 {
			continue
		}
		logger.WithFields(logrus.Fields{
			"package":         report.Name,
			"version":         report.Version,
			"vulnerabilities": len(report.Vulnerabilities),
		}).Warn("Vulnerable dependency")
	}

	out := cmd.OutOrStdout()
	switch format {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(audit); err != nil {
			return err
		}
	default:
		if err := writeTextReport(out, audit); err != nil {
			return err
		}
	}

	if audit.VulnerableCount() > 0 {
		return errVulnerabilitiesFound
	}
	return nil
}

func writeTextReport(out io.Writer, audit *types.AuditResult) error {
	if audit.VulnerableCount() == 0 {
		fmt.Fprintln(out, "No known vulnerabilities found")
	} else {
		fmt.Fprintf(out, "Found %d known vulnerabilities in %d packages\n",
			audit.VulnerabilityCount(), audit.VulnerableCount())

		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "Name\tVersion\tID\tFix Versions")
		for _, report := range audit.Report() {
			for _, vuln := range report.Vulnerabilities {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
					report.Name, report.Version, vuln.ID, strings.Join(vuln.FixVersionStrings(), ","))
			}
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	for _, report := range audit.Report() {
		if report.Skipped {
			fmt.Fprintf(out, "Skipped %s: %s\n", report.Name, report.SkipReason)
		}
	}
	return nil
}
