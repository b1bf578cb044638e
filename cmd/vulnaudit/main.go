// ABOUTME: Entry point for the VulnAudit dependency vulnerability auditor.
// ABOUTME: Sets up structured logging and signal handling, then runs the cobra command tree.

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand(logger).ExecuteContext(ctx); err != nil {
		if errors.Is(err, errVulnerabilitiesFound) {
			cancel()
			os.Exit(1)
		}
		logger.WithError(err).Fatal("vulnaudit failed")
	}
}
