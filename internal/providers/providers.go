// ABOUTME: Provider contracts for dependency sources and vulnerability services.
// ABOUTME: Pins every concrete provider to the interface the engine consumes.

package providers

import (
	"github.com/jfeddern/VulnAudit/internal/engine"
	"github.com/jfeddern/VulnAudit/internal/providers/local"
	"github.com/jfeddern/VulnAudit/internal/providers/mock"
	"github.com/jfeddern/VulnAudit/internal/providers/pypi"
	"github.com/jfeddern/VulnAudit/internal/service"
)

// DependencySource supplies the dependencies an audit runs over
type DependencySource = engine.DependencySource

var (
	_ DependencySource             = (*local.FileSource)(nil)
	_ DependencySource             = (*mock.StaticSource)(nil)
	_ service.VulnerabilityService = (*pypi.Client)(nil)
	_ service.VulnerabilityService = (*mock.FeedService)(nil)
)
