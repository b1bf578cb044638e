// ABOUTME: Mock dependency source for local testing and development.
// ABOUTME: Provides a realistic pinned dependency set without reading any files.

package mock

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/jfeddern/VulnAudit/internal/types"
)

// StaticSource implements DependencySource with a fixed dependency list
type StaticSource struct {
	logger *logrus.Logger
}

// NewStaticSource creates a new mock dependency source
func NewStaticSource(logger *logrus.Logger) *StaticSource {
	return &StaticSource{
		logger: logger,
	}
}

// Name returns the name of this dependency source
func (m *StaticSource) Name() string {
	return "mock-static"
}

// Dependencies returns a dependency set resembling a typical web service
func (m *StaticSource) Dependencies(ctx context.Context) ([]types.Dependency, error) {
	m.logger.Info("Loading mock dependency set")

	pinned := []struct {
		name    string
		version string
	}{
		{"Flask", "2.0.1"},
		{"Jinja2", "2.10"},
		{"requests", "2.28.2"},
		{"urllib3", "1.26.5"},
		{"gunicorn", "21.2.0"},
		{"SQLAlchemy", "2.0.23"},
		{"python-dateutil", "2.8.2"},
	}

	deps := make([]types.Dependency, 0, len(pinned)+1)
	for _, p := range pinned {
		dep, err := types.NewResolvedDependency(p.name, p.version, nil)
		if err != nil {
			return nil, err
		}
		deps = append(deps, dep)
	}
	deps = append(deps, types.SkippedDependency{
		Name:       "internal-toolkit",
		SkipReason: "could not be audited: editable install from a local path",
	})

	m.logger.WithField("dependency_count", len(deps)).Info("Mock dependency set loaded")
	return deps, nil
}
