// ABOUTME: Local file-based dependency source for audits of pinned requirements.
// ABOUTME: Reads dependency lists from JSON files without any package manager integration.

package local

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jfeddern/VulnAudit/internal/types"
)

// entry is one element of the dependency list file
type entry struct {
	Name       string              `json:"name"`
	Version    string              `json:"version"`
	Hashes     map[string][]string `json:"hashes"`
	SkipReason string              `json:"skip_reason"`
}

// FileSource implements DependencySource for local JSON dependency lists
type FileSource struct {
	dependencyFile string
	logger         *logrus.Logger
}

// NewFileSource creates a new local file-based dependency source
func NewFileSource(dependencyFile string, logger *logrus.Logger) *FileSource {
	return &FileSource{
		dependencyFile: dependencyFile,
		logger:         logger,
	}
}

// Name returns the source name
func (l *FileSource) Name() string {
	return "local"
}

// Dependencies reads the dependency list from the JSON file
func (l *FileSource) Dependencies(ctx context.Context) ([]types.Dependency, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger := l.logger.WithFields(logrus.Fields{
		"operation": "load_dependencies",
		"file":      l.dependencyFile,
	})

	data, err := os.ReadFile(l.dependencyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read dependency file '%s': %w", l.dependencyFile, err)
	}

	deps, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dependency file '%s': %w", l.dependencyFile, err)
	}

	logger.WithField("dependency_count", len(deps)).Info("Read dependency list from file")
	return deps, nil
}

// Parse decodes a JSON dependency list. Entries carrying a skip reason become
// skipped dependencies; every other entry needs a valid PEP 440 version.
func Parse(data []byte) ([]types.Dependency, error) {
	var entries []entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("invalid dependency list JSON: %w", err)
	}

	deps := make([]types.Dependency, 0, len(entries))
	for i, e := range entries {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, fmt.Errorf("entry %d: missing package name", i)
		}

		if reason := strings.TrimSpace(e.SkipReason); reason != "" {
			deps = append(deps, types.SkippedDependency{Name: name, SkipReason: reason})
			continue
		}

		dep, err := types.NewResolvedDependency(name, strings.TrimSpace(e.Version), e.Hashes)
		if err != nil {
			return nil, fmt.Errorf("entry %d (%s): %w", i, name, err)
		}
		deps = append(deps, dep)
	}

	return deps, nil
}
