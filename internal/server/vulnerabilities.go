// ABOUTME: HTTP handler for detailed vulnerability information endpoint.
// ABOUTME: Provides advisory, alias, and fix information for every audited dependency.

package server

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jfeddern/VulnAudit/internal/types"
)

const (
	maxLimit        = 10000
	maxFilterLength = 200
	topAdvisories   = 10
)

type AuditDataProvider interface {
	GetAuditData() (*types.AuditResult, time.Time)
}

type VulnerabilitiesHandler struct {
	collector AuditDataProvider
	logger    *logrus.Logger
}

type VulnerabilitiesResponse struct {
	Dependencies []types.DependencyReport `json:"dependencies"`
	Summary      VulnerabilitySummary     `json:"summary"`
	LastUpdated  string                   `json:"last_updated"`
}

type VulnerabilitySummary struct {
	TotalDependencies      int               `json:"total_dependencies"`
	VulnerableDependencies int               `json:"vulnerable_dependencies"`
	SkippedDependencies    int               `json:"skipped_dependencies"`
	TotalVulnerabilities   int               `json:"total_vulnerabilities"`
	TopAdvisories          []AdvisorySummary `json:"top_advisories"`
}

type AdvisorySummary struct {
	ID              string   `json:"id"`
	Aliases         []string `json:"aliases"`
	DependencyCount int      `json:"dependency_count"`
	Description     string   `json:"description"`
}

func NewVulnerabilitiesHandler(collector AuditDataProvider, logger *logrus.Logger) *VulnerabilitiesHandler {
	return &VulnerabilitiesHandler{
		collector: collector,
		logger:    logger,
	}
}

func (v *VulnerabilitiesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := v.logger.WithField("endpoint", "/vulnerabilities")

	audit, lastCollectionTime := v.collector.GetAuditData()
	if audit == nil {
		http.Error(w, "No audit has completed yet", http.StatusServiceUnavailable)
		return
	}

	query := r.URL.Query()
	packageFilter := types.CanonicalizeName(query.Get("package"))
	idFilter := strings.TrimSpace(query.Get("id"))
	limitParam := strings.TrimSpace(query.Get("limit"))

	limit := 0
	if limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed < 0 {
			http.Error(w, "Invalid limit parameter. Must be a positive integer", http.StatusBadRequest)
			return
		}
		if parsed > maxLimit {
			http.Error(w, "Limit parameter too large. Maximum allowed is 10000", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	if len(packageFilter) > maxFilterLength || len(idFilter) > maxFilterLength {
		http.Error(w, "Filter too long. Maximum allowed is 200 characters", http.StatusBadRequest)
		return
	}

	logger.WithFields(logrus.Fields{
		"package_filter":     packageFilter,
		"id_filter":          idFilter,
		"limit":              limit,
		"total_dependencies": audit.Len(),
	}).Debug("Processing vulnerabilities request")

	filtered := make([]types.DependencyReport, 0, audit.Len())
	advisories := make(map[string]*AdvisorySummary)

	for _, report := range audit.Report() {
		for _, vuln := range report.Vulnerabilities {
			if summary, exists := advisories[vuln.ID]; exists {
				summary.DependencyCount++
			} else {
				advisories[vuln.ID] = &AdvisorySummary{
					ID:              vuln.ID,
					Aliases:         vuln.AliasList(),
					DependencyCount: 1,
					Description:     vuln.Description,
				}
			}
		}

		if packageFilter != "" && !strings.Contains(types.CanonicalizeName(report.Name), packageFilter) {
			continue
		}

		if idFilter != "" {
			var matching []types.VulnerabilityResult
			for _, vuln := range report.Vulnerabilities {
				if vuln.HasAlias(idFilter) {
					matching = append(matching, vuln)
				}
			}
			if len(matching) == 0 {
				continue
			}
			report.Vulnerabilities = matching
		}

		if limit > 0 && len(report.Vulnerabilities) > limit {
			report.Vulnerabilities = report.Vulnerabilities[:limit]
		}

		filtered = append(filtered, report)
	}

	top := make([]AdvisorySummary, 0, len(advisories))
	for _, summary := range advisories {
		top = append(top, *summary)
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].DependencyCount != top[j].DependencyCount {
			return top[i].DependencyCount > top[j].DependencyCount
		}
		return top[i].ID < top[j].ID
	})
	if len(top) > topAdvisories {
		top = top[:topAdvisories]
	}

	response := VulnerabilitiesResponse{
		Dependencies: filtered,
		Summary: VulnerabilitySummary{
			TotalDependencies:      audit.Len(),
			VulnerableDependencies: audit.VulnerableCount(),
			SkippedDependencies:    audit.SkippedCount(),
			TotalVulnerabilities:   audit.VulnerabilityCount(),
			TopAdvisories:          top,
		},
		LastUpdated: lastCollectionTime.UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")

	encoder := json.NewEncoder(w)
	if query.Get("pretty") != "" {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(response); err != nil {
		logger.WithError(err).Error("Failed to encode JSON response")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	logger.WithFields(logrus.Fields{
		"filtered_dependencies": len(filtered),
		"total_vulns":           audit.VulnerabilityCount(),
		"top_advisories":        len(top),
	}).Info("Served vulnerabilities response")
}

// CreateVulnerabilitiesHandler creates a standard HTTP handler
func CreateVulnerabilitiesHandler(dataProvider AuditDataProvider, logger *logrus.Logger) http.HandlerFunc {
	handler := NewVulnerabilitiesHandler(dataProvider, logger)
	return handler.ServeHTTP
}
