// ABOUTME: Insertion-ordered mapping from dependencies to their vulnerabilities.
// ABOUTME: Holds the outcome of one audit run for reporting and metrics.

package types

import "encoding/json"

type auditEntry struct {
	dependency      Dependency
	vulnerabilities []VulnerabilityResult
}

// AuditResult maps each audited dependency to its vulnerabilities, keeping discovery order
type AuditResult struct {
	order   []DependencyKey
	entries map[DependencyKey]*auditEntry
}

// NewAuditResult creates an empty audit result
func NewAuditResult() *AuditResult {
	return &AuditResult{
		entries: make(map[DependencyKey]*auditEntry),
	}
}

// Add records the vulnerabilities for dep, replacing any previous entry with the same key
func (r *AuditResult) Add(dep Dependency, vulns []VulnerabilityResult) {
	key := dep.Key()
	if entry, exists := r.entries[key]; exists {
		entry.dependency = dep
		entry.vulnerabilities = vulns
		return
	}
	r.order = append(r.order, key)
	r.entries[key] = &auditEntry{dependency: dep, vulnerabilities: vulns}
}

// Get returns the vulnerabilities recorded for dep
func (r *AuditResult) Get(dep Dependency) ([]VulnerabilityResult, bool) {
	entry, exists := r.entries[dep.Key()]
	if !exists {
		return nil, false
	}
	return entry.vulnerabilities, true
}

// Contains reports whether dep has an entry
func (r *AuditResult) Contains(dep Dependency) bool {
	_, exists := r.entries[dep.Key()]
	return exists
}

func (r *AuditResult) Len() int {
	return len(r.order)
}

// Dependencies returns the audited dependencies in insertion order
func (r *AuditResult) Dependencies() []Dependency {
	deps := make([]Dependency, 0, len(r.order))
	for _, key := range r.order {
		deps = append(deps, r.entries[key].dependency)
	}
	return deps
}

// VulnerableCount returns the number of dependencies with at least one vulnerability
func (r *AuditResult) VulnerableCount() int {
	count := 0
	for _, entry := range r.entries {
		if len(entry.vulnerabilities) > 0 {
			count++
		}
	}
	return count
}

// VulnerabilityCount returns the total number of vulnerabilities across all dependencies
func (r *AuditResult) VulnerabilityCount() int {
	count := 0
	for _, entry := range r.entries {
		count += len(entry.vulnerabilities)
	}
	return count
}

// SkippedCount returns the number of skipped dependencies
func (r *AuditResult) SkippedCount() int {
	count := 0
	for key := range r.entries {
		if key.Kind == KindSkipped {
			count++
		}
	}
	return count
}

// DependencyReport is the serialized form of one audit entry
type DependencyReport struct {
	Name            string                `json:"name"`
	Version         string                `json:"version,omitempty"`
	Skipped         bool                  `json:"skipped"`
	SkipReason      string                `json:"skip_reason,omitempty"`
	Vulnerabilities []VulnerabilityResult `json:"vulnerabilities"`
}

// Report flattens the result into serializable entries, in insertion order
func (r *AuditResult) Report() []DependencyReport {
	reports := make([]DependencyReport, 0, len(r.order))
	for _, key := range r.order {
		entry := r.entries[key]
		report := DependencyReport{
			Vulnerabilities: entry.vulnerabilities,
		}
		if report.Vulnerabilities == nil {
			report.Vulnerabilities = []VulnerabilityResult{}
		}
		switch dep := entry.dependency.(type) {
		case ResolvedDependency:
			report.Name = dep.Name
			report.Version = dep.Version.String()
		case SkippedDependency:
			report.Name = dep.Name
			report.Skipped = true
			report.SkipReason = dep.SkipReason
		}
		reports = append(reports, report)
	}
	return reports
}

func (r *AuditResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Report())
}
