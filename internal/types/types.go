// ABOUTME: Common types shared across the VulnAudit system.
// ABOUTME: Defines dependencies, normalized vulnerability records, and audit results.

package types

import (
	"encoding/json"
	"sort"
	"time"

	pep440 "github.com/aquasecurity/go-pep440-version"
)

// VulnerabilityResult is a single normalized advisory affecting a dependency
type VulnerabilityResult struct {
	ID          string
	Description string
	FixVersions []pep440.Version // ascending
	Aliases     map[string]struct{}
	Published   *time.Time
}

// AliasList returns the aliases in sorted order
func (v VulnerabilityResult) AliasList() []string {
	aliases := make([]string, 0, len(v.Aliases))
	for alias := range v.Aliases {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}

// FixVersionStrings returns the fix versions rendered as strings
func (v VulnerabilityResult) FixVersionStrings() []string {
	versions := make([]string, 0, len(v.FixVersions))
	for _, fix := range v.FixVersions {
		versions = append(versions, fix.String())
	}
	return versions
}

// HasAlias reports whether id is the advisory id or one of its aliases
func (v VulnerabilityResult) HasAlias(id string) bool {
	if v.ID == id {
		return true
	}
	_, ok := v.Aliases[id]
	return ok
}

type vulnerabilityJSON struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	FixVersions []string   `json:"fix_versions"`
	Aliases     []string   `json:"aliases"`
	Published   *time.Time `json:"published,omitempty"`
}

// MarshalJSON renders versions and aliases as plain strings
func (v VulnerabilityResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(vulnerabilityJSON{
		ID:          v.ID,
		Description: v.Description,
		FixVersions: v.FixVersionStrings(),
		Aliases:     v.AliasList(),
		Published:   v.Published,
	})
}
