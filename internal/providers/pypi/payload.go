// ABOUTME: Raw PyPI JSON payload types and their normalization into vulnerability results.
// ABOUTME: Applies the description fallback, withdrawal filtering, and version parsing rules.

package pypi

import (
	"fmt"
	"slices"
	"strings"
	"time"

	pep440 "github.com/aquasecurity/go-pep440-version"

	"github.com/jfeddern/VulnAudit/internal/service"
	"github.com/jfeddern/VulnAudit/internal/types"
)

const missingDescription = "N/A"

// releasePayload is the subset of GET /pypi/<name>/<version>/json we consume
type releasePayload struct {
	URLs            []releaseArtifact     `json:"urls"`
	Vulnerabilities []vulnerabilityRecord `json:"vulnerabilities"`
}

type releaseArtifact struct {
	Filename    string            `json:"filename"`
	PackageType string            `json:"packagetype"`
	URL         string            `json:"url"`
	Digests     map[string]string `json:"digests"`
}

type vulnerabilityRecord struct {
	ID        string   `json:"id"`
	Summary   string   `json:"summary"`
	Details   string   `json:"details"`
	Aliases   []string `json:"aliases"`
	FixedIn   []string `json:"fixed_in"`
	Link      string   `json:"link"`
	Source    string   `json:"source"`
	Withdrawn string   `json:"withdrawn"`
	Published string   `json:"published"`
}

func (r vulnerabilityRecord) withdrawn() bool {
	return strings.TrimSpace(r.Withdrawn) != ""
}

// toResult normalizes an active record. Unparseable fix versions or
// timestamps make the whole record untrustworthy.
func (r vulnerabilityRecord) toResult() (types.VulnerabilityResult, error) {
	fixVersions := make([]pep440.Version, 0, len(r.FixedIn))
	for _, raw := range r.FixedIn {
		v, err := pep440.Parse(raw)
		if err != nil {
			return types.VulnerabilityResult{}, service.NewServiceError(
				fmt.Sprintf("received malformed version %q in fixed_in of %s", raw, r.ID), err)
		}
		fixVersions = append(fixVersions, v)
	}
	sortVersions(fixVersions)

	aliases := make(map[string]struct{}, len(r.Aliases))
	for _, alias := range r.Aliases {
		aliases[alias] = struct{}{}
	}

	var published *time.Time
	if strings.TrimSpace(r.Published) != "" {
		ts, err := parseTimestamp(r.Published)
		if err != nil {
			return types.VulnerabilityResult{}, service.NewServiceError(
				fmt.Sprintf("received malformed published timestamp %q for %s", r.Published, r.ID), err)
		}
		published = &ts
	}

	return types.VulnerabilityResult{
		ID:          r.ID,
		Description: r.description(),
		FixVersions: fixVersions,
		Aliases:     aliases,
		Published:   published,
	}, nil
}

// description prefers the summary, then the details, then "N/A".
func (r vulnerabilityRecord) description() string {
	for _, candidate := range []string{r.Summary, r.Details} {
		if strings.TrimSpace(candidate) != "" {
			return joinLines(candidate)
		}
	}
	return missingDescription
}

// joinLines collapses multi-line text onto one line, separating lines with a single space.
func joinLines(text string) string {
	lines := strings.FieldsFunc(text, func(r rune) bool {
		return r == '\n' || r == '\r'
	})
	return strings.Join(lines, " ")
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseTimestamp accepts RFC 3339 and naive ISO-8601 timestamps; naive ones are UTC.
func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)

	var lastErr error
	for _, layout := range timestampLayouts {
		ts, err := time.Parse(layout, raw)
		if err == nil {
			return ts.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func sortVersions(versions []pep440.Version) {
	slices.SortStableFunc(versions, func(a, b pep440.Version) int {
		return a.Compare(b)
	})
}
