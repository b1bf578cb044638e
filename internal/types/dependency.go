// ABOUTME: Dependency variants handed to a vulnerability service for auditing.
// ABOUTME: Resolved dependencies carry a version and hashes; skipped ones carry a reason.

package types

import (
	"fmt"
	"regexp"
	"strings"

	pep440 "github.com/aquasecurity/go-pep440-version"
)

// DependencyKind distinguishes the dependency variants
type DependencyKind int

const (
	KindResolved DependencyKind = iota + 1
	KindSkipped
)

func (k DependencyKind) String() string {
	switch k {
	case KindResolved:
		return "resolved"
	case KindSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// DependencyKey is the comparable identity of a dependency.
// Resolved and skipped dependencies with the same name never share a key.
type DependencyKey struct {
	Kind DependencyKind
	Name string
}

// Dependency is either a ResolvedDependency or a SkippedDependency.
// The set of variants is closed; consumers switch on the concrete type.
type Dependency interface {
	Key() DependencyKey
	PackageName() string
	String() string
	isDependency()
}

// ResolvedDependency is a package pinned to a concrete version
type ResolvedDependency struct {
	Name    string
	Version pep440.Version
	// Hashes maps a digest algorithm (e.g. "sha256") to acceptable hex digests.
	Hashes map[string][]string
}

// NewResolvedDependency parses version and builds a resolved dependency
func NewResolvedDependency(name, version string, hashes map[string][]string) (ResolvedDependency, error) {
	v, err := pep440.Parse(version)
	if err != nil {
		return ResolvedDependency{}, fmt.Errorf("invalid version %q for %s: %w", version, name, err)
	}
	return ResolvedDependency{Name: name, Version: v, Hashes: hashes}, nil
}

// CanonicalName returns the normalized package name used by the feed
func (d ResolvedDependency) CanonicalName() string {
	return CanonicalizeName(d.Name)
}

func (d ResolvedDependency) Key() DependencyKey {
	return DependencyKey{Kind: KindResolved, Name: d.CanonicalName()}
}

func (d ResolvedDependency) PackageName() string { return d.Name }

func (d ResolvedDependency) String() string {
	return fmt.Sprintf("%s (%s)", d.Name, d.Version.String())
}

// HasHashes reports whether any digest was supplied
func (d ResolvedDependency) HasHashes() bool {
	for _, digests := range d.Hashes {
		if len(digests) > 0 {
			return true
		}
	}
	return false
}

func (ResolvedDependency) isDependency() {}

// SkippedDependency is a package that could not be resolved or audited
type SkippedDependency struct {
	Name       string
	SkipReason string
}

func (d SkippedDependency) Key() DependencyKey {
	return DependencyKey{Kind: KindSkipped, Name: d.Name}
}

func (d SkippedDependency) PackageName() string { return d.Name }

func (d SkippedDependency) String() string {
	return fmt.Sprintf("%s (skipped: %s)", d.Name, d.SkipReason)
}

func (SkippedDependency) isDependency() {}

var nameSeparators = regexp.MustCompile(`[-_.]+`)

// CanonicalizeName lower-cases a package name and collapses runs of
// '-', '_' and '.' into a single '-'.
func CanonicalizeName(name string) string {
	return nameSeparators.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}
