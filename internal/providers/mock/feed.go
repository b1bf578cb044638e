// ABOUTME: Mock vulnerability feed for local testing and development.
// ABOUTME: Serves canned advisories for well-known packages without network access.

package mock

import (
	"context"
	"fmt"
	"iter"
	"time"

	pep440 "github.com/aquasecurity/go-pep440-version"
	"github.com/sirupsen/logrus"

	"github.com/jfeddern/VulnAudit/internal/service"
	"github.com/jfeddern/VulnAudit/internal/types"
)

// advisory is a canned vulnerability affecting every version below affectedBelow
type advisory struct {
	id            string
	description   string
	aliases       []string
	fixVersions   []string
	affectedBelow string
	published     time.Time
}

var advisories = map[string][]advisory{
	"jinja2": {
		{
			id:            "MOCK-2014-0001",
			description:   "Insecure temporary file handling in the bytecode cache",
			aliases:       []string{"CVE-2014-1402"},
			fixVersions:   []string{"2.7.2"},
			affectedBelow: "2.7.2",
			published:     time.Date(2014, 5, 19, 14, 55, 0, 0, time.UTC),
		},
		{
			id:            "MOCK-2019-0002",
			description:   "Sandbox escape through str.format_map",
			aliases:       []string{"CVE-2019-10906"},
			fixVersions:   []string{"2.10.1"},
			affectedBelow: "2.10.1",
			published:     time.Date(2019, 4, 7, 0, 29, 0, 0, time.UTC),
		},
	},
	"flask": {
		{
			id:            "MOCK-2023-0003",
			description:   "Session cookie may be cached by proxies and shared between clients",
			aliases:       []string{"CVE-2023-30861"},
			fixVersions:   []string{"2.2.5", "2.3.2"},
			affectedBelow: "2.2.5",
			published:     time.Date(2023, 5, 2, 18, 15, 0, 0, time.UTC),
		},
	},
	"requests": {
		{
			id:            "MOCK-2023-0004",
			description:   "Proxy-Authorization header leaked to destination servers on redirect",
			aliases:       []string{"CVE-2023-32681"},
			fixVersions:   []string{"2.31.0"},
			affectedBelow: "2.31.0",
			published:     time.Date(2023, 5, 26, 18, 15, 0, 0, time.UTC),
		},
	},
	"urllib3": {
		{
			id:            "MOCK-2023-0005",
			description:   "Cookie header not stripped on cross-origin redirects",
			aliases:       []string{"CVE-2023-43804"},
			fixVersions:   []string{"1.26.17", "2.0.6"},
			affectedBelow: "1.26.17",
			published:     time.Date(2023, 10, 4, 17, 15, 0, 0, time.UTC),
		},
	},
}

// FeedService implements service.VulnerabilityService with canned data
type FeedService struct {
	logger *logrus.Logger
}

var _ service.VulnerabilityService = (*FeedService)(nil)

// NewFeedService creates a new mock vulnerability feed
func NewFeedService(logger *logrus.Logger) *FeedService {
	return &FeedService{
		logger: logger,
	}
}

// Name returns the name of this vulnerability service
func (m *FeedService) Name() string {
	return "mock-feed"
}

// QueryAll queries deps one at a time as the sequence is consumed
func (m *FeedService) QueryAll(ctx context.Context, deps iter.Seq[types.Dependency]) iter.Seq2[service.QueryResult, error] {
	return service.Sequential(ctx, m, deps)
}

// Query returns the canned advisories affecting dep
func (m *FeedService) Query(ctx context.Context, dep types.Dependency) (service.QueryResult, error) {
	if err := ctx.Err(); err != nil {
		return service.QueryResult{}, err
	}

	resolved, ok := dep.(types.ResolvedDependency)
	if !ok {
		return service.QueryResult{Dependency: dep}, nil
	}

	m.logger.WithFields(logrus.Fields{
		"package": resolved.CanonicalName(),
		"version": resolved.Version.String(),
	}).Debug("Getting mock vulnerability data")

	var vulns []types.VulnerabilityResult
	for _, adv := range advisories[resolved.CanonicalName()] {
		below, err := pep440.Parse(adv.affectedBelow)
		if err != nil {
			return service.QueryResult{}, service.NewServiceError(fmt.Sprintf("invalid canned version %q", adv.affectedBelow), err)
		}
		if resolved.Version.Compare(below) >= 0 {
			continue
		}

		result, err := adv.toResult()
		if err != nil {
			return service.QueryResult{}, err
		}
		vulns = append(vulns, result)
	}

	return service.QueryResult{Dependency: dep, Vulnerabilities: vulns}, nil
}

func (a advisory) toResult() (types.VulnerabilityResult, error) {
	fixes := make([]pep440.Version, 0, len(a.fixVersions))
	for _, raw := range a.fixVersions {
		v, err := pep440.Parse(raw)
		if err != nil {
			return types.VulnerabilityResult{}, service.NewServiceError(fmt.Sprintf("invalid canned version %q", raw), err)
		}
		fixes = append(fixes, v)
	}

	aliases := make(map[string]struct{}, len(a.aliases))
	for _, alias := range a.aliases {
		aliases[alias] = struct{}{}
	}

	published := a.published
	return types.VulnerabilityResult{
		ID:          a.id,
		Description: a.description,
		FixVersions: fixes,
		Aliases:     aliases,
		Published:   &published,
	}, nil
}
