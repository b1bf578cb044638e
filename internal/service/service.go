// ABOUTME: Vulnerability service contract shared by feed clients and the audit engine.
// ABOUTME: Produces lazy, pull-driven sequences of dependency/vulnerability pairs.

package service

import (
	"context"
	"iter"

	"github.com/jfeddern/VulnAudit/internal/types"
)

// QueryResult pairs a dependency with the vulnerabilities found for it.
// The dependency may differ from the one queried, e.g. when the feed does
// not know the package and it is re-keyed as skipped.
type QueryResult struct {
	Dependency      types.Dependency
	Vulnerabilities []types.VulnerabilityResult
}

// Querier resolves the vulnerabilities of a single dependency
type Querier interface {
	Query(ctx context.Context, dep types.Dependency) (QueryResult, error)
}

// VulnerabilityService abstracts different vulnerability feeds
type VulnerabilityService interface {
	Querier
	Name() string
	// QueryAll yields one result per input dependency. The first fatal error
	// is yielded with a zero QueryResult and ends the sequence.
	QueryAll(ctx context.Context, deps iter.Seq[types.Dependency]) iter.Seq2[QueryResult, error]
}

// Sequential queries deps one at a time as the caller pulls results.
func Sequential(ctx context.Context, q Querier, deps iter.Seq[types.Dependency]) iter.Seq2[QueryResult, error] {
	return func(yield func(QueryResult, error) bool) {
		for dep := range deps {
			if err := ctx.Err(); err != nil {
				yield(QueryResult{}, err)
				return
			}

			result, err := q.Query(ctx, dep)
			if err != nil {
				yield(QueryResult{}, err)
				return
			}

			if !yield(result, nil) {
				return
			}
		}
	}
}

// Collect drains seq into an AuditResult. On error no result is returned.
func Collect(seq iter.Seq2[QueryResult, error]) (*types.AuditResult, error) {
	result := types.NewAuditResult()
	for res, err := range seq {
		if err != nil {
			return nil, err
		}
		result.Add(res.Dependency, res.Vulnerabilities)
	}
	return result, nil
}
