// ABOUTME: Hash-integrity check of pinned dependencies against published release artifacts.
// ABOUTME: One supplied digest matching any artifact digest of the same algorithm suffices.

package pypi

import (
	"fmt"
	"strings"

	"github.com/jfeddern/VulnAudit/internal/service"
	"github.com/jfeddern/VulnAudit/internal/types"
)

func verifyHashes(dep types.ResolvedDependency, artifacts []releaseArtifact) error {
	if len(artifacts) == 0 {
		return service.NewServiceError(fmt.Sprintf(
			"could not find release metadata for %s (%s); supplied hashes cannot be verified",
			dep.CanonicalName(), dep.Version.String()), nil)
	}

	for algorithm, digests := range dep.Hashes {
		algorithm = strings.ToLower(strings.TrimSpace(algorithm))
		for _, digest := range digests {
			if artifactHasDigest(artifacts, algorithm, digest) {
				return nil
			}
		}
	}

	return service.NewServiceError(fmt.Sprintf(
		"hash mismatch for %s (%s): none of the supplied digests match a published release artifact",
		dep.CanonicalName(), dep.Version.String()), nil)
}

func artifactHasDigest(artifacts []releaseArtifact, algorithm, digest string) bool {
	digest = strings.TrimSpace(digest)
	if digest == "" {
		return false
	}

	for _, artifact := range artifacts {
		recorded, ok := artifact.Digests[algorithm]
		if ok && strings.EqualFold(recorded, digest) {
			return true
		}
	}
	return false
}
