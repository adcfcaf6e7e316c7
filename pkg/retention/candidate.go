package retention

import (
	"context"
	"errors"
	"fmt"

	zerr "github.com/ghcr-retention/ghcr-retention/errors"
	"github.com/ghcr-retention/ghcr-retention/pkg/retention/types"
)

type bucket int

const (
	excluded bucket = iota
	matchedTagged
	untagged
)

// classify places a version for the tagged regex policy, a tagged version with no matching tag is excluded.
func classify(version types.PackageVersion, matcher *TagMatcher) bucket {
	if version.IsUntagged() {
		return untagged
	}

	if matcher.MatchesAnyTag(version.Tags) {
		return matchedTagged
	}

	return excluded
}

// GetUntaggedCandidates drains source and returns its untagged versions in source order.
func GetUntaggedCandidates(ctx context.Context, source types.VersionSource) ([]types.PackageVersion, error) {
	candidates := make([]types.PackageVersion, 0)

	for version, err := range source.Versions(ctx) {
		if err != nil {
			return nil, sourceError(err)
		}

		if version.IsUntagged() {
			candidates = append(candidates, version)
		}
	}

	return candidates, nil
}

// GetBucketedCandidates drains source once and splits it into matched-tagged and untagged versions.
func GetBucketedCandidates(ctx context.Context, source types.VersionSource, matcher *TagMatcher,
) ([]types.PackageVersion, []types.PackageVersion, error) {
	matched := make([]types.PackageVersion, 0)
	untaggedVersions := make([]types.PackageVersion, 0)

	for version, err := range source.Versions(ctx) {
		if err != nil {
			return nil, nil, sourceError(err)
		}

		switch classify(version, matcher) {
		case matchedTagged:
			matched = append(matched, version)
		case untagged:
			untaggedVersions = append(untaggedVersions, version)
		case excluded:
		}
	}

	return matched, untaggedVersions, nil
}

func sourceError(err error) error {
	if errors.Is(err, zerr.ErrSourceFailed) {
		return err
	}

	return fmt.Errorf("%w: %w", zerr.ErrSourceFailed, err)
}
