package retention

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	zerr "github.com/ghcr-retention/ghcr-retention/errors"
	"github.com/ghcr-retention/ghcr-retention/pkg/config"
	zlog "github.com/ghcr-retention/ghcr-retention/pkg/log"
	"github.com/ghcr-retention/ghcr-retention/pkg/retention/types"
)

const (
	ByExactTagName              = "by-exact-tag"
	UntaggedRetainNewestName    = "untagged-retain-newest"
	TaggedRegexPlusUntaggedName = "tagged-regex-plus-untagged"
)

// TagNotFoundError is returned when no version carries the requested tag.
type TagNotFoundError struct {
	Tag string
	// Available is the sorted, deduplicated union of the tags seen while scanning.
	Available []string
}

func (e *TagNotFoundError) Error() string {
	return fmt.Sprintf("package with tag '%s' does not exist, available tags: %s",
		e.Tag, strings.Join(e.Available, ", "))
}

func (e *TagNotFoundError) Unwrap() error {
	return zerr.ErrTagNotFound
}

// FindByTag returns the first version carrying tag and stops reading the source there.
func FindByTag(ctx context.Context, source types.VersionSource, tag string) (types.PackageVersion, error) {
	seen := make(map[string]struct{})

	for version, err := range source.Versions(ctx) {
		if err != nil {
			return types.PackageVersion{}, sourceError(err)
		}

		if slices.Contains(version.Tags, tag) {
			return version, nil
		}

		for _, versionTag := range version.Tags {
			seen[versionTag] = struct{}{}
		}
	}

	return types.PackageVersion{}, &TagNotFoundError{
		Tag:       tag,
		Available: slices.Sorted(maps.Keys(seen)),
	}
}

type ByExactTag struct {
	Tag string
}

func NewByExactTag(tag string) ByExactTag {
	return ByExactTag{Tag: tag}
}

func (p ByExactTag) Name() string {
	return ByExactTagName
}

func (p ByExactTag) String() string {
	return fmt.Sprintf("%s(tag=%s)", ByExactTagName, p.Tag)
}

func (p ByExactTag) Select(ctx context.Context, source types.VersionSource) ([]types.PackageVersion, error) {
	version, err := FindByTag(ctx, source, p.Tag)
	if err != nil {
		return nil, err
	}

	return []types.PackageVersion{version}, nil
}

type UntaggedRetainNewest struct {
	Keep int
}

func NewUntaggedRetainNewest(keep int) (UntaggedRetainNewest, error) {
	if keep < 0 {
		return UntaggedRetainNewest{}, fmt.Errorf("%w: untagged keep %d", zerr.ErrNegativeKeepCount, keep)
	}

	return UntaggedRetainNewest{Keep: keep}, nil
}

func (p UntaggedRetainNewest) Name() string {
	return UntaggedRetainNewestName
}

func (p UntaggedRetainNewest) String() string {
	return fmt.Sprintf("%s(keep=%d)", UntaggedRetainNewestName, p.Keep)
}

func (p UntaggedRetainNewest) Select(ctx context.Context, source types.VersionSource,
) ([]types.PackageVersion, error) {
	candidates, err := GetUntaggedCandidates(ctx, source)
	if err != nil {
		return nil, err
	}

	return NewLatestUpdate(p.Keep).Perform(candidates), nil
}

type TaggedRegexPlusUntagged struct {
	Matcher      *TagMatcher
	TaggedKeep   int
	UntaggedKeep int
}

func NewTaggedRegexPlusUntagged(pattern string, taggedKeep, untaggedKeep int) (TaggedRegexPlusUntagged, error) {
	if taggedKeep < 0 || untaggedKeep < 0 {
		return TaggedRegexPlusUntagged{}, fmt.Errorf("%w: tagged keep %d, untagged keep %d",
			zerr.ErrNegativeKeepCount, taggedKeep, untaggedKeep)
	}

	matcher, err := NewTagMatcher(pattern)
	if err != nil {
		return TaggedRegexPlusUntagged{}, err
	}

	return TaggedRegexPlusUntagged{Matcher: matcher, TaggedKeep: taggedKeep, UntaggedKeep: untaggedKeep}, nil
}

func (p TaggedRegexPlusUntagged) Name() string {
	return TaggedRegexPlusUntaggedName
}

func (p TaggedRegexPlusUntagged) String() string {
	return fmt.Sprintf("%s(regex=%s, taggedKeep=%d, untaggedKeep=%d)",
		TaggedRegexPlusUntaggedName, p.Matcher, p.TaggedKeep, p.UntaggedKeep)
}

// Select ranks both buckets independently, the result is the tagged overflow followed by the untagged one.
func (p TaggedRegexPlusUntagged) Select(ctx context.Context, source types.VersionSource,
) ([]types.PackageVersion, error) {
	matched, untaggedVersions, err := GetBucketedCandidates(ctx, source, p.Matcher)
	if err != nil {
		return nil, err
	}

	toDelete := make([]types.PackageVersion, 0, len(matched)+len(untaggedVersions))
	toDelete = append(toDelete, NewLatestUpdate(p.TaggedKeep).Perform(matched)...)
	toDelete = append(toDelete, NewLatestUpdate(p.UntaggedKeep).Perform(untaggedVersions)...)

	return toDelete, nil
}

// Select picks the policy to run. Precedence when several inputs are set:
// tag, then untagged-keep-latest, then tagged-keep-latest with tag-regex.
func Select(policyConf config.PolicyConfig, log zlog.Logger) (types.Policy, error) {
	var (
		policy types.Policy
		used   []string
		err    error
	)

	switch {
	case policyConf.Tag != nil:
		policy = NewByExactTag(*policyConf.Tag)
		used = []string{config.TagKey}
	case policyConf.UntaggedKeepLatest != nil:
		policy, err = NewUntaggedRetainNewest(*policyConf.UntaggedKeepLatest)
		used = []string{config.UntaggedKeepLatestKey}
	case policyConf.TaggedKeepLatest != nil && policyConf.TagRegex != nil:
		// untagged-keep-latest takes precedence over this policy, so here it is always unset and
		// every untagged version overflows.
		policy, err = NewTaggedRegexPlusUntagged(*policyConf.TagRegex, *policyConf.TaggedKeepLatest, 0)
		used = []string{config.TaggedKeepLatestKey, config.TagRegexKey}
	default:
		log.Error().Err(zerr.ErrNoPolicy).Strs("defined", policyConf.Defined()).
			Msg("failed to select a retention policy")

		return nil, zerr.ErrNoPolicy
	}

	if err != nil {
		return nil, err
	}

	ignored := make([]string, 0)

	for _, key := range policyConf.Defined() {
		if !slices.Contains(used, key) && key != config.UntaggedOlderThanKey {
			ignored = append(ignored, key)
		}
	}

	if len(ignored) > 0 {
		log.Warn().Str("policy", policy.Name()).Strs("ignored", ignored).
			Msg("several retention policies configured, lower precedence inputs are ignored")
	}

	log.Info().Str("policy", fmt.Sprint(policy)).Msg("selected retention policy")

	return policy, nil
}
