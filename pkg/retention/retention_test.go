package retention_test

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	zerr "github.com/ghcr-retention/ghcr-retention/errors"
	"github.com/ghcr-retention/ghcr-retention/pkg/config"
	"github.com/ghcr-retention/ghcr-retention/pkg/log"
	"github.com/ghcr-retention/ghcr-retention/pkg/retention"
	"github.com/ghcr-retention/ghcr-retention/pkg/retention/types"
)

func TestByExactTag(t *testing.T) {
	ctx := context.Background()

	Convey("Exact tag lookup", t, func() {
		source := &sliceSource{
			versions: []types.PackageVersion{
				version(1, "2024-01-01", "v1", "v2"),
				version(2, "2024-02-01", "latest"),
				version(3, "2024-03-01"),
			},
		}

		Convey("returns the first version carrying the tag", func() {
			candidates, err := retention.NewByExactTag("v2").Select(ctx, source)
			So(err, ShouldBeNil)
			So(ids(candidates), ShouldResemble, []int64{1})
		})

		Convey("stops reading at the match", func() {
			source.tail = errOverConsumed

			candidates, err := retention.NewByExactTag("latest").Select(ctx, source)
			So(err, ShouldBeNil)
			So(ids(candidates), ShouldResemble, []int64{2})
			So(source.pulled, ShouldEqual, 2)
		})

		Convey("first match wins when a tag is duplicated", func() {
			source.versions = append(source.versions, version(4, "2024-04-01", "latest"))

			found, err := retention.FindByTag(ctx, source, "latest")
			So(err, ShouldBeNil)
			So(found.ID, ShouldEqual, 2)
		})

		Convey("a miss reports every tag seen", func() {
			_, err := retention.NewByExactTag("v3").Select(ctx, source)
			So(errors.Is(err, zerr.ErrTagNotFound), ShouldBeTrue)

			var notFound *retention.TagNotFoundError
			So(errors.As(err, &notFound), ShouldBeTrue)
			So(notFound.Tag, ShouldEqual, "v3")
			So(notFound.Available, ShouldResemble, []string{"latest", "v1", "v2"})
			So(err.Error(), ShouldContainSubstring, "available tags: latest, v1, v2")
			So(source.pulled, ShouldEqual, 3)
		})

		Convey("the tag set is deduplicated", func() {
			source.versions = append(source.versions, version(4, "2024-04-01", "v1", "latest"))

			_, err := retention.NewByExactTag("v9").Select(ctx, source)

			var notFound *retention.TagNotFoundError
			So(errors.As(err, &notFound), ShouldBeTrue)
			So(notFound.Available, ShouldResemble, []string{"latest", "v1", "v2"})
		})

		Convey("an empty source is a miss with no tags", func() {
			_, err := retention.NewByExactTag("v1").Select(ctx, &sliceSource{})

			var notFound *retention.TagNotFoundError
			So(errors.As(err, &notFound), ShouldBeTrue)
			So(notFound.Available, ShouldBeEmpty)
		})

		Convey("source errors are wrapped", func() {
			_, err := retention.NewByExactTag("v1").Select(ctx, &sliceSource{tail: errors.New("401 bad credentials")})
			So(errors.Is(err, zerr.ErrSourceFailed), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "bad credentials")
		})
	})
}

func TestUntaggedRetainNewest(t *testing.T) {
	ctx := context.Background()

	Convey("Untagged retention", t, func() {
		Convey("keeps the newest", func() {
			source := &sliceSource{
				versions: []types.PackageVersion{
					version(1, "2024-01-01"),
					version(2, "2024-03-01"),
				},
			}

			policy, err := retention.NewUntaggedRetainNewest(1)
			So(err, ShouldBeNil)

			candidates, err := policy.Select(ctx, source)
			So(err, ShouldBeNil)
			So(ids(candidates), ShouldResemble, []int64{1})
		})

		source := &sliceSource{
			versions: []types.PackageVersion{
				version(1, "2024-02-01"),
				version(2, "2024-05-01", "v2"),
				version(3, "2024-04-01"),
				version(4, "2024-01-01"),
				version(5, "2024-03-01"),
				version(6, "2023-01-01", "v1"),
			},
		}

		Convey("tagged versions are never selected and the result is oldest last", func() {
			policy, _ := retention.NewUntaggedRetainNewest(2)

			candidates, err := policy.Select(ctx, source)
			So(err, ShouldBeNil)
			So(ids(candidates), ShouldResemble, []int64{1, 4})
			So(source.pulled, ShouldEqual, 6)
		})

		Convey("selected versions are older than every retained one", func() {
			for keep := 0; keep <= 5; keep++ {
				policy, _ := retention.NewUntaggedRetainNewest(keep)

				candidates, err := policy.Select(ctx, source)
				So(err, ShouldBeNil)
				So(len(candidates), ShouldEqual, max(0, 4-keep))

				selected := map[int64]bool{}
				for _, candidate := range candidates {
					So(candidate.IsUntagged(), ShouldBeTrue)

					selected[candidate.ID] = true
				}

				retained := make([]types.PackageVersion, 0)
				for _, v := range source.versions {
					if v.IsUntagged() && !selected[v.ID] {
						retained = append(retained, v)
					}
				}

				So(len(retained), ShouldEqual, min(keep, 4))

				for _, candidate := range candidates {
					for _, kept := range retained {
						So(candidate.UpdatedAt.Before(kept.UpdatedAt), ShouldBeTrue)
					}
				}

				again, err := policy.Select(ctx, source)
				So(err, ShouldBeNil)
				So(again, ShouldResemble, candidates)
			}
		})

		Convey("equal timestamps keep source order", func() {
			source := &sliceSource{
				versions: []types.PackageVersion{
					version(1, "2024-01-01"),
					version(2, "2024-01-01"),
					version(3, "2024-01-01"),
					version(4, "2024-02-01"),
				},
			}

			policy, _ := retention.NewUntaggedRetainNewest(2)

			candidates, err := policy.Select(ctx, source)
			So(err, ShouldBeNil)
			So(ids(candidates), ShouldResemble, []int64{2, 3})
		})

		Convey("keep 0 selects every untagged version", func() {
			policy, _ := retention.NewUntaggedRetainNewest(0)

			candidates, err := policy.Select(ctx, source)
			So(err, ShouldBeNil)
			So(ids(candidates), ShouldResemble, []int64{3, 5, 1, 4})
		})

		Convey("keep past the count selects nothing", func() {
			policy, _ := retention.NewUntaggedRetainNewest(10)

			candidates, err := policy.Select(ctx, source)
			So(err, ShouldBeNil)
			So(candidates, ShouldBeEmpty)
		})

		Convey("negative keep is rejected", func() {
			_, err := retention.NewUntaggedRetainNewest(-1)
			So(errors.Is(err, zerr.ErrNegativeKeepCount), ShouldBeTrue)
		})

		Convey("source errors abort", func() {
			source.tail = errors.New("502")

			policy, _ := retention.NewUntaggedRetainNewest(1)

			_, err := policy.Select(ctx, source)
			So(errors.Is(err, zerr.ErrSourceFailed), ShouldBeTrue)
		})
	})
}

func TestTaggedRegexPlusUntagged(t *testing.T) {
	ctx := context.Background()

	Convey("Tagged regex plus untagged retention", t, func() {
		Convey("overflow of both buckets is selected", func() {
			source := &sliceSource{
				versions: []types.PackageVersion{
					version(1, "2024-01-01", "rc-1"),
					version(2, "2024-02-01", "rc-2"),
					version(3, "2024-03-01"),
				},
			}

			policy, err := retention.NewTaggedRegexPlusUntagged("^rc-", 1, 0)
			So(err, ShouldBeNil)

			candidates, err := policy.Select(ctx, source)
			So(err, ShouldBeNil)
			So(ids(candidates), ShouldResemble, []int64{1, 3})
		})

		source := &sliceSource{
			versions: []types.PackageVersion{
				version(1, "2024-01-01", "rc-1"),
				version(2, "2024-01-02", "release", "rc-2"),
				version(3, "2024-01-03", "rc-3"),
				version(4, "2023-01-01", "stable"),
				version(5, "2024-01-04"),
				version(6, "2024-01-05"),
				version(7, "2024-01-06"),
			},
		}

		Convey("a version needs one matching tag", func() {
			policy, _ := retention.NewTaggedRegexPlusUntagged("^rc-", 0, 3)

			candidates, err := policy.Select(ctx, source)
			So(err, ShouldBeNil)
			So(ids(candidates), ShouldResemble, []int64{3, 2, 1})
		})

		Convey("non matching tagged versions are never selected", func() {
			for taggedKeep := 0; taggedKeep <= 4; taggedKeep++ {
				for untaggedKeep := 0; untaggedKeep <= 4; untaggedKeep++ {
					policy, _ := retention.NewTaggedRegexPlusUntagged("^rc-", taggedKeep, untaggedKeep)

					candidates, err := policy.Select(ctx, source)
					So(err, ShouldBeNil)
					So(ids(candidates), ShouldNotContain, int64(4))
				}
			}
		})

		Convey("buckets are independent", func() {
			tagged := func(taggedKeep, untaggedKeep int) ([]int64, []int64) {
				policy, _ := retention.NewTaggedRegexPlusUntagged("^rc-", taggedKeep, untaggedKeep)

				candidates, err := policy.Select(ctx, source)
				So(err, ShouldBeNil)

				matched, untagged := []int64{}, []int64{}
				for _, candidate := range candidates {
					if candidate.IsUntagged() {
						untagged = append(untagged, candidate.ID)
					} else {
						matched = append(matched, candidate.ID)
					}
				}

				return matched, untagged
			}

			matchedLow, untaggedA := tagged(1, 0)
			matchedHigh, untaggedB := tagged(1, 3)
			So(matchedLow, ShouldResemble, []int64{2, 1})
			So(matchedHigh, ShouldResemble, matchedLow)
			So(untaggedA, ShouldResemble, []int64{7, 6, 5})
			So(untaggedB, ShouldBeEmpty)

			_, untaggedC := tagged(0, 2)
			_, untaggedD := tagged(3, 2)
			So(untaggedC, ShouldResemble, []int64{5})
			So(untaggedD, ShouldResemble, untaggedC)
		})

		Convey("equal timestamps keep source order in both buckets", func() {
			source := &sliceSource{
				versions: []types.PackageVersion{
					version(1, "2024-01-01", "rc-1"),
					version(2, "2024-01-01"),
					version(3, "2024-01-01", "rc-3"),
					version(4, "2024-01-01"),
					version(5, "2024-01-01", "rc-5"),
					version(6, "2024-01-01"),
					version(7, "2024-02-01", "rc-7"),
					version(8, "2024-02-01"),
				},
			}

			policy, _ := retention.NewTaggedRegexPlusUntagged("^rc-", 2, 2)

			candidates, err := policy.Select(ctx, source)
			So(err, ShouldBeNil)
			So(ids(candidates), ShouldResemble, []int64{3, 5, 4, 6})
		})

		Convey("the regex is unanchored", func() {
			policy, _ := retention.NewTaggedRegexPlusUntagged("able", 0, 3)

			candidates, err := policy.Select(ctx, source)
			So(err, ShouldBeNil)
			So(ids(candidates), ShouldResemble, []int64{4})
		})

		Convey("the source is read once", func() {
			policy, _ := retention.NewTaggedRegexPlusUntagged("^rc-", 1, 1)

			_, err := policy.Select(ctx, source)
			So(err, ShouldBeNil)
			So(source.streams, ShouldEqual, 1)
		})

		Convey("invalid arguments", func() {
			_, err := retention.NewTaggedRegexPlusUntagged("rc-(", 1, 0)
			So(errors.Is(err, zerr.ErrBadTagRegex), ShouldBeTrue)

			_, err = retention.NewTaggedRegexPlusUntagged("^rc-", -1, 0)
			So(errors.Is(err, zerr.ErrNegativeKeepCount), ShouldBeTrue)
		})
	})
}

func TestSelect(t *testing.T) {
	logger := log.NewNopLogger()

	tag := "v1"
	regex := "^rc-"
	zero, three := 0, 3

	Convey("Policy selection", t, func() {
		Convey("tag has precedence over everything", func() {
			policy, err := retention.Select(config.PolicyConfig{
				Tag:                &tag,
				UntaggedKeepLatest: &three,
				TaggedKeepLatest:   &three,
				TagRegex:           &regex,
			}, logger)
			So(err, ShouldBeNil)
			So(policy.Name(), ShouldEqual, retention.ByExactTagName)
			So(policy, ShouldResemble, retention.NewByExactTag("v1"))
		})

		Convey("untagged keep comes next and zero is honoured", func() {
			policy, err := retention.Select(config.PolicyConfig{
				UntaggedKeepLatest: &zero,
				TaggedKeepLatest:   &three,
				TagRegex:           &regex,
			}, logger)
			So(err, ShouldBeNil)
			So(policy.Name(), ShouldEqual, retention.UntaggedRetainNewestName)
			So(policy.(retention.UntaggedRetainNewest).Keep, ShouldEqual, 0)
		})

		Convey("regex policy deletes every untagged version", func() {
			policy, err := retention.Select(config.PolicyConfig{TaggedKeepLatest: &three, TagRegex: &regex}, logger)
			So(err, ShouldBeNil)
			So(policy.Name(), ShouldEqual, retention.TaggedRegexPlusUntaggedName)

			regexPolicy, ok := policy.(retention.TaggedRegexPlusUntagged)
			So(ok, ShouldBeTrue)
			So(regexPolicy.TaggedKeep, ShouldEqual, 3)
			So(regexPolicy.UntaggedKeep, ShouldEqual, 0)
			So(regexPolicy.Matcher.String(), ShouldEqual, regex)
		})

		Convey("no recognized combination is fatal", func() {
			_, err := retention.Select(config.PolicyConfig{}, logger)
			So(err, ShouldEqual, zerr.ErrNoPolicy)

			_, err = retention.Select(config.PolicyConfig{TagRegex: &regex}, logger)
			So(err, ShouldEqual, zerr.ErrNoPolicy)

			_, err = retention.Select(config.PolicyConfig{UntaggedOlderThan: &three}, logger)
			So(err, ShouldEqual, zerr.ErrNoPolicy)
		})
	})
}
