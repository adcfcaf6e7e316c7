package retention_test

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/ghcr-retention/ghcr-retention/pkg/retention/types"
)

var errOverConsumed = errors.New("source read past the expected point")

// sliceSource yields versions in order, then tail if it is set.
type sliceSource struct {
	versions []types.PackageVersion
	tail     error
	pulled   int
	streams  int
}

func (s *sliceSource) Versions(ctx context.Context) iter.Seq2[types.PackageVersion, error] {
	s.streams++

	return func(yield func(types.PackageVersion, error) bool) {
		for _, version := range s.versions {
			s.pulled++

			if !yield(version, nil) {
				return
			}
		}

		if s.tail != nil {
			yield(types.PackageVersion{}, s.tail)
		}
	}
}

func day(date string) time.Time {
	parsed, err := time.Parse(time.DateOnly, date)
	if err != nil {
		panic(err)
	}

	return parsed
}

func version(id int64, updatedAt string, tags ...string) types.PackageVersion {
	return types.PackageVersion{
		ID:        id,
		Name:      "sha256:" + string(rune('a'+id%26)),
		Tags:      tags,
		UpdatedAt: day(updatedAt),
	}
}

func ids(versions []types.PackageVersion) []int64 {
	result := make([]int64, 0, len(versions))
	for _, v := range versions {
		result = append(result, v.ID)
	}

	return result
}
