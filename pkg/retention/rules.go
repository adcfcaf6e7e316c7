package retention

import (
	"fmt"
	"slices"

	"github.com/ghcr-retention/ghcr-retention/pkg/retention/types"
)

const latestUpdateName = "mostRecentlyUpdatedCount"

type latestUpdate struct {
	count int
}

func NewLatestUpdate(count int) types.Rule {
	return latestUpdate{count: count}
}

func (lu latestUpdate) Name() string {
	return fmt.Sprintf("%s:%d", latestUpdateName, lu.count)
}

// Perform sorts a copy of candidates newest first and returns everything past the first count.
// Versions with equal timestamps keep their source order.
func (lu latestUpdate) Perform(candidates []types.PackageVersion) []types.PackageVersion {
	sorted := slices.Clone(candidates)

	slices.SortStableFunc(sorted, func(a, b types.PackageVersion) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})

	if lu.count >= len(sorted) {
		return []types.PackageVersion{}
	}

	return sorted[lu.count:]
}
