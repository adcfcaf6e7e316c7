package types

import (
	"context"
	"iter"
	"time"
)

// PackageVersion is one published revision of a registry package.
type PackageVersion struct {
	ID        int64
	Name      string
	Tags      []string
	UpdatedAt time.Time
}

// IsUntagged is the only classification rule, no other field distinguishes tagged from untagged.
func (v PackageVersion) IsUntagged() bool {
	return len(v.Tags) == 0
}

// VersionSource yields every version of one package, fetching pages lazily.
// Breaking out of the range loop stops further fetching.
type VersionSource interface {
	Versions(ctx context.Context) iter.Seq2[PackageVersion, error]
}

type Deleter interface {
	DeleteVersion(ctx context.Context, id int64) error
}

// Policy selects the versions to delete from a source.
type Policy interface {
	Name() string
	Select(ctx context.Context, source VersionSource) ([]PackageVersion, error)
}

// Rule ranks a group of candidates and returns the ones it does not retain.
type Rule interface {
	Name() string
	Perform(candidates []PackageVersion) []PackageVersion
}

// Reporter observes a run, it never changes its outcome.
type Reporter interface {
	Planned(policy string, candidates []PackageVersion)
	Deleted(version PackageVersion)
	Failed(version PackageVersion, err error)
	Finished(err error)
}
