package retention

import (
	"context"
	"fmt"

	zerr "github.com/ghcr-retention/ghcr-retention/errors"
	zlog "github.com/ghcr-retention/ghcr-retention/pkg/log"
	"github.com/ghcr-retention/ghcr-retention/pkg/retention/types"
)

const deletedByFormat = "selected by %s policy"

type Result struct {
	Policy     string
	Candidates []types.PackageVersion
	Deleted    []types.PackageVersion
	DryRun     bool
}

type Driver struct {
	source   types.VersionSource
	deleter  types.Deleter
	dryRun   bool
	reporter types.Reporter
	log      zlog.Logger
	auditLog *zlog.Logger
}

// NewDriver wires a source and a deleter, reporter and auditLog may be nil.
func NewDriver(source types.VersionSource, deleter types.Deleter, dryRun bool, reporter types.Reporter,
	log zlog.Logger, auditLog *zlog.Logger,
) *Driver {
	if reporter == nil {
		reporter = NopReporter{}
	}

	return &Driver{
		source:   source,
		deleter:  deleter,
		dryRun:   dryRun,
		reporter: reporter,
		log:      log,
		auditLog: auditLog,
	}
}

// Run selects versions with policy then deletes them one at a time. The first failed deletion
// ends the run, versions deleted before it stay deleted.
func (d *Driver) Run(ctx context.Context, policy types.Policy) (result Result, err error) {
	defer func() {
		d.reporter.Finished(err)
	}()

	result = Result{Policy: policy.Name(), DryRun: d.dryRun, Deleted: []types.PackageVersion{}}

	d.log.Info().Str("policy", fmt.Sprint(policy)).Msg("searching package versions to delete")

	candidates, err := policy.Select(ctx, d.source)
	if err != nil {
		d.log.Error().Err(err).Str("policy", policy.Name()).Msg("failed to select package versions")

		return result, err
	}

	result.Candidates = candidates

	reason := fmt.Sprintf(deletedByFormat, policy.Name())
	for _, candidate := range candidates {
		logAction("delete", reason, candidate, d.dryRun, &d.log)

		if d.auditLog != nil {
			logAction("delete", reason, candidate, d.dryRun, d.auditLog)
		}
	}

	d.reporter.Planned(policy.Name(), candidates)

	if d.dryRun {
		d.log.Info().Int("count", len(candidates)).Msg("dry run, no package version deleted")

		return result, nil
	}

	d.log.Info().Int("count", len(candidates)).Msg("deleting package versions")

	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if err := d.deleter.DeleteVersion(ctx, candidate.ID); err != nil {
			d.log.Error().Err(err).Int64("id", candidate.ID).Msg("failed to delete package version")
			d.reporter.Failed(candidate, err)

			return result, fmt.Errorf("%w #%d: %w", zerr.ErrDeleteFailed, candidate.ID, err)
		}

		d.log.Info().Int64("id", candidate.ID).Strs("tags", candidate.Tags).Msg("deleted package version")
		d.reporter.Deleted(candidate)

		result.Deleted = append(result.Deleted, candidate)
	}

	return result, nil
}

func logAction(decision, reason string, version types.PackageVersion, dryRun bool, log *zlog.Logger) {
	log.Info().Str("module", "retention").
		Bool("dry-run", dryRun).
		Int64("id", version.ID).
		Str("name", version.Name).
		Strs("tags", version.Tags).
		Time("updatedAt", version.UpdatedAt).
		Str("decision", decision).
		Str("reason", reason).Msg("applied policy")
}

type NopReporter struct{}

func (NopReporter) Planned(string, []types.PackageVersion) {}

func (NopReporter) Deleted(types.PackageVersion) {}

func (NopReporter) Failed(types.PackageVersion, error) {}

func (NopReporter) Finished(error) {}

// Reporters fans every event out to each reporter in order.
type Reporters []types.Reporter

func (r Reporters) Planned(policy string, candidates []types.PackageVersion) {
	for _, reporter := range r {
		reporter.Planned(policy, candidates)
	}
}

func (r Reporters) Deleted(version types.PackageVersion) {
	for _, reporter := range r {
		reporter.Deleted(version)
	}
}

func (r Reporters) Failed(version types.PackageVersion, err error) {
	for _, reporter := range r {
		reporter.Failed(version, err)
	}
}

func (r Reporters) Finished(err error) {
	for _, reporter := range r {
		reporter.Finished(err)
	}
}
