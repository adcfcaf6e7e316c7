package report

import (
	"fmt"
	"os"
	"strconv"

	"github.com/sethvargo/go-githubactions"

	"github.com/ghcr-retention/ghcr-retention/pkg/retention"
	"github.com/ghcr-retention/ghcr-retention/pkg/retention/types"
)

const (
	deletedOutput  = "deleted-count"
	selectedOutput = "selected-count"
)

// InActions reports whether the process runs as a GitHub Actions step.
func InActions() bool {
	return os.Getenv("GITHUB_ACTIONS") == "true"
}

// ActionsReporter writes workflow commands around the deletions: a log group, one line per
// deleted version and the step outputs.
type ActionsReporter struct {
	action   *githubactions.Action
	grouped  bool
	selected int
	deleted  int
}

func NewActionsReporter(action *githubactions.Action) *ActionsReporter {
	return &ActionsReporter{action: action}
}

func (r *ActionsReporter) Planned(policy string, candidates []types.PackageVersion) {
	r.selected = len(candidates)

	// a single exact tag deletion is not worth a group
	if policy == retention.ByExactTagName {
		return
	}

	r.action.Group(fmt.Sprintf("delete %d package versions", len(candidates)))
	r.grouped = true
}

func (r *ActionsReporter) Deleted(version types.PackageVersion) {
	r.deleted++

	r.action.Infof("package version #%d deleted", version.ID)
}

func (r *ActionsReporter) Failed(version types.PackageVersion, err error) {
	r.action.Warningf("package version #%d could not be deleted", version.ID)
}

func (r *ActionsReporter) Finished(err error) {
	if r.grouped {
		r.action.EndGroup()
		r.grouped = false
	}

	r.action.SetOutput(selectedOutput, strconv.Itoa(r.selected))
	r.action.SetOutput(deletedOutput, strconv.Itoa(r.deleted))
}

// Fail annotates the step with err, the workflow run shows it in its summary.
func Fail(action *githubactions.Action, err error) {
	action.Errorf("%s", err)
}
