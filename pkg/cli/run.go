package cli

import (
	"errors"
	"net/http"
	"time"

	"github.com/sethvargo/go-githubactions"
	"github.com/spf13/cobra"

	"github.com/ghcr-retention/ghcr-retention/pkg/config"
	"github.com/ghcr-retention/ghcr-retention/pkg/ghcr"
	zlog "github.com/ghcr-retention/ghcr-retention/pkg/log"
	"github.com/ghcr-retention/ghcr-retention/pkg/monitoring"
	"github.com/ghcr-retention/ghcr-retention/pkg/report"
	"github.com/ghcr-retention/ghcr-retention/pkg/retention"
)

func newRunCmd(httpClient *http.Client) *cobra.Command {
	// "run"
	runCmd := &cobra.Command{
		Use:   "run [config]",
		Short: "`run` deletes the package versions selected by the configured policy",
		Long: "`run` deletes the package versions selected by the configured policy.\n\n" +
			"Deletions happen one at a time, the first failure ends the run and " +
			"versions deleted before it stay deleted.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRetention(cmd, args, false, httpClient)
		},
	}

	addInputFlags(runCmd.Flags())

	return runCmd
}

func newPlanCmd(httpClient *http.Client) *cobra.Command {
	// "plan"
	planCmd := &cobra.Command{
		Use:   "plan [config]",
		Short: "`plan` lists the package versions `run` would delete",
		Long:  "`plan` lists the package versions `run` would delete, it is `run` with dry-run forced on",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRetention(cmd, args, true, httpClient)
		},
	}

	addInputFlags(planCmd.Flags())

	return planCmd
}

func runRetention(cmd *cobra.Command, args []string, forceDryRun bool, httpClient *http.Client) error {
	configPath := ""
	if len(args) > 0 {
		configPath = args[0]
	}

	conf := config.New()

	if err := config.Load(conf, configPath, cmd.Flags(), zlog.NewWriterLogger("info", cmd.ErrOrStderr())); err != nil {
		return err
	}

	// Do not show usage on errors which are not related to command line arguments
	cmd.SilenceUsage = true

	if forceDryRun {
		conf.DryRun = true
	}

	logger := newLogger(conf.Log, cmd)
	logger.Info().Interface("params", conf.Sanitize()).Msg("configuration settings")

	var auditLog *zlog.Logger
	if conf.Log.Audit != "" {
		auditLog = zlog.NewAuditLogger(conf.Log.Level, conf.Log.Audit)
	}

	policy, err := retention.Select(conf.PolicyConfig, logger)
	if err != nil {
		return err
	}

	client, err := newGitHubClient(cmd, conf, httpClient, logger)
	if err != nil {
		return err
	}

	metrics := monitoring.NewMetrics(logger)

	reporters := retention.Reporters{metrics}
	if report.InActions() {
		reporters = append(reporters, report.NewActionsReporter(githubactions.New()))
	}

	driver := retention.NewDriver(metrics.WrapSource(client), client, conf.DryRun, reporters, logger, auditLog)

	result, err := driver.Run(cmd.Context(), policy)
	if result.DryRun {
		report.PrintPlan(cmd.OutOrStdout(), result.Candidates, time.Now())
	} else {
		report.PrintPlan(cmd.OutOrStdout(), result.Deleted, time.Now())
	}

	if conf.Metrics.Textfile != "" {
		err = errors.Join(err, metrics.WriteTextfile(conf.Metrics.Textfile))
	}

	return err
}

func newLogger(logConf config.LogConfig, cmd *cobra.Command) zlog.Logger {
	if logConf.Output != "" {
		return zlog.NewLoggerWithFormat(logConf.Level, logConf.Output, logConf.Format)
	}

	return zlog.NewWriterLoggerWithFormat(logConf.Level, logConf.Format, cmd.ErrOrStderr())
}

func newGitHubClient(cmd *cobra.Command, conf *config.Config, httpClient *http.Client, logger zlog.Logger,
) (*ghcr.Client, error) {
	target := ghcr.TargetFromConfig(conf)

	if httpClient != nil {
		return ghcr.NewClientWithHTTP(httpClient, conf.GitHub, target, logger)
	}

	return ghcr.NewClient(cmd.Context(), conf.GitHub, conf.Token, target, logger)
}
