package cli

import (
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ghcr-retention/ghcr-retention/pkg/config"
	zlog "github.com/ghcr-retention/ghcr-retention/pkg/log"
)

// "ghcr-retention" - package version retention.
func NewRootCmd() *cobra.Command {
	return newRootCmd(nil)
}

// httpClient replaces the authenticated GitHub transport when set.
func newRootCmd(httpClient *http.Client) *cobra.Command {
	showVersion := false

	rootCmd := &cobra.Command{
		Use:   "ghcr-retention",
		Short: "`ghcr-retention` deletes GitHub package versions by retention policy",
		Long: "`ghcr-retention` deletes GitHub package versions by retention policy.\n\n" +
			"Inputs come from an optional config file, INPUT_<NAME> environment variables and flags, " +
			"in increasing priority.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := zlog.NewWriterLogger("info", cmd.ErrOrStderr())

			if showVersion {
				logger.Info().Str("release-tag", config.ReleaseTag).Str("commit", config.Commit).
					Str("go version", config.GoVersion).Msg("version")
			} else {
				_ = cmd.Usage()
				cmd.SilenceErrors = false
			}

			return nil
		},
	}

	// "run"
	rootCmd.AddCommand(newRunCmd(httpClient))
	// "plan"
	rootCmd.AddCommand(newPlanCmd(httpClient))
	// "verify"
	rootCmd.AddCommand(newVerifyCmd())
	// "version"
	rootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "show the version and exit")

	return rootCmd
}

// addInputFlags registers one flag per input, values are parsed by the config loader.
func addInputFlags(flags *pflag.FlagSet) {
	for input := range config.Inputs {
		switch input {
		case "dry-run", "strict":
			flags.Bool(input, false, inputUsage[input])
		default:
			flags.String(input, "", inputUsage[input])
		}
	}
}

//nolint:gochecknoglobals
var inputUsage = map[string]string{
	"owner":                "user or organization owning the package",
	"owner-type":           "org or user",
	"name":                 "package name",
	"package-type":         "npm, maven, rubygems, docker, nuget or container",
	"token":                "token with the delete:packages scope, defaults to GITHUB_TOKEN",
	"tag":                  "delete the version carrying this tag",
	"untagged-keep-latest": "delete untagged versions except the N most recently updated",
	"untagged-older-than":  "accepted for compatibility, no policy uses it",
	"tagged-keep-latest":   "delete versions with a tag matching tag-regex except the N most recently updated",
	"tag-regex":            "regular expression selecting tagged versions",
	"dry-run":              "print the versions that would be deleted",
	"strict":               "reject configurations enabling several policies",
	"github-url":           "GitHub API base URL",
	"github-per-page":      "versions requested per page",
	"github-retries":       "retries of a failed GitHub request",
	"github-timeout":       "timeout of a single GitHub request",
	"log-level":            "log level",
	"log-output":           "log file, stderr when empty",
	"log-format":           "json or console",
	"log-audit":            "audit log file recording every decision",
	"metrics-textfile":     "write run metrics to this file in the prometheus text format",
}
