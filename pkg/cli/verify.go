package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ghcr-retention/ghcr-retention/pkg/config"
	zlog "github.com/ghcr-retention/ghcr-retention/pkg/log"
	"github.com/ghcr-retention/ghcr-retention/pkg/retention"
)

func newVerifyCmd() *cobra.Command {
	// verify
	verifyCmd := &cobra.Command{
		Use:   "verify <config>",
		Short: "`verify` validates a config file",
		Long:  "`verify` validates a config file and resolves its policy, GitHub is not contacted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := zlog.NewWriterLogger("info", cmd.ErrOrStderr())

			cmd.SilenceUsage = true

			conf := config.New()
			if err := config.LoadFromFile(conf, args[0], logger); err != nil {
				logger.Error().Str("config", args[0]).Msg("invalid config file")

				return err
			}

			policy, err := retention.Select(conf.PolicyConfig, logger)
			if err != nil {
				logger.Error().Str("config", args[0]).Msg("invalid config file")

				return err
			}

			logger.Info().Str("config", args[0]).Str("policy", fmt.Sprint(policy)).Msg("config file is valid")

			return nil
		},
	}

	return verifyCmd
}
