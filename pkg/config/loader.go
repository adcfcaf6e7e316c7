package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	zerr "github.com/ghcr-retention/ghcr-retention/errors"
	zlog "github.com/ghcr-retention/ghcr-retention/pkg/log"
)

// EnvPrefix follows the GitHub Actions convention, input "untagged-keep-latest" is
// read from INPUT_UNTAGGED-KEEP-LATEST.
const EnvPrefix = "INPUT_"

// Inputs maps every input name, used for flags and environment variables, to its config key.
//
//nolint:gochecknoglobals
var Inputs = map[string]string{
	"owner":                OwnerKey,
	"owner-type":           OwnerTypeKey,
	"name":                 NameKey,
	"package-type":         PackageTypeKey,
	"token":                TokenKey,
	"tag":                  TagKey,
	"untagged-keep-latest": UntaggedKeepLatestKey,
	"untagged-older-than":  UntaggedOlderThanKey,
	"tagged-keep-latest":   TaggedKeepLatestKey,
	"tag-regex":            TagRegexKey,
	"dry-run":              DryRunKey,
	"strict":               StrictKey,
	"github-url":           GitHubURLKey,
	"github-per-page":      GitHubPerPageKey,
	"github-retries":       GitHubRetriesKey,
	"github-timeout":       GitHubTimeoutKey,
	"log-level":            LogLevelKey,
	"log-output":           LogOutputKey,
	"log-format":           LogFormatKey,
	"log-audit":            LogAuditKey,
	"metrics-textfile":     MetricsTextfileKey,
}

// Load fills config from defaults, the optional config file, the environment and flags, in
// increasing priority, then validates it.
func Load(config *Config, configPath string, flags *pflag.FlagSet, log zlog.Logger) error {
	// Default is dot (.) but tag regexes may contain dots.
	viperInstance := viper.NewWithOptions(viper.KeyDelimiter("::"))

	setDefaults(viperInstance)

	if configPath != "" {
		if err := readConfigFile(viperInstance, configPath, log); err != nil {
			return err
		}
	}

	if err := bindInputs(viperInstance, flags); err != nil {
		return err
	}

	if err := unmarshal(viperInstance, config, log); err != nil {
		return err
	}

	return Validate(config, log)
}

// LoadFromFile reads and validates a config file only, environment and flags are ignored.
func LoadFromFile(config *Config, configPath string, log zlog.Logger) error {
	viperInstance := viper.NewWithOptions(viper.KeyDelimiter("::"))

	setDefaults(viperInstance)

	if err := readConfigFile(viperInstance, configPath, log); err != nil {
		return err
	}

	if err := unmarshal(viperInstance, config, log); err != nil {
		return err
	}

	return Validate(config, log)
}

func setDefaults(viperInstance *viper.Viper) {
	defaults := New()

	viperInstance.SetDefault(OwnerTypeKey, defaults.OwnerType)
	viperInstance.SetDefault(PackageTypeKey, defaults.PackageType)
	viperInstance.SetDefault(GitHubURLKey, defaults.GitHub.URL)
	viperInstance.SetDefault(GitHubPerPageKey, defaults.GitHub.PerPage)
	viperInstance.SetDefault(GitHubRetriesKey, defaults.GitHub.Retries)
	viperInstance.SetDefault(GitHubTimeoutKey, defaults.GitHub.Timeout)
	viperInstance.SetDefault(LogLevelKey, defaults.Log.Level)
	viperInstance.SetDefault(LogFormatKey, defaults.Log.Format)
}

func readConfigFile(viperInstance *viper.Viper, configPath string, log zlog.Logger) error {
	ext := strings.TrimPrefix(filepath.Ext(configPath), ".")

	viperInstance.SetConfigFile(configPath)

	// a file named without a supported extension, eg: ".retention", is tried with every config type
	if slices.Contains(viper.SupportedExts, ext) {
		if err := viperInstance.ReadInConfig(); err != nil {
			log.Error().Err(err).Str("path", configPath).Msg("failed to read configuration")

			return err
		}

		return nil
	}

	log.Info().Str("path", configPath).Msg("config file with no extension, trying all supported config types")

	var err error

	for _, configType := range viper.SupportedExts {
		viperInstance.SetConfigType(configType)

		err = viperInstance.ReadInConfig()
		if err == nil {
			return nil
		}
	}

	log.Error().Err(err).Str("path", configPath).Msg("failed to read configuration, tried all supported config types")

	return err
}

func bindInputs(viperInstance *viper.Viper, flags *pflag.FlagSet) error {
	for input, key := range Inputs {
		envNames := []string{EnvPrefix + strings.ToUpper(input)}
		if key == TokenKey {
			envNames = append(envNames, "GITHUB_TOKEN")
		}

		if err := viperInstance.BindEnv(append([]string{key}, envNames...)...); err != nil {
			return err
		}

		if flags == nil {
			continue
		}

		if flag := flags.Lookup(input); flag != nil {
			if err := viperInstance.BindPFlag(key, flag); err != nil {
				return err
			}
		}
	}

	return nil
}

func unmarshal(viperInstance *viper.Viper, config *Config, log zlog.Logger) error {
	metaData := &mapstructure.Metadata{}

	decoderOpts := []viper.DecoderConfigOption{
		metadataConfig(metaData),
		viper.DecodeHook(
			// inputStringHookFunc may return nil, it has to run last
			mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				inputStringHookFunc(),
			),
		),
	}

	if err := viperInstance.Unmarshal(config, decoderOpts...); err != nil {
		log.Error().Err(err).Msg("failed to unmarshal configuration")

		return fmt.Errorf("%w: %w", zerr.ErrBadConfig, err)
	}

	if len(metaData.Unused) > 0 {
		msg := "failed to load config due to unknown keys"
		log.Error().Err(zerr.ErrBadConfig).Strs("keys", metaData.Unused).Msg(msg)

		return fmt.Errorf("%w: %s: %s", zerr.ErrBadConfig, msg, strings.Join(metaData.Unused, ", "))
	}

	return nil
}

// metadataConfig reports metadata after parsing, which we use to track
// errors.
func metadataConfig(md *mapstructure.Metadata) viper.DecoderConfigOption {
	return func(c *mapstructure.DecoderConfig) {
		c.Metadata = md
	}
}

// inputStringHookFunc decodes action inputs, which are always strings: an empty string leaves an
// optional field unset and a count that is not an integer is rejected.
func inputStringHookFunc() mapstructure.DecodeHookFuncValue {
	return func(from reflect.Value, to reflect.Value) (interface{}, error) {
		if from.Kind() != reflect.String {
			return from.Interface(), nil
		}

		str := strings.TrimSpace(from.String())
		target := to.Type()

		if target.Kind() == reflect.Ptr {
			if str == "" {
				return nil, nil //nolint: nilnil
			}

			target = target.Elem()
		}

		if target.Kind() != reflect.Int || str == "" {
			return from.Interface(), nil
		}

		number, err := strconv.Atoi(str)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", zerr.ErrNotANumber, str)
		}

		return number, nil
	}
}
