package config

import (
	"time"
)

var (
	Commit     string //nolint: gochecknoglobals
	ReleaseTag string //nolint: gochecknoglobals
	GoVersion  string //nolint: gochecknoglobals
)

const (
	OwnerKey              = "owner"
	OwnerTypeKey          = "owner-type"
	NameKey               = "name"
	PackageTypeKey        = "package-type"
	TokenKey              = "token"
	TagKey                = "tag"
	UntaggedKeepLatestKey = "untagged-keep-latest"
	UntaggedOlderThanKey  = "untagged-older-than"
	TaggedKeepLatestKey   = "tagged-keep-latest"
	TagRegexKey           = "tag-regex"
	DryRunKey             = "dry-run"
	StrictKey             = "strict"
	GitHubURLKey          = "github::url"
	GitHubPerPageKey      = "github::per-page"
	GitHubRetriesKey      = "github::retries"
	GitHubTimeoutKey      = "github::timeout"
	LogLevelKey           = "log::level"
	LogOutputKey          = "log::output"
	LogFormatKey          = "log::format"
	LogAuditKey           = "log::audit"
	MetricsTextfileKey    = "metrics::textfile"
)

const (
	OwnerTypeOrg  = "org"
	OwnerTypeUser = "user"

	DefaultPackageType = "container"
	DefaultGitHubURL   = "https://api.github.com/"
	DefaultPerPage     = 100
	DefaultRetries     = 3
	DefaultTimeout     = 30 * time.Second
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "console"

	maskedToken = "******"
)

type GitHubConfig struct {
	URL     string        `mapstructure:"url"      validate:"required,url"`
	PerPage int           `mapstructure:"per-page" validate:"min=1,max=100"`
	Retries int           `mapstructure:"retries"  validate:"gte=0"`
	Timeout time.Duration `mapstructure:"timeout"  validate:"gte=0"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"  validate:"loglevel"`
	Output string `mapstructure:"output"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
	Audit  string `mapstructure:"audit"`
}

type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// PolicyConfig holds the policy selector inputs, a nil field was not provided.
type PolicyConfig struct {
	Tag                *string `mapstructure:"tag"`
	UntaggedKeepLatest *int    `mapstructure:"untagged-keep-latest" validate:"omitempty,gte=0"`
	UntaggedOlderThan  *int    `mapstructure:"untagged-older-than"`
	TaggedKeepLatest   *int    `mapstructure:"tagged-keep-latest"   validate:"omitempty,gte=0"`
	TagRegex           *string `mapstructure:"tag-regex"`
}

// Defined lists the keys of the selector inputs that were provided.
func (p PolicyConfig) Defined() []string {
	defined := make([]string, 0)

	if p.Tag != nil {
		defined = append(defined, TagKey)
	}

	if p.UntaggedKeepLatest != nil {
		defined = append(defined, UntaggedKeepLatestKey)
	}

	if p.UntaggedOlderThan != nil {
		defined = append(defined, UntaggedOlderThanKey)
	}

	if p.TaggedKeepLatest != nil {
		defined = append(defined, TaggedKeepLatestKey)
	}

	if p.TagRegex != nil {
		defined = append(defined, TagRegexKey)
	}

	return defined
}

// Activations counts the policies the inputs would enable on their own.
func (p PolicyConfig) Activations() int {
	count := 0

	if p.Tag != nil {
		count++
	}

	if p.UntaggedKeepLatest != nil {
		count++
	}

	if p.TaggedKeepLatest != nil && p.TagRegex != nil {
		count++
	}

	return count
}

type Config struct {
	Owner        string `mapstructure:"owner"        validate:"required"`
	OwnerType    string `mapstructure:"owner-type"   validate:"oneof=org user"`
	Name         string `mapstructure:"name"         validate:"required"`
	PackageType  string `mapstructure:"package-type" validate:"oneof=npm maven rubygems docker nuget container"`
	Token        string `mapstructure:"token"        validate:"required"`
	DryRun       bool   `mapstructure:"dry-run"`
	Strict       bool   `mapstructure:"strict"`
	PolicyConfig `mapstructure:",squash"`
	GitHub       GitHubConfig  `mapstructure:"github"`
	Log          LogConfig     `mapstructure:"log"`
	Metrics      MetricsConfig `mapstructure:"metrics"`
}

func New() *Config {
	return &Config{
		OwnerType:   OwnerTypeOrg,
		PackageType: DefaultPackageType,
		GitHub: GitHubConfig{
			URL:     DefaultGitHubURL,
			PerPage: DefaultPerPage,
			Retries: DefaultRetries,
			Timeout: DefaultTimeout,
		},
		Log: LogConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
	}
}

// Sanitize returns a copy safe to log.
func (c *Config) Sanitize() *Config {
	sanitized := *c

	if sanitized.Token != "" {
		sanitized.Token = maskedToken
	}

	return &sanitized
}
