package ghcr

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/oauth2"

	zerr "github.com/ghcr-retention/ghcr-retention/errors"
	"github.com/ghcr-retention/ghcr-retention/pkg/config"
	zlog "github.com/ghcr-retention/ghcr-retention/pkg/log"
	"github.com/ghcr-retention/ghcr-retention/pkg/retention/types"
)

const (
	activeState = "active"

	retryWaitMin = 500 * time.Millisecond
	retryWaitMax = 30 * time.Second
)

type noTransportRetryKey struct{}

// checkRetry is retryablehttp's default policy, except that a request marked with
// noTransportRetryKey is not sent again after a transport error: it may have been applied
// with its response lost, and a deleted version answers a repeated DELETE with 404.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if err != nil && ctx.Value(noTransportRetryKey{}) != nil {
		return false, nil
	}

	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// Target names one package on GitHub.
type Target struct {
	Owner       string
	OwnerType   string
	PackageType string
	Name        string
}

func TargetFromConfig(conf *config.Config) Target {
	return Target{
		Owner:       conf.Owner,
		OwnerType:   conf.OwnerType,
		PackageType: conf.PackageType,
		Name:        conf.Name,
	}
}

func (t Target) String() string {
	return fmt.Sprintf("%s/%s/%s", t.Owner, t.PackageType, t.Name)
}

// Client lists and deletes the versions of a single package, it is both the
// retention version source and its deleter.
type Client struct {
	client  *github.Client
	target  Target
	perPage int
	log     zlog.Logger
}

// NewClient authenticates with token and retries rate limited and failed requests.
func NewClient(ctx context.Context, cfg config.GitHubConfig, token string, target Target, log zlog.Logger,
) (*Client, error) {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.Retries
	retryClient.RetryWaitMin = retryWaitMin
	retryClient.RetryWaitMax = retryWaitMax
	retryClient.HTTPClient.Timeout = cfg.Timeout
	retryClient.Logger = zlog.NewRetryableLogger(log)
	retryClient.CheckRetry = checkRetry

	ctx = context.WithValue(ctx, oauth2.HTTPClient, retryClient.StandardClient())
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))

	return NewClientWithHTTP(httpClient, cfg, target, log)
}

// NewClientWithHTTP uses httpClient as is, authentication included.
func NewClientWithHTTP(httpClient *http.Client, cfg config.GitHubConfig, target Target, log zlog.Logger,
) (*Client, error) {
	if target.OwnerType != config.OwnerTypeOrg && target.OwnerType != config.OwnerTypeUser {
		return nil, fmt.Errorf("%w: %q", zerr.ErrUnsupportedOwnerType, target.OwnerType)
	}

	client := github.NewClient(httpClient)

	if cfg.URL != "" {
		baseURL, err := url.Parse(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("%w: github url %q: %w", zerr.ErrBadConfig, cfg.URL, err)
		}

		if !strings.HasSuffix(baseURL.Path, "/") {
			baseURL.Path += "/"
		}

		client.BaseURL = baseURL
	}

	perPage := cfg.PerPage
	if perPage <= 0 {
		perPage = config.DefaultPerPage
	}

	return &Client{client: client, target: target, perPage: perPage, log: log}, nil
}

// Versions pages through the active versions, a page is only requested once the
// previous one has been consumed.
func (c *Client) Versions(ctx context.Context) iter.Seq2[types.PackageVersion, error] {
	return func(yield func(types.PackageVersion, error) bool) {
		opts := &github.PackageListOptions{
			State:       github.String(activeState),
			ListOptions: github.ListOptions{PerPage: c.perPage},
		}

		for {
			versions, resp, err := c.listVersions(ctx, opts)
			if err != nil {
				c.log.Error().Err(err).Str("package", c.target.String()).Int("page", opts.Page).
					Msg("failed to list package versions")

				yield(types.PackageVersion{}, fmt.Errorf("%w: list %s versions: %w", zerr.ErrSourceFailed, c.target, err))

				return
			}

			c.log.Debug().Str("package", c.target.String()).Int("page", opts.Page).Int("count", len(versions)).
				Msg("listed package versions")

			for _, version := range versions {
				if !yield(convertVersion(version), nil) {
					return
				}
			}

			if resp.NextPage == 0 {
				return
			}

			opts.Page = resp.NextPage
		}
	}
}

func (c *Client) listVersions(ctx context.Context, opts *github.PackageListOptions,
) ([]*github.PackageVersion, *github.Response, error) {
	if c.target.OwnerType == config.OwnerTypeUser {
		return c.client.Users.PackageGetAllVersions(ctx, c.target.Owner, c.target.PackageType, c.target.Name, opts)
	}

	return c.client.Organizations.PackageGetAllVersions(ctx, c.target.Owner, c.target.PackageType, c.target.Name, opts)
}

func (c *Client) DeleteVersion(ctx context.Context, id int64) error {
	var err error

	ctx = context.WithValue(ctx, noTransportRetryKey{}, true)

	if c.target.OwnerType == config.OwnerTypeUser {
		_, err = c.client.Users.PackageDeleteVersion(ctx, c.target.Owner, c.target.PackageType, c.target.Name, id)
	} else {
		_, err = c.client.Organizations.PackageDeleteVersion(ctx, c.target.Owner, c.target.PackageType,
			c.target.Name, id)
	}

	if err != nil {
		return fmt.Errorf("delete %s version %d: %w", c.target, id, err)
	}

	return nil
}

func convertVersion(version *github.PackageVersion) types.PackageVersion {
	var tags []string
	if container := version.GetMetadata().GetContainer(); container != nil {
		tags = container.Tags
	}

	return types.PackageVersion{
		ID:        version.GetID(),
		Name:      version.GetName(),
		Tags:      tags,
		UpdatedAt: version.GetUpdatedAt().Time,
	}
}
