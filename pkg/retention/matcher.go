package retention

import (
	"fmt"
	"regexp"

	zerr "github.com/ghcr-retention/ghcr-retention/errors"
)

type TagMatcher struct {
	regex *regexp.Regexp
}

func NewTagMatcher(expr string) (*TagMatcher, error) {
	regex, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", zerr.ErrBadTagRegex, expr, err)
	}

	return &TagMatcher{regex: regex}, nil
}

// MatchesAnyTag reports whether at least one tag matches, an untagged version never matches.
// The expression is unanchored, use ^ and $ to match whole tags.
func (m *TagMatcher) MatchesAnyTag(tags []string) bool {
	for _, tag := range tags {
		if m.regex.MatchString(tag) {
			return true
		}
	}

	return false
}

func (m *TagMatcher) String() string {
	return m.regex.String()
}
