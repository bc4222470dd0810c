package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MatchType selects the comparison a rule applies to a single URL token.
type MatchType string

const (
	MatchExact           MatchType = "match_exactly"
	MatchCaseInsensitive MatchType = "match_case_insensitive"
	MatchAny             MatchType = "match_any"
	MatchStartsWith      MatchType = "match_starts_with"
	MatchEndsWith        MatchType = "match_ends_with"
	MatchContains        MatchType = "match_contains"
	MatchNotStartsWith   MatchType = "match_not_starts_with"
	MatchNotEndsWith     MatchType = "match_not_ends_with"
	MatchNotContains     MatchType = "match_not_contains"
	MatchRegex           MatchType = "match_regex"
	MatchNotRegex        MatchType = "match_not_regex"

	// MatchExpression is a legacy value that still appears in persisted
	// rule sets. It never matches.
	MatchExpression MatchType = "match_expression"
)

// Action is what a matching filter does with a link.
type Action string

const (
	ActionDownload Action = "download"
	ActionSkip     Action = "skip"
	ActionDelete   Action = "delete"
)

// Rule is a single positional matcher inside a filter. Expression takes
// precedence over the legacy Token field when both are set.
type Rule struct {
	Token      string    `json:"token,omitempty"`
	Expression string    `json:"expression,omitempty"`
	MatchType  MatchType `json:"match_type"`
}

// pattern returns the value the rule compares against.
func (r Rule) pattern() string {
	if r.Expression != "" {
		return r.Expression
	}
	return r.Token
}

// Matches applies the rule's match type to one token.
//
// Invalid regex patterns fail closed for match_regex and open for
// match_not_regex, so a malformed negative rule never silently blocks an
// otherwise valid match.
func (r Rule) Matches(token string) bool {
	p := r.pattern()
	switch r.MatchType {
	case MatchExact:
		return token == p
	case MatchCaseInsensitive:
		return strings.EqualFold(token, p)
	case MatchAny:
		return true
	case MatchStartsWith:
		return strings.HasPrefix(token, p)
	case MatchEndsWith:
		return strings.HasSuffix(token, p)
	case MatchContains:
		return strings.Contains(token, p)
	case MatchNotStartsWith:
		return !strings.HasPrefix(token, p)
	case MatchNotEndsWith:
		return !strings.HasSuffix(token, p)
	case MatchNotContains:
		return !strings.Contains(token, p)
	case MatchRegex:
		re, err := regexp.Compile(p)
		if err != nil {
			return false
		}
		return re.MatchString(token)
	case MatchNotRegex:
		re, err := regexp.Compile(p)
		if err != nil {
			return true
		}
		return !re.MatchString(token)
	}
	return false
}

// Filter is an ordered list of rules with an action, evaluated positionally
// against the token sequence of a URL.
type Filter struct {
	// ID is the stable identity of the filter.
	ID string `json:"id"`

	// NumericID is a small, monotonically assigned id used by display
	// collaborators. Assigned lazily on load, never reused.
	NumericID int `json:"numeric_id,omitempty"`

	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Rules       []Rule `json:"rules"`
	Action      Action `json:"action"`
	Enabled     bool   `json:"enabled"`
	Priority    int    `json:"priority"`

	CreatedAt  time.Time `json:"created_at,omitzero"`
	ModifiedAt time.Time `json:"modified_at,omitzero"`
}

// NewFilter creates an enabled filter with a fresh id.
func NewFilter(name string, rules []Rule, action Action) *Filter {
	return &Filter{
		ID:        uuid.NewString(),
		Name:      name,
		Rules:     rules,
		Action:    action,
		Enabled:   true,
		CreatedAt: time.Now(),
	}
}

// Matches reports whether the filter selects the URL. Rules are positional:
// rule i must match token i for every rule. Disabled filters and filters
// with no rules never match, nor does a filter with more rules than the URL
// has tokens.
func (f *Filter) Matches(url string) bool {
	if !f.Enabled || len(f.Rules) == 0 {
		return false
	}
	tokens := TokenizeURL(url)
	if len(f.Rules) > len(tokens) {
		return false
	}
	for i, rule := range f.Rules {
		if !rule.Matches(tokens[i]) {
			return false
		}
	}
	return true
}
