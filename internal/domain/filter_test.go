package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizeURL(t *testing.T) {
	tokens := TokenizeURL("https://a.b.com/p1/p2?x=1&y=2#frag")
	assert.Equal(t, []string{"a", "b", "com", "p1", "p2", "x=1", "y=2", "frag"}, tokens)
}

func TestTokenizeURL_PartialURLs(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected []string
	}{
		{"host only", "https://example.com", []string{"example", "com"}},
		{"no query", "https://example.com/gallery", []string{"example", "com", "gallery"}},
		{"trailing slash", "https://example.com/gallery/", []string{"example", "com", "gallery"}},
		{"port stripped", "https://example.com:8080/a", []string{"example", "com", "a"}},
		{"fragment only", "https://example.com#top", []string{"example", "com", "top"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, TokenizeURL(test.url))
		})
	}
}

func TestRule_Matches(t *testing.T) {
	tests := []struct {
		name     string
		rule     Rule
		token    string
		expected bool
	}{
		{"exact hit", Rule{Token: "example", MatchType: MatchExact}, "example", true},
		{"exact miss on case", Rule{Token: "Example", MatchType: MatchExact}, "example", false},
		{"case insensitive", Rule{Token: "EXAMPLE", MatchType: MatchCaseInsensitive}, "example", true},
		{"any", Rule{MatchType: MatchAny}, "whatever", true},
		{"starts with", Rule{Expression: "gal", MatchType: MatchStartsWith}, "gallery", true},
		{"ends with", Rule{Expression: "ery", MatchType: MatchEndsWith}, "gallery", true},
		{"contains", Rule{Expression: "lle", MatchType: MatchContains}, "gallery", true},
		{"not contains hit", Rule{Expression: "xyz", MatchType: MatchNotContains}, "gallery", true},
		{"not contains miss", Rule{Expression: "lle", MatchType: MatchNotContains}, "gallery", false},
		{"not starts with", Rule{Expression: "gal", MatchType: MatchNotStartsWith}, "gallery", false},
		{"not ends with", Rule{Expression: "xyz", MatchType: MatchNotEndsWith}, "gallery", true},
		{"regex", Rule{Expression: `^g.l+ery$`, MatchType: MatchRegex}, "gallery", true},
		{"regex search is unanchored", Rule{Expression: `all`, MatchType: MatchRegex}, "gallery", true},
		{"not regex", Rule{Expression: `^x`, MatchType: MatchNotRegex}, "gallery", true},
		{"expression wins over token", Rule{Token: "nope", Expression: "example", MatchType: MatchExact}, "example", true},
		{"token fallback", Rule{Token: "gal", MatchType: MatchStartsWith}, "gallery", true},
		{"legacy expression type never matches", Rule{Expression: "gallery", MatchType: MatchExpression}, "gallery", false},
		{"unknown type never matches", Rule{Expression: "gallery", MatchType: "match_bogus"}, "gallery", false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, test.rule.Matches(test.token))
		})
	}
}

func TestRule_Matches_InvalidRegex(t *testing.T) {
	// Broken patterns fail closed for regex and open for negated regex.
	broken := `[unclosed`
	assert.False(t, Rule{Expression: broken, MatchType: MatchRegex}.Matches("anything"))
	assert.True(t, Rule{Expression: broken, MatchType: MatchNotRegex}.Matches("anything"))
}

func TestFilter_Matches_Positional(t *testing.T) {
	f := NewFilter("booru", []Rule{
		{MatchType: MatchAny},
		{Token: "example", MatchType: MatchExact},
		{Token: "com", MatchType: MatchExact},
		{Token: "gallery", MatchType: MatchExact},
	}, ActionDownload)

	// tokens: [www example com gallery 42]
	assert.True(t, f.Matches("https://www.example.com/gallery/42"))

	// Rule 1 expects "example" at position 1 but the host has no "www".
	assert.False(t, f.Matches("https://example.com/gallery/42"))
}

func TestFilter_Matches_MoreRulesThanTokens(t *testing.T) {
	f := NewFilter("deep", []Rule{
		{MatchType: MatchAny},
		{MatchType: MatchAny},
		{MatchType: MatchAny},
		{MatchType: MatchAny},
	}, ActionDownload)

	// Only three tokens: example, com, a.
	assert.False(t, f.Matches("https://example.com/a"))
	assert.True(t, f.Matches("https://example.com/a/b"))
}

func TestFilter_Matches_DisabledNeverMatches(t *testing.T) {
	f := NewFilter("off", []Rule{{MatchType: MatchAny}}, ActionDownload)
	f.Enabled = false

	for _, url := range []string{
		"https://example.com",
		"https://a.b.com/p1/p2?x=1&y=2#frag",
		"http://anything.net/path",
	} {
		assert.False(t, f.Matches(url), "disabled filter matched %s", url)
	}
}

func TestFilter_Matches_ZeroRulesNeverMatches(t *testing.T) {
	f := NewFilter("empty", nil, ActionDownload)
	assert.False(t, f.Matches("https://example.com/gallery"))
}

func TestNewFilter_Identity(t *testing.T) {
	f1 := NewFilter("a", nil, ActionSkip)
	f2 := NewFilter("b", nil, ActionSkip)
	require.NotEmpty(t, f1.ID)
	assert.NotEqual(t, f1.ID, f2.ID)
	assert.True(t, f1.Enabled)
}
