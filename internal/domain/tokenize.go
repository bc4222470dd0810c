package domain

import (
	"net/url"
	"strings"
)

// TokenizeURL decomposes a URL into the ordered token sequence used for
// positional rule matching: each dot-separated host label, each non-empty
// path segment, each &-separated query fragment, then the URL fragment.
// The scheme and the raw host/path strings are deliberately not tokens.
func TokenizeURL(raw string) []string {
	u, err := url.Parse(raw)
	if err != nil {
		return nil
	}

	var tokens []string

	if host := u.Hostname(); host != "" {
		tokens = append(tokens, strings.Split(host, ".")...)
	}

	for _, part := range strings.Split(u.Path, "/") {
		if part != "" {
			tokens = append(tokens, part)
		}
	}

	if u.RawQuery != "" {
		for _, part := range strings.Split(u.RawQuery, "&") {
			if part != "" {
				tokens = append(tokens, part)
			}
		}
	}

	if u.Fragment != "" {
		tokens = append(tokens, u.Fragment)
	}

	return tokens
}
