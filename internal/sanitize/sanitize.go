// Package sanitize cleans user-provided profile text before it is stored.
// Uses bluemonday to strip any HTML markup (script tags, event handlers,
// javascript: URLs) from plain-text fields like display names. Profile text
// is rendered by third-party clients we don't control, so we never store
// markup at all.
package sanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// policy is the singleton bluemonday policy for stripping markup.
// Initialized once via sync.Once for thread-safe lazy initialization.
var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

// getPolicy returns the shared strict policy, initializing it on first call.
func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		// StrictPolicy removes every element and attribute; only text survives.
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// Text strips all HTML from a plain-text field and trims surrounding
// whitespace. bluemonday entity-escapes remaining text, so the output is
// unescaped back to its literal form before storage (the database holds
// plain text, not HTML).
func Text(input string) string {
	cleaned := getPolicy().Sanitize(input)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}
