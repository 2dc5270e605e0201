// Package processor implements the HTML pipeline for story webpages:
// sanitizing, readability extraction, link rewriting, text analysis and the
// full-text classification heuristic.
package processor

import (
	"github.com/microcosm-cc/bluemonday"
)

// cleanPolicy keeps the markup needed to display an article and strips
// everything executable or presentational. Safe for concurrent use.
var cleanPolicy = newCleanPolicy()

func newCleanPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("src", "alt", "title", "width", "height").OnElements("img")
	p.AllowElements("figure", "figcaption", "picture", "source", "video", "audio")
	p.AllowAttrs("srcset", "type").OnElements("source")
	p.AllowURLSchemes("http", "https")
	p.AllowRelativeURLs(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)
	return p
}

// CleanHTML strips scripts, styles, frames and event handlers while keeping
// article markup. Idempotent for a given input.
func CleanHTML(rawHTML string) string {
	return cleanPolicy.Sanitize(rawHTML)
}
