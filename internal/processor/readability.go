package processor

import (
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// ExtractReadable pulls the main article content out of a full webpage.
// When extraction fails the original HTML is returned so later size limits
// and heuristics still apply.
func ExtractReadable(rawHTML, pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		parsed = nil
	}
	article, err := readability.FromReader(strings.NewReader(rawHTML), parsed)
	if err != nil || article.Content == "" {
		return rawHTML
	}
	return article.Content
}

// resolveRef joins a possibly-relative reference against a base URL. An
// unparseable reference comes back unchanged.
func resolveRef(base *url.URL, ref string) string {
	if base == nil || ref == "" {
		return ref
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	resolved := base.ResolveReference(parsed)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ref
	}
	return resolved.String()
}

func parseBase(pageURL string) *url.URL {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	return base
}
