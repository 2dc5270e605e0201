package processor

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// metaRefreshContent matches the url part of a meta refresh directive like
// "0; url=https://example.com/real".
var metaRefreshContent = regexp.MustCompile(`(?i)^\s*\d+\s*;\s*url\s*=\s*['"]?([^'"\s]+)`)

// HTMLRedirectURL scans a webpage for a client-side redirect hint
// (a meta refresh in the document head). It returns the target URL or ""
// when no hint is present. Only the head is inspected; scanning stops at
// the body.
func HTMLRedirectURL(rawHTML string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(rawHTML))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := tokenizer.TagName()
			tag := string(name)
			if tag == "body" {
				return ""
			}
			if tag != "meta" || !hasAttr {
				continue
			}
			var httpEquiv, content string
			for {
				key, val, more := tokenizer.TagAttr()
				switch strings.ToLower(string(key)) {
				case "http-equiv":
					httpEquiv = strings.ToLower(string(val))
				case "content":
					content = string(val)
				}
				if !more {
					break
				}
			}
			if httpEquiv != "refresh" {
				continue
			}
			if m := metaRefreshContent.FindStringSubmatch(content); m != nil {
				return m[1]
			}
		}
	}
}
