// Package finder locates a working feed at or near a candidate URL.
package finder

import (
	"bytes"
	"mime"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// feedType labels an autodiscovery candidate.
type feedType string

const (
	typeRSS   feedType = "rss"
	typeAtom  feedType = "atom"
	typeGuess feedType = "guess"
)

// candidate is a feed link discovered in a webpage head.
type candidate struct {
	URL   string
	Type  feedType
	Title string
}

var feedMediaTypes = map[string]bool{
	"application/rss+xml":   true,
	"application/atom+xml":  true,
	"application/feed+json": true,
	"application/json":      true,
}

// wellKnownPaths are the usual site-root feed locations, tried when the
// page head yields no working rel=alternate candidate.
var wellKnownPaths = []string{
	"/feed",
	"/rss.xml",
	"/atom.xml",
	"/feed.xml",
	"/index.xml",
}

// wellKnownCandidates builds fallback candidates at the site root of
// pageURL, skipping the page's own path.
func wellKnownCandidates(pageURL string) []candidate {
	parsed, err := url.Parse(pageURL)
	if err != nil || parsed.Host == "" {
		return nil
	}
	var candidates []candidate
	for _, p := range wellKnownPaths {
		if parsed.Path == p {
			continue
		}
		u := url.URL{Scheme: parsed.Scheme, Host: parsed.Host, Path: p}
		candidates = append(candidates, candidate{URL: u.String(), Type: typeGuess})
	}
	return candidates
}

var xmlMediaTypes = map[string]bool{
	"text/xml":        true,
	"application/xml": true,
}

// looksLikeFeed decides whether a response body is a feed document, from
// the media type when it is specific and from body sniffing otherwise.
func looksLikeFeed(contentType string, body []byte) bool {
	mediaType := parseMediaType(contentType)
	if feedMediaTypes[mediaType] {
		return true
	}
	if mediaType != "" && !xmlMediaTypes[mediaType] && !strings.Contains(mediaType, "html") &&
		mediaType != "text/plain" && mediaType != "application/octet-stream" {
		return false
	}
	return sniffFeedBody(body)
}

func looksLikeHTML(contentType string, body []byte) bool {
	if strings.Contains(parseMediaType(contentType), "html") {
		return true
	}
	head := bytes.ToLower(prefix(body, 1024))
	return bytes.Contains(head, []byte("<html")) || bytes.Contains(head, []byte("<!doctype html"))
}

func parseMediaType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.Split(contentType, ";")[0])
	}
	return strings.ToLower(mediaType)
}

// sniffFeedBody inspects the first 4KB for a feed root element.
func sniffFeedBody(body []byte) bool {
	head := strings.ToLower(string(prefix(body, 4096)))
	switch {
	case strings.Contains(head, "<rss"),
		strings.Contains(head, "<rdf:rdf"),
		strings.Contains(head, "<feed"):
		return true
	case strings.Contains(head, `"items"`) && strings.Contains(head, "jsonfeed"):
		return true
	}
	return false
}

func prefix(body []byte, n int) []byte {
	if len(body) < n {
		return body
	}
	return body[:n]
}

// parseFeedLinks scans an HTML head for rel=alternate feed links, resolving
// relative hrefs against the page URL. Scanning stops at the body.
func parseFeedLinks(body []byte, pageURL string) []candidate {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	var candidates []candidate
	tokenizer := html.NewTokenizer(bytes.NewReader(body))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return candidates
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := tokenizer.TagName()
			tag := string(name)
			if tag == "body" {
				return candidates
			}
			if tag != "link" || !hasAttr {
				continue
			}
			var rel, linkType, href, title string
			for {
				key, val, more := tokenizer.TagAttr()
				switch strings.ToLower(string(key)) {
				case "rel":
					rel = strings.ToLower(string(val))
				case "type":
					linkType = strings.ToLower(string(val))
				case "href":
					href = string(val)
				case "title":
					title = string(val)
				}
				if !more {
					break
				}
			}
			if rel != "alternate" || href == "" {
				continue
			}
			var ft feedType
			switch linkType {
			case "application/rss+xml":
				ft = typeRSS
			case "application/atom+xml":
				ft = typeAtom
			default:
				continue
			}
			resolved, err := url.Parse(href)
			if err != nil {
				continue
			}
			candidates = append(candidates, candidate{
				URL:   base.ResolveReference(resolved).String(),
				Type:  ft,
				Title: title,
			})
		case html.EndTagToken:
			if name, _ := tokenizer.TagName(); string(name) == "head" {
				return candidates
			}
		}
	}
}

// rankCandidates orders candidates best first: same host beats cross-host,
// atom beats rss, earlier document order breaks ties.
func rankCandidates(candidates []candidate, pageURL string) []candidate {
	pageHost := hostOf(pageURL)
	ranked := make([]candidate, len(candidates))
	copy(ranked, candidates)
	score := func(c candidate) int {
		s := 0
		if hostOf(c.URL) == pageHost {
			s += 100
		}
		if c.Type == typeAtom {
			s += 10
		}
		return s
	}
	// stable selection sort; candidate lists are tiny
	for i := 0; i < len(ranked); i++ {
		best := i
		for j := i + 1; j < len(ranked); j++ {
			if score(ranked[j]) > score(ranked[best]) {
				best = j
			}
		}
		ranked[i], ranked[best] = ranked[best], ranked[i]
	}
	return ranked
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}
