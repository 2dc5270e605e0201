package processor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ProcessStoryLinks rewrites relative hrefs and image sources against the
// story's own URL so extracted content renders outside its origin page.
// Anchors additionally get target=_blank. On parse failure the input is
// returned untouched.
func ProcessStoryLinks(rawHTML, pageURL string) string {
	base := parseBase(pageURL)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return rawHTML
	}

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		if href, ok := sel.Attr("href"); ok {
			sel.SetAttr("href", resolveRef(base, href))
			sel.SetAttr("target", "_blank")
		}
	})
	doc.Find("img[src]").Each(func(_ int, sel *goquery.Selection) {
		if src, ok := sel.Attr("src"); ok {
			sel.SetAttr("src", resolveRef(base, src))
		}
	})

	out, err := doc.Find("body").Html()
	if err != nil {
		return rawHTML
	}
	return out
}
