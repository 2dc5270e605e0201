package processor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ContentInfo summarizes a piece of story HTML for the acceptance
// heuristic: its plain text plus cheap structural counts.
type ContentInfo struct {
	HTML       string
	Text       string
	LinkCount  int
	ImageCount int
}

// NewContentInfo parses the HTML once and derives text and counts. Parse
// failures degrade to treating the input as plain text.
func NewContentInfo(rawHTML string) ContentInfo {
	info := ContentInfo{HTML: rawHTML}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		info.Text = normalizeSpace(rawHTML)
		return info
	}
	info.Text = normalizeSpace(doc.Text())
	info.LinkCount = doc.Find("a").Length()
	info.ImageCount = doc.Find("img").Length()
	return info
}

// StoryHTMLToText strips all markup and collapses whitespace.
func StoryHTMLToText(rawHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return normalizeSpace(rawHTML)
	}
	return normalizeSpace(doc.Text())
}

// Shorten collapses whitespace and truncates text to at most width runes,
// cutting at a word boundary where possible and appending an ellipsis.
// Deterministic for a given input.
func Shorten(text string, width int) string {
	text = normalizeSpace(text)
	runes := []rune(text)
	if len(runes) <= width {
		return text
	}
	if width <= 3 {
		return string(runes[:width])
	}
	cut := width - 3
	head := runes[:cut]
	if idx := lastSpace(head); idx > cut/2 {
		head = head[:idx]
	}
	return strings.TrimRight(string(head), " ") + "..."
}

func lastSpace(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == ' ' {
			return i
		}
	}
	return -1
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// sentence terminators cover both western and CJK punctuation.
var sentenceEnds = map[rune]bool{
	'.': true, '!': true, '?': true,
	'。': true, '！': true, '？': true, '；': true, ';': true,
}

// SplitSentences breaks plain text into sentences. Fragments shorter than
// two characters are dropped.
func SplitSentences(text string) []string {
	var sentences []string
	var current []rune
	flush := func() {
		s := strings.TrimSpace(string(current))
		if len([]rune(s)) >= 2 {
			sentences = append(sentences, s)
		}
		current = current[:0]
	}
	for _, r := range text {
		current = append(current, r)
		if sentenceEnds[r] {
			flush()
		}
	}
	flush()
	return sentences
}
