package processor

// Thresholds for the full-text classifier. A page that clears any of these
// is assumed to carry the genuine article rather than a teaser.
const (
	fulltextMinChars     = 2000
	fulltextMinSentences = 30
	fulltextImageChars   = 500
	fulltextMinImages    = 3
)

// IsFulltextContent reports whether extracted content already looks like a
// complete article. Long text, many sentences, or an image-heavy page with
// a reasonable amount of prose all qualify.
func IsFulltextContent(info ContentInfo) bool {
	textLen := len([]rune(info.Text))
	if textLen >= fulltextMinChars {
		return true
	}
	if len(SplitSentences(info.Text)) >= fulltextMinSentences {
		return true
	}
	if info.ImageCount >= fulltextMinImages && textLen >= fulltextImageChars {
		return true
	}
	return false
}
