package fetcher

import (
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

// decodeBody converts a response body to UTF-8. The charset comes from the
// Content-Type header when present, otherwise from sniffing the body (BOM,
// XML declaration, meta tags). Decode errors fall back to the raw bytes so
// a bad charset never fails the fetch.
func decodeBody(body []byte, contentType string) ([]byte, string) {
	if len(body) == 0 {
		return body, ""
	}
	enc, name, _ := charset.DetermineEncoding(body, contentType)
	if enc == nil || isUTF8(enc) {
		return body, name
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		// lossy fallback: keep the raw bytes rather than dropping content
		return body, name
	}
	return decoded, name
}

func isUTF8(enc encoding.Encoding) bool {
	return enc == unicode.UTF8 || enc == encoding.Nop
}
