package proto

import (
	"unicode/utf8"

	"github.com/mozillazg/go-unidecode"
)

// Clean transliterates content to its closest ASCII form. The chat input the
// scraper types into does not accept everything subscribers may send.
func Clean(content string) string {
	if isASCII(content) {
		return content
	}
	return unidecode.Unidecode(content)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
