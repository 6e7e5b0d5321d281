package upnp

import (
	"regexp"
	"strings"
	"sync"
)

var (
	tagPatternsMu sync.Mutex
	tagPatterns   = map[string]*regexp.Regexp{}
)

// extractTag returns the trimmed text of the first <tag> element in body.
// Attributes on the opening tag are tolerated. Missing or blank elements
// report false.
func extractTag(body []byte, tag string) (string, bool) {
	m := tagPattern(tag).FindSubmatch(body)
	if m == nil {
		return "", false
	}
	v := strings.TrimSpace(string(m[1]))
	return v, v != ""
}

func tagPattern(tag string) *regexp.Regexp {
	tagPatternsMu.Lock()
	defer tagPatternsMu.Unlock()

	if re, ok := tagPatterns[tag]; ok {
		return re
	}
	q := regexp.QuoteMeta(tag)
	re := regexp.MustCompile(`<` + q + `(?:\s[^>]*)?>([^<]*)</` + q + `>`)
	tagPatterns[tag] = re
	return re
}
