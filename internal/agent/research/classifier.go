package research

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinRelevantLength is the shortest page text, in runes, worth extracting from.
const MinRelevantLength = 100

var sectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\babstract\b`),
	regexp.MustCompile(`(?i)\bintroduction\b`),
	regexp.MustCompile(`(?i)\bmethod(?:ology|s|ological)?\b`),
	regexp.MustCompile(`(?i)\bmaterials?\s+and\s+methods\b`),
	regexp.MustCompile(`(?i)\bresults?\b`),
	regexp.MustCompile(`(?i)\bfindings?\b`),
	regexp.MustCompile(`(?i)\bdiscussion\b`),
	regexp.MustCompile(`(?i)\bconclusions?\b`),
	regexp.MustCompile(`(?i)\bsummary\b`),
	regexp.MustCompile(`(?i)\blimitations?\b`),
	regexp.MustCompile(`(?i)\bfuture\s+work\b`),
}

// IsRelevant reports whether a page looks like it carries paper content.
// It errs towards true: a wasted model call is cheaper than a lost page.
func IsRelevant(text string) bool {
	return IsRelevantWithMin(text, MinRelevantLength)
}

// IsRelevantWithMin is IsRelevant with a configurable length floor.
func IsRelevantWithMin(text string, minLength int) bool {
	if utf8.RuneCountInString(text) < minLength {
		return false
	}
	if strings.TrimSpace(text) == "" {
		return false
	}
	if isBibliography(text) {
		return false
	}
	for _, re := range sectionPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func isBibliography(text string) bool {
	head := strings.TrimLeftFunc(text, unicode.IsSpace)
	const marker = "references"
	if len(head) < len(marker) {
		return false
	}
	return strings.EqualFold(head[:len(marker)], marker)
}
