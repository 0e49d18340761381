package scraper

import (
	"regexp"
	"strconv"
	"strings"
)

var resultCountPattern = regexp.MustCompile(`(\d[\d,]*)\s*件`)

// ResultCount reads an advertised total such as "1,234件" from text. It
// returns 0 when text carries no count.
func ResultCount(text string) int {
	m := resultCountPattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return 0
	}
	return n
}

// Limit picks the emission cap for one page: the advertised count when there
// is one, never above safetyCap.
func Limit(advertised, safetyCap int) int {
	if advertised > 0 && (safetyCap <= 0 || advertised < safetyCap) {
		return advertised
	}
	return safetyCap
}
