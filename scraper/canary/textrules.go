package canary

import (
	"regexp"
	"strings"
)

// Text rules are the secondary extraction path. Canary ships hashed
// styled-components class names that change on every deploy; when the DOM
// selectors stop matching, fields are recovered from the rendered text of
// each room card by these patterns. Results from this path are lower
// confidence than the DOM path.

// TextRule extracts one field from free text by an anchored marker.
type TextRule struct {
	Name    string
	Pattern *regexp.Regexp
	// Group is the submatch returned; 0 means the whole match.
	Group int
}

// Find returns the first match in text, or "".
func (r TextRule) Find(text string) string {
	m := r.Pattern.FindStringSubmatch(text)
	if m == nil || r.Group >= len(m) {
		return ""
	}
	return strings.TrimSpace(m[r.Group])
}

// FindAll returns every match in text, in order.
func (r TextRule) FindAll(text string) []string {
	var out []string
	for _, m := range r.Pattern.FindAllStringSubmatch(text, -1) {
		if r.Group < len(m) {
			if s := strings.TrimSpace(m[r.Group]); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

var (
	// RentRule: a numeral immediately followed by 万円.
	RentRule = TextRule{Name: "rent", Pattern: regexp.MustCompile(`\d+(?:\.\d+)?\s*万円`)}

	// ManagementFeeRule: the value after the rent and a slash, e.g. "8.5万円 / 5,000円".
	ManagementFeeRule = TextRule{Name: "management_fee", Pattern: regexp.MustCompile(`万円\s*/\s*([\d,]+円|-)`), Group: 1}

	// DepositRule: value after the 敷 label.
	DepositRule = TextRule{Name: "deposit", Pattern: regexp.MustCompile(`敷\s*(\d+(?:\.\d+)?(?:ヶ月|万円|円)|なし|-)`), Group: 1}

	// GratuityRule: value after the 礼 label.
	GratuityRule = TextRule{Name: "gratuity", Pattern: regexp.MustCompile(`礼\s*(\d+(?:\.\d+)?(?:ヶ月|万円|円)|なし|-)`), Group: 1}

	// AreaRule: a numeral followed by m², ㎡ or m2.
	AreaRule = TextRule{Name: "area", Pattern: regexp.MustCompile(`\d+(?:\.\d+)?\s*(?:m²|㎡|m2)`)}

	// FloorRule: the unit floor, e.g. "3階" or "地下1階". "10階建" is the
	// building height and is skipped.
	FloorRule = TextRule{Name: "floor", Pattern: regexp.MustCompile(`((?:地下)?\d+階)(?:[^建]|$)`), Group: 1}

	// AgeRule: building age after 築, or 新築.
	AgeRule = TextRule{Name: "age", Pattern: regexp.MustCompile(`築\d+年|新築`)}

	// LayoutRule: room configuration codes such as 1K, 2LDK or ワンルーム.
	LayoutRule = TextRule{Name: "layout", Pattern: regexp.MustCompile(`ワンルーム|\d(?:S?LDK|DK|K|R)`)}

	// AccessRule: a station or stop followed by a walk time, e.g. "新宿駅 徒歩5分".
	AccessRule = TextRule{Name: "access", Pattern: regexp.MustCompile(`[^\s/]+(?:駅|停)\s*徒歩\d+分`)}

	// AddressRule: a line starting with a prefecture.
	AddressRule = TextRule{Name: "address", Pattern: regexp.MustCompile(`(?:東京都|北海道|京都府|大阪府|\p{Han}{2,3}県)[^\n]*`)}
)

// TextRules lists every field rule, for diagnostics and tests.
var TextRules = []TextRule{
	RentRule, ManagementFeeRule, DepositRule, GratuityRule,
	AreaRule, FloorRule, AgeRule, LayoutRule, AccessRule, AddressRule,
}

// matchesAnyRule reports whether s is a field value rather than a title.
func matchesAnyRule(s string) bool {
	for _, r := range TextRules {
		if r.Pattern.MatchString(s) {
			return true
		}
	}
	return false
}
