package extraction

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// PickMerchant returns the first header-like line among the leading lines:
// longer than two characters and free of digits. Store names tend to sit above
// addresses, phone numbers and amounts.
func (e *Engine) PickMerchant(lines []string) Optional[string] {
	n := min(len(lines), e.cfg.MerchantScanLines)
	for _, l := range lines[:n] {
		if utf8.RuneCountInString(l) > 2 && !strings.ContainsFunc(l, unicode.IsDigit) {
			return Some(truncateRunes(l, e.cfg.MerchantMaxLength))
		}
	}
	return None[string]()
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
