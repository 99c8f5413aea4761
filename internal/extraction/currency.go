package extraction

import (
	"regexp"
	"strings"
)

func compileCodePattern(codes []string) (*regexp.Regexp, error) {
	return regexp.Compile(`(?i)\b(` + strings.Join(codes, "|") + `)\b`)
}

// ResolveCurrency picks the currency code for the text.
//
// Symbols are checked in table order and the first one found anywhere wins,
// regardless of where it sits relative to the amount. Failing that, the first
// allow-listed code in document order is used, then the configured default.
// Blank text has nothing to default from and resolves to absent.
func (e *Engine) ResolveCurrency(text string) Optional[string] {
	if strings.TrimSpace(text) == "" {
		return None[string]()
	}
	for _, s := range e.cfg.Symbols {
		if strings.Contains(text, s.Symbol) {
			return Some(s.Code)
		}
	}
	if m := e.codeRe.FindStringSubmatch(text); m != nil {
		return Some(strings.ToUpper(m[1]))
	}
	if e.cfg.DefaultCurrency != "" {
		return Some(e.cfg.DefaultCurrency)
	}
	return None[string]()
}
