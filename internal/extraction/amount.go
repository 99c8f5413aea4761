package extraction

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// amountToken is either a grouped number (1,234 or 1 234 567) or a plain digit
// run, with an optional two-digit fraction. The grouped form is tried first.
const amountToken = `[+-]?(?:\d{1,3}(?:[, ]\d{3})+|\d+)(?:\.\d{2})?`

// maxKeywordGap bounds the non-digit characters between keyword and number.
// The gap is greedy, so dash leaders such as "TOTAL ----500.00" are read as
// punctuation and not as a minus sign.
const maxKeywordGap = 10

func compileAmountPattern(keywords []string) (*regexp.Regexp, error) {
	quoted := make([]string, len(keywords))
	for i, k := range keywords {
		quoted[i] = regexp.QuoteMeta(k)
	}
	return regexp.Compile(`(?i)(?:` + strings.Join(quoted, "|") + `)\D{0,` + strconv.Itoa(maxKeywordGap) + `}(` + amountToken + `)`)
}

// ExtractAmount returns the number following the first amount keyword in the text.
//
// The first keyword in document order wins, so a "Subtotal" line ahead of the
// grand total is what gets picked up.
func (e *Engine) ExtractAmount(text string) Optional[decimal.Decimal] {
	m := e.amountRe.FindStringSubmatch(text)
	if m == nil {
		return None[decimal.Decimal]()
	}
	return parseAmount(m[1])
}

func parseAmount(token string) Optional[decimal.Decimal] {
	clean := strings.NewReplacer(",", "", " ", "").Replace(token)
	d, err := decimal.NewFromString(clean)
	if err != nil || d.IsNegative() {
		return None[decimal.Decimal]()
	}
	return Some(d)
}
