package extraction

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig is returned by NewEngine when the configuration cannot be used.
var ErrInvalidConfig = errors.New("invalid extraction config")

// SymbolCode maps a currency symbol to an ISO 4217 code.
type SymbolCode struct {
	Symbol string `json:"symbol" koanf:"symbol"`
	Code   string `json:"code" koanf:"code"`
}

// Config is the static configuration surface of the engine.
type Config struct {
	// AmountKeywords label the amount, matched case-insensitively as substrings.
	AmountKeywords []string
	// Symbols are tested in order; the first symbol present in the text wins.
	Symbols []SymbolCode
	// Codes is the ISO 4217 allow-list.
	Codes []string
	// DefaultCurrency is used when neither symbols nor codes match. Empty means no default.
	DefaultCurrency string
	// MerchantScanLines is how many leading lines the merchant heuristic looks at.
	MerchantScanLines int
	// MerchantMaxLength truncates the merchant label, in runes.
	MerchantMaxLength int
}

// DefaultConfig returns the built-in tables.
func DefaultConfig() Config {
	return Config{
		AmountKeywords: []string{"total", "amount", "amt", "balance"},
		Symbols: []SymbolCode{
			{Symbol: "₹", Code: "INR"},
			{Symbol: "$", Code: "USD"},
			{Symbol: "€", Code: "EUR"},
			{Symbol: "£", Code: "GBP"},
		},
		Codes:             []string{"INR", "USD", "EUR", "GBP", "AED", "CAD", "AUD", "JPY", "CNY"},
		DefaultCurrency:   "INR",
		MerchantScanLines: 5,
		MerchantMaxLength: 128,
	}
}

// normalized returns a copy with codes uppercased and zero limits filled from the defaults.
func (c Config) normalized() Config {
	def := DefaultConfig()
	out := Config{
		AmountKeywords:    make([]string, 0, len(c.AmountKeywords)),
		Symbols:           make([]SymbolCode, 0, len(c.Symbols)),
		Codes:             make([]string, 0, len(c.Codes)),
		DefaultCurrency:   strings.ToUpper(strings.TrimSpace(c.DefaultCurrency)),
		MerchantScanLines: c.MerchantScanLines,
		MerchantMaxLength: c.MerchantMaxLength,
	}
	for _, k := range c.AmountKeywords {
		if k = strings.TrimSpace(k); k != "" {
			out.AmountKeywords = append(out.AmountKeywords, k)
		}
	}
	for _, s := range c.Symbols {
		out.Symbols = append(out.Symbols, SymbolCode{
			Symbol: strings.TrimSpace(s.Symbol),
			Code:   strings.ToUpper(strings.TrimSpace(s.Code)),
		})
	}
	for _, code := range c.Codes {
		out.Codes = append(out.Codes, strings.ToUpper(strings.TrimSpace(code)))
	}
	if out.MerchantScanLines <= 0 {
		out.MerchantScanLines = def.MerchantScanLines
	}
	if out.MerchantMaxLength <= 0 {
		out.MerchantMaxLength = def.MerchantMaxLength
	}
	return out
}

// Validate checks the configuration after normalization.
func (c Config) Validate() error {
	n := c.normalized()
	if len(n.AmountKeywords) == 0 {
		return fmt.Errorf("%w: at least one amount keyword is required", ErrInvalidConfig)
	}
	if len(n.Codes) == 0 {
		return fmt.Errorf("%w: currency allow-list is empty", ErrInvalidConfig)
	}

	allowed := make(map[string]struct{}, len(n.Codes))
	for _, code := range n.Codes {
		if !IsCurrencyCode(code) {
			return fmt.Errorf("%w: %q is not a 3-letter currency code", ErrInvalidConfig, code)
		}
		allowed[code] = struct{}{}
	}
	for _, s := range n.Symbols {
		if s.Symbol == "" {
			return fmt.Errorf("%w: empty currency symbol for %s", ErrInvalidConfig, s.Code)
		}
		if _, ok := allowed[s.Code]; !ok {
			return fmt.Errorf("%w: symbol %q maps to %q which is not in the allow-list", ErrInvalidConfig, s.Symbol, s.Code)
		}
	}
	if n.DefaultCurrency != "" {
		if _, ok := allowed[n.DefaultCurrency]; !ok {
			return fmt.Errorf("%w: default currency %q is not in the allow-list", ErrInvalidConfig, n.DefaultCurrency)
		}
	}
	return nil
}

// IsCurrencyCode reports whether s has the shape of an ISO 4217 code: three
// upper-case ASCII letters.
func IsCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}
