// Package extraction turns OCR text of a receipt into a typed record: amount,
// currency, date and merchant. Every extractor is a pure function of the text;
// a field that cannot be found is absent, never an error.
package extraction

import (
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// Engine runs the extractors with one configuration. It is immutable after
// NewEngine and safe for concurrent use.
type Engine struct {
	cfg      Config
	amountRe *regexp.Regexp
	codeRe   *regexp.Regexp
	dates    DateResolver
}

// Option customizes an Engine.
type Option func(*Engine)

// WithDateResolver replaces the resolver used for dates with named months.
func WithDateResolver(r DateResolver) Option {
	return func(e *Engine) {
		if r != nil {
			e.dates = r
		}
	}
}

// NewEngine validates cfg and compiles its patterns.
func NewEngine(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.normalized()

	amountRe, err := compileAmountPattern(cfg.AmountKeywords)
	if err != nil {
		return nil, fmt.Errorf("%w: compiling amount pattern: %v", ErrInvalidConfig, err)
	}
	codeRe, err := compileCodePattern(cfg.Codes)
	if err != nil {
		return nil, fmt.Errorf("%w: compiling currency pattern: %v", ErrInvalidConfig, err)
	}

	e := &Engine{
		cfg:      cfg,
		amountRe: amountRe,
		codeRe:   codeRe,
		dates:    NaturalDateResolver{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// MustNewEngine is like NewEngine but panics on an invalid configuration.
func MustNewEngine(cfg Config, opts ...Option) *Engine {
	e, err := NewEngine(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return e
}

var defaultEngine = MustNewEngine(DefaultConfig())

// DefaultEngine returns the engine built from DefaultConfig.
func DefaultEngine() *Engine { return defaultEngine }

// Extract runs the default engine over text.
func Extract(text string) Result { return defaultEngine.Extract(text) }

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	c := e.cfg
	c.AmountKeywords = append([]string(nil), c.AmountKeywords...)
	c.Symbols = append([]SymbolCode(nil), c.Symbols...)
	c.Codes = append([]string(nil), c.Codes...)
	return c
}

// Extract runs every extractor over text and assembles the result. The
// extractors share no state, so their order does not matter.
func (e *Engine) Extract(text string) Result {
	lines := SegmentLines(text)
	return Result{
		RawText:  text,
		Lines:    lines,
		Amount:   e.ExtractAmount(text),
		Currency: e.ResolveCurrency(text),
		Date:     e.NormalizeDate(text),
		Merchant: e.PickMerchant(lines),
	}
}

// Result is the structured record extracted from one text. It is built once
// by Extract and not modified afterwards.
type Result struct {
	RawText  string
	Lines    []string
	Amount   Optional[decimal.Decimal]
	Currency Optional[string]
	Date     Optional[time.Time]
	Merchant Optional[string]
}

// Missing lists the names of the fields that were not found.
func (r Result) Missing() []string {
	var missing []string
	if !r.Amount.IsPresent() {
		missing = append(missing, "amount")
	}
	if !r.Currency.IsPresent() {
		missing = append(missing, "currency")
	}
	if !r.Date.IsPresent() {
		missing = append(missing, "date")
	}
	if !r.Merchant.IsPresent() {
		missing = append(missing, "merchant")
	}
	return missing
}

// Complete reports whether every field was found.
func (r Result) Complete() bool {
	return len(r.Missing()) == 0
}
