// Package config loads the extraction tables from an optional JSON file and
// RECEIPT_-prefixed environment variables, layered over the built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/zombor/receipt-scanner/internal/extraction"
)

// EnvPrefix is the prefix of the environment variables read by Load.
const EnvPrefix = "RECEIPT_"

// fileConfig mirrors the JSON file layout. Unset keys keep the defaults.
type fileConfig struct {
	AmountKeywords    []string                `koanf:"amount_keywords"`
	CurrencySymbols   []extraction.SymbolCode `koanf:"currency_symbols"`
	CurrencyCodes     []string                `koanf:"currency_codes"`
	DefaultCurrency   *string                 `koanf:"default_currency"`
	MerchantScanLines int                     `koanf:"merchant_scan_lines"`
	MerchantMaxLength int                     `koanf:"merchant_max_length"`
}

// Load builds the engine configuration. path may be empty, in which case only
// the environment is consulted. The result is validated.
func Load(path string) (extraction.Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return extraction.Config{}, fmt.Errorf("reading config file: %w", err)
		}
		if err := k.Load(file.Provider(path), kjson.Parser()); err != nil {
			return extraction.Config{}, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return extraction.Config{}, fmt.Errorf("loading environment: %w", err)
	}

	var fc fileConfig
	if err := k.UnmarshalWithConf("", &fc, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		return extraction.Config{}, fmt.Errorf("decoding config: %w", err)
	}

	cfg := fc.apply(extraction.DefaultConfig())
	if err := cfg.Validate(); err != nil {
		return extraction.Config{}, err
	}
	return cfg, nil
}

func (fc fileConfig) apply(cfg extraction.Config) extraction.Config {
	if fc.AmountKeywords != nil {
		cfg.AmountKeywords = fc.AmountKeywords
	}
	if fc.CurrencySymbols != nil {
		cfg.Symbols = fc.CurrencySymbols
	}
	if fc.CurrencyCodes != nil {
		cfg.Codes = fc.CurrencyCodes
	}
	if fc.DefaultCurrency != nil {
		cfg.DefaultCurrency = *fc.DefaultCurrency
	}
	if fc.MerchantScanLines > 0 {
		cfg.MerchantScanLines = fc.MerchantScanLines
	}
	if fc.MerchantMaxLength > 0 {
		cfg.MerchantMaxLength = fc.MerchantMaxLength
	}
	return cfg
}

// envValue maps RECEIPT_AMOUNT_KEYWORDS to amount_keywords and splits the
// list-valued variables. Unknown variables pass through and are ignored on
// decode.
func envValue(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	switch key {
	case "amount_keywords", "currency_codes":
		return key, splitList(value)
	case "currency_symbols":
		pairs, err := parseSymbols(value)
		if err != nil {
			// Keep the broken pair so validation reports it.
			return key, []map[string]any{{"symbol": value, "code": ""}}
		}
		return key, pairs
	}
	return key, value
}

func splitList(s string) []string {
	out := []string{}
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

var errSymbolPair = errors.New("currency symbol must be written as symbol=CODE")

// parseSymbols reads "₹=INR,$=USD" keeping the order given.
func parseSymbols(s string) ([]map[string]any, error) {
	var out []map[string]any
	for _, pair := range splitList(s) {
		sym, code, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(sym) == "" {
			return nil, fmt.Errorf("%w: %q", errSymbolPair, pair)
		}
		out = append(out, map[string]any{
			"symbol": strings.TrimSpace(sym),
			"code":   strings.TrimSpace(code),
		})
	}
	return out, nil
}
