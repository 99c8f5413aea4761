package extraction

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type resultJSON struct {
	Amount   *json.Number `json:"amount"`
	Currency *string      `json:"currency"`
	Date     *string      `json:"date"`
	Merchant *string      `json:"merchant"`
	Lines    []string     `json:"lines"`
	RawText  string       `json:"raw_text"`
}

// MarshalJSON encodes absent fields as null, the amount as a number with two
// decimals and the date as YYYY-MM-DD.
func (r Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{
		Currency: r.Currency.Ptr(),
		Merchant: r.Merchant.Ptr(),
		Lines:    r.Lines,
		RawText:  r.RawText,
	}
	if out.Lines == nil {
		out.Lines = []string{}
	}
	if d, ok := r.Amount.Get(); ok {
		n := json.Number(d.StringFixed(2))
		out.Amount = &n
	}
	if t, ok := r.Date.Get(); ok {
		s := t.Format(isoDate)
		out.Date = &s
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (r *Result) UnmarshalJSON(data []byte) error {
	var in resultJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	res := Result{
		RawText:  in.RawText,
		Lines:    in.Lines,
		Currency: FromPtr(in.Currency),
		Merchant: FromPtr(in.Merchant),
	}
	if res.Lines == nil {
		res.Lines = []string{}
	}
	if in.Amount != nil {
		d, err := decimal.NewFromString(in.Amount.String())
		if err != nil {
			return fmt.Errorf("decoding amount: %w", err)
		}
		res.Amount = Some(d)
	}
	if in.Date != nil {
		t, err := time.Parse(isoDate, *in.Date)
		if err != nil {
			return fmt.Errorf("decoding date: %w", err)
		}
		res.Date = Some(t)
	}

	*r = res
	return nil
}
