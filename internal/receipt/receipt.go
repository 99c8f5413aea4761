package receipt

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-scanner/internal/extraction"
)

var (
	// ErrNotFound is returned when a receipt does not exist
	ErrNotFound = errors.New("receipt not found")
	// ErrInvalidInput is returned for uploads and updates that cannot be applied
	ErrInvalidInput = errors.New("invalid input")
)

// Status is the lifecycle state of an expense record
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusSubmitted
}

// Receipt is an expense record created from an uploaded receipt. Uploads start
// as drafts filled from the OCR extraction; users correct them with updates.
type Receipt struct {
	ID           string          `json:"id"`
	Description  string          `json:"description"`
	Date         *time.Time      `json:"date"`
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currency_code"`
	Status       Status          `json:"status"`
	Category     string          `json:"category"`
	PaidBy       string          `json:"paid_by"`
	Remarks      string          `json:"remarks"`
	Filename     string          `json:"filename"`
	ContentType  string          `json:"content_type"`
	// OCRText is the raw scanner output the extraction ran over
	OCRText    string            `json:"ocr_text"`
	Extraction extraction.Result `json:"extraction"`
	// NeedsReview is set when the extraction missed at least one field
	NeedsReview bool      `json:"needs_review"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ReceiptUpdate holds user corrections. Nil fields are left unchanged.
type ReceiptUpdate struct {
	Description  *string          `json:"description"`
	Category     *string          `json:"category"`
	PaidBy       *string          `json:"paid_by"`
	Remarks      *string          `json:"remarks"`
	CurrencyCode *string          `json:"currency_code"`
	Status       *Status          `json:"status"`
	Amount       *decimal.Decimal `json:"amount"`
	// Date is YYYY-MM-DD; anything else is ignored
	Date *string `json:"date"`
}
