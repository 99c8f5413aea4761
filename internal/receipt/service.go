package receipt

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-scanner/internal/extraction"
	"github.com/zombor/receipt-scanner/internal/scanning"
)

// defaultDescription is used when no merchant could be read off the receipt
const defaultDescription = "Receipt"

// Extractor turns OCR text into structured fields
type Extractor interface {
	Extract(text string) extraction.Result
}

// IDGenerator generates unique IDs for receipts
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (defaultTimeSource) Now() time.Time {
	return time.Now().UTC()
}

// Service handles receipt operations
type Service struct {
	db          DB
	scanner     scanning.Scanner
	storage     Storage
	extractor   Extractor
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with UUID IDs and the wall clock
func NewService(db DB, scanner scanning.Scanner, storage Storage, extractor Extractor) *Service {
	return NewServiceWithDeps(db, scanner, storage, extractor, uuidGenerator{}, defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, scanner scanning.Scanner, storage Storage, extractor Extractor, idGen IDGenerator, timeSrc TimeSource) *Service {
	if extractor == nil {
		extractor = extraction.DefaultEngine()
	}
	return &Service{
		db:          db,
		scanner:     scanner,
		storage:     storage,
		extractor:   extractor,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	reFilenameJunk = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	reFilenameWS   = regexp.MustCompile(`\s+`)
)

// sanitizeFilename strips special characters and shortens long phone-generated names
func sanitizeFilename(filename string) string {
	filename = filepath.Base(filepath.ToSlash(filename))
	ext := strings.ToLower(filepath.Ext(filename))
	if reFilenameJunk.MatchString(strings.TrimPrefix(ext, ".")) {
		ext = ""
	}
	base := strings.TrimSuffix(filename, filepath.Ext(filename))

	base = reFilenameJunk.ReplaceAllString(base, "")
	base = strings.TrimSpace(reFilenameWS.ReplaceAllString(base, " "))
	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}
	return base + ext
}

// ProcessReceipt stores an upload, reads its text and saves a draft filled
// from the extraction. OCR problems never fail the upload; the draft just
// comes back with fewer fields and NeedsReview set.
func (s *Service) ProcessReceipt(ctx context.Context, filename string, data []byte, contentType string) (*Receipt, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidInput)
	}

	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	savedName, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	text := scanning.ReadText(ctx, s.scanner, data, contentType)
	receipt := s.draft(s.extractor.Extract(text))
	receipt.ID = id
	receipt.Filename = savedName
	receipt.ContentType = contentType
	receipt.CreatedAt = now
	receipt.UpdatedAt = now

	if err := s.db.SaveReceipt(ctx, receipt); err != nil {
		if delErr := s.storage.Delete(savedName); delErr != nil {
			slog.Warn("Failed to clean up file", "filename", savedName, "error", delErr)
		}
		return nil, fmt.Errorf("saving receipt to database: %w", err)
	}

	slog.Info("Processed receipt",
		"id", id,
		"filename", filename,
		"needs_review", receipt.NeedsReview,
		"missing", receipt.Extraction.Missing(),
	)
	return receipt, nil
}

// draft builds an unsaved draft from an extraction result
func (s *Service) draft(res extraction.Result) *Receipt {
	return &Receipt{
		Description:  res.Merchant.OrElse(defaultDescription),
		Date:         res.Date.Ptr(),
		Amount:       res.Amount.OrElse(decimal.Zero),
		CurrencyCode: res.Currency.OrElse(""),
		Status:       StatusDraft,
		OCRText:      res.RawText,
		Extraction:   res,
		NeedsReview:  !res.Complete(),
	}
}

// ExtractText runs the extraction over text without storing anything
func (s *Service) ExtractText(text string) extraction.Result {
	return s.extractor.Extract(text)
}

// UpdateReceipt applies user corrections. Nothing is recomputed from the OCR
// text, and a date that is not YYYY-MM-DD is ignored. Any accepted update
// clears NeedsReview.
func (s *Service) UpdateReceipt(ctx context.Context, id string, upd ReceiptUpdate) (*Receipt, error) {
	receipt, err := s.db.GetReceipt(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}

	if upd.Description != nil {
		d := strings.TrimSpace(*upd.Description)
		if d == "" {
			return nil, fmt.Errorf("%w: description cannot be empty", ErrInvalidInput)
		}
		receipt.Description = d
	}
	if upd.Category != nil {
		receipt.Category = strings.TrimSpace(*upd.Category)
	}
	if upd.PaidBy != nil {
		receipt.PaidBy = strings.TrimSpace(*upd.PaidBy)
	}
	if upd.Remarks != nil {
		receipt.Remarks = strings.TrimSpace(*upd.Remarks)
	}
	if upd.CurrencyCode != nil {
		code := strings.ToUpper(strings.TrimSpace(*upd.CurrencyCode))
		if !extraction.IsCurrencyCode(code) {
			return nil, fmt.Errorf("%w: currency code %q", ErrInvalidInput, *upd.CurrencyCode)
		}
		receipt.CurrencyCode = code
	}
	if upd.Status != nil {
		if !upd.Status.Valid() {
			return nil, fmt.Errorf("%w: status %q", ErrInvalidInput, *upd.Status)
		}
		receipt.Status = *upd.Status
	}
	if upd.Amount != nil {
		if upd.Amount.IsNegative() {
			return nil, fmt.Errorf("%w: amount cannot be negative", ErrInvalidInput)
		}
		receipt.Amount = upd.Amount.Round(2)
	}
	if upd.Date != nil {
		if d, err := time.Parse(time.DateOnly, strings.TrimSpace(*upd.Date)); err == nil {
			receipt.Date = &d
		} else {
			slog.Debug("Ignoring invalid date", "id", id, "date", *upd.Date)
		}
	}

	receipt.NeedsReview = false
	receipt.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveReceipt(ctx, receipt); err != nil {
		return nil, fmt.Errorf("saving receipt: %w", err)
	}
	return receipt, nil
}

// GetReceipt retrieves a receipt by ID
func (s *Service) GetReceipt(ctx context.Context, id string) (*Receipt, error) {
	receipt, err := s.db.GetReceipt(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	return receipt, nil
}

// ListReceipts returns all receipts, newest first
func (s *Service) ListReceipts(ctx context.Context) ([]*Receipt, error) {
	receipts, err := s.db.ListReceipts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	return receipts, nil
}

// DeleteReceipt removes a receipt and its file
func (s *Service) DeleteReceipt(ctx context.Context, id string) error {
	receipt, err := s.db.GetReceipt(ctx, id)
	if err != nil {
		return fmt.Errorf("getting receipt for deletion: %w", err)
	}

	if err := s.storage.Delete(receipt.Filename); err != nil {
		// The record goes anyway; an orphaned file is harmless
		slog.Warn("Failed to delete file", "filename", receipt.Filename, "error", err)
	}

	if err := s.db.DeleteReceipt(ctx, id); err != nil {
		return fmt.Errorf("deleting receipt from database: %w", err)
	}
	return nil
}

// GetReceiptFile retrieves the uploaded file and its content type
func (s *Service) GetReceiptFile(ctx context.Context, id string) ([]byte, string, error) {
	receipt, err := s.db.GetReceipt(ctx, id)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt: %w", err)
	}

	data, err := s.storage.Get(receipt.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt file: %w", err)
	}
	return data, receipt.ContentType, nil
}
