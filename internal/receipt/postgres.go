package receipt

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

//go:embed 001_create_receipts.sql
var migrationSQL string

// PostgresConfig holds the PostgreSQL connection settings
type PostgresConfig struct {
	// DSN is a libpq connection string or postgres:// URL
	DSN string
	// MaxConns caps the pool size, 10 when zero
	MaxConns int32
}

// PostgresDB implements the DB interface on PostgreSQL
type PostgresDB struct {
	pool *pgxpool.Pool
}

// NewPostgresDB connects, pings and creates the receipts table if needed
func NewPostgresDB(ctx context.Context, cfg PostgresConfig) (*PostgresDB, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	pc.MaxConns = cfg.MaxConns
	if pc.MaxConns == 0 {
		pc.MaxConns = 10
	}
	pc.MaxConnIdleTime = 30 * time.Minute
	pc.ConnConfig.RuntimeParams["application_name"] = "receipt-scanner"

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := pool.Exec(ctx, migrationSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	slog.Info("Connected to PostgreSQL", "host", pc.ConnConfig.Host, "database", pc.ConnConfig.Database)
	return &PostgresDB{pool: pool}, nil
}

const receiptColumns = `id, description, expense_date, amount::text, currency_code, status,
	category, paid_by, remarks, filename, content_type, ocr_text, extraction,
	needs_review, created_at, updated_at`

// SaveReceipt inserts the receipt or replaces the row with the same ID
func (p *PostgresDB) SaveReceipt(ctx context.Context, r *Receipt) error {
	ext, err := json.Marshal(r.Extraction)
	if err != nil {
		return fmt.Errorf("marshaling extraction: %w", err)
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO receipts (id, description, expense_date, amount, currency_code, status,
			category, paid_by, remarks, filename, content_type, ocr_text, extraction,
			needs_review, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			description = EXCLUDED.description,
			expense_date = EXCLUDED.expense_date,
			amount = EXCLUDED.amount,
			currency_code = EXCLUDED.currency_code,
			status = EXCLUDED.status,
			category = EXCLUDED.category,
			paid_by = EXCLUDED.paid_by,
			remarks = EXCLUDED.remarks,
			filename = EXCLUDED.filename,
			content_type = EXCLUDED.content_type,
			ocr_text = EXCLUDED.ocr_text,
			extraction = EXCLUDED.extraction,
			needs_review = EXCLUDED.needs_review,
			updated_at = EXCLUDED.updated_at`,
		r.ID, r.Description, r.Date, r.Amount.StringFixed(2), r.CurrencyCode, string(r.Status),
		r.Category, r.PaidBy, r.Remarks, r.Filename, r.ContentType, r.OCRText, ext,
		r.NeedsReview, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting receipt %s: %w", r.ID, err)
	}
	return nil
}

// GetReceipt retrieves a receipt by ID
func (p *PostgresDB) GetReceipt(ctx context.Context, id string) (*Receipt, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+receiptColumns+` FROM receipts WHERE id = $1`, id)
	r, err := scanReceipt(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying receipt %s: %w", id, err)
	}
	return r, nil
}

// ListReceipts returns all receipts, newest first
func (p *PostgresDB) ListReceipts(ctx context.Context) ([]*Receipt, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+receiptColumns+` FROM receipts ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying receipts: %w", err)
	}
	receipts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Receipt, error) {
		return scanReceipt(row)
	})
	if err != nil {
		return nil, fmt.Errorf("reading receipts: %w", err)
	}
	if receipts == nil {
		receipts = make([]*Receipt, 0)
	}
	return receipts, nil
}

// DeleteReceipt removes a receipt from the database
func (p *PostgresDB) DeleteReceipt(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM receipts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting receipt %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Close closes the connection pool
func (p *PostgresDB) Close() error {
	p.pool.Close()
	return nil
}

func scanReceipt(row pgx.Row) (*Receipt, error) {
	var (
		r      Receipt
		amount string
		status string
		ext    []byte
	)
	err := row.Scan(
		&r.ID, &r.Description, &r.Date, &amount, &r.CurrencyCode, &status,
		&r.Category, &r.PaidBy, &r.Remarks, &r.Filename, &r.ContentType, &r.OCRText, &ext,
		&r.NeedsReview, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if r.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parsing amount of %s: %w", r.ID, err)
	}
	r.Status = Status(status)
	if err := json.Unmarshal(ext, &r.Extraction); err != nil {
		return nil, fmt.Errorf("decoding extraction of %s: %w", r.ID, err)
	}
	if r.Date != nil {
		d := r.Date.UTC()
		r.Date = &d
	}
	return &r, nil
}
