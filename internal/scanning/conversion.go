package scanning

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"net/http"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// pdfDPI is the render resolution for PDF pages; OCR needs more than screen DPI.
const pdfDPI = 300

// ErrUnsupportedFormat is returned for inputs that cannot be turned into a PNG.
var ErrUnsupportedFormat = errors.New("unsupported image format (supported: JPEG, PNG, GIF, HEIC, HEIF, PDF)")

type inputFormat int

const (
	formatOther inputFormat = iota
	formatPNG
	formatPDF
	formatHEIC
)

// detectFormat trusts the file's magic bytes over the declared content type,
// since phones and browsers often send octet-stream or a wrong type.
func detectFormat(data []byte, contentType string) inputFormat {
	switch {
	case isHEICFormat(data):
		return formatHEIC
	case bytes.HasPrefix(data, []byte("%PDF-")):
		return formatPDF
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return formatPNG
	}

	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	switch {
	case isHEICMimeType(mimeType):
		return formatHEIC
	case strings.HasPrefix(mimeType, "application/pdf"):
		return formatPDF
	}
	return formatOther
}

// toPNG converts a receipt upload into PNG bytes, the one format every scanner accepts.
// PDFs are rendered from their first page; most receipts are a single page.
func toPNG(data []byte, contentType string) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image data: %w", ErrUnsupportedFormat)
	}

	var (
		img image.Image
		err error
	)
	switch detectFormat(data, contentType) {
	case formatPNG:
		return data, nil
	case formatPDF:
		img, err = renderPDF(data)
	case formatHEIC:
		img, err = heic.Decode(bytes.NewReader(data))
		if err != nil {
			err = fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
	default:
		img, _, err = image.Decode(bytes.NewReader(data))
		if errors.Is(err, image.ErrFormat) {
			return nil, fmt.Errorf("decoding %q: %w", contentType, ErrUnsupportedFormat)
		}
		if err != nil {
			err = fmt.Errorf("decoding image: %w", err)
		}
	}
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

func renderPDF(data []byte) (image.Image, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, fmt.Errorf("PDF has no pages: %w", ErrUnsupportedFormat)
	}
	img, err := doc.ImageDPI(0, pdfDPI)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}
	return img, nil
}

// isHEICFormat looks for an ftyp box with a HEIC/HEIF brand at offset 4.
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heif", "mif1", "msf1":
		return true
	}
	return false
}

func isHEICMimeType(mimeType string) bool {
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}
