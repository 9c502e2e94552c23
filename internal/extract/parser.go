package extract

import (
	"log/slog"
)

// Fields is the raw per-field outcome for one document.
type Fields struct {
	Date   *Result[string]
	Amount *Result[int64]
	Vendor *Result[string]
	// Handwritten is set when the total is missing and the text looks like a
	// handwritten receipt that OCR could not read.
	Handwritten bool
}

// Parser runs the three field extractors over a single document. It holds no
// per-document state and is safe for concurrent use.
type Parser struct {
	logger *slog.Logger
	Date   DateField
	Amount AmountField
	Vendor VendorField
}

func NewParser(logger *slog.Logger, date DateField, amount AmountField, vendor VendorField) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	if date == nil {
		date = NewDateExtractor(logger)
	}
	if amount == nil {
		amount = NewAmountExtractor(logger)
	}
	if vendor == nil {
		vendor = NewVendorExtractor(logger)
	}
	return &Parser{logger: logger, Date: date, Amount: amount, Vendor: vendor}
}

// NewDefaultParser wires the standard extractors.
func NewDefaultParser(logger *slog.Logger) *Parser {
	return NewParser(logger, nil, nil, nil)
}

func (p *Parser) Parse(text string) Fields {
	ctx := NewReceiptContext(text)
	f := Fields{
		Date:   p.Date.Extract(ctx),
		Amount: p.Amount.Extract(ctx),
		Vendor: p.Vendor.Extract(ctx),
	}
	if f.Amount == nil {
		f.Handwritten = LooksHandwritten(ctx.FullText, f.Date != nil)
		if f.Handwritten {
			p.logger.Warn("extract.amount.handwritten_suspected")
		}
	}
	return f
}
