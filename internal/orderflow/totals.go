package orderflow

// LineAmounts is the breakdown of a single document line.
type LineAmounts struct {
	Subtotal       float64
	DiscountAmount float64
	TaxAmount      float64
	LineTotal      float64
}

// DocumentAmounts is the roll-up over all lines of a document.
type DocumentAmounts struct {
	Subtotal      float64
	TotalDiscount float64
	TotalTax      float64
	Total         float64
}

// LineInput carries the pricing fields of one line for totals computation.
type LineInput struct {
	Quantity        float64
	UnitPrice       float64
	DiscountPercent float64
	TaxRate         float64
}

// LineTotals computes the amounts for a single line. Discount applies before
// tax: tax is charged on the post-discount amount. This ordering is a hard
// contract. No rounding is performed; currency rounding belongs to the
// presentation layer so the arithmetic stays exact and composable.
func LineTotals(quantity, unitPrice, discountPercent, taxRate float64) LineAmounts {
	subtotal := quantity * unitPrice
	discountAmount := subtotal * discountPercent / 100
	taxAmount := (subtotal - discountAmount) * taxRate / 100
	return LineAmounts{
		Subtotal:       subtotal,
		DiscountAmount: discountAmount,
		TaxAmount:      taxAmount,
		LineTotal:      subtotal - discountAmount + taxAmount,
	}
}

// DocumentTotals sums LineTotals over every line. An empty line list yields
// all zeros.
func DocumentTotals(lines []LineInput) DocumentAmounts {
	var doc DocumentAmounts
	for _, line := range lines {
		amounts := LineTotals(line.Quantity, line.UnitPrice, line.DiscountPercent, line.TaxRate)
		doc.Subtotal += amounts.Subtotal
		doc.TotalDiscount += amounts.DiscountAmount
		doc.TotalTax += amounts.TaxAmount
	}
	doc.Total = doc.Subtotal - doc.TotalDiscount + doc.TotalTax
	return doc
}
