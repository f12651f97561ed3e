package orderflow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLineTotalsDiscountBeforeTax(t *testing.T) {
	amounts := LineTotals(5, 100, 10, 8)
	require.Equal(t, 500.0, amounts.Subtotal)
	require.Equal(t, 50.0, amounts.DiscountAmount)
	// Tax on the post-discount 450, not on 500.
	require.Equal(t, 36.0, amounts.TaxAmount)
	require.Equal(t, 486.0, amounts.LineTotal)
}

func TestLineTotalsZeroInputs(t *testing.T) {
	require.Equal(t, LineAmounts{}, LineTotals(0, 100, 0, 0))
	require.Equal(t, LineAmounts{}, LineTotals(10, 0, 0, 0))
}

func TestLineTotalsNoDiscountNoTax(t *testing.T) {
	amounts := LineTotals(3, 200, 0, 0)
	require.Equal(t, 600.0, amounts.Subtotal)
	require.Equal(t, 0.0, amounts.DiscountAmount)
	require.Equal(t, 0.0, amounts.TaxAmount)
	require.Equal(t, 600.0, amounts.LineTotal)
}

func TestLineTotalsFullDiscount(t *testing.T) {
	amounts := LineTotals(2, 50, 100, 20)
	require.Equal(t, 100.0, amounts.Subtotal)
	require.Equal(t, 100.0, amounts.DiscountAmount)
	require.Equal(t, 0.0, amounts.TaxAmount)
	require.Equal(t, 0.0, amounts.LineTotal)
}

func TestDocumentTotalsAdditivity(t *testing.T) {
	doc := DocumentTotals([]LineInput{
		{Quantity: 5, UnitPrice: 100},
		{Quantity: 3, UnitPrice: 200},
	})
	require.Equal(t, 1100.0, doc.Subtotal)
	require.Equal(t, 1100.0, doc.Total)
}

func TestDocumentTotalsEmpty(t *testing.T) {
	require.Equal(t, DocumentAmounts{}, DocumentTotals(nil))
	require.Equal(t, DocumentAmounts{}, DocumentTotals([]LineInput{}))
}

func TestDocumentTotalsMixedLines(t *testing.T) {
	doc := DocumentTotals([]LineInput{
		{Quantity: 5, UnitPrice: 100, DiscountPercent: 10, TaxRate: 8},
		{Quantity: 1, UnitPrice: 100},
	})
	require.Equal(t, 600.0, doc.Subtotal)
	require.Equal(t, 50.0, doc.TotalDiscount)
	require.Equal(t, 36.0, doc.TotalTax)
	require.Equal(t, 586.0, doc.Total)
	require.Equal(t, doc.Subtotal-doc.TotalDiscount+doc.TotalTax, doc.Total)
}
