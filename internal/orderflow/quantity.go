package orderflow

import "fmt"

// QuantityPipeline holds the six counters of a sales order line. Each counter
// must never exceed the one before it:
// ordered ≥ allocated ≥ picked ≥ shipped ≥ delivered ≥ invoiced.
type QuantityPipeline struct {
	Ordered   float64
	Allocated float64
	Picked    float64
	Shipped   float64
	Delivered float64
	Invoiced  float64
}

// Validate checks the conservation chain and returns the first offending
// field, walking downstream. Negative counters are rejected with the same
// error.
func (q QuantityPipeline) Validate() error {
	stages := []struct {
		name string
		qty  float64
		cap  float64
	}{
		{"quantity_allocated", q.Allocated, q.Ordered},
		{"quantity_picked", q.Picked, q.Allocated},
		{"quantity_shipped", q.Shipped, q.Picked},
		{"quantity_delivered", q.Delivered, q.Shipped},
		{"quantity_invoiced", q.Invoiced, q.Delivered},
	}
	if q.Ordered < 0 {
		return fmt.Errorf("%w: quantity_ordered is negative", ErrQuantityConservation)
	}
	for _, s := range stages {
		if s.qty < 0 {
			return fmt.Errorf("%w: %s is negative", ErrQuantityConservation, s.name)
		}
		if s.qty > s.cap {
			return fmt.Errorf("%w: %s %v exceeds %v", ErrQuantityConservation, s.name, s.qty, s.cap)
		}
	}
	return nil
}

// QuantityAdvanceValid reports whether a counter may move from current to
// proposed under the given upstream cap. Counters only advance; a proposed
// value below the current one is a rollback and is rejected here (rollbacks
// happen through document cancellation, not counter edits).
func QuantityAdvanceValid(current, proposed, upstreamCap float64) bool {
	return proposed >= current && proposed <= upstreamCap
}

// ShippingLine is the per-line input for the shipping roll-up.
type ShippingLine struct {
	Ordered float64
	Shipped float64
}

// ShippingRollup derives a status suggestion from line shipping progress.
// The suggestion is advisory: the caller must still pass it through
// ValidSOTransition before writing. When nothing has shipped the current
// status is returned unchanged.
func ShippingRollup(current SalesOrderStatus, lines []ShippingLine) SalesOrderStatus {
	if len(lines) == 0 {
		return current
	}
	allShipped := true
	someShipped := false
	for _, line := range lines {
		if line.Shipped < line.Ordered {
			allShipped = false
		}
		if line.Shipped > 0 {
			someShipped = true
		}
	}
	switch {
	case allShipped:
		return SOStatusShipped
	case someShipped:
		return SOStatusPartialShipped
	default:
		return current
	}
}
