package orderflow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQuantityPipelineValid(t *testing.T) {
	q := QuantityPipeline{Ordered: 10, Allocated: 10, Picked: 7, Shipped: 7, Delivered: 5, Invoiced: 5}
	require.NoError(t, q.Validate())

	require.NoError(t, QuantityPipeline{}.Validate())
	require.NoError(t, QuantityPipeline{Ordered: 10}.Validate())
}

func TestQuantityPipelineViolations(t *testing.T) {
	tests := []struct {
		name  string
		q     QuantityPipeline
		field string
	}{
		{"allocated over ordered", QuantityPipeline{Ordered: 5, Allocated: 6}, "quantity_allocated"},
		{"picked over allocated", QuantityPipeline{Ordered: 10, Allocated: 5, Picked: 6}, "quantity_picked"},
		{"shipped over picked", QuantityPipeline{Ordered: 10, Allocated: 10, Picked: 7, Shipped: 10}, "quantity_shipped"},
		{"delivered over shipped", QuantityPipeline{Ordered: 10, Allocated: 10, Picked: 10, Shipped: 4, Delivered: 5}, "quantity_delivered"},
		{"invoiced over delivered", QuantityPipeline{Ordered: 10, Allocated: 10, Picked: 10, Shipped: 10, Delivered: 2, Invoiced: 3}, "quantity_invoiced"},
		{"negative counter", QuantityPipeline{Ordered: 10, Allocated: -1}, "quantity_allocated"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.q.Validate()
			require.ErrorIs(t, err, ErrQuantityConservation)
			require.Contains(t, err.Error(), tc.field)
		})
	}
}

func TestQuantityAdvanceValid(t *testing.T) {
	// Line ordered 10, picked 7: shipping 10 must be rejected.
	require.False(t, QuantityAdvanceValid(0, 10, 7))
	require.True(t, QuantityAdvanceValid(0, 7, 7))
	require.True(t, QuantityAdvanceValid(3, 5, 7))
	// Counters never move backwards.
	require.False(t, QuantityAdvanceValid(5, 3, 7))
	// Staying put is fine.
	require.True(t, QuantityAdvanceValid(5, 5, 7))
}

func TestShippingRollup(t *testing.T) {
	require.Equal(t, SOStatusShipped, ShippingRollup(SOStatusPicked, []ShippingLine{
		{Ordered: 10, Shipped: 10},
		{Ordered: 5, Shipped: 5},
	}))
	require.Equal(t, SOStatusPartialShipped, ShippingRollup(SOStatusPicked, []ShippingLine{
		{Ordered: 10, Shipped: 10},
		{Ordered: 5, Shipped: 0},
	}))
	require.Equal(t, SOStatusPicked, ShippingRollup(SOStatusPicked, []ShippingLine{
		{Ordered: 10, Shipped: 0},
	}))
	require.Equal(t, SOStatusPicked, ShippingRollup(SOStatusPicked, nil))
}

func TestShippingRollupSuggestionStillGated(t *testing.T) {
	// The roll-up suggests, the transition table decides. From picked the
	// suggestion is accepted; from draft it is not.
	suggestion := ShippingRollup(SOStatusPicked, []ShippingLine{{Ordered: 10, Shipped: 10}})
	require.True(t, ValidSOTransition(SOStatusPicked, suggestion))
	require.False(t, ValidSOTransition(SOStatusDraft, suggestion))
}
