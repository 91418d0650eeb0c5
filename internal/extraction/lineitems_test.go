package extraction

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconstructLineItems_HeaderAnchoredStopsAtTotal(t *testing.T) {
	text := strings.Join([]string{
		"Quantity",
		"Price",
		"Copper elbow",
		"Special instructions apply",
		"4",
		"$5.00",
		"$20.00",
		"Total: $20.00",
		"Ghost item",
		"1",
		"$9.00",
		"$9.00",
	}, "\n")

	items, strategy := ReconstructLineItems(text, DefaultStrategies)

	assert.Equal(t, StrategyHeaderAnchored, strategy)
	require.Len(t, items, 1)
	assert.Equal(t, "Copper elbow", items[0].Description)
	assert.True(t, items[0].Quantity.Equal(decimal.NewFromInt(4)))
	assert.True(t, items[0].UnitPrice.Equal(decimal.RequireFromString("5")))
	assert.True(t, items[0].LineTotal.Equal(decimal.RequireFromString("20")))
}

func TestReconstructLineItems_SummaryTotalAboveHeader(t *testing.T) {
	text := strings.Join([]string{
		"12345678",
		"Order Total: $100.00",
		"Product Name",
		"Quantity",
		"Price",
		"Widget",
		"2",
		"blue finish",
		"$50.00",
		"$100.00",
		"Total: $100.00",
	}, "\n")

	items, strategy := ReconstructLineItems(text, DefaultStrategies)

	assert.Equal(t, StrategyHeaderAnchored, strategy)
	require.Len(t, items, 1)
	assert.Equal(t, "Widget blue finish", items[0].Description)
	assert.True(t, items[0].Quantity.Equal(decimal.NewFromInt(2)))
	assert.True(t, items[0].LineTotal.Equal(decimal.RequireFromString("100")))
}

func TestReconstructLineItems_InlineTable(t *testing.T) {
	text := strings.Join([]string{
		"Invoice Number: 3301",
		"Product Name",
		"Quantity",
		"Price",
		"Roof shingles repair",
		"13.16 $130.00 $1,710.80",
		"Gutter guard 7.20 $170.00 $1,224.00 Flashing",
		"kit 1 $45.00 $45.00",
		"north side",
		"Total: $2,979.80",
		"Ghost 1 $9.00 $9.00",
	}, "\n")

	items, strategy := ReconstructLineItems(text, DefaultStrategies)

	assert.Equal(t, StrategyInlineTable, strategy)
	require.Len(t, items, 3)

	tests := []struct {
		description string
		quantity    string
		unitPrice   string
		lineTotal   string
	}{
		{"Roof shingles repair", "13.16", "130.00", "1710.80"},
		{"Gutter guard", "7.20", "170.00", "1224.00"},
		{"Flashing kit north side", "1", "45.00", "45.00"},
	}
	for i, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			item := items[i]
			assert.Equal(t, i+1, item.LineNumber)
			assert.Equal(t, tt.description, item.Description)
			assert.True(t, item.Quantity.Equal(decimal.RequireFromString(tt.quantity)))
			assert.True(t, item.UnitPrice.Equal(decimal.RequireFromString(tt.unitPrice)))
			assert.True(t, item.LineTotal.Equal(decimal.RequireFromString(tt.lineTotal)))
		})
	}
}

func TestReconstructLineItems_SingleLine(t *testing.T) {
	text := strings.Join([]string{
		"Item Qty Price Total",
		"Roofing shingles bundle 12 $30.00 $360.00",
		"Quantity shipped 5 10.00 50.00",
		"Ridge cap pieces 4 15.00 60.00",
	}, "\n")

	items, strategy := ReconstructLineItems(text, DefaultStrategies)

	assert.Equal(t, StrategySingleLine, strategy)
	require.Len(t, items, 2)

	tests := []struct {
		description string
		quantity    string
		unitPrice   string
		lineTotal   string
	}{
		{"Roofing shingles bundle", "12", "30.00", "360.00"},
		{"Ridge cap pieces", "4", "15.00", "60.00"},
	}
	for i, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			item := items[i]
			assert.Equal(t, i+1, item.LineNumber)
			assert.Equal(t, tt.description, item.Description)
			assert.True(t, item.Quantity.Equal(decimal.RequireFromString(tt.quantity)))
			assert.True(t, item.UnitPrice.Equal(decimal.RequireFromString(tt.unitPrice)))
			assert.True(t, item.LineTotal.Equal(decimal.RequireFromString(tt.lineTotal)))
		})
	}
}

func TestReconstructLineItems_NoItems(t *testing.T) {
	items, strategy := ReconstructLineItems("Thank you for your business", DefaultStrategies)

	assert.Empty(t, items)
	assert.Equal(t, "", strategy)
}

func TestReconstructLineItems_FirstNonEmptyStrategyWins(t *testing.T) {
	calls := 0
	strategies := []Strategy{
		{Name: "empty", Extract: func([]string) []LineItem { calls++; return nil }},
		{Name: "fixed", Extract: func([]string) []LineItem {
			calls++
			return []LineItem{{LineNumber: 1, Description: "Fixed"}}
		}},
		{Name: "never", Extract: func([]string) []LineItem { calls++; return nil }},
	}

	items, strategy := ReconstructLineItems("anything", strategies)

	assert.Equal(t, "fixed", strategy)
	assert.Len(t, items, 1)
	assert.Equal(t, 2, calls)
}

func TestRepairContinuations(t *testing.T) {
	tests := []struct {
		name     string
		items    []LineItem
		expected []string
	}{
		{
			name: "dash fragment",
			items: []LineItem{
				{LineNumber: 1, Description: "Truss repair"},
				{LineNumber: 2, Description: "- 6/12 Mansard Roof"},
			},
			expected: []string{"Truss repair - 6/12", "Mansard Roof"},
		},
		{
			name: "lowercase fragment",
			items: []LineItem{
				{LineNumber: 1, Description: "Drip edge 2"},
				{LineNumber: 2, Description: "inch flashing Ridge Vent"},
			},
			expected: []string{"Drip edge 2 inch flashing", "Ridge Vent"},
		},
		{
			name: "clean descriptions untouched",
			items: []LineItem{
				{LineNumber: 1, Description: "Gutter guard"},
				{LineNumber: 2, Description: "Downspout"},
			},
			expected: []string{"Gutter guard", "Downspout"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repaired := repairContinuations(tt.items)
			require.Len(t, repaired, len(tt.expected))
			for i, desc := range tt.expected {
				assert.Equal(t, desc, repaired[i].Description)
			}
		})
	}
}

func TestLineItem_Complete(t *testing.T) {
	tests := []struct {
		name     string
		item     LineItem
		expected bool
	}{
		{"quantity and total", LineItem{Quantity: dec("2"), LineTotal: dec("10")}, true},
		{"missing quantity", LineItem{LineTotal: dec("10")}, false},
		{"missing total", LineItem{Quantity: dec("2")}, false},
		{"zero quantity", LineItem{Quantity: dec("0"), LineTotal: dec("10")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.item.Complete())
		})
	}
}
