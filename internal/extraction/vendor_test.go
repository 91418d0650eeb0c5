package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestResolver() *VendorResolver {
	return NewVendorResolver(DefaultKnownVendors, DefaultHeuristicWindow, DefaultRegistry())
}

func TestVendorResolver_Name(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{
			name:     "known vendor is case-insensitive",
			text:     "Thanks\nmgd construction services\n",
			expected: "MGD Construction Services",
		},
		{
			name:     "remit block",
			text:     "INVOICE\nRemit To:\nNorthwind Traders\nPO Box 12\n",
			expected: "Northwind Traders",
		},
		{
			name:     "approved date anchor skips the date value",
			text:     "PURCHASE ORDER\nApproved Date\n01/15/2024\nAcme Roofing Co\n",
			expected: "Acme Roofing Co",
		},
		{
			name:     "company indicator skips header lines",
			text:     "INVOICE\nBill To: Someone\nBright Path Services LLC\n123 Main St",
			expected: "Bright Path Services LLC",
		},
		{
			name:     "header words match whole words only",
			text:     "Invoice 1234 Services\nWholesale Roofing Supply",
			expected: "Wholesale Roofing Supply",
		},
		{
			name:     "first substantive line",
			text:     "12345\nRiverside Lumber Yard\n",
			expected: "Riverside Lumber Yard",
		},
		{
			name:     "first line with accented letters",
			text:     "12345\nÇağdaş Yapı Ürünleri\n",
			expected: "Çağdaş Yapı Ürünleri",
		},
		{
			name:     "first line in cyrillic",
			text:     "12345\nООО Стройсервис\n",
			expected: "ООО Стройсервис",
		},
		{
			name:     "nothing usable",
			text:     "12345\n$40.00\n",
			expected: "",
		},
	}

	resolver := newTestResolver()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, resolver.Resolve(tt.text).Name)
		})
	}
}

func TestVendorResolver_CustomKnownVendors(t *testing.T) {
	resolver := NewVendorResolver([]string{"  ", "Harbor Freight Depot"}, 0, DefaultRegistry())

	info := resolver.Resolve("Acme Supply LLC\nshipped via harbor freight depot")

	assert.Equal(t, "Harbor Freight Depot", info.Name)
}

func TestVendorResolver_Contact(t *testing.T) {
	text := "Acme Supply LLC\nPhone: 555-123-4567\nEmail: billing@acme.com\nShip To: 42 Oak Lane\nDenver, CO 80202"

	info := newTestResolver().Resolve(text)

	assert.Equal(t, "Acme Supply LLC", info.Name)
	assert.Equal(t, "555-123-4567", info.Phone)
	assert.Equal(t, "billing@acme.com", info.Email)
	assert.Contains(t, info.Address, "80202")
}

func TestCleanVendorName(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
	}{
		{"Acme Supply Inc - Customer # LON014", "Acme Supply Inc"},
		{"Acme Supply Inc 555-123-4567", "Acme Supply Inc"},
		{"Acme Supply Inc billing@acme.com", "Acme Supply Inc"},
		{"  Acme Supply Inc,  ", "Acme Supply Inc"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.expected, cleanVendorName(tt.raw))
		})
	}
}
