package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDerive(t *testing.T) {
	tests := []struct {
		name      string
		items     []Item
		wantTotal int64
		wantCount int
	}{
		{
			name:      "empty cart",
			items:     nil,
			wantTotal: 0,
			wantCount: 0,
		},
		{
			name: "single line",
			items: []Item{
				{UnitPrice: 1999, Quantity: 2},
			},
			wantTotal: 3998,
			wantCount: 2,
		},
		{
			name: "multiple lines",
			items: []Item{
				{UnitPrice: 1999, Quantity: 2},
				{UnitPrice: 4599, Quantity: 1},
				{UnitPrice: 100, Quantity: 10},
			},
			wantTotal: 3998 + 4599 + 1000,
			wantCount: 13,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Cart{Items: tt.items}
			c.Derive()
			assert.Equal(t, tt.wantTotal, c.Total)
			assert.Equal(t, tt.wantCount, c.ItemCount)
		})
	}
}

func TestDeriveResetsPreviousFigures(t *testing.T) {
	c := Cart{Total: 999, ItemCount: 42}
	c.Derive()
	assert.Zero(t, c.Total)
	assert.Zero(t, c.ItemCount)
}
