package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/storefront/internal/core/domain"
)

func decode(t *testing.T, payload string) any {
	t.Helper()
	var raw any
	require.NoError(t, json.Unmarshal([]byte(payload), &raw))
	return raw
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    []domain.CartEntry
	}{
		{
			name:    "nested item object under items",
			payload: `{"items":[{"item":{"_id":"A"},"quantity":3}]}`,
			want:    []domain.CartEntry{{ItemID: "A", Quantity: 3}},
		},
		{
			name:    "empty object",
			payload: `{}`,
			want:    []domain.CartEntry{},
		},
		{
			name:    "single itemId",
			payload: `{"itemId":"B","quantity":2}`,
			want:    []domain.CartEntry{{ItemID: "B", Quantity: 2}},
		},
		{
			name:    "single scalar item without quantity",
			payload: `{"item":"C"}`,
			want:    []domain.CartEntry{{ItemID: "C", Quantity: 1}},
		},
		{
			name:    "nested id field",
			payload: `{"item":{"id":"D"},"quantity":"4"}`,
			want:    []domain.CartEntry{{ItemID: "D", Quantity: 4}},
		},
		{
			name:    "itemId wins over item",
			payload: `{"itemId":"E","item":"F"}`,
			want:    []domain.CartEntry{{ItemID: "E", Quantity: 1}},
		},
		{
			name:    "numeric id",
			payload: `{"itemId":42}`,
			want:    []domain.CartEntry{{ItemID: "42", Quantity: 1}},
		},
		{
			name:    "non-positive and junk quantities floor at one",
			payload: `{"items":[{"itemId":"A","quantity":0},{"itemId":"B","quantity":-5},{"itemId":"C","quantity":"lots"},{"itemId":"D","quantity":2.9}]}`,
			want: []domain.CartEntry{
				{ItemID: "A", Quantity: 1},
				{ItemID: "B", Quantity: 1},
				{ItemID: "C", Quantity: 1},
				{ItemID: "D", Quantity: 2},
			},
		},
		{
			name:    "unresolvable id kept empty",
			payload: `{"items":[{"quantity":2},{"item":{"name":"x"}}]}`,
			want:    []domain.CartEntry{{ItemID: "", Quantity: 2}, {ItemID: "", Quantity: 1}},
		},
		{
			name:    "non-object list elements skipped",
			payload: `{"items":["A",7,{"itemId":"B"}]}`,
			want:    []domain.CartEntry{{ItemID: "B", Quantity: 1}},
		},
		{
			name:    "items not a list",
			payload: `{"items":"A"}`,
			want:    []domain.CartEntry{},
		},
		{
			name:    "top level array",
			payload: `[{"itemId":"A"}]`,
			want:    []domain.CartEntry{},
		},
		{
			name:    "scalar payload",
			payload: `"A"`,
			want:    []domain.CartEntry{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(decode(t, tt.payload)))
		})
	}
}

func TestNormalize_Nil(t *testing.T) {
	got := Normalize(nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in   any
		want int
		ok   bool
	}{
		{float64(3), 3, true},
		{"7", 7, true},
		{json.Number("2"), 2, true},
		{float64(0), 0, false},
		{float64(-1), 0, false},
		{float64(1.5), 0, false},
		{"abc", 0, false},
		{nil, 0, false},
		{true, 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseQuantity(tt.in)
		assert.Equal(t, tt.ok, ok, "input %v", tt.in)
		assert.Equal(t, tt.want, got, "input %v", tt.in)
	}
}
