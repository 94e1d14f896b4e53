package service

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/rl1809/storefront/internal/core/domain"
)

const maxLineQuantity = math.MaxInt32

// Normalize turns a decoded JSON cart payload into canonical entries.
//
// Accepted shapes are a single {"itemId"|"item": ..., "quantity": ...} object
// or a list of such objects under "items". "item" may be a scalar id or an
// object carrying "_id" or "id". Quantity defaults to 1 and is floored at 1.
// Entries whose id cannot be read are kept with an empty ItemID so that
// validation rejects them; any other payload yields an empty slice.
func Normalize(raw any) []domain.CartEntry {
	entries := []domain.CartEntry{}

	obj, ok := raw.(map[string]any)
	if !ok {
		return entries
	}

	if list, ok := obj["items"].([]any); ok {
		for _, elem := range list {
			if line, ok := elem.(map[string]any); ok {
				entries = append(entries, normalizeLine(line))
			}
		}
		return entries
	}

	_, hasItemID := obj["itemId"]
	_, hasItem := obj["item"]
	if hasItemID || hasItem {
		entries = append(entries, normalizeLine(obj))
	}
	return entries
}

func normalizeLine(line map[string]any) domain.CartEntry {
	id := itemRef(line["itemId"])
	if id == "" {
		id = itemRef(line["item"])
	}
	return domain.CartEntry{ItemID: id, Quantity: coerceQuantity(line["quantity"])}
}

func itemRef(v any) string {
	switch ref := v.(type) {
	case string:
		return strings.TrimSpace(ref)
	case float64:
		if ref != math.Trunc(ref) || math.IsInf(ref, 0) {
			return ""
		}
		return strconv.FormatFloat(ref, 'f', -1, 64)
	case json.Number:
		return ref.String()
	case map[string]any:
		if id := itemRef(ref["_id"]); id != "" {
			return id
		}
		return itemRef(ref["id"])
	}
	return ""
}

func coerceQuantity(v any) int {
	var f float64
	switch q := v.(type) {
	case float64:
		f = q
	case int:
		f = float64(q)
	case json.Number:
		parsed, err := q.Float64()
		if err != nil {
			return 1
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(q), 64)
		if err != nil {
			return 1
		}
		f = parsed
	default:
		return 1
	}

	if math.IsNaN(f) || f < 1 {
		return 1
	}
	if f > maxLineQuantity {
		return maxLineQuantity
	}
	return int(f)
}

// ParseQuantity reads a strictly positive whole quantity from a decoded JSON
// value. Unlike cart normalization it does not default or floor.
func ParseQuantity(v any) (int, bool) {
	var f float64
	switch q := v.(type) {
	case float64:
		f = q
	case json.Number:
		parsed, err := q.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(q), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || f != math.Trunc(f) || f < 1 || f > maxLineQuantity {
		return 0, false
	}
	return int(f), true
}
