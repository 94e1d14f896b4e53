package domain

import "time"

type Cart struct {
	UserID    string
	Items     []CartLine
	UpdatedAt time.Time
}

type CartLine struct {
	ItemID   string
	Quantity int
}

// CartEntry is the canonical form of one requested cart change, produced by
// payload normalization before any validation happens.
type CartEntry struct {
	ItemID   string
	Quantity int
}

// Line returns the index of the line holding itemID, or -1.
func (c *Cart) Line(itemID string) int {
	for i, line := range c.Items {
		if line.ItemID == itemID {
			return i
		}
	}
	return -1
}

func (c *Cart) ItemIDs() []string {
	ids := make([]string, 0, len(c.Items))
	for _, line := range c.Items {
		ids = append(ids, line.ItemID)
	}
	return ids
}
