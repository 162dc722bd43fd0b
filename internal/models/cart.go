package models

import "sort"

// CartLine is one (item, quantity) pair; a line never exists with quantity below 1
type CartLine struct {
	ItemID    string `json:"itemId"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
	Note      string `json:"note,omitempty"`
}

// Total returns the line's contribution to the subtotal
func (l CartLine) Total() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// Cart maps item IDs to lines for one user
type Cart struct {
	UserID string              `json:"userId"`
	Lines  map[string]CartLine `json:"lines"`
}

// NewCart creates an empty cart
func NewCart(userID string) Cart {
	return Cart{UserID: userID, Lines: make(map[string]CartLine)}
}

// Subtotal sums unit price times quantity over all lines
func (c Cart) Subtotal() int64 {
	var subtotal int64
	for _, line := range c.Lines {
		subtotal += line.Total()
	}
	return subtotal
}

// IsEmpty reports whether the cart has no lines
func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Quantity returns the quantity held for an item, 0 when absent
func (c Cart) Quantity(itemID string) int {
	return c.Lines[itemID].Quantity
}

// ItemCount is the total number of units across lines
func (c Cart) ItemCount() int {
	count := 0
	for _, line := range c.Lines {
		count += line.Quantity
	}
	return count
}

// Clone returns a deep copy safe to hand to other goroutines
func (c Cart) Clone() Cart {
	lines := make(map[string]CartLine, len(c.Lines))
	for id, line := range c.Lines {
		lines[id] = line
	}
	return Cart{UserID: c.UserID, Lines: lines}
}

// SortedLines returns the lines ordered by name, then item ID
func (c Cart) SortedLines() []CartLine {
	lines := make([]CartLine, 0, len(c.Lines))
	for _, line := range c.Lines {
		lines = append(lines, line)
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].Name != lines[j].Name {
			return lines[i].Name < lines[j].Name
		}
		return lines[i].ItemID < lines[j].ItemID
	})
	return lines
}

// CartResponse is the body of GET cart
type CartResponse struct {
	Items []CartLine `json:"items"`
}

// CartUpdate is the body of PUT cart. A nil line tombstones that item.
type CartUpdate struct {
	Items map[string]*CartLine `json:"items"`
}
