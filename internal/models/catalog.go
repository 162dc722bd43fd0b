package models

// Diet marks an item as vegetarian or not
type Diet string

const (
	DietVeg    Diet = "veg"
	DietNonVeg Diet = "non-veg"
)

// MenuItem represents a dish on the restaurant menu.
// Prices are whole currency units.
type MenuItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       int64  `json:"price"`
	Diet        Diet   `json:"diet"`
	Category    string `json:"category"`
	Enabled     bool   `json:"enabled"`
}

// Category groups menu items; a disabled category disables all of its items
type Category struct {
	Name    string     `json:"name"`
	Enabled bool       `json:"enabled"`
	Items   []MenuItem `json:"items"`
}

// Orderable reports whether the item can be added to a cart given its category state
func (i MenuItem) Orderable(categoryEnabled bool) bool {
	return i.Enabled && categoryEnabled
}
