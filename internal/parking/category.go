package parking

import "fmt"

// Category is the vehicle class a slot pool is dedicated to.
type Category string

const (
	CategoryCar   Category = "car"
	CategoryBike  Category = "bike"
	CategoryTruck Category = "truck"
)

// Categories returns every known category in a stable order.
func Categories() []Category {
	return []Category{CategoryCar, CategoryBike, CategoryTruck}
}

// ParseCategory converts user input into a Category.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryCar, CategoryBike, CategoryTruck:
		return Category(s), nil
	}
	return "", fmt.Errorf("unknown vehicle category %q", s)
}

func (c Category) String() string {
	return string(c)
}
