package model

// Recipe is a named list of ingredients.
type Recipe struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Ingredients []Ingredient `json:"ingredients"`
}

// Ingredient is one recipe component.
type Ingredient struct {
	Name     string  `json:"name"`
	Weight   Grams   `json:"weight"`
	Calories float64 `json:"calories"`
}

// TotalWeight sums ingredient weights.
func (r Recipe) TotalWeight() Grams {
	var sum Grams
	for _, ing := range r.Ingredients {
		sum += ing.Weight
	}
	return sum
}

// TotalCalories sums ingredient calories.
func (r Recipe) TotalCalories() float64 {
	var sum float64
	for _, ing := range r.Ingredients {
		sum += ing.Calories
	}
	return sum
}

// DreamItem is a wishlist entry, optionally compared against an owned item.
type DreamItem struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Weight    Grams      `json:"weight"`
	Unit      WeightUnit `json:"unit"`
	CompareID string     `json:"compareId,omitempty"`
	Notes     string     `json:"notes"`
}

// Savings returns how many grams replacing the compared item would save.
// Negative values mean the dream item is heavier. ok is false when there is
// nothing to compare against.
func (d DreamItem) Savings(inventory []Item) (Grams, bool) {
	if d.CompareID == "" {
		return 0, false
	}
	for _, it := range inventory {
		if it.ID == d.CompareID {
			return it.Weight - d.Weight, true
		}
	}
	return 0, false
}
