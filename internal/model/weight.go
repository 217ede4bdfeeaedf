package model

import (
	"fmt"
	"strconv"
	"strings"
)

// WeightUnit is a display or entry unit for weights.
type WeightUnit string

// Weight units.
const (
	UnitGram     WeightUnit = "g"
	UnitKilogram WeightUnit = "kg"
	UnitPound    WeightUnit = "lb"
	UnitOunce    WeightUnit = "oz"
)

// gramsPer maps a unit to the number of grams in one of it.
var gramsPer = map[WeightUnit]float64{
	UnitGram:     1,
	UnitKilogram: 1000,
	UnitPound:    453.592,
	UnitOunce:    28.3495,
}

// ParseWeightUnit validates a unit string.
func ParseWeightUnit(s string) (WeightUnit, error) {
	u := WeightUnit(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := gramsPer[u]; !ok {
		return "", fmt.Errorf("unknown weight unit %q", s)
	}
	return u, nil
}

// ToGrams converts a value in the given unit to grams. Unknown or empty
// units are treated as grams.
func ToGrams(value float64, unit WeightUnit) Grams {
	f, ok := gramsPer[unit]
	if !ok {
		f = 1
	}
	return Grams(value * f)
}

// FormatWeight renders grams in the given display unit.
func FormatWeight(g Grams, unit WeightUnit) string {
	switch unit {
	case UnitKilogram:
		return strconv.FormatFloat(float64(g)/1000, 'f', 2, 64) + " kg"
	case UnitPound:
		return strconv.FormatFloat(float64(g)*0.00220462, 'f', 2, 64) + " lb"
	case UnitOunce:
		return strconv.FormatFloat(float64(g)*0.035274, 'f', 1, 64) + " oz"
	default:
		return strconv.FormatFloat(float64(g), 'f', -1, 64) + " g"
	}
}

// FromGrams converts grams to the given display unit.
func FromGrams(g Grams, unit WeightUnit) float64 {
	switch unit {
	case UnitKilogram:
		return float64(g) / 1000
	case UnitPound:
		return float64(g) * 0.00220462
	case UnitOunce:
		return float64(g) * 0.035274
	default:
		return float64(g)
	}
}

// SumWeights returns the combined weight of the lines, multiplied by
// quantity. Lines marked removed are ignored.
func SumWeights(lines []WalkLine) Grams {
	var sum Grams
	for _, l := range lines {
		if l.IsRemoved {
			continue
		}
		sum += l.Weight * Grams(l.Quantity())
	}
	return sum
}

// Totals is the weight breakdown of a walk.
type Totals struct {
	Total      Grams `json:"total"`
	Worn       Grams `json:"worn"`
	Consumable Grams `json:"consumable"`
	Base       Grams `json:"base"`
}

// WalkTotals computes total, worn, consumable and base weight for a walk.
// Base weight is what remains once worn and consumable weight is removed.
func WalkTotals(w Walk) Totals {
	var t Totals
	for _, l := range w.Items {
		if l.IsRemoved {
			continue
		}
		lw := l.Weight * Grams(l.Quantity())
		t.Total += lw
		if l.IsWorn {
			t.Worn += lw
		}
		if l.IsConsumable {
			t.Consumable += lw
		}
	}
	t.Base = t.Total - t.Worn - t.Consumable
	return t
}

// CategoryWeight is one slice of a walk's category breakdown.
type CategoryWeight struct {
	CategoryID string `json:"categoryId"`
	Name       string `json:"name"`
	Color      string `json:"color"`
	Weight     Grams  `json:"weight"`
}

// uncategorizedColor is used for lines without a known category.
const uncategorizedColor = "#999"

// CategoryBreakdown groups a walk's weight by category, in category order,
// with unknown categories folded into the uncategorized bucket at the end.
// Empty categories are omitted.
func CategoryBreakdown(doc Document, w Walk) []CategoryWeight {
	index := make(map[string]int, len(doc.Categories))
	out := make([]CategoryWeight, 0, len(doc.Categories)+1)
	for _, c := range doc.Categories {
		index[c.ID] = len(out)
		out = append(out, CategoryWeight{CategoryID: c.ID, Name: c.Name, Color: c.Color})
	}
	other := CategoryWeight{CategoryID: UncategorizedID, Name: "Uncategorized", Color: uncategorizedColor}
	for _, l := range w.Items {
		if l.IsRemoved {
			continue
		}
		lw := l.Weight * Grams(l.Quantity())
		if i, ok := index[l.CategoryID]; ok {
			out[i].Weight += lw
		} else {
			other.Weight += lw
		}
	}
	out = append(out, other)

	result := out[:0]
	for _, cw := range out {
		if cw.Weight != 0 {
			result = append(result, cw)
		}
	}
	return result
}
