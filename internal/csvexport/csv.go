// Package csvexport renders walks and the inventory as CSV.
package csvexport

import (
	"encoding/csv"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/erazemk/trailpack/internal/model"
)

// Format renders rows as CSV text. Values containing a comma, quote or
// newline are quoted with internal quotes doubled.
func Format(rows [][]string) (string, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("writing csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flushing csv: %w", err)
	}
	return b.String(), nil
}

// Filename returns a download name for a walk export.
func Filename(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '"', ':', '*', '?', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		name = "walk"
	}
	return name + ".csv"
}

// WalkRows returns a walk's lines grouped by category followed by the total
// and base weight. Lines marked removed are left out.
func WalkRows(doc model.Document, w model.Walk, unit model.WeightUnit) [][]string {
	rows := [][]string{
		{"Category", "Item Name", "Qty", "Weight (" + string(unit) + ")", "Worn", "Consumable"},
	}
	for _, g := range group(doc, w.Items, func(l model.WalkLine) string { return l.CategoryID }) {
		for _, l := range g.items {
			if l.IsRemoved {
				continue
			}
			rows = append(rows, []string{
				g.name,
				l.Name,
				strconv.Itoa(l.Quantity()),
				number(model.FromGrams(l.Weight, unit)),
				yesNo(l.IsWorn),
				yesNo(l.IsConsumable),
			})
		}
	}

	totals := model.WalkTotals(w)
	rows = append(rows,
		[]string{},
		[]string{"Total Weight", model.FormatWeight(totals.Total, unit)},
		[]string{"Base Weight", model.FormatWeight(totals.Base, unit)},
	)
	return rows
}

// InventoryRows returns the master inventory grouped by category.
func InventoryRows(doc model.Document, unit model.WeightUnit) [][]string {
	rows := [][]string{
		{"Category", "Item Name", "Weight (" + string(unit) + ")", "Worn", "Consumable", "Servings", "Owned", "Notes"},
	}
	var total model.Grams
	for _, g := range group(doc, doc.Inventory, func(it model.Item) string { return it.CategoryID }) {
		for _, it := range g.items {
			total += it.Weight
			rows = append(rows, []string{
				g.name,
				it.Name,
				number(model.FromGrams(it.Weight, unit)),
				yesNo(it.IsWorn),
				yesNo(it.IsConsumable),
				strconv.Itoa(max(it.Servings, 1)),
				yesNo(it.IsOwned),
				it.Notes,
			})
		}
	}
	rows = append(rows,
		[]string{},
		[]string{"Total Weight", model.FormatWeight(total, unit)},
	)
	return rows
}

type bucket[T any] struct {
	name  string
	items []T
}

// group buckets values by category in category order. Values whose
// category is unknown go to a trailing "Uncategorized" bucket.
func group[T any](doc model.Document, values []T, categoryOf func(T) string) []bucket[T] {
	index := make(map[string]int, len(doc.Categories))
	out := make([]bucket[T], 0, len(doc.Categories)+1)
	for _, c := range doc.Categories {
		index[c.ID] = len(out)
		out = append(out, bucket[T]{name: c.Name})
	}
	other := bucket[T]{name: "Uncategorized"}
	for _, v := range values {
		if i, ok := index[categoryOf(v)]; ok {
			out[i].items = append(out[i].items, v)
		} else {
			other.items = append(other.items, v)
		}
	}
	return append(out, other)
}

func number(f float64) string {
	return strconv.FormatFloat(math.Round(f*100)/100, 'f', -1, 64)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
