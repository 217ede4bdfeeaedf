package model

import "time"

// Walk is a packing list for one trip.
type Walk struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Date        string     `json:"date"`
	PhotoRef    string     `json:"photoRef,omitempty"`
	Items       []WalkLine `json:"items"`
}

// WalkLine is one item's occurrence inside a walk. It is copied from a
// master item and does not follow later changes to it.
type WalkLine struct {
	ID           string `json:"id"`
	OriginalID   string `json:"originalId,omitempty"`
	Name         string `json:"name"`
	Weight       Grams  `json:"weight"`
	Qty          int    `json:"qty"`
	CategoryID   string `json:"categoryId"`
	IsWorn       bool   `json:"isWorn"`
	IsConsumable bool   `json:"isConsumable"`
	Comment      string `json:"comment"`
	Flag         bool   `json:"flag"`
	IsAdded      bool   `json:"isAdded"`
	IsRemoved    bool   `json:"isRemoved"`
}

// SetWorn sets the worn flag. Worn lines are never consumable.
func (l *WalkLine) SetWorn(worn bool) {
	l.IsWorn = worn
	if worn {
		l.IsConsumable = false
	}
}

// SetConsumable sets the consumable flag. Consumable lines are never worn.
func (l *WalkLine) SetConsumable(consumable bool) {
	l.IsConsumable = consumable
	if consumable {
		l.IsWorn = false
	}
}

// Quantity returns the line quantity, treating unset values as 1.
func (l WalkLine) Quantity() int {
	if l.Qty < 1 {
		return 1
	}
	return l.Qty
}

// LineFromItem copies a master item into a new walk line.
func LineFromItem(id string, item Item, categoryID string) WalkLine {
	if categoryID == "" {
		categoryID = item.CategoryID
	}
	return WalkLine{
		ID:           id,
		OriginalID:   item.ID,
		Name:         item.Name,
		Weight:       item.Weight,
		Qty:          1,
		CategoryID:   categoryID,
		IsWorn:       item.IsWorn,
		IsConsumable: item.IsConsumable && !item.IsWorn,
	}
}

// FindLine returns the index of the line with the given id, or -1.
func (w Walk) FindLine(id string) int {
	for i, l := range w.Items {
		if l.ID == id {
			return i
		}
	}
	return -1
}

func (w Walk) clone() Walk {
	out := w
	if w.Items != nil {
		out.Items = make([]WalkLine, len(w.Items))
		copy(out.Items, w.Items)
	}
	return out
}

// Clone returns a deep copy of the walk.
func (w Walk) Clone() Walk {
	return w.clone()
}

// DateLayout is the timestamp format used for walk dates.
const DateLayout = "2006-01-02T15:04:05.000Z"

// FormatDate renders t in DateLayout.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
