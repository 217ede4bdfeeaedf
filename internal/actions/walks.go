package actions

import (
	"fmt"
	"strings"

	"github.com/erazemk/trailpack/internal/model"
)

// WalkInput describes a new walk. Lines without an id get one.
type WalkInput struct {
	Name        string
	Description string
	Items       []model.WalkLine
}

// WalkPatch lists the walk fields to change. Nil fields are left alone.
type WalkPatch struct {
	Name        *string           `json:"name"`
	Description *string           `json:"description"`
	Date        *string           `json:"date"`
	PhotoRef    *string           `json:"photoRef"`
	Items       *[]model.WalkLine `json:"items"`
}

// LinePatch lists the line fields to change. Nil fields are left alone.
type LinePatch struct {
	Name         *string      `json:"name"`
	Weight       *model.Grams `json:"weight"`
	Qty          *int         `json:"qty"`
	CategoryID   *string      `json:"categoryId"`
	IsWorn       *bool        `json:"isWorn"`
	IsConsumable *bool        `json:"isConsumable"`
	Comment      *string      `json:"comment"`
	Flag         *bool        `json:"flag"`
}

// AddWalk creates a walk dated now and makes it the active walk.
func (a *Actions) AddWalk(in WalkInput) (model.Walk, error) {
	var created model.Walk
	err := a.do(actAddWalk, func(t *tx) error {
		name, err := requireName(in.Name)
		if err != nil {
			return err
		}
		items, err := a.prepareLines(in.Items)
		if err != nil {
			return err
		}
		created = model.Walk{
			ID:          a.newID(),
			Name:        name,
			Description: in.Description,
			Date:        model.FormatDate(a.now()),
			Items:       items,
		}
		t.doc.Walks = append(t.doc.Walks, created)
		t.touchDoc()
		t.sess.ActiveWalkID = created.ID
		t.touchSession()
		return nil
	})
	return created, err
}

// prepareLines validates lines supplied by a caller and fills in ids,
// quantities and the worn/consumable exclusivity.
func (a *Actions) prepareLines(lines []model.WalkLine) ([]model.WalkLine, error) {
	out := make([]model.WalkLine, 0, len(lines))
	for _, l := range lines {
		if err := requireWeight(l.Weight); err != nil {
			return nil, err
		}
		if l.ID == "" {
			l.ID = a.newID()
		}
		if l.Qty < 1 {
			l.Qty = 1
		}
		if l.CategoryID == "" {
			l.CategoryID = model.UncategorizedID
		}
		if l.IsWorn {
			l.IsConsumable = false
		}
		out = append(out, l)
	}
	return out, nil
}

// UpdateWalk changes fields of a walk, including the shared walk, and
// returns the result.
func (a *Actions) UpdateWalk(id string, p WalkPatch) (model.Walk, error) {
	var updated model.Walk
	err := a.do(actUpdateWalk, func(t *tx) error {
		// Validate before resolving so a rejected patch marks nothing.
		if p.Name != nil {
			if _, err := requireName(*p.Name); err != nil {
				return err
			}
		}
		var items []model.WalkLine
		if p.Items != nil {
			var err error
			if items, err = a.prepareLines(*p.Items); err != nil {
				return err
			}
		}

		w, err := t.walk(id)
		if err != nil {
			return err
		}
		if p.Name != nil {
			w.Name = strings.TrimSpace(*p.Name)
		}
		if p.Description != nil {
			w.Description = *p.Description
		}
		if p.Date != nil {
			w.Date = *p.Date
		}
		if p.PhotoRef != nil {
			w.PhotoRef = *p.PhotoRef
		}
		if p.Items != nil {
			w.Items = items
		}
		updated = w.Clone()
		return nil
	})
	return updated, err
}

// RemoveWalk deletes a stored walk. The shared walk cannot be removed this
// way; leave shared mode instead.
func (a *Actions) RemoveWalk(id string) error {
	return a.do(actRemoveWalk, func(t *tx) error {
		i := t.doc.FindWalk(id)
		if i < 0 {
			return fmt.Errorf("walk %q: %w", id, ErrNotFound)
		}
		t.doc.Walks = append(t.doc.Walks[:i:i], t.doc.Walks[i+1:]...)
		t.touchDoc()
		if t.sess.ActiveWalkID == id {
			t.sess.ActiveWalkID = ""
			t.touchSession()
		}
		return nil
	})
}

// DuplicateWalk copies a stored walk under a new id with fresh line ids and
// makes the copy active.
func (a *Actions) DuplicateWalk(id string) (model.Walk, error) {
	var created model.Walk
	err := a.do(actDuplicateWalk, func(t *tx) error {
		i := t.doc.FindWalk(id)
		if i < 0 {
			return fmt.Errorf("walk %q: %w", id, ErrNotFound)
		}
		created = t.doc.Walks[i].Clone()
		created.ID = a.newID()
		created.Name = "Copy of " + created.Name
		created.Date = model.FormatDate(a.now())
		for j := range created.Items {
			created.Items[j].ID = a.newID()
		}
		t.doc.Walks = append(t.doc.Walks, created)
		t.touchDoc()
		t.sess.ActiveWalkID = created.ID
		t.touchSession()
		return nil
	})
	return created, err
}

// AddLineFromItem copies a master item into a walk as a new line with
// quantity 1. An empty categoryID keeps the item's category. Lines added to
// the shared walk are marked as added.
func (a *Actions) AddLineFromItem(walkID, itemID, categoryID string) (model.WalkLine, error) {
	var created model.WalkLine
	err := a.do(actAddLineFromItem, func(t *tx) error {
		i := t.doc.FindItem(itemID)
		if i < 0 {
			return fmt.Errorf("item %q: %w", itemID, ErrNotFound)
		}
		item := t.doc.Inventory[i]
		w, err := t.walk(walkID)
		if err != nil {
			return err
		}
		created = model.LineFromItem(a.newID(), item, categoryID)
		created.IsAdded = t.sess.Shared()
		w.Items = append(w.Items, created)
		return nil
	})
	return created, err
}

// QuickAddLine adds a line by name. The name must match a master item,
// ignoring case; the item's weight is used.
func (a *Actions) QuickAddLine(walkID, name, categoryID string, qty int) (model.WalkLine, error) {
	var created model.WalkLine
	err := a.do(actQuickAddLine, func(t *tx) error {
		name, err := requireName(name)
		if err != nil {
			return err
		}
		var item *model.Item
		for i := range t.doc.Inventory {
			if strings.EqualFold(t.doc.Inventory[i].Name, name) {
				item = &t.doc.Inventory[i]
				break
			}
		}
		if item == nil {
			return fmt.Errorf("%w: %q is not in the master inventory", ErrInvalidInput, name)
		}
		w, err := t.walk(walkID)
		if err != nil {
			return err
		}
		if categoryID == "" {
			categoryID = item.CategoryID
		}
		created = model.WalkLine{
			ID:         a.newID(),
			OriginalID: item.ID,
			Name:       name,
			Weight:     item.Weight,
			Qty:        max(qty, 1),
			CategoryID: categoryID,
			IsAdded:    t.sess.Shared(),
		}
		w.Items = append(w.Items, created)
		return nil
	})
	return created, err
}

// UpdateLine changes fields of one line and returns the result. Setting
// worn clears consumable and the other way round.
func (a *Actions) UpdateLine(walkID, lineID string, p LinePatch) (model.WalkLine, error) {
	var updated model.WalkLine
	err := a.do(actUpdateLine, func(t *tx) error {
		if p.Name != nil {
			if _, err := requireName(*p.Name); err != nil {
				return err
			}
		}
		if p.Weight != nil {
			if err := requireWeight(*p.Weight); err != nil {
				return err
			}
		}
		if p.Qty != nil && *p.Qty < 1 {
			return fmt.Errorf("%w: quantity must be at least 1", ErrInvalidInput)
		}

		w, err := t.walk(walkID)
		if err != nil {
			return err
		}
		j := w.FindLine(lineID)
		if j < 0 {
			return fmt.Errorf("line %q: %w", lineID, ErrNotFound)
		}
		l := &w.Items[j]
		if p.Name != nil {
			l.Name = strings.TrimSpace(*p.Name)
		}
		if p.Weight != nil {
			l.Weight = *p.Weight
		}
		if p.Qty != nil {
			l.Qty = *p.Qty
		}
		if p.CategoryID != nil {
			l.CategoryID = *p.CategoryID
		}
		if p.Comment != nil {
			l.Comment = *p.Comment
		}
		if p.Flag != nil {
			l.Flag = *p.Flag
		}
		if p.IsConsumable != nil {
			l.SetConsumable(*p.IsConsumable)
		}
		if p.IsWorn != nil {
			l.SetWorn(*p.IsWorn)
		}
		updated = *l
		return nil
	})
	return updated, err
}

// RemoveLine deletes a line. On the shared walk, lines that came with the
// import are only toggled as removed so the divergence stays visible.
func (a *Actions) RemoveLine(walkID, lineID string) error {
	return a.do(actRemoveLine, func(t *tx) error {
		w, err := t.walk(walkID)
		if err != nil {
			return err
		}
		j := w.FindLine(lineID)
		if j < 0 {
			return fmt.Errorf("line %q: %w", lineID, ErrNotFound)
		}
		if t.sess.Shared() && w == t.sess.SharedWalk && !w.Items[j].IsAdded {
			w.Items[j].IsRemoved = !w.Items[j].IsRemoved
			return nil
		}
		w.Items = append(w.Items[:j:j], w.Items[j+1:]...)
		return nil
	})
}
