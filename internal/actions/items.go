package actions

import (
	"fmt"
	"regexp"

	"github.com/erazemk/trailpack/internal/model"
)

// defaultCategoryColor is used when a category is added without a color.
const defaultCategoryColor = "#64748b"

var colorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// ItemInput describes a new master inventory item. Weight is in grams.
type ItemInput struct {
	Name         string
	Weight       model.Grams
	Unit         model.WeightUnit
	CategoryID   string
	IsWorn       bool
	IsConsumable bool
	Servings     int
	IsOwned      bool
	Notes        string
	PhotoRef     string
}

// ItemPatch lists the item fields to change. Nil fields are left alone.
type ItemPatch struct {
	Name         *string           `json:"name"`
	Weight       *model.Grams      `json:"weight"`
	Unit         *model.WeightUnit `json:"unit"`
	CategoryID   *string           `json:"categoryId"`
	IsWorn       *bool             `json:"isWorn"`
	IsConsumable *bool             `json:"isConsumable"`
	Servings     *int              `json:"servings"`
	IsOwned      *bool             `json:"isOwned"`
	Notes        *string           `json:"notes"`
	PhotoRef     *string           `json:"photoRef"`
}

// AddItem appends a new item to the master inventory.
func (a *Actions) AddItem(in ItemInput) (model.Item, error) {
	var created model.Item
	err := a.do(actAddItem, func(t *tx) error {
		if err := t.requireOwnMode(); err != nil {
			return err
		}
		item, err := a.newItem(in)
		if err != nil {
			return err
		}
		t.doc.Inventory = append(t.doc.Inventory, item)
		t.touchDoc()
		created = item
		return nil
	})
	return created, err
}

func (a *Actions) newItem(in ItemInput) (model.Item, error) {
	name, err := requireName(in.Name)
	if err != nil {
		return model.Item{}, err
	}
	if err := requireWeight(in.Weight); err != nil {
		return model.Item{}, err
	}
	unit, err := requireUnit(in.Unit)
	if err != nil {
		return model.Item{}, err
	}
	if in.Servings < 0 {
		return model.Item{}, fmt.Errorf("%w: servings must be positive", ErrInvalidInput)
	}

	item := model.Item{
		ID:         a.newID(),
		Name:       name,
		Weight:     in.Weight,
		Unit:       unit,
		CategoryID: in.CategoryID,
		Servings:   max(in.Servings, 1),
		IsOwned:    in.IsOwned,
		Notes:      in.Notes,
		PhotoRef:   in.PhotoRef,
	}
	if item.CategoryID == "" {
		item.CategoryID = model.UncategorizedID
	}
	item.IsConsumable = in.IsConsumable
	if in.IsWorn {
		item.IsWorn, item.IsConsumable = true, false
	}
	return item, nil
}

// UpdateItem changes fields of a master item and returns the result. It
// does not record an undo step.
func (a *Actions) UpdateItem(id string, p ItemPatch) (model.Item, error) {
	var updated model.Item
	err := a.do(actUpdateItem, func(t *tx) error {
		if err := t.requireOwnMode(); err != nil {
			return err
		}
		i := t.doc.FindItem(id)
		if i < 0 {
			return fmt.Errorf("item %q: %w", id, ErrNotFound)
		}
		item := t.doc.Inventory[i]
		if err := applyItemPatch(&item, p); err != nil {
			return err
		}
		t.doc.Inventory[i] = item
		t.touchDoc()
		updated = item
		return nil
	})
	return updated, err
}

func applyItemPatch(item *model.Item, p ItemPatch) error {
	if p.Name != nil {
		name, err := requireName(*p.Name)
		if err != nil {
			return err
		}
		item.Name = name
	}
	if p.Weight != nil {
		if err := requireWeight(*p.Weight); err != nil {
			return err
		}
		item.Weight = *p.Weight
	}
	if p.Unit != nil {
		unit, err := requireUnit(*p.Unit)
		if err != nil {
			return err
		}
		item.Unit = unit
	}
	if p.Servings != nil {
		if *p.Servings < 1 {
			return fmt.Errorf("%w: servings must be at least 1", ErrInvalidInput)
		}
		item.Servings = *p.Servings
	}
	if p.CategoryID != nil {
		item.CategoryID = *p.CategoryID
		if item.CategoryID == "" {
			item.CategoryID = model.UncategorizedID
		}
	}
	if p.IsOwned != nil {
		item.IsOwned = *p.IsOwned
	}
	if p.Notes != nil {
		item.Notes = *p.Notes
	}
	if p.PhotoRef != nil {
		item.PhotoRef = *p.PhotoRef
	}
	if p.IsConsumable != nil {
		item.IsConsumable = *p.IsConsumable
		if item.IsConsumable {
			item.IsWorn = false
		}
	}
	if p.IsWorn != nil {
		item.IsWorn = *p.IsWorn
		if item.IsWorn {
			item.IsConsumable = false
		}
	}
	return nil
}

// RemoveItem deletes a master item. Walk lines copied from it are kept.
func (a *Actions) RemoveItem(id string) error {
	return a.do(actRemoveItem, func(t *tx) error {
		if err := t.requireOwnMode(); err != nil {
			return err
		}
		i := t.doc.FindItem(id)
		if i < 0 {
			return fmt.Errorf("item %q: %w", id, ErrNotFound)
		}
		t.doc.Inventory = append(t.doc.Inventory[:i:i], t.doc.Inventory[i+1:]...)
		t.touchDoc()
		return nil
	})
}

// AddCategory appends a category. An empty color uses a neutral default.
func (a *Actions) AddCategory(name, color string) (model.Category, error) {
	var created model.Category
	err := a.do(actAddCategory, func(t *tx) error {
		if err := t.requireOwnMode(); err != nil {
			return err
		}
		name, err := requireName(name)
		if err != nil {
			return err
		}
		if color == "" {
			color = defaultCategoryColor
		}
		if !colorPattern.MatchString(color) {
			return fmt.Errorf("%w: color %q is not a hex color", ErrInvalidInput, color)
		}
		created = model.Category{ID: a.newID(), Name: name, Color: color}
		t.doc.Categories = append(t.doc.Categories, created)
		t.touchDoc()
		return nil
	})
	return created, err
}

// UpdateCategory renames a category. It does not record an undo step.
func (a *Actions) UpdateCategory(id, name string) error {
	return a.do(actUpdateCategory, func(t *tx) error {
		if err := t.requireOwnMode(); err != nil {
			return err
		}
		name, err := requireName(name)
		if err != nil {
			return err
		}
		i := t.doc.FindCategory(id)
		if i < 0 {
			return fmt.Errorf("category %q: %w", id, ErrNotFound)
		}
		t.doc.Categories[i].Name = name
		t.touchDoc()
		return nil
	})
}

// RemoveCategory deletes a category. Items and lines that referenced it
// fall into the uncategorized bucket.
func (a *Actions) RemoveCategory(id string) error {
	return a.do(actRemoveCategory, func(t *tx) error {
		if err := t.requireOwnMode(); err != nil {
			return err
		}
		i := t.doc.FindCategory(id)
		if i < 0 {
			return fmt.Errorf("category %q: %w", id, ErrNotFound)
		}
		t.doc.Categories = append(t.doc.Categories[:i:i], t.doc.Categories[i+1:]...)
		t.touchDoc()
		return nil
	})
}
