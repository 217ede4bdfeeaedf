package actions

import (
	"fmt"
	"math"

	"github.com/erazemk/trailpack/internal/model"
)

// DreamItemInput describes a new wishlist entry. Weight is in grams.
type DreamItemInput struct {
	Name      string
	Weight    model.Grams
	Unit      model.WeightUnit
	CompareID string
	Notes     string
}

// DreamItemPatch lists the wishlist fields to change. Nil fields are left
// alone; an empty CompareID clears the comparison.
type DreamItemPatch struct {
	Name      *string           `json:"name"`
	Weight    *model.Grams      `json:"weight"`
	Unit      *model.WeightUnit `json:"unit"`
	CompareID *string           `json:"compareId"`
	Notes     *string           `json:"notes"`
}

// AddRecipe creates an empty recipe.
func (a *Actions) AddRecipe(name string) (model.Recipe, error) {
	var created model.Recipe
	err := a.do(actAddRecipe, func(t *tx) error {
		name, err := requireName(name)
		if err != nil {
			return err
		}
		created = model.Recipe{ID: a.newID(), Name: name, Ingredients: []model.Ingredient{}}
		t.doc.Recipes = append(t.doc.Recipes, created)
		t.touchDoc()
		return nil
	})
	return created, err
}

// RemoveRecipe deletes a recipe.
func (a *Actions) RemoveRecipe(id string) error {
	return a.do(actRemoveRecipe, func(t *tx) error {
		i := t.doc.FindRecipe(id)
		if i < 0 {
			return fmt.Errorf("recipe %q: %w", id, ErrNotFound)
		}
		t.doc.Recipes = append(t.doc.Recipes[:i:i], t.doc.Recipes[i+1:]...)
		t.touchDoc()
		return nil
	})
}

// AddIngredient appends an ingredient to a recipe.
func (a *Actions) AddIngredient(recipeID string, ing model.Ingredient) error {
	return a.do(actAddIngredient, func(t *tx) error {
		name, err := requireName(ing.Name)
		if err != nil {
			return err
		}
		if err := requireWeight(ing.Weight); err != nil {
			return err
		}
		if math.IsNaN(ing.Calories) || math.IsInf(ing.Calories, 0) || ing.Calories < 0 {
			return fmt.Errorf("%w: calories must be a non-negative number", ErrInvalidInput)
		}
		i := t.doc.FindRecipe(recipeID)
		if i < 0 {
			return fmt.Errorf("recipe %q: %w", recipeID, ErrNotFound)
		}
		ing.Name = name
		t.doc.Recipes[i].Ingredients = append(t.doc.Recipes[i].Ingredients, ing)
		t.touchDoc()
		return nil
	})
}

// RemoveIngredient deletes the ingredient at index from a recipe.
func (a *Actions) RemoveIngredient(recipeID string, index int) error {
	return a.do(actRemoveIngredient, func(t *tx) error {
		i := t.doc.FindRecipe(recipeID)
		if i < 0 {
			return fmt.Errorf("recipe %q: %w", recipeID, ErrNotFound)
		}
		ings := t.doc.Recipes[i].Ingredients
		if index < 0 || index >= len(ings) {
			return fmt.Errorf("ingredient %d: %w", index, ErrNotFound)
		}
		t.doc.Recipes[i].Ingredients = append(ings[:index:index], ings[index+1:]...)
		t.touchDoc()
		return nil
	})
}

// AddDreamItem appends a wishlist entry.
func (a *Actions) AddDreamItem(in DreamItemInput) (model.DreamItem, error) {
	var created model.DreamItem
	err := a.do(actAddDreamItem, func(t *tx) error {
		name, err := requireName(in.Name)
		if err != nil {
			return err
		}
		if err := requireWeight(in.Weight); err != nil {
			return err
		}
		unit, err := requireUnit(in.Unit)
		if err != nil {
			return err
		}
		if in.CompareID != "" && t.doc.FindItem(in.CompareID) < 0 {
			return fmt.Errorf("compared item %q: %w", in.CompareID, ErrNotFound)
		}
		created = model.DreamItem{
			ID:        a.newID(),
			Name:      name,
			Weight:    in.Weight,
			Unit:      unit,
			CompareID: in.CompareID,
			Notes:     in.Notes,
		}
		t.doc.DreamItems = append(t.doc.DreamItems, created)
		t.touchDoc()
		return nil
	})
	return created, err
}

// UpdateDreamItem changes fields of a wishlist entry. It does not record an
// undo step.
func (a *Actions) UpdateDreamItem(id string, p DreamItemPatch) error {
	return a.do(actUpdateDreamItem, func(t *tx) error {
		i := t.doc.FindDreamItem(id)
		if i < 0 {
			return fmt.Errorf("dream item %q: %w", id, ErrNotFound)
		}
		d := t.doc.DreamItems[i]
		if p.Name != nil {
			name, err := requireName(*p.Name)
			if err != nil {
				return err
			}
			d.Name = name
		}
		if p.Weight != nil {
			if err := requireWeight(*p.Weight); err != nil {
				return err
			}
			d.Weight = *p.Weight
		}
		if p.Unit != nil {
			unit, err := requireUnit(*p.Unit)
			if err != nil {
				return err
			}
			d.Unit = unit
		}
		if p.CompareID != nil {
			if *p.CompareID != "" && t.doc.FindItem(*p.CompareID) < 0 {
				return fmt.Errorf("compared item %q: %w", *p.CompareID, ErrNotFound)
			}
			d.CompareID = *p.CompareID
		}
		if p.Notes != nil {
			d.Notes = *p.Notes
		}
		t.doc.DreamItems[i] = d
		t.touchDoc()
		return nil
	})
}

// RemoveDreamItem deletes a wishlist entry.
func (a *Actions) RemoveDreamItem(id string) error {
	return a.do(actRemoveDreamItem, func(t *tx) error {
		i := t.doc.FindDreamItem(id)
		if i < 0 {
			return fmt.Errorf("dream item %q: %w", id, ErrNotFound)
		}
		t.doc.DreamItems = append(t.doc.DreamItems[:i:i], t.doc.DreamItems[i+1:]...)
		t.touchDoc()
		return nil
	})
}

// PurchaseDreamItem moves a wishlist entry into the master inventory under
// the first category, as one undo step.
func (a *Actions) PurchaseDreamItem(id string) (model.Item, error) {
	var created model.Item
	err := a.do(actPurchaseDreamItem, func(t *tx) error {
		if err := t.requireOwnMode(); err != nil {
			return err
		}
		i := t.doc.FindDreamItem(id)
		if i < 0 {
			return fmt.Errorf("dream item %q: %w", id, ErrNotFound)
		}
		d := t.doc.DreamItems[i]

		categoryID := model.UncategorizedID
		if len(t.doc.Categories) > 0 {
			categoryID = t.doc.Categories[0].ID
		}
		created = model.Item{
			ID:         a.newID(),
			Name:       d.Name,
			Weight:     d.Weight,
			Unit:       d.Unit,
			CategoryID: categoryID,
			Servings:   1,
			IsOwned:    true,
			Notes:      d.Notes,
		}
		if created.Unit == "" {
			created.Unit = model.UnitGram
		}
		t.doc.Inventory = append(t.doc.Inventory, created)
		t.doc.DreamItems = append(t.doc.DreamItems[:i:i], t.doc.DreamItems[i+1:]...)
		t.touchDoc()
		return nil
	})
	return created, err
}
