package api

import (
	"net/http"
	"strconv"

	"github.com/erazemk/trailpack/internal/actions"
	"github.com/erazemk/trailpack/internal/model"
	"github.com/erazemk/trailpack/internal/state"
)

// RecipesHandler handles recipes and the dream item wishlist.
type RecipesHandler struct {
	Store   *state.Store
	Actions *actions.Actions
}

type recipeView struct {
	model.Recipe
	TotalWeight   model.Grams `json:"totalWeight"`
	TotalCalories float64     `json:"totalCalories"`
}

type dreamItemView struct {
	model.DreamItem
	Savings *model.Grams `json:"savings,omitempty"`
}

type dreamItemRequest struct {
	Name      string           `json:"name"`
	Weight    float64          `json:"weight"`
	Unit      model.WeightUnit `json:"unit"`
	CompareID string           `json:"compareId"`
	Notes     string           `json:"notes"`
}

// ListRecipes handles GET /api/recipes.
func (h *RecipesHandler) ListRecipes(w http.ResponseWriter, r *http.Request) {
	recipes := h.Store.Document().Recipes
	out := make([]recipeView, 0, len(recipes))
	for _, rec := range recipes {
		out = append(out, recipeView{Recipe: rec, TotalWeight: rec.TotalWeight(), TotalCalories: rec.TotalCalories()})
	}
	jsonResponse(w, http.StatusOK, out)
}

// CreateRecipe handles POST /api/recipes.
func (h *RecipesHandler) CreateRecipe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	rec, err := h.Actions.AddRecipe(req.Name)
	if err != nil {
		actionError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, rec)
}

// DeleteRecipe handles DELETE /api/recipes/{id}.
func (h *RecipesHandler) DeleteRecipe(w http.ResponseWriter, r *http.Request) {
	if err := h.Actions.RemoveRecipe(r.PathValue("id")); err != nil {
		actionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddIngredient handles POST /api/recipes/{id}/ingredients.
func (h *RecipesHandler) AddIngredient(w http.ResponseWriter, r *http.Request) {
	var ing model.Ingredient
	if err := decodeJSON(w, r, &ing); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.Actions.AddIngredient(r.PathValue("id"), ing); err != nil {
		actionError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// RemoveIngredient handles DELETE /api/recipes/{id}/ingredients/{index}.
func (h *RecipesHandler) RemoveIngredient(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid ingredient index")
		return
	}
	if err := h.Actions.RemoveIngredient(r.PathValue("id"), index); err != nil {
		actionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListDreamItems handles GET /api/dream-items.
func (h *RecipesHandler) ListDreamItems(w http.ResponseWriter, r *http.Request) {
	doc := h.Store.Document()
	out := make([]dreamItemView, 0, len(doc.DreamItems))
	for _, d := range doc.DreamItems {
		v := dreamItemView{DreamItem: d}
		if s, ok := d.Savings(doc.Inventory); ok {
			v.Savings = &s
		}
		out = append(out, v)
	}
	jsonResponse(w, http.StatusOK, out)
}

// CreateDreamItem handles POST /api/dream-items. The weight is given in
// the request unit.
func (h *RecipesHandler) CreateDreamItem(w http.ResponseWriter, r *http.Request) {
	var req dreamItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	unit := req.Unit
	if unit == "" {
		unit = model.UnitGram
	}
	if _, err := model.ParseWeightUnit(string(unit)); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid unit")
		return
	}
	d, err := h.Actions.AddDreamItem(actions.DreamItemInput{
		Name:      req.Name,
		Weight:    model.ToGrams(req.Weight, unit),
		Unit:      unit,
		CompareID: req.CompareID,
		Notes:     req.Notes,
	})
	if err != nil {
		actionError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, d)
}

// UpdateDreamItem handles PATCH /api/dream-items/{id}.
func (h *RecipesHandler) UpdateDreamItem(w http.ResponseWriter, r *http.Request) {
	var patch actions.DreamItemPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.Actions.UpdateDreamItem(r.PathValue("id"), patch); err != nil {
		actionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteDreamItem handles DELETE /api/dream-items/{id}.
func (h *RecipesHandler) DeleteDreamItem(w http.ResponseWriter, r *http.Request) {
	if err := h.Actions.RemoveDreamItem(r.PathValue("id")); err != nil {
		actionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Purchase handles POST /api/dream-items/{id}/purchase.
func (h *RecipesHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	item, err := h.Actions.PurchaseDreamItem(r.PathValue("id"))
	if err != nil {
		actionError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, item)
}
