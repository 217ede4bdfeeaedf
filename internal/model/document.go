// Package model defines the packing-list document and its entities.
package model

import (
	"encoding/json"
	"fmt"
)

// Document is the persisted root state: the master inventory, categories,
// walks, recipes, wishlist and settings. Unknown top-level keys are kept in
// Extra so records written by newer versions survive a load/save cycle.
type Document struct {
	Inventory  []Item      `json:"inventory"`
	Categories []Category  `json:"categories"`
	Walks      []Walk      `json:"walks"`
	Recipes    []Recipe    `json:"recipes"`
	DreamItems []DreamItem `json:"dreamItems"`
	Settings   Settings    `json:"settings"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Top-level document keys.
const (
	KeyInventory  = "inventory"
	KeyCategories = "categories"
	KeyWalks      = "walks"
	KeyRecipes    = "recipes"
	KeyDreamItems = "dreamItems"
	KeySettings   = "settings"
)

// Session-only keys. They address the Session overlay and are never
// written to durable storage.
const (
	KeySharedWalk   = "sharedWalk"
	KeyActiveWalkID = "activeWalkId"
)

// DocumentKeys lists the typed top-level keys in a stable order.
var DocumentKeys = []string{KeyInventory, KeyCategories, KeyWalks, KeyRecipes, KeyDreamItems, KeySettings}

var documentKeySet = keySet(DocumentKeys...)

var transientKeySet = keySet(KeySharedWalk, KeyActiveWalkID)

// IsTransientKey reports whether key names session-only state.
func IsTransientKey(key string) bool {
	return transientKeySet[key]
}

// Settings holds user preferences.
type Settings struct {
	WeightUnit WeightUnit `json:"weightUnit"`

	Extra map[string]json.RawMessage `json:"-"`
}

type documentFields Document

type settingsFields Settings

// MarshalJSON inlines Extra alongside the typed keys.
func (d Document) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(documentFields(d))
	if err != nil {
		return nil, err
	}
	return mergeExtra(b, d.Extra)
}

// UnmarshalJSON decodes the typed keys and keeps unknown ones in Extra.
// Session-only keys found in old records are dropped.
func (d *Document) UnmarshalJSON(data []byte) error {
	var f documentFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	extra, err := collectExtra(data, documentKeySet)
	if err != nil {
		return err
	}
	for k := range transientKeySet {
		delete(extra, k)
	}
	*d = Document(f)
	d.Extra = extra
	return nil
}

// MarshalJSON inlines Extra alongside the typed keys.
func (s Settings) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(settingsFields(s))
	if err != nil {
		return nil, err
	}
	return mergeExtra(b, s.Extra)
}

// UnmarshalJSON decodes the typed keys and keeps unknown ones in Extra.
func (s *Settings) UnmarshalJSON(data []byte) error {
	var f settingsFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	extra, err := collectExtra(data, keySet("weightUnit"))
	if err != nil {
		return err
	}
	*s = Settings(f)
	s.Extra = extra
	return nil
}

func keySet(keys ...string) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}

func mergeExtra(b []byte, extra map[string]json.RawMessage) ([]byte, error) {
	if len(extra) == 0 {
		return b, nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("merging extra keys: %w", err)
	}
	for k, v := range extra {
		if _, known := m[k]; !known {
			m[k] = v
		}
	}
	return json.Marshal(m)
}

func collectExtra(data []byte, known map[string]bool) (map[string]json.RawMessage, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	var extra map[string]json.RawMessage
	for k, v := range m {
		if known[k] {
			continue
		}
		if extra == nil {
			extra = make(map[string]json.RawMessage)
		}
		extra[k] = v
	}
	return extra, nil
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	out := Document{
		Inventory:  cloneSlice(d.Inventory),
		Categories: cloneSlice(d.Categories),
		DreamItems: cloneSlice(d.DreamItems),
		Settings: Settings{
			WeightUnit: d.Settings.WeightUnit,
			Extra:      cloneRaw(d.Settings.Extra),
		},
		Extra: cloneRaw(d.Extra),
	}
	if d.Walks != nil {
		out.Walks = make([]Walk, len(d.Walks))
		for i, w := range d.Walks {
			out.Walks[i] = w.clone()
		}
	}
	if d.Recipes != nil {
		out.Recipes = make([]Recipe, len(d.Recipes))
		for i, r := range d.Recipes {
			r.Ingredients = cloneSlice(r.Ingredients)
			out.Recipes[i] = r
		}
	}
	return out
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}

func cloneRaw(m map[string]json.RawMessage) map[string]json.RawMessage {
	if m == nil {
		return nil
	}
	out := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

// Normalize applies forward-compatible defaults to records written by older
// versions: missing collections become empty, items without servings get 1,
// lines without a quantity get 1 and an empty unit falls back to grams.
func (d *Document) Normalize() {
	if d.Inventory == nil {
		d.Inventory = []Item{}
	}
	if d.Categories == nil {
		d.Categories = []Category{}
	}
	if d.Walks == nil {
		d.Walks = []Walk{}
	}
	if d.Recipes == nil {
		d.Recipes = []Recipe{}
	}
	if d.DreamItems == nil {
		d.DreamItems = []DreamItem{}
	}
	if d.Settings.WeightUnit == "" {
		d.Settings.WeightUnit = UnitGram
	}
	for i := range d.Inventory {
		if d.Inventory[i].Servings < 1 {
			d.Inventory[i].Servings = 1
		}
		if d.Inventory[i].Unit == "" {
			d.Inventory[i].Unit = UnitGram
		}
	}
	for i := range d.Walks {
		if d.Walks[i].Items == nil {
			d.Walks[i].Items = []WalkLine{}
		}
		for j := range d.Walks[i].Items {
			if d.Walks[i].Items[j].Qty < 1 {
				d.Walks[i].Items[j].Qty = 1
			}
		}
	}
	for i := range d.Recipes {
		if d.Recipes[i].Ingredients == nil {
			d.Recipes[i].Ingredients = []Ingredient{}
		}
	}
}

// FindItem returns the index of the inventory item with the given id, or -1.
func (d Document) FindItem(id string) int {
	for i, it := range d.Inventory {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// FindCategory returns the index of the category with the given id, or -1.
func (d Document) FindCategory(id string) int {
	for i, c := range d.Categories {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// FindWalk returns the index of the walk with the given id, or -1.
func (d Document) FindWalk(id string) int {
	for i, w := range d.Walks {
		if w.ID == id {
			return i
		}
	}
	return -1
}

// FindRecipe returns the index of the recipe with the given id, or -1.
func (d Document) FindRecipe(id string) int {
	for i, r := range d.Recipes {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// FindDreamItem returns the index of the dream item with the given id, or -1.
func (d Document) FindDreamItem(id string) int {
	for i, it := range d.DreamItems {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// CategoryName resolves a category id, falling back to "Uncategorized".
func (d Document) CategoryName(id string) string {
	if i := d.FindCategory(id); i >= 0 {
		return d.Categories[i].Name
	}
	return "Uncategorized"
}

// DefaultDocument returns the starter document used when no durable record
// exists or it cannot be parsed.
func DefaultDocument() Document {
	return Document{
		Inventory: []Item{
			{ID: "1", Name: "Backpack", Weight: 850, Unit: UnitGram, CategoryID: "cat1", Servings: 1, IsOwned: true},
			{ID: "2", Name: "Tent", Weight: 1200, Unit: UnitGram, CategoryID: "cat2", Servings: 1, IsOwned: true},
			{ID: "3", Name: "Sleeping Bag", Weight: 600, Unit: UnitGram, CategoryID: "cat2", Servings: 1, IsOwned: true},
			{ID: "4", Name: "Stove", Weight: 100, Unit: UnitGram, CategoryID: "cat4", Servings: 1, IsOwned: true},
			{ID: "5", Name: "Tortillas (Pack)", Weight: 320, Unit: UnitGram, CategoryID: "cat4", IsConsumable: true, Notes: "8 per pack", Servings: 8, IsOwned: true},
		},
		Categories: []Category{
			{ID: "cat1", Name: "Packs", Color: "#3b82f6"},
			{ID: "cat2", Name: "Shelter", Color: "#10b981"},
			{ID: "cat3", Name: "Clothing", Color: "#f59e0b"},
			{ID: "cat4", Name: "Cooking", Color: "#ef4444"},
		},
		Walks:      []Walk{},
		Recipes:    []Recipe{},
		DreamItems: []DreamItem{},
		Settings:   Settings{WeightUnit: UnitGram},
	}
}

// Session is the transient overlay held next to the document for the life
// of the process. It is never persisted.
type Session struct {
	SharedWalk   *Walk  `json:"sharedWalk,omitempty"`
	ActiveWalkID string `json:"activeWalkId,omitempty"`
}

// Shared reports whether the session is viewing an imported walk.
func (s Session) Shared() bool {
	return s.SharedWalk != nil
}

// Clone returns a deep copy of the session.
func (s Session) Clone() Session {
	out := s
	if s.SharedWalk != nil {
		w := s.SharedWalk.clone()
		out.SharedWalk = &w
	}
	return out
}
