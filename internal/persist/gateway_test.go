package persist

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/erazemk/trailpack/internal/db"
	"github.com/erazemk/trailpack/internal/model"
	"github.com/erazemk/trailpack/internal/state"
	"github.com/erazemk/trailpack/internal/store"
)

type memBackend struct {
	mu       sync.Mutex
	records  map[string][]byte
	readErr  error
	writeErr error
	writes   int
}

func newMemBackend() *memBackend {
	return &memBackend{records: make(map[string][]byte)}
}

func (m *memBackend) Read(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	return m.records[key], nil
}

func (m *memBackend) Write(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.writeErr != nil {
		return m.writeErr
	}
	m.records[key] = append([]byte(nil), data...)
	return nil
}

func TestLoadMissingRecordUsesDefaults(t *testing.T) {
	g := NewGateway(newMemBackend(), nil)
	doc := g.Load(context.Background())

	if len(doc.Inventory) != len(model.DefaultDocument().Inventory) {
		t.Errorf("expected starter inventory, got %d items", len(doc.Inventory))
	}
	if doc.Settings.WeightUnit != model.UnitGram {
		t.Errorf("expected grams, got %q", doc.Settings.WeightUnit)
	}
}

func TestLoadCorruptRecordUsesDefaults(t *testing.T) {
	for _, raw := range []string{"{not json", "null", "[]", "42"} {
		b := newMemBackend()
		b.records[StorageKey] = []byte(raw)

		doc := NewGateway(b, nil).Load(context.Background())
		if len(doc.Categories) != len(model.DefaultDocument().Categories) {
			t.Errorf("record %q: expected default categories, got %d", raw, len(doc.Categories))
		}
	}
}

func TestLoadReadErrorUsesDefaults(t *testing.T) {
	b := newMemBackend()
	b.readErr = errors.New("disk gone")

	doc := NewGateway(b, nil).Load(context.Background())
	if len(doc.Inventory) == 0 {
		t.Error("expected defaults on read error")
	}
}

func TestLoadFillsMissingCollections(t *testing.T) {
	b := newMemBackend()
	b.records[StorageKey] = []byte(`{"inventory":[{"id":"i1","name":"Tent","weight":1200}],"custom":1}`)

	doc := NewGateway(b, nil).Load(context.Background())
	if len(doc.Inventory) != 1 || doc.Inventory[0].Name != "Tent" {
		t.Fatalf("unexpected inventory %+v", doc.Inventory)
	}
	if doc.Recipes == nil || doc.DreamItems == nil || doc.Walks == nil {
		t.Error("expected missing collections to be initialized")
	}
	if doc.Settings.WeightUnit != model.UnitGram {
		t.Errorf("expected default unit, got %q", doc.Settings.WeightUnit)
	}
	if _, ok := doc.Extra["custom"]; !ok {
		t.Error("expected unknown key to survive load")
	}
}

func TestSaveOmitsSessionState(t *testing.T) {
	b := newMemBackend()
	g := NewGateway(b, nil)
	s := state.New(model.DefaultDocument(), nil)
	g.Attach(s)

	shared := model.Walk{ID: "w-shared", Name: "Borrowed", Items: []model.WalkLine{}}
	if err := s.Set(model.KeySharedWalk, shared); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(model.KeyActiveWalkID, "w1"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var saved map[string]json.RawMessage
	if err := json.Unmarshal(b.records[StorageKey], &saved); err != nil {
		t.Fatalf("saved record is not JSON: %v", err)
	}
	for _, key := range []string{model.KeySharedWalk, model.KeyActiveWalkID} {
		if _, ok := saved[key]; ok {
			t.Errorf("saved record contains session key %q", key)
		}
	}
	if !s.Session().Shared() {
		t.Error("store lost the shared walk")
	}
	if b.writes != 2 {
		t.Errorf("expected one save per write, got %d", b.writes)
	}
}

func TestSaveDropsTransientExtras(t *testing.T) {
	b := newMemBackend()
	g := NewGateway(b, nil)

	doc := model.DefaultDocument()
	doc.Extra = map[string]json.RawMessage{
		model.KeySharedWalk: json.RawMessage(`{"id":"x"}`),
		"theme":             json.RawMessage(`"dark"`),
	}
	g.Save(context.Background(), doc)

	var saved map[string]json.RawMessage
	if err := json.Unmarshal(b.records[StorageKey], &saved); err != nil {
		t.Fatalf("saved record is not JSON: %v", err)
	}
	if _, ok := saved[model.KeySharedWalk]; ok {
		t.Error("transient key persisted")
	}
	if string(saved["theme"]) != `"dark"` {
		t.Errorf("expected theme to persist, got %s", saved["theme"])
	}
	if _, ok := doc.Extra[model.KeySharedWalk]; !ok {
		t.Error("Save mutated the caller's document")
	}
}

func TestSaveFailureIsSwallowed(t *testing.T) {
	b := newMemBackend()
	b.writeErr = errors.New("quota exceeded")
	g := NewGateway(b, nil)
	s := state.New(model.DefaultDocument(), nil)
	g.Attach(s)

	s.Update(func(doc *model.Document) { doc.Settings.WeightUnit = model.UnitKilogram })

	if s.Document().Settings.WeightUnit != model.UnitKilogram {
		t.Error("in-memory write lost after failed save")
	}
	if g.LastSaveError() == nil {
		t.Error("expected the failure to be recorded")
	}

	b.mu.Lock()
	b.writeErr = nil
	b.mu.Unlock()
	s.Update(func(doc *model.Document) { doc.Settings.WeightUnit = model.UnitGram })
	if g.LastSaveError() != nil {
		t.Errorf("expected error cleared after successful save, got %v", g.LastSaveError())
	}
}

func TestRoundTripThroughDatabase(t *testing.T) {
	database := db.NewTestDB(t)
	g := NewGateway(store.DocumentBackend{DB: database}, nil)
	ctx := context.Background()

	doc := g.Load(ctx)
	doc.Inventory = append(doc.Inventory, model.Item{ID: "new", Name: "Stove", Weight: 85, Unit: model.UnitGram, CategoryID: "cat3", Servings: 1})
	g.Save(ctx, doc)
	if err := g.LastSaveError(); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded := g.Load(ctx)
	if loaded.FindItem("new") < 0 {
		t.Error("expected saved item after reload")
	}
}
