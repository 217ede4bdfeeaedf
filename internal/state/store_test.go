package state

import (
	"errors"
	"testing"

	"github.com/erazemk/trailpack/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(model.DefaultDocument(), nil)
}

func TestSetNotifiesOncePerWriteInOrder(t *testing.T) {
	s := newTestStore(t)

	var seen []string
	s.Subscribe(func() {
		v, _ := s.Get("settings.weightUnit")
		unit, _ := v.(string)
		seen = append(seen, unit)
	})

	writes := []struct {
		path  string
		value any
	}{
		{"settings.weightUnit", "kg"},
		{"settings", map[string]any{"weightUnit": "lb"}},
		{"settings.weightUnit", "oz"},
		{"activeWalkId", "w1"},
		{"walks", []model.Walk{}},
	}
	for _, w := range writes {
		if err := s.Set(w.path, w.value); err != nil {
			t.Fatalf("Set(%q): %v", w.path, err)
		}
	}

	want := []string{"kg", "lb", "oz", "oz", "oz"}
	if len(seen) != len(want) {
		t.Fatalf("expected %d notifications, got %d", len(want), len(seen))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("notification %d saw %q, want %q", i, seen[i], want[i])
		}
	}
}

func TestNestedSetIsVisibleImmediately(t *testing.T) {
	s := newTestStore(t)

	if err := s.Set("inventory.1.name", "Tarp"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := s.Document().Inventory[1].Name; got != "Tarp" {
		t.Errorf("expected Tarp, got %q", got)
	}
	v, ok := s.Get("inventory.1.weight")
	if !ok || v.(float64) != 1200 {
		t.Errorf("expected untouched weight 1200, got %v", v)
	}
}

func TestSetUnknownKeyIsStored(t *testing.T) {
	s := newTestStore(t)

	if err := s.Set("settings.darkMode", true); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set("future.flag", "on"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if v, ok := s.Get("settings.darkMode"); !ok || v != true {
		t.Errorf("expected darkMode true, got %v %v", v, ok)
	}
	if v, ok := s.Get("future.flag"); !ok || v != "on" {
		t.Errorf("expected future.flag on, got %v %v", v, ok)
	}
	if _, ok := s.Document().Extra["future"]; !ok {
		t.Error("expected future key in document extras")
	}
}

func TestSetBadPath(t *testing.T) {
	s := newTestStore(t)
	calls := 0
	s.Subscribe(func() { calls++ })

	for _, path := range []string{"", "settings..x", "settings.weightUnit.deeper", "inventory.99.name", "activeWalkId.x"} {
		err := s.Set(path, "x")
		if !errors.Is(err, ErrBadPath) {
			t.Errorf("Set(%q) = %v, want ErrBadPath", path, err)
		}
	}
	if calls != 0 {
		t.Errorf("expected no notifications for rejected writes, got %d", calls)
	}
}

func TestSharedWalkLivesInSession(t *testing.T) {
	s := newTestStore(t)

	w := model.Walk{ID: "shared", Name: "Borrowed", Items: []model.WalkLine{}}
	if err := s.Set("sharedWalk", w); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set("sharedWalk.name", "Renamed"); err != nil {
		t.Fatalf("Set nested: %v", err)
	}

	sess := s.Session()
	if !sess.Shared() || sess.SharedWalk.Name != "Renamed" {
		t.Errorf("unexpected session %+v", sess)
	}
	if _, ok := s.Document().Extra[model.KeySharedWalk]; ok {
		t.Error("shared walk leaked into the document")
	}

	if err := s.Set("sharedWalk", nil); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if s.Session().Shared() {
		t.Error("expected shared mode cleared")
	}
}

func TestUnsubscribe(t *testing.T) {
	s := newTestStore(t)
	a, b := 0, 0
	idA := s.Subscribe(func() { a++ })
	s.Subscribe(func() { b++ })

	s.Update(func(doc *model.Document) { doc.Settings.WeightUnit = model.UnitKilogram })
	s.Unsubscribe(idA)
	s.Update(func(doc *model.Document) { doc.Settings.WeightUnit = model.UnitGram })

	if a != 1 || b != 2 {
		t.Errorf("expected a=1 b=2, got a=%d b=%d", a, b)
	}
}

func TestPanickingSubscriberDoesNotBreakWrites(t *testing.T) {
	s := newTestStore(t)
	after := 0
	s.Subscribe(func() { panic("boom") })
	s.Subscribe(func() { after++ })

	s.UpdateSession(func(sess *model.Session) { sess.ActiveWalkID = "x" })

	if after != 1 {
		t.Errorf("expected later subscriber to run, got %d", after)
	}
	if s.Session().ActiveWalkID != "x" {
		t.Error("write was lost")
	}
}

func TestDocumentReturnsCopy(t *testing.T) {
	s := newTestStore(t)
	doc := s.Document()
	doc.Inventory[0].Name = "mutated"
	if s.Document().Inventory[0].Name == "mutated" {
		t.Error("Document() exposed live state")
	}
}
