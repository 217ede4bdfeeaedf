package state

import (
	"encoding/json"
	"fmt"
	"reflect"
	"testing"

	"github.com/erazemk/trailpack/internal/model"
)

func docJSON(t *testing.T, doc model.Document) string {
	t.Helper()
	b, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

func addNamedItem(s *Store, name string) {
	s.Update(func(doc *model.Document) {
		inv := append([]model.Item(nil), doc.Inventory...)
		doc.Inventory = append(inv, model.Item{ID: name, Name: name})
	})
}

func TestUndoRedoInverse(t *testing.T) {
	s := newTestStore(t)
	h := NewHistory(s, 0)

	before := docJSON(t, s.Document())
	h.Snapshot()
	addNamedItem(s, "Stakes")
	after := docJSON(t, s.Document())

	if !h.Undo() {
		t.Fatal("expected undo to apply")
	}
	if got := docJSON(t, s.Document()); got != before {
		t.Errorf("undo did not restore state\n got: %s\nwant: %s", got, before)
	}

	if !h.Redo() {
		t.Fatal("expected redo to apply")
	}
	if got := docJSON(t, s.Document()); got != after {
		t.Errorf("redo did not restore state\n got: %s\nwant: %s", got, after)
	}
}

func TestHistoryBound(t *testing.T) {
	s := newTestStore(t)
	h := NewHistory(s, HistoryLimit)

	var states []string
	for i := 0; i < 25; i++ {
		states = append(states, docJSON(t, s.Document()))
		h.Snapshot()
		addNamedItem(s, fmt.Sprintf("item-%d", i))
	}

	past, future := h.Depth()
	if past != 20 || future != 0 {
		t.Fatalf("expected depth 20/0, got %d/%d", past, future)
	}

	// The 20 most recent states are reachable in reverse order.
	for i := 24; i >= 5; i-- {
		if !h.Undo() {
			t.Fatalf("undo %d failed", i)
		}
		if got := docJSON(t, s.Document()); got != states[i] {
			t.Fatalf("undo step %d restored the wrong state", i)
		}
	}
	if h.Undo() {
		t.Error("expected oldest snapshots to be discarded")
	}
}

func TestNewSnapshotClearsFuture(t *testing.T) {
	s := newTestStore(t)
	h := NewHistory(s, 0)

	h.Snapshot()
	addNamedItem(s, "a")
	h.Undo()
	if !h.CanRedo() {
		t.Fatal("expected redo to be available after undo")
	}

	h.Snapshot()
	addNamedItem(s, "b")

	before := docJSON(t, s.Document())
	if h.Redo() {
		t.Error("expected redo to be a no-op after a new snapshot")
	}
	if got := docJSON(t, s.Document()); got != before {
		t.Error("no-op redo changed the document")
	}
}

func TestUndoOnEmptyHistory(t *testing.T) {
	s := newTestStore(t)
	h := NewHistory(s, 0)
	calls := 0
	s.Subscribe(func() { calls++ })

	if h.Undo() || h.Redo() {
		t.Error("expected no-op on empty history")
	}
	if calls != 0 {
		t.Errorf("expected no notifications, got %d", calls)
	}
}

func TestUndoNotifiesPerKey(t *testing.T) {
	s := newTestStore(t)
	h := NewHistory(s, 0)
	h.Snapshot()
	addNamedItem(s, "x")

	calls := 0
	s.Subscribe(func() { calls++ })
	h.Undo()

	if calls != len(model.DocumentKeys) {
		t.Errorf("expected %d notifications, got %d", len(model.DocumentKeys), calls)
	}
}

func TestUndoRestoresSharedWalkWithinImport(t *testing.T) {
	s := newTestStore(t)
	h := NewHistory(s, 0)
	s.UpdateSession(func(sess *model.Session) {
		sess.SharedWalk = &model.Walk{ID: "shared", Items: []model.WalkLine{{ID: "l1", Name: "Tent"}}}
	})

	h.Snapshot()
	s.UpdateSession(func(sess *model.Session) {
		sess.SharedWalk.Items = nil
	})
	h.Undo()

	want := []model.WalkLine{{ID: "l1", Name: "Tent"}}
	if got := s.Session().SharedWalk.Items; !reflect.DeepEqual(got, want) {
		t.Errorf("shared walk not restored: %+v", got)
	}
}

func TestUndoClearsDanglingActiveWalk(t *testing.T) {
	s := newTestStore(t)
	h := NewHistory(s, 0)

	h.Snapshot()
	s.Update(func(doc *model.Document) {
		doc.Walks = append(append([]model.Walk(nil), doc.Walks...), model.Walk{ID: "w1", Name: "Trip"})
	})
	s.UpdateSession(func(sess *model.Session) { sess.ActiveWalkID = "w1" })

	h.Undo()
	if got := s.Session().ActiveWalkID; got != "" {
		t.Errorf("expected active walk cleared, got %q", got)
	}

	h.Redo()
	s.UpdateSession(func(sess *model.Session) { sess.ActiveWalkID = "w1" })
	h.Snapshot()
	addNamedItem(s, "Stakes")
	h.Undo()
	if got := s.Session().ActiveWalkID; got != "w1" {
		t.Errorf("active walk that still exists should be kept, got %q", got)
	}
}
