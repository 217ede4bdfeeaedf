package actions

import (
	"errors"
	"testing"

	"github.com/erazemk/trailpack/internal/model"
	"github.com/erazemk/trailpack/internal/share"
)

func TestWalkLines(t *testing.T) {
	f := newFixture(t, model.DefaultDocument())
	a := f.actions

	w, err := a.AddWalk(WalkInput{Name: "Weekend", Description: "Two nights"})
	if err != nil {
		t.Fatalf("AddWalk: %v", err)
	}
	if w.Date != "2024-07-01T08:00:00.000Z" {
		t.Errorf("unexpected date %q", w.Date)
	}
	if f.store.Session().ActiveWalkID != w.ID {
		t.Error("new walk should become active")
	}

	line, err := a.QuickAddLine(w.ID, "tortillas (pack)", "", 2)
	if err != nil {
		t.Fatalf("QuickAddLine: %v", err)
	}
	if line.OriginalID != "5" || line.Weight != 320 || line.Qty != 2 || line.CategoryID != "cat4" {
		t.Errorf("unexpected quick line %+v", line)
	}

	on := true
	if _, err := a.UpdateLine(w.ID, line.ID, LinePatch{IsConsumable: &on}); err != nil {
		t.Fatalf("UpdateLine: %v", err)
	}
	if _, err := a.UpdateLine(w.ID, line.ID, LinePatch{IsWorn: &on}); err != nil {
		t.Fatalf("UpdateLine: %v", err)
	}
	got := f.store.Document().Walks[0].Items[0]
	if !got.IsWorn || got.IsConsumable {
		t.Errorf("expected worn only, got %+v", got)
	}

	zero := 0
	if _, err := a.UpdateLine(w.ID, line.ID, LinePatch{Qty: &zero}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}

	if err := a.RemoveLine(w.ID, line.ID); err != nil {
		t.Fatalf("RemoveLine: %v", err)
	}
	if n := len(f.store.Document().Walks[0].Items); n != 0 {
		t.Errorf("expected line removed, got %d", n)
	}
}

func TestDuplicateWalk(t *testing.T) {
	f := newFixture(t, model.DefaultDocument())
	a := f.actions

	w, _ := a.AddWalk(WalkInput{Name: "Original"})
	line, _ := a.AddLineFromItem(w.ID, "1", "")

	dup, err := a.DuplicateWalk(w.ID)
	if err != nil {
		t.Fatalf("DuplicateWalk: %v", err)
	}
	if dup.ID == w.ID || dup.Name != "Copy of Original" {
		t.Errorf("unexpected copy %+v", dup)
	}
	if len(dup.Items) != 1 || dup.Items[0].ID == line.ID || dup.Items[0].Name != "Backpack" {
		t.Errorf("unexpected copied lines %+v", dup.Items)
	}
	if f.store.Session().ActiveWalkID != dup.ID {
		t.Error("copy should become active")
	}

	if err := a.RemoveWalk(dup.ID); err != nil {
		t.Fatalf("RemoveWalk: %v", err)
	}
	if f.store.Session().ActiveWalkID != "" {
		t.Error("removing the active walk should clear the selection")
	}
}

func TestUpdateWalkItemsAndUndo(t *testing.T) {
	f := newFixture(t, model.DefaultDocument())
	a := f.actions

	w, _ := a.AddWalk(WalkInput{Name: "Trip"})
	items := []model.WalkLine{{Name: "Map", Weight: 50, IsWorn: true, IsConsumable: true}}
	if _, err := a.UpdateWalk(w.ID, WalkPatch{Items: &items}); err != nil {
		t.Fatalf("UpdateWalk: %v", err)
	}
	got := f.store.Document().Walks[0].Items
	if len(got) != 1 || got[0].ID == "" || got[0].Qty != 1 || got[0].IsConsumable {
		t.Errorf("lines not normalized: %+v", got)
	}

	a.PerformUndo()
	if n := len(f.store.Document().Walks[0].Items); n != 0 {
		t.Errorf("expected undo to restore empty walk, got %d lines", n)
	}
}

func importWalk(t *testing.T, f *fixture) model.Walk {
	t.Helper()
	token, err := share.Encode(&model.Walk{
		Name: "Friend's list",
		Items: []model.WalkLine{
			{Name: "Tent", Weight: 1200, Qty: 1, CategoryID: "cat2"},
			{Name: "Stove", Weight: 100, Qty: 1, CategoryID: "cat4"},
		},
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	w, err := f.actions.ImportShared(token)
	if err != nil {
		t.Fatalf("ImportShared: %v", err)
	}
	return w
}

func TestSharedModeTracksDivergence(t *testing.T) {
	f := newFixture(t, model.DefaultDocument())
	a := f.actions
	shared := importWalk(t, f)

	sess := f.store.Session()
	if !sess.Shared() || sess.ActiveWalkID != shared.ID {
		t.Fatalf("expected shared mode, got %+v", sess)
	}
	if len(f.store.Document().Walks) != 0 {
		t.Fatal("import must not touch stored walks")
	}

	if _, err := a.AddItem(ItemInput{Name: "Spork"}); !errors.Is(err, ErrSharedMode) {
		t.Errorf("expected ErrSharedMode, got %v", err)
	}

	added, err := a.AddLineFromItem(shared.ID, "3", "")
	if err != nil {
		t.Fatalf("AddLineFromItem: %v", err)
	}
	if !added.IsAdded {
		t.Error("lines added in shared mode should be marked")
	}

	tent := shared.Items[0].ID
	if err := a.RemoveLine(shared.ID, tent); err != nil {
		t.Fatalf("RemoveLine: %v", err)
	}
	lines := f.store.Session().SharedWalk.Items
	if len(lines) != 3 || !lines[0].IsRemoved {
		t.Fatalf("expected soft removal, got %+v", lines)
	}
	if err := a.RemoveLine(shared.ID, tent); err != nil {
		t.Fatalf("RemoveLine: %v", err)
	}
	if f.store.Session().SharedWalk.Items[0].IsRemoved {
		t.Error("second removal should restore the line")
	}

	if err := a.RemoveLine(shared.ID, added.ID); err != nil {
		t.Fatalf("RemoveLine: %v", err)
	}
	if n := len(f.store.Session().SharedWalk.Items); n != 2 {
		t.Errorf("added lines are removed outright, got %d lines", n)
	}

	// Undo rolls back the shared walk within the same import.
	a.PerformUndo()
	if n := len(f.store.Session().SharedWalk.Items); n != 3 {
		t.Errorf("expected undo to bring back the added line, got %d", n)
	}
}

func TestKeepAndLeaveSharedWalk(t *testing.T) {
	f := newFixture(t, model.DefaultDocument())
	a := f.actions
	shared := importWalk(t, f)

	if err := a.RemoveLine(shared.ID, shared.Items[1].ID); err != nil {
		t.Fatalf("RemoveLine: %v", err)
	}
	kept, err := a.KeepSharedWalk()
	if err != nil {
		t.Fatalf("KeepSharedWalk: %v", err)
	}
	if f.store.Session().Shared() {
		t.Error("keeping should leave shared mode")
	}
	doc := f.store.Document()
	if len(doc.Walks) != 1 || doc.Walks[0].ID != kept.ID || len(doc.Walks[0].Items) != 1 {
		t.Errorf("unexpected kept walk %+v", doc.Walks)
	}
	if f.store.Session().ActiveWalkID != kept.ID {
		t.Error("kept walk should become active")
	}
	if _, err := a.KeepSharedWalk(); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound outside shared mode, got %v", err)
	}

	importWalk(t, f)
	if err := a.LeaveSharedMode(); err != nil {
		t.Fatalf("LeaveSharedMode: %v", err)
	}
	sess := f.store.Session()
	if sess.Shared() || sess.ActiveWalkID != "" {
		t.Errorf("expected clean session, got %+v", sess)
	}
	if len(f.store.Document().Walks) != 1 {
		t.Error("leaving must not persist the shared walk")
	}
}

func TestSetActiveWalk(t *testing.T) {
	f := newFixture(t, model.DefaultDocument())
	a := f.actions

	w, _ := a.AddWalk(WalkInput{Name: "A"})
	if err := a.SetActiveWalk(""); err != nil {
		t.Fatalf("SetActiveWalk: %v", err)
	}
	if err := a.SetActiveWalk(w.ID); err != nil {
		t.Fatalf("SetActiveWalk: %v", err)
	}
	if err := a.SetActiveWalk("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if f.store.Session().ActiveWalkID != w.ID {
		t.Error("rejected selection changed the session")
	}
}

func TestUpdateReturnsResultAfterRemoval(t *testing.T) {
	f := newFixture(t, model.DefaultDocument())
	a := f.actions

	name := "Frame Pack"
	item, err := a.UpdateItem("1", ItemPatch{Name: &name})
	if err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if err := a.RemoveItem("1"); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if item.ID != "1" || item.Name != "Frame Pack" {
		t.Errorf("unexpected updated item %+v", item)
	}

	w, _ := a.AddWalk(WalkInput{Name: "Trip"})
	line, _ := a.QuickAddLine(w.ID, "tortillas (pack)", "", 1)
	qty := 3
	got, err := a.UpdateLine(w.ID, line.ID, LinePatch{Qty: &qty})
	if err != nil {
		t.Fatalf("UpdateLine: %v", err)
	}
	if err := a.RemoveLine(w.ID, line.ID); err != nil {
		t.Fatalf("RemoveLine: %v", err)
	}
	if got.ID != line.ID || got.Qty != 3 {
		t.Errorf("unexpected updated line %+v", got)
	}

	desc := "Two nights"
	walk, err := a.UpdateWalk(w.ID, WalkPatch{Description: &desc})
	if err != nil {
		t.Fatalf("UpdateWalk: %v", err)
	}
	if err := a.RemoveWalk(w.ID); err != nil {
		t.Fatalf("RemoveWalk: %v", err)
	}
	if walk.ID != w.ID || walk.Description != "Two nights" {
		t.Errorf("unexpected updated walk %+v", walk)
	}
}

func TestUndoAddWalkClearsSelection(t *testing.T) {
	f := newFixture(t, model.DefaultDocument())
	a := f.actions

	w, _ := a.AddWalk(WalkInput{Name: "Trip"})
	if f.store.Session().ActiveWalkID != w.ID {
		t.Fatal("new walk should become active")
	}
	if !a.PerformUndo() {
		t.Fatal("expected undo to apply")
	}
	if len(f.store.Document().Walks) != 0 {
		t.Errorf("expected no walks after undo, got %+v", f.store.Document().Walks)
	}
	if got := f.store.Session().ActiveWalkID; got != "" {
		t.Errorf("expected selection cleared, got %q", got)
	}
}
