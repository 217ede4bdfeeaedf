package state

import (
	"encoding/json"
	"sync"

	"github.com/erazemk/trailpack/internal/model"
)

// HistoryLimit is the default number of undo steps kept.
const HistoryLimit = 20

// Snapshot is a deep copy of everything undo can restore: the document and
// the imported walk shown in shared mode.
type Snapshot struct {
	Document   model.Document
	SharedWalk *model.Walk
}

// History keeps bounded past and future snapshot stacks over a Store.
//
// It is not a transaction manager: callers that interleave Snapshot and
// writes from several goroutines must serialize them (the actions package
// does).
type History struct {
	store *Store
	limit int

	mu     sync.Mutex
	past   []Snapshot
	future []Snapshot
}

// NewHistory creates a history over store keeping at most limit undo steps.
// A limit below 1 uses HistoryLimit.
func NewHistory(store *Store, limit int) *History {
	if limit < 1 {
		limit = HistoryLimit
	}
	return &History{store: store, limit: limit}
}

// Snapshot records the current state as an undo step and clears redo.
// It must be called before the mutation it guards.
func (h *History) Snapshot() {
	snap := h.store.capture()

	h.mu.Lock()
	defer h.mu.Unlock()
	h.pushPast(snap)
	h.future = nil
}

// Undo restores the most recent snapshot. It reports false when there is
// nothing to undo.
func (h *History) Undo() bool {
	h.mu.Lock()
	if len(h.past) == 0 {
		h.mu.Unlock()
		return false
	}
	prev := h.past[len(h.past)-1]
	h.past = h.past[:len(h.past)-1]
	h.future = append(h.future, h.store.capture())
	h.mu.Unlock()

	h.store.restore(prev)
	return true
}

// Redo re-applies the most recently undone snapshot. It reports false when
// there is nothing to redo.
func (h *History) Redo() bool {
	h.mu.Lock()
	if len(h.future) == 0 {
		h.mu.Unlock()
		return false
	}
	next := h.future[len(h.future)-1]
	h.future = h.future[:len(h.future)-1]
	h.pushPast(h.store.capture())
	h.mu.Unlock()

	h.store.restore(next)
	return true
}

// CanUndo reports whether Undo would do anything.
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.past) > 0
}

// CanRedo reports whether Redo would do anything.
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.future) > 0
}

// Depth returns the sizes of the past and future stacks.
func (h *History) Depth() (past, future int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.past), len(h.future)
}

// pushPast appends snap, dropping the oldest entries beyond the limit.
// h.mu must be held.
func (h *History) pushPast(snap Snapshot) {
	h.past = append(h.past, snap)
	if over := len(h.past) - h.limit; over > 0 {
		h.past = append([]Snapshot(nil), h.past[over:]...)
	}
}

func (s *Store) capture() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{Document: s.doc.Clone()}
	if s.session.SharedWalk != nil {
		w := s.session.SharedWalk.Clone()
		snap.SharedWalk = &w
	}
	return snap
}

// restore writes every top-level key of snap back into the store, one key
// at a time, so each key produces its own notification.
func (s *Store) restore(snap Snapshot) {
	doc := snap.Document
	for _, key := range model.DocumentKeys {
		s.write(func() error {
			switch key {
			case model.KeyInventory:
				s.doc.Inventory = doc.Inventory
			case model.KeyCategories:
				s.doc.Categories = doc.Categories
			case model.KeyWalks:
				s.doc.Walks = doc.Walks
			case model.KeyRecipes:
				s.doc.Recipes = doc.Recipes
			case model.KeyDreamItems:
				s.doc.DreamItems = doc.DreamItems
			case model.KeySettings:
				s.doc.Settings = doc.Settings
			}
			return nil
		})
	}

	s.mu.RLock()
	extraKeys := make(map[string]bool, len(s.doc.Extra)+len(doc.Extra))
	for k := range s.doc.Extra {
		extraKeys[k] = true
	}
	s.mu.RUnlock()
	for k := range doc.Extra {
		extraKeys[k] = true
	}
	for k := range extraKeys {
		s.write(func() error {
			v, ok := doc.Extra[k]
			if !ok {
				delete(s.doc.Extra, k)
				return nil
			}
			if s.doc.Extra == nil {
				s.doc.Extra = make(map[string]json.RawMessage)
			}
			s.doc.Extra[k] = v
			return nil
		})
	}

	// Only roll the imported walk back within the same import; leaving
	// shared mode or importing another walk is not undone.
	s.mu.RLock()
	cur := s.session.SharedWalk
	s.mu.RUnlock()
	if cur != nil && snap.SharedWalk != nil && cur.ID == snap.SharedWalk.ID {
		s.write(func() error {
			s.session.SharedWalk = snap.SharedWalk
			return nil
		})
	}

	// The selection is not part of a snapshot; drop it when the walk it
	// points at no longer exists.
	s.mu.RLock()
	active := s.session.ActiveWalkID
	dangling := active != "" && s.doc.FindWalk(active) < 0 &&
		(s.session.SharedWalk == nil || s.session.SharedWalk.ID != active)
	s.mu.RUnlock()
	if dangling {
		s.write(func() error {
			if s.session.ActiveWalkID == active {
				s.session.ActiveWalkID = ""
			}
			return nil
		})
	}
}
