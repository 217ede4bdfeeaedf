package actions

import (
	"fmt"

	"github.com/erazemk/trailpack/internal/model"
	"github.com/erazemk/trailpack/internal/share"
)

// SetWeightUnit changes the display unit. It does not record an undo step.
func (a *Actions) SetWeightUnit(unit model.WeightUnit) error {
	return a.do(actSetWeightUnit, func(t *tx) error {
		u, err := model.ParseWeightUnit(string(unit))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		t.doc.Settings.WeightUnit = u
		t.touchDoc()
		return nil
	})
}

// SetActiveWalk selects the walk being viewed. An empty id clears it.
func (a *Actions) SetActiveWalk(id string) error {
	return a.do(actSetActiveWalk, func(t *tx) error {
		if id != "" && t.doc.FindWalk(id) < 0 &&
			(t.sess.SharedWalk == nil || t.sess.SharedWalk.ID != id) {
			return fmt.Errorf("walk %q: %w", id, ErrNotFound)
		}
		t.sess.ActiveWalkID = id
		t.touchSession()
		return nil
	})
}

// ImportShared decodes a share token and enters shared mode with the
// decoded walk. A malformed token leaves everything untouched.
func (a *Actions) ImportShared(token string) (model.Walk, error) {
	var imported model.Walk
	err := a.do(actImportShared, func(t *tx) error {
		w, err := share.Decode(token)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		imported = w.Clone()
		t.sess.SharedWalk = w
		t.sess.ActiveWalkID = w.ID
		t.touchSession()
		return nil
	})
	return imported, err
}

// KeepSharedWalk saves the shared walk as one of the user's own walks and
// leaves shared mode. Lines marked removed are dropped and the remaining
// lines lose their divergence markers.
func (a *Actions) KeepSharedWalk() (model.Walk, error) {
	var kept model.Walk
	err := a.do(actKeepSharedWalk, func(t *tx) error {
		if !t.sess.Shared() {
			return fmt.Errorf("shared walk: %w", ErrNotFound)
		}
		src := t.sess.SharedWalk
		kept = model.Walk{
			ID:          a.newID(),
			Name:        src.Name,
			Description: src.Description,
			Date:        src.Date,
			Items:       make([]model.WalkLine, 0, len(src.Items)),
		}
		for _, l := range src.Items {
			if l.IsRemoved {
				continue
			}
			l.IsAdded = false
			kept.Items = append(kept.Items, l)
		}
		t.doc.Walks = append(t.doc.Walks, kept)
		t.touchDoc()
		t.sess.SharedWalk = nil
		t.sess.ActiveWalkID = kept.ID
		t.touchSession()
		return nil
	})
	return kept, err
}

// LeaveSharedMode discards the shared walk. It is a no-op outside shared
// mode.
func (a *Actions) LeaveSharedMode() error {
	return a.do(actLeaveSharedMode, func(t *tx) error {
		if !t.sess.Shared() {
			return nil
		}
		if t.sess.ActiveWalkID == t.sess.SharedWalk.ID {
			t.sess.ActiveWalkID = ""
		}
		t.sess.SharedWalk = nil
		t.touchSession()
		return nil
	})
}
