// Package actions is the only sanctioned way to change the packing
// document. Every action validates its input first, optionally records an
// undo step, and then writes to the store, which notifies subscribers.
package actions

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/trailpack/internal/model"
	"github.com/erazemk/trailpack/internal/state"
)

var (
	// ErrInvalidInput is returned when an action's arguments are rejected.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when an action addresses an unknown id.
	ErrNotFound = errors.New("not found")
	// ErrSharedMode is returned for master-inventory changes while an
	// imported walk is being viewed.
	ErrSharedMode = errors.New("not allowed while viewing a shared walk")
)

// Policy describes how an action interacts with history.
type Policy struct {
	Undoable bool
}

// Action names.
const (
	actAddItem           = "add_item"
	actUpdateItem        = "update_item"
	actRemoveItem        = "remove_item"
	actAddCategory       = "add_category"
	actUpdateCategory    = "update_category"
	actRemoveCategory    = "remove_category"
	actAddWalk           = "add_walk"
	actUpdateWalk        = "update_walk"
	actRemoveWalk        = "remove_walk"
	actDuplicateWalk     = "duplicate_walk"
	actAddLineFromItem   = "add_line_from_item"
	actQuickAddLine      = "quick_add_line"
	actUpdateLine        = "update_line"
	actRemoveLine        = "remove_line"
	actAddRecipe         = "add_recipe"
	actRemoveRecipe      = "remove_recipe"
	actAddIngredient     = "add_ingredient"
	actRemoveIngredient  = "remove_ingredient"
	actAddDreamItem      = "add_dream_item"
	actUpdateDreamItem   = "update_dream_item"
	actRemoveDreamItem   = "remove_dream_item"
	actPurchaseDreamItem = "purchase_dream_item"
	actSetWeightUnit     = "set_weight_unit"
	actSetActiveWalk     = "set_active_walk"
	actImportShared      = "import_shared"
	actKeepSharedWalk    = "keep_shared_walk"
	actLeaveSharedMode   = "leave_shared_mode"
)

// policies declares, per action, whether it records an undo step. Field
// edits that arrive once per keystroke are not undoable.
var policies = map[string]Policy{
	actAddItem:           {Undoable: true},
	actUpdateItem:        {Undoable: false},
	actRemoveItem:        {Undoable: true},
	actAddCategory:       {Undoable: true},
	actUpdateCategory:    {Undoable: false},
	actRemoveCategory:    {Undoable: true},
	actAddWalk:           {Undoable: true},
	actUpdateWalk:        {Undoable: true},
	actRemoveWalk:        {Undoable: true},
	actDuplicateWalk:     {Undoable: true},
	actAddLineFromItem:   {Undoable: true},
	actQuickAddLine:      {Undoable: true},
	actUpdateLine:        {Undoable: true},
	actRemoveLine:        {Undoable: true},
	actAddRecipe:         {Undoable: true},
	actRemoveRecipe:      {Undoable: true},
	actAddIngredient:     {Undoable: true},
	actRemoveIngredient:  {Undoable: true},
	actAddDreamItem:      {Undoable: true},
	actUpdateDreamItem:   {Undoable: false},
	actRemoveDreamItem:   {Undoable: true},
	actPurchaseDreamItem: {Undoable: true},
	actSetWeightUnit:     {Undoable: false},
	actSetActiveWalk:     {Undoable: false},
	actImportShared:      {Undoable: false},
	actKeepSharedWalk:    {Undoable: true},
	actLeaveSharedMode:   {Undoable: false},
}

// PolicyFor returns the declared policy of the named action.
func PolicyFor(action string) (Policy, bool) {
	p, ok := policies[action]
	return p, ok
}

// Actions applies mutations to a store and records undo steps in history.
type Actions struct {
	mu      sync.Mutex
	store   *state.Store
	history *state.History
	logger  *slog.Logger

	newID func() string
	now   func() time.Time
}

// New creates an action layer over store and history. A nil logger uses
// slog.Default().
func New(store *state.Store, history *state.History, logger *slog.Logger) *Actions {
	if logger == nil {
		logger = slog.Default()
	}
	return &Actions{
		store:   store,
		history: history,
		logger:  logger,
		newID:   uuid.NewString,
		now:     time.Now,
	}
}

// tx is a private working copy of the document and session. Actions edit
// it freely; nothing reaches the store unless the action succeeds.
type tx struct {
	doc  model.Document
	sess model.Session

	docChanged  bool
	sessChanged bool
}

func (t *tx) touchDoc()     { t.docChanged = true }
func (t *tx) touchSession() { t.sessChanged = true }

// requireOwnMode rejects master-inventory changes in shared mode.
func (t *tx) requireOwnMode() error {
	if t.sess.Shared() {
		return ErrSharedMode
	}
	return nil
}

// walk resolves id to either a stored walk or the shared walk and marks
// the matching side as changed.
func (t *tx) walk(id string) (*model.Walk, error) {
	if t.sess.SharedWalk != nil && t.sess.SharedWalk.ID == id {
		t.touchSession()
		return t.sess.SharedWalk, nil
	}
	i := t.doc.FindWalk(id)
	if i < 0 {
		return nil, fmt.Errorf("walk %q: %w", id, ErrNotFound)
	}
	t.touchDoc()
	return &t.doc.Walks[i], nil
}

// do runs fn against a working copy and commits the result. A failing fn
// leaves history and store untouched and produces no notification.
func (a *Actions) do(action string, fn func(t *tx) error) error {
	policy, ok := policies[action]
	if !ok {
		panic("actions: no policy declared for " + action)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	t := &tx{doc: a.store.Document(), sess: a.store.Session()}
	if err := fn(t); err != nil {
		a.logger.Debug("action rejected", "action", action, "error", err)
		return fmt.Errorf("%s: %w", action, err)
	}
	if !t.docChanged && !t.sessChanged {
		return nil
	}

	if policy.Undoable {
		a.history.Snapshot()
	}
	if t.docChanged {
		a.store.Update(func(doc *model.Document) { *doc = t.doc })
	}
	if t.sessChanged {
		a.store.UpdateSession(func(sess *model.Session) { *sess = t.sess })
	}
	a.logger.Debug("action applied", "action", action, "undoable", policy.Undoable)
	return nil
}

// PerformUndo restores the previous snapshot. It reports false when there
// is nothing to undo.
func (a *Actions) PerformUndo() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.history.Undo()
}

// PerformRedo re-applies the last undone snapshot. It reports false when
// there is nothing to redo.
func (a *Actions) PerformRedo() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.history.Redo()
}

func requireName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	return name, nil
}

func requireWeight(g model.Grams) error {
	f := float64(g)
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return fmt.Errorf("%w: weight must be a non-negative number", ErrInvalidInput)
	}
	return nil
}

func requireUnit(u model.WeightUnit) (model.WeightUnit, error) {
	if u == "" {
		return model.UnitGram, nil
	}
	parsed, err := model.ParseWeightUnit(string(u))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return parsed, nil
}
