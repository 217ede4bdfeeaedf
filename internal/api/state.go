package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/trailpack/internal/actions"
	"github.com/erazemk/trailpack/internal/model"
	"github.com/erazemk/trailpack/internal/share"
	"github.com/erazemk/trailpack/internal/state"
)

// StateHandler serves the document snapshot and the session endpoints.
type StateHandler struct {
	Store   *state.Store
	History *state.History
	Actions *actions.Actions
	Logger  *slog.Logger
}

type historyView struct {
	CanUndo bool `json:"canUndo"`
	CanRedo bool `json:"canRedo"`
	Past    int  `json:"past"`
	Future  int  `json:"future"`
}

type walkView struct {
	Walk      model.Walk             `json:"walk"`
	Shared    bool                   `json:"shared"`
	Totals    model.Totals           `json:"totals"`
	Breakdown []model.CategoryWeight `json:"breakdown"`
}

type stateResponse struct {
	Document   model.Document `json:"document"`
	Session    model.Session  `json:"session"`
	Shared     bool           `json:"shared"`
	ActiveWalk *walkView      `json:"activeWalk,omitempty"`
	History    historyView    `json:"history"`
}

func (h *StateHandler) history() historyView {
	past, future := h.History.Depth()
	return historyView{CanUndo: past > 0, CanRedo: future > 0, Past: past, Future: future}
}

// Get handles GET /api/state.
func (h *StateHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc := h.Store.Document()
	sess := h.Store.Session()

	resp := stateResponse{
		Document: doc,
		Session:  sess,
		Shared:   sess.Shared(),
		History:  h.history(),
	}

	var active *model.Walk
	switch {
	case sess.Shared():
		active = sess.SharedWalk
	case sess.ActiveWalkID != "":
		if i := doc.FindWalk(sess.ActiveWalkID); i >= 0 {
			active = &doc.Walks[i]
		}
	}
	if active != nil {
		resp.ActiveWalk = &walkView{
			Walk:      *active,
			Shared:    sess.Shared(),
			Totals:    model.WalkTotals(*active),
			Breakdown: model.CategoryBreakdown(doc, *active),
		}
	}
	jsonResponse(w, http.StatusOK, resp)
}

type unitRequest struct {
	Unit model.WeightUnit `json:"unit"`
}

// SetUnit handles PUT /api/settings/unit.
func (h *StateHandler) SetUnit(w http.ResponseWriter, r *http.Request) {
	var req unitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.Actions.SetWeightUnit(req.Unit); err != nil {
		actionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type activeWalkRequest struct {
	WalkID string `json:"walkId"`
}

// SetActiveWalk handles PUT /api/session/active-walk.
func (h *StateHandler) SetActiveWalk(w http.ResponseWriter, r *http.Request) {
	var req activeWalkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.Actions.SetActiveWalk(req.WalkID); err != nil {
		actionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Undo handles POST /api/undo.
func (h *StateHandler) Undo(w http.ResponseWriter, r *http.Request) {
	applied := h.Actions.PerformUndo()
	jsonResponse(w, http.StatusOK, map[string]any{"applied": applied, "history": h.history()})
}

// Redo handles POST /api/redo.
func (h *StateHandler) Redo(w http.ResponseWriter, r *http.Request) {
	applied := h.Actions.PerformRedo()
	jsonResponse(w, http.StatusOK, map[string]any{"applied": applied, "history": h.history()})
}

// Root handles GET /. With an import parameter it enters shared mode and
// redirects to the bare path so a reload does not import again. A bad
// token is logged and ignored.
func (h *StateHandler) Root(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get(share.QueryParam)
	if token == "" {
		jsonResponse(w, http.StatusOK, map[string]any{
			"app":    "trailpack",
			"shared": h.Store.Session().Shared(),
		})
		return
	}

	logger := loggerOr(h.Logger)
	walk, err := h.Actions.ImportShared(token)
	if err != nil {
		if !errors.Is(err, share.ErrMalformedToken) {
			logger.Error("import failed", "error", err)
		} else {
			logger.Warn("ignoring malformed share token", "error", err)
		}
	} else {
		logger.Info("entered shared mode", "walk", walk.Name, "lines", len(walk.Items))
	}

	q := r.URL.Query()
	q.Del(share.QueryParam)
	target := r.URL.Path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// KeepShared handles POST /api/shared/keep.
func (h *StateHandler) KeepShared(w http.ResponseWriter, r *http.Request) {
	walk, err := h.Actions.KeepSharedWalk()
	if err != nil {
		actionError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, walk)
}

// LeaveShared handles POST /api/shared/leave.
func (h *StateHandler) LeaveShared(w http.ResponseWriter, r *http.Request) {
	if err := h.Actions.LeaveSharedMode(); err != nil {
		actionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
