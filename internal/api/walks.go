package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/erazemk/trailpack/internal/actions"
	"github.com/erazemk/trailpack/internal/csvexport"
	"github.com/erazemk/trailpack/internal/model"
	"github.com/erazemk/trailpack/internal/share"
	"github.com/erazemk/trailpack/internal/state"
	"github.com/erazemk/trailpack/internal/store"
)

// WalksHandler handles walks, their packing lines, sharing and export.
type WalksHandler struct {
	DB      *sql.DB
	Store   *state.Store
	Actions *actions.Actions
	// BaseURL is the public address share links point at. When empty it is
	// derived from the request.
	BaseURL string
	Logger  *slog.Logger
}

type createWalkRequest struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Items       []model.WalkLine `json:"items"`
}

type fromItemRequest struct {
	ItemID     string `json:"itemId"`
	CategoryID string `json:"categoryId"`
}

type quickAddRequest struct {
	Name       string `json:"name"`
	CategoryID string `json:"categoryId"`
	Qty        int    `json:"qty"`
}

// lookup returns the stored walk with id, or the shared walk when it has
// that id.
func (h *WalksHandler) lookup(id string) (model.Walk, bool) {
	if sess := h.Store.Session(); sess.SharedWalk != nil && sess.SharedWalk.ID == id {
		return *sess.SharedWalk, true
	}
	doc := h.Store.Document()
	if i := doc.FindWalk(id); i >= 0 {
		return doc.Walks[i], true
	}
	return model.Walk{}, false
}

// List handles GET /api/walks.
func (h *WalksHandler) List(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, h.Store.Document().Walks)
}

// Create handles POST /api/walks.
func (h *WalksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createWalkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	walk, err := h.Actions.AddWalk(actions.WalkInput{
		Name:        req.Name,
		Description: req.Description,
		Items:       req.Items,
	})
	if err != nil {
		actionError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, walk)
}

// Get handles GET /api/walks/{id}.
func (h *WalksHandler) Get(w http.ResponseWriter, r *http.Request) {
	walk, ok := h.lookup(r.PathValue("id"))
	if !ok {
		jsonError(w, http.StatusNotFound, "walk not found")
		return
	}
	jsonResponse(w, http.StatusOK, walkView{
		Walk:      walk,
		Shared:    h.Store.Session().Shared(),
		Totals:    model.WalkTotals(walk),
		Breakdown: model.CategoryBreakdown(h.Store.Document(), walk),
	})
}

// Update handles PATCH /api/walks/{id}.
func (h *WalksHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var patch actions.WalkPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	walk, err := h.Actions.UpdateWalk(id, patch)
	if err != nil {
		actionError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, walk)
}

// Delete handles DELETE /api/walks/{id}.
func (h *WalksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Actions.RemoveWalk(r.PathValue("id")); err != nil {
		actionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Duplicate handles POST /api/walks/{id}/duplicate.
func (h *WalksHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	walk, err := h.Actions.DuplicateWalk(r.PathValue("id"))
	if err != nil {
		actionError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, walk)
}

// UploadPhoto handles PUT /api/walks/{id}/photo.
func (h *WalksHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	photo, ok := savePhoto(loggerOr(h.Logger), w, r, h.DB)
	if !ok {
		return
	}

	ref := store.PhotoRef(photo.ID)
	if _, err := h.Actions.UpdateWalk(id, actions.WalkPatch{PhotoRef: &ref}); err != nil {
		discardPhoto(loggerOr(h.Logger), r, h.DB, photo.ID)
		actionError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"photoRef": ref, "width": photo.Width, "height": photo.Height})
}

// AddFromItem handles POST /api/walks/{id}/lines/from-item.
func (h *WalksHandler) AddFromItem(w http.ResponseWriter, r *http.Request) {
	var req fromItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	line, err := h.Actions.AddLineFromItem(r.PathValue("id"), req.ItemID, req.CategoryID)
	if err != nil {
		actionError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, line)
}

// QuickAdd handles POST /api/walks/{id}/lines/quick.
func (h *WalksHandler) QuickAdd(w http.ResponseWriter, r *http.Request) {
	var req quickAddRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	line, err := h.Actions.QuickAddLine(r.PathValue("id"), req.Name, req.CategoryID, req.Qty)
	if err != nil {
		actionError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, line)
}

// UpdateLine handles PATCH /api/walks/{id}/lines/{lineId}.
func (h *WalksHandler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	walkID, lineID := r.PathValue("id"), r.PathValue("lineId")
	var patch actions.LinePatch
	if err := decodeJSON(w, r, &patch); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	line, err := h.Actions.UpdateLine(walkID, lineID, patch)
	if err != nil {
		actionError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, line)
}

// DeleteLine handles DELETE /api/walks/{id}/lines/{lineId}. In shared
// mode this toggles the line's removed mark instead.
func (h *WalksHandler) DeleteLine(w http.ResponseWriter, r *http.Request) {
	if err := h.Actions.RemoveLine(r.PathValue("id"), r.PathValue("lineId")); err != nil {
		actionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Share handles GET /api/walks/{id}/share.
func (h *WalksHandler) Share(w http.ResponseWriter, r *http.Request) {
	walk, ok := h.lookup(r.PathValue("id"))
	if !ok {
		jsonError(w, http.StatusNotFound, "walk not found")
		return
	}

	token, err := share.Encode(&walk)
	if err != nil {
		loggerOr(h.Logger).Error("encoding share token", "walk", walk.ID, "error", err)
		jsonError(w, http.StatusInternalServerError, "could not create share link for this walk")
		return
	}
	if len(token) > share.MaxTokenLength {
		jsonError(w, http.StatusUnprocessableEntity, "walk is too large to share as a link")
		return
	}

	link, err := share.Link(h.baseURL(r), token)
	if err != nil {
		loggerOr(h.Logger).Error("building share link", "error", err)
		jsonError(w, http.StatusInternalServerError, "could not create share link for this walk")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"token": token, "url": link})
}

// ExportCSV handles GET /api/walks/{id}/export.csv.
func (h *WalksHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	walk, ok := h.lookup(r.PathValue("id"))
	if !ok {
		jsonError(w, http.StatusNotFound, "walk not found")
		return
	}
	doc := h.Store.Document()
	writeCSV(loggerOr(h.Logger), w, csvexport.WalkRows(doc, walk, doc.Settings.WeightUnit), csvexport.Filename(walk.Name))
}

func (h *WalksHandler) baseURL(r *http.Request) string {
	if h.BaseURL != "" {
		return h.BaseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd == "https" || fwd == "http" {
		scheme = fwd
	}
	u := url.URL{Scheme: scheme, Host: r.Host, Path: "/"}
	return u.String()
}
