package api

import (
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/google/uuid"

	"github.com/erazemk/trailpack/internal/actions"
	"github.com/erazemk/trailpack/internal/csvexport"
	"github.com/erazemk/trailpack/internal/imaging"
	"github.com/erazemk/trailpack/internal/model"
	"github.com/erazemk/trailpack/internal/state"
	"github.com/erazemk/trailpack/internal/store"
)

// ItemsHandler handles the master inventory, categories and photos.
type ItemsHandler struct {
	DB      *sql.DB
	Store   *state.Store
	Actions *actions.Actions
	Logger  *slog.Logger
}

type createItemRequest struct {
	Name         string           `json:"name"`
	Weight       float64          `json:"weight"`
	Unit         model.WeightUnit `json:"unit"`
	CategoryID   string           `json:"categoryId"`
	IsWorn       bool             `json:"isWorn"`
	IsConsumable bool             `json:"isConsumable"`
	Servings     int              `json:"servings"`
	IsOwned      *bool            `json:"isOwned"`
	Notes        string           `json:"notes"`
}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, h.Store.Document().Inventory)
}

// Create handles POST /api/items. The weight is given in the request unit.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	unit := req.Unit
	if unit == "" {
		unit = model.UnitGram
	}
	if _, err := model.ParseWeightUnit(string(unit)); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid unit")
		return
	}
	owned := true
	if req.IsOwned != nil {
		owned = *req.IsOwned
	}

	item, err := h.Actions.AddItem(actions.ItemInput{
		Name:         req.Name,
		Weight:       model.ToGrams(req.Weight, unit),
		Unit:         unit,
		CategoryID:   req.CategoryID,
		IsWorn:       req.IsWorn,
		IsConsumable: req.IsConsumable,
		Servings:     req.Servings,
		IsOwned:      owned,
		Notes:        req.Notes,
	})
	if err != nil {
		actionError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, item)
}

// Update handles PATCH /api/items/{id}. Weights are in grams.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var patch actions.ItemPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	item, err := h.Actions.UpdateItem(id, patch)
	if err != nil {
		actionError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Actions.RemoveItem(r.PathValue("id")); err != nil {
		actionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadPhoto handles PUT /api/items/{id}/photo.
func (h *ItemsHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	photo, ok := savePhoto(loggerOr(h.Logger), w, r, h.DB)
	if !ok {
		return
	}

	ref := store.PhotoRef(photo.ID)
	if _, err := h.Actions.UpdateItem(id, actions.ItemPatch{PhotoRef: &ref}); err != nil {
		discardPhoto(loggerOr(h.Logger), r, h.DB, photo.ID)
		actionError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"photoRef": ref, "width": photo.Width, "height": photo.Height})
}

// GetPhoto handles GET /api/photos/{id}.
func (h *ItemsHandler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	photo, err := store.GetPhoto(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get photo")
		return
	}
	if photo == nil {
		jsonError(w, http.StatusNotFound, "photo not found")
		return
	}

	// Photo ids are never reused, so the content never changes.
	w.Header().Set("Content-Type", photo.MIME)
	w.Header().Set("Cache-Control", "private, max-age=31536000, immutable")
	w.Write(photo.Data)
}

type categoryRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// ListCategories handles GET /api/categories.
func (h *ItemsHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, h.Store.Document().Categories)
}

// CreateCategory handles POST /api/categories.
func (h *ItemsHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cat, err := h.Actions.AddCategory(req.Name, req.Color)
	if err != nil {
		actionError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, cat)
}

// UpdateCategory handles PATCH /api/categories/{id}.
func (h *ItemsHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.Actions.UpdateCategory(r.PathValue("id"), req.Name); err != nil {
		actionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteCategory handles DELETE /api/categories/{id}.
func (h *ItemsHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.Actions.RemoveCategory(r.PathValue("id")); err != nil {
		actionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportCSV handles GET /api/inventory/export.csv.
func (h *ItemsHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	doc := h.Store.Document()
	writeCSV(loggerOr(h.Logger), w, csvexport.InventoryRows(doc, doc.Settings.WeightUnit), csvexport.Filename("Inventory"))
}

func writeCSV(logger *slog.Logger, w http.ResponseWriter, rows [][]string, filename string) {
	out, err := csvexport.Format(rows)
	if err != nil {
		logger.Error("formatting csv", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to export csv")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	io.WriteString(w, out)
}

// savePhoto reads an upload from the "photo" multipart field or the raw
// body, normalizes it and stores it. On failure the response is written
// and ok is false.
func savePhoto(logger *slog.Logger, w http.ResponseWriter, r *http.Request, db *sql.DB) (photo model.Photo, ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+1<<20)

	var src io.Reader = r.Body
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "multipart/form-data" {
		file, _, err := r.FormFile("photo")
		if err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				jsonError(w, http.StatusRequestEntityTooLarge, "photo too large")
				return photo, false
			}
			jsonError(w, http.StatusBadRequest, "photo file required")
			return photo, false
		}
		defer file.Close()
		src = file
	}

	res, err := imaging.Process(src)
	if err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.Is(err, imaging.ErrTooLarge), errors.As(err, &tooBig):
			jsonError(w, http.StatusRequestEntityTooLarge, "photo too large")
		case errors.Is(err, imaging.ErrUnsupported):
			jsonError(w, http.StatusUnsupportedMediaType, "photo must be JPEG, PNG, or WebP")
		default:
			jsonError(w, http.StatusBadRequest, "invalid photo")
		}
		return photo, false
	}

	photo = model.Photo{
		ID:     uuid.NewString(),
		Data:   res.Data,
		MIME:   res.MIME,
		Width:  res.Width,
		Height: res.Height,
	}
	if err := store.CreatePhoto(r.Context(), db, photo); err != nil {
		logger.Error("storing photo", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to save photo")
		return photo, false
	}
	return photo, true
}

func discardPhoto(logger *slog.Logger, r *http.Request, db *sql.DB, id string) {
	if err := store.DeletePhoto(r.Context(), db, id); err != nil {
		logger.Warn("discarding unused photo", "photo", id, "error", err)
	}
}
