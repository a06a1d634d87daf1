package api

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/erazemk/hisa/internal/apperr"
	"github.com/erazemk/hisa/internal/imaging"
	"github.com/erazemk/hisa/internal/model"
	"github.com/erazemk/hisa/internal/service"
	"github.com/erazemk/hisa/internal/store"
)

// ItemsHandler handles item endpoints.
type ItemsHandler struct {
	Svc *service.Service
}

type createItemRequest struct {
	model.ItemInput
	LocationID *int64 `json:"location_id"`
	Quantity   int    `json:"quantity"`
	Note       string `json:"note"`
}

type updateItemRequest struct {
	model.ItemPatch
	ExpectedVersion *int64 `json:"expected_version"`
}

type conditionRequest struct {
	Condition       model.Condition `json:"condition"`
	Note            string          `json:"note"`
	ExpectedVersion *int64          `json:"expected_version"`
}

type statusRequest struct {
	Status          model.Status `json:"status"`
	Note            string       `json:"note"`
	ExpectedVersion *int64       `json:"expected_version"`
}

type valueRequest struct {
	Value           model.FlexString `json:"value"`
	Note            string           `json:"note"`
	ExpectedVersion *int64           `json:"expected_version"`
}

type restoreRequest struct {
	Status          model.Status `json:"status"`
	ExpectedVersion *int64       `json:"expected_version"`
}

type tagRequest struct {
	Tag             string `json:"tag"`
	ExpectedVersion *int64 `json:"expected_version"`
}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.ItemFilter{
		Type:      model.ItemType(q.Get("type")),
		Status:    model.Status(q.Get("status")),
		Condition: model.Condition(q.Get("condition")),
		Tag:       q.Get("tag"),
		Query:     q.Get("q"),
	}
	var err error
	if f.CategoryID, err = queryInt64(r, "category_id"); err != nil {
		writeError(w, r, err)
		return
	}
	if f.IncludeInactive, err = queryBool(r, "include_inactive"); err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := queryInt64(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	offset, err := queryInt64(r, "offset")
	if err != nil {
		writeError(w, r, err)
		return
	}
	f.Limit, f.Offset = int(limit), int(offset)

	items, err := h.Svc.Store().ListItems(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/items. With location_id set the item is stocked
// there in the same transaction.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	var (
		it  *model.Item
		err error
	)
	if req.LocationID != nil {
		it, _, err = h.Svc.CreateItemWithLocation(r.Context(), req.ItemInput, *req.LocationID, req.Quantity, req.Note)
	} else {
		it, err = h.Svc.CreateItem(r.Context(), req.ItemInput)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.respondDetails(w, r, http.StatusCreated, it.ID)
}

// Validate handles POST /api/items/validate. It reports every violation
// without storing anything.
func (h *ItemsHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var in model.ItemInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	vs := model.ValidateItem(in, h.Svc.Store().Now())
	if vs == nil {
		vs = []apperr.Violation{}
	}
	jsonResponse(w, http.StatusOK, map[string]any{"valid": len(vs) == 0, "violations": vs})
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.respondDetails(w, r, http.StatusOK, id)
}

func (h *ItemsHandler) respondDetails(w http.ResponseWriter, r *http.Request, status int, id int64) {
	d, err := h.Svc.Store().ItemDetails(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("ETag", versionTag(d.Version))
	jsonResponse(w, status, d)
}

// Update handles PUT /api/items/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	expected, err := expectedVersion(r, req.ExpectedVersion)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.mutated(w, r)(h.Svc.UpdateItem(r.Context(), id, req.ItemPatch, expected))
}

// Delete handles DELETE /api/items/{id}. Items are deactivated, never
// removed; ?reason= is recorded in the history.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	expected, err := expectedVersion(r, nil)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.mutated(w, r)(h.Svc.SoftDeleteItem(r.Context(), id, r.URL.Query().Get("reason"), expected))
}

// Condition handles POST /api/items/{id}/condition.
func (h *ItemsHandler) Condition(w http.ResponseWriter, r *http.Request) {
	var req conditionRequest
	id, expected, ok := h.mutation(w, r, &req, func() *int64 { return req.ExpectedVersion })
	if !ok {
		return
	}
	h.mutated(w, r)(h.Svc.UpdateCondition(r.Context(), id, req.Condition, req.Note, expected))
}

// Status handles POST /api/items/{id}/status.
func (h *ItemsHandler) Status(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	id, expected, ok := h.mutation(w, r, &req, func() *int64 { return req.ExpectedVersion })
	if !ok {
		return
	}
	h.mutated(w, r)(h.Svc.UpdateStatus(r.Context(), id, req.Status, req.Note, expected))
}

// Value handles POST /api/items/{id}/value.
func (h *ItemsHandler) Value(w http.ResponseWriter, r *http.Request) {
	var req valueRequest
	id, expected, ok := h.mutation(w, r, &req, func() *int64 { return req.ExpectedVersion })
	if !ok {
		return
	}
	v, err := model.ParseAmount("value", string(req.Value))
	if err == nil && v == nil {
		err = apperr.Invalid("value", "is required")
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.mutated(w, r)(h.Svc.UpdateValue(r.Context(), id, *v, req.Note, expected))
}

// Restore handles POST /api/items/{id}/restore.
func (h *ItemsHandler) Restore(w http.ResponseWriter, r *http.Request) {
	var req restoreRequest
	id, expected, ok := h.mutation(w, r, &req, func() *int64 { return req.ExpectedVersion })
	if !ok {
		return
	}
	if req.Status == "" {
		req.Status = model.StatusAvailable
	}
	h.mutated(w, r)(h.Svc.RestoreItem(r.Context(), id, req.Status, expected))
}

// AddTag handles POST /api/items/{id}/tags.
func (h *ItemsHandler) AddTag(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	id, expected, ok := h.mutation(w, r, &req, func() *int64 { return req.ExpectedVersion })
	if !ok {
		return
	}
	h.mutated(w, r)(h.Svc.AddTag(r.Context(), id, req.Tag, expected))
}

// RemoveTag handles DELETE /api/items/{id}/tags/{tag}.
func (h *ItemsHandler) RemoveTag(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	expected, err := expectedVersion(r, nil)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.mutated(w, r)(h.Svc.RemoveTag(r.Context(), id, r.PathValue("tag"), expected))
}

// mutation decodes the body of a POST item mutation and resolves the
// expected version once the body is read.
func (h *ItemsHandler) mutation(w http.ResponseWriter, r *http.Request, body any, version func() *int64) (int64, *int64, bool) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return 0, nil, false
	}
	if err := decodeJSON(w, r, body); err != nil {
		writeError(w, r, err)
		return 0, nil, false
	}
	expected, err := expectedVersion(r, version())
	if err != nil {
		writeError(w, r, err)
		return 0, nil, false
	}
	return id, expected, true
}

// mutated writes the result of an item mutation.
func (h *ItemsHandler) mutated(w http.ResponseWriter, r *http.Request) func(*model.Item, error) {
	return func(it *model.Item, err error) {
		if err != nil {
			writeError(w, r, err)
			return
		}
		w.Header().Set("ETag", versionTag(it.Version))
		jsonResponse(w, http.StatusOK, it)
	}
}

// Summary handles GET /api/items/{id}/summary.
func (h *ItemsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	sum, err := h.Svc.Store().ItemSummary(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, sum)
}

// History handles GET /api/items/{id}/history.
func (h *ItemsHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	it, err := h.Svc.Store().GetItem(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	history := it.History
	if history == nil {
		history = []model.AuditEntry{}
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"item_id":     it.ID,
		"events":      history,
		"audit_trail": it.AuditTrail(),
	})
}

// Movements handles GET /api/items/{id}/movements.
func (h *ItemsHandler) Movements(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := h.Svc.Store().GetItem(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	moves, err := h.Svc.Store().ListMovements(r.Context(), model.MovementFilter{ItemID: id})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if moves == nil {
		moves = []model.Movement{}
	}
	jsonResponse(w, http.StatusOK, moves)
}

// UploadPhoto handles PUT /api/items/{id}/photo. The photo is either the
// raw request body or the "photo" field of a multipart form.
func (h *ItemsHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+1<<20)
	defer r.Body.Close()

	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
			writeError(w, r, apperr.Invalid("photo", "file too large or invalid multipart form"))
			return
		}
		file, _, err := r.FormFile("photo")
		if err != nil {
			writeError(w, r, apperr.Invalid("photo", "photo file required"))
			return
		}
		defer file.Close()
		src = file
	}

	it, err := h.Svc.UploadPhoto(r.Context(), id, src)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, it)
}

// GetPhoto handles GET /api/items/{id}/photo.
func (h *ItemsHandler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	info, rc, err := h.Svc.Photo(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", info.ContentType)
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	// The URL stays the same when the photo is replaced; the blob key is a
	// content hash, so it serves as the validator.
	w.Header().Set("ETag", strconv.Quote(info.Key))
	w.Header().Set("Cache-Control", "no-cache")
	if match := r.Header.Get("If-None-Match"); match != "" && match == strconv.Quote(info.Key) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		slog.Warn("writing photo", "item_id", id, "request_id", RequestID(r.Context()), "error", err)
	}
}
