package api

import (
	"net/http"

	"github.com/erazemk/hisa/internal/apperr"
	"github.com/erazemk/hisa/internal/model"
	"github.com/erazemk/hisa/internal/service"
)

// InventoryHandler handles the inventory ledger and movement history.
type InventoryHandler struct {
	Svc *service.Service
}

type assignRequest struct {
	ItemID     int64  `json:"item_id"`
	LocationID int64  `json:"location_id"`
	Quantity   int    `json:"quantity"`
	Note       string `json:"note"`
}

type moveRequest struct {
	ItemID         int64  `json:"item_id"`
	FromLocationID int64  `json:"from_location_id"`
	ToLocationID   int64  `json:"to_location_id"`
	Quantity       int    `json:"quantity"`
	Note           string `json:"note"`
}

type splitRequest struct {
	ItemID         int64               `json:"item_id"`
	FromLocationID int64               `json:"from_location_id"`
	Targets        []model.SplitTarget `json:"targets"`
	Note           string              `json:"note"`
}

type adjustRequest struct {
	ItemID     int64  `json:"item_id"`
	LocationID int64  `json:"location_id"`
	Delta      int    `json:"delta"`
	Note       string `json:"note"`
}

// List handles GET /api/inventory.
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	inv, err := h.Svc.Store().ListInventory(r.Context())
	respondInventory(w, r, inv, err)
}

// Assign handles POST /api/inventory/assign.
func (h *InventoryHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	respondSummary(w, r)(h.Svc.AssignLocation(r.Context(), req.ItemID, req.LocationID, req.Quantity, req.Note))
}

// Move handles POST /api/inventory/move.
func (h *InventoryHandler) Move(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	respondSummary(w, r)(h.Svc.MoveItem(r.Context(), req.ItemID, req.FromLocationID, req.ToLocationID, req.Quantity, req.Note))
}

// Split handles POST /api/inventory/split.
func (h *InventoryHandler) Split(w http.ResponseWriter, r *http.Request) {
	var req splitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	respondSummary(w, r)(h.Svc.SplitItem(r.Context(), req.ItemID, req.FromLocationID, req.Targets, req.Note))
}

// Merge handles POST /api/inventory/merge. The whole quantity at the source
// moves to the destination.
func (h *InventoryHandler) Merge(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	respondSummary(w, r)(h.Svc.MergeLocations(r.Context(), req.ItemID, req.FromLocationID, req.ToLocationID, req.Note))
}

// Adjust handles POST /api/inventory/adjust.
func (h *InventoryHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	respondSummary(w, r)(h.Svc.AdjustQuantity(r.Context(), req.ItemID, req.LocationID, req.Delta, req.Note))
}

// Movements handles GET /api/movements.
func (h *InventoryHandler) Movements(w http.ResponseWriter, r *http.Request) {
	var (
		f   model.MovementFilter
		err error
	)
	if f.ItemID, err = queryInt64(r, "item_id"); err != nil {
		writeError(w, r, err)
		return
	}
	if f.LocationID, err = queryInt64(r, "location_id"); err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := queryInt64(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	f.Limit = int(limit)
	f.Kind = model.MovementKind(r.URL.Query().Get("kind"))
	if f.Kind != "" && !f.Kind.Valid() {
		writeError(w, r, apperr.Invalid("kind", "invalid value %q", f.Kind))
		return
	}

	moves, err := h.Svc.Store().ListMovements(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if moves == nil {
		moves = []model.Movement{}
	}
	jsonResponse(w, http.StatusOK, moves)
}

func respondSummary(w http.ResponseWriter, r *http.Request) func(*model.ItemSummary, error) {
	return func(sum *model.ItemSummary, err error) {
		if err != nil {
			writeError(w, r, err)
			return
		}
		jsonResponse(w, http.StatusOK, sum)
	}
}

func respondInventory(w http.ResponseWriter, r *http.Request, inv []model.Inventory, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	if inv == nil {
		inv = []model.Inventory{}
	}
	jsonResponse(w, http.StatusOK, inv)
}
