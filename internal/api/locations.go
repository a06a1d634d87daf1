package api

import (
	"net/http"

	"github.com/erazemk/hisa/internal/model"
	"github.com/erazemk/hisa/internal/service"
)

// LocationsHandler handles location tree endpoints.
type LocationsHandler struct {
	Svc *service.Service
}

type reparentRequest struct {
	ParentID *int64 `json:"parent_id"`
}

// List handles GET /api/locations, depth-first with paths.
func (h *LocationsHandler) List(w http.ResponseWriter, r *http.Request) {
	locs, err := h.Svc.Store().ListLocations(r.Context())
	respondLocations(w, r, locs, err)
}

// Tree handles GET /api/locations/tree.
func (h *LocationsHandler) Tree(w http.ResponseWriter, r *http.Request) {
	t, err := h.Svc.Store().LocationTree(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	nodes := t.Nested()
	if nodes == nil {
		nodes = []*model.TreeNode{}
	}
	jsonResponse(w, http.StatusOK, nodes)
}

// Create handles POST /api/locations.
func (h *LocationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in model.LocationInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	l, err := h.Svc.CreateLocation(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, l)
}

// Get handles GET /api/locations/{id}.
func (h *LocationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	l, err := h.Svc.Store().GetLocation(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, l)
}

// Update handles PUT /api/locations/{id}.
func (h *LocationsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch model.LocationPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	l, err := h.Svc.UpdateLocation(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, l)
}

// Reparent handles PUT /api/locations/{id}/parent. A null parent_id makes
// the location a root.
func (h *LocationsHandler) Reparent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req reparentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	l, err := h.Svc.ReparentLocation(r.Context(), id, req.ParentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, l)
}

// Delete handles DELETE /api/locations/{id}, removing the whole subtree.
func (h *LocationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Svc.DeleteLocation(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, res)
}

// Children handles GET /api/locations/{id}/children.
func (h *LocationsHandler) Children(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	locs, err := h.Svc.Store().LocationChildren(r.Context(), id)
	respondLocations(w, r, locs, err)
}

// Descendants handles GET /api/locations/{id}/descendants.
func (h *LocationsHandler) Descendants(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	locs, err := h.Svc.Store().LocationDescendants(r.Context(), id)
	respondLocations(w, r, locs, err)
}

// Ancestors handles GET /api/locations/{id}/ancestors, nearest first.
func (h *LocationsHandler) Ancestors(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	locs, err := h.Svc.Store().LocationAncestors(r.Context(), id)
	respondLocations(w, r, locs, err)
}

// Inventory handles GET /api/locations/{id}/inventory. With
// ?include_descendants=true stock anywhere in the subtree is listed.
func (h *LocationsHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	deep, err := queryBool(r, "include_descendants")
	if err != nil {
		writeError(w, r, err)
		return
	}
	inv, err := h.Svc.Store().LocationInventory(r.Context(), id, deep)
	respondInventory(w, r, inv, err)
}

func respondLocations(w http.ResponseWriter, r *http.Request, locs []model.Location, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	if locs == nil {
		locs = []model.Location{}
	}
	jsonResponse(w, http.StatusOK, locs)
}
