package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/erazemk/hisa/internal/apperr"
	"github.com/erazemk/hisa/internal/model"
	"github.com/erazemk/hisa/internal/service"
)

// SystemHandler serves search, statistics and service metadata.
type SystemHandler struct {
	Svc *service.Service
}

// Search handles GET /api/search.
func (h *SystemHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sq := service.SearchQuery{
		Text:   q.Get("q"),
		Type:   model.ItemType(q.Get("type")),
		Status: model.Status(q.Get("status")),
	}
	var err error
	if sq.CategoryID, err = queryInt64(r, "category_id"); err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := queryInt64(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	sq.Limit = int(limit)
	if raw := q.Get("min_similarity"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, r, apperr.Invalid("min_similarity", "must be a number"))
			return
		}
		sq.MinSimilarity = &v
	}

	res, err := h.Svc.Search(r.Context(), sq)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, res)
}

// Stats handles GET /api/stats.
func (h *SystemHandler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.Svc.Store().Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, st)
}

// Enums handles GET /api/enums.
func (h *SystemHandler) Enums(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]any{
		"item_types":     model.ItemTypes,
		"conditions":     model.Conditions,
		"statuses":       model.Statuses,
		"location_types": model.LocationTypes,
		"movement_kinds": model.MovementKinds,
	})
}

// Health handles GET /api/health.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	if err := h.Svc.Store().DB().PingContext(ctx); err != nil {
		status, code = "database unavailable", http.StatusServiceUnavailable
	}
	jsonResponse(w, code, map[string]any{
		"status": status,
		"search": h.Svc.SearchEnabled(),
		"photos": h.Svc.PhotosEnabled(),
	})
}
