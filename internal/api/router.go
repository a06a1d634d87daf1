package api

import (
	"net/http"

	"github.com/erazemk/hisa/internal/metrics"
	"github.com/erazemk/hisa/internal/service"
)

// NewRouter creates the API router with all endpoints registered. hub and m
// may be nil, which disables the change feed and /metrics.
func NewRouter(svc *service.Service, hub *Hub, m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()

	categories := &CategoriesHandler{Svc: svc}
	locations := &LocationsHandler{Svc: svc}
	items := &ItemsHandler{Svc: svc}
	inventory := &InventoryHandler{Svc: svc}
	system := &SystemHandler{Svc: svc}

	// Categories.
	mux.HandleFunc("GET /api/categories", categories.List)
	mux.HandleFunc("POST /api/categories", categories.Create)
	mux.HandleFunc("GET /api/categories/{id}", categories.Get)
	mux.HandleFunc("PUT /api/categories/{id}", categories.Update)
	mux.HandleFunc("DELETE /api/categories/{id}", categories.Delete)
	mux.HandleFunc("POST /api/categories/{id}/restore", categories.Restore)

	// Location tree.
	mux.HandleFunc("GET /api/locations", locations.List)
	mux.HandleFunc("POST /api/locations", locations.Create)
	mux.HandleFunc("GET /api/locations/tree", locations.Tree)
	mux.HandleFunc("GET /api/locations/{id}", locations.Get)
	mux.HandleFunc("PUT /api/locations/{id}", locations.Update)
	mux.HandleFunc("DELETE /api/locations/{id}", locations.Delete)
	mux.HandleFunc("PUT /api/locations/{id}/parent", locations.Reparent)
	mux.HandleFunc("GET /api/locations/{id}/children", locations.Children)
	mux.HandleFunc("GET /api/locations/{id}/descendants", locations.Descendants)
	mux.HandleFunc("GET /api/locations/{id}/ancestors", locations.Ancestors)
	mux.HandleFunc("GET /api/locations/{id}/inventory", locations.Inventory)

	// Items.
	mux.HandleFunc("GET /api/items", items.List)
	mux.HandleFunc("POST /api/items", items.Create)
	mux.HandleFunc("POST /api/items/validate", items.Validate)
	mux.HandleFunc("GET /api/items/{id}", items.Get)
	mux.HandleFunc("PUT /api/items/{id}", items.Update)
	mux.HandleFunc("DELETE /api/items/{id}", items.Delete)
	mux.HandleFunc("POST /api/items/{id}/condition", items.Condition)
	mux.HandleFunc("POST /api/items/{id}/status", items.Status)
	mux.HandleFunc("POST /api/items/{id}/value", items.Value)
	mux.HandleFunc("POST /api/items/{id}/restore", items.Restore)
	mux.HandleFunc("POST /api/items/{id}/tags", items.AddTag)
	mux.HandleFunc("DELETE /api/items/{id}/tags/{tag}", items.RemoveTag)
	mux.HandleFunc("GET /api/items/{id}/summary", items.Summary)
	mux.HandleFunc("GET /api/items/{id}/history", items.History)
	mux.HandleFunc("GET /api/items/{id}/movements", items.Movements)
	mux.HandleFunc("PUT /api/items/{id}/photo", items.UploadPhoto)
	mux.HandleFunc("GET /api/items/{id}/photo", items.GetPhoto)

	// Inventory ledger.
	mux.HandleFunc("GET /api/inventory", inventory.List)
	mux.HandleFunc("POST /api/inventory/assign", inventory.Assign)
	mux.HandleFunc("POST /api/inventory/move", inventory.Move)
	mux.HandleFunc("POST /api/inventory/split", inventory.Split)
	mux.HandleFunc("POST /api/inventory/merge", inventory.Merge)
	mux.HandleFunc("POST /api/inventory/adjust", inventory.Adjust)
	mux.HandleFunc("GET /api/movements", inventory.Movements)

	mux.HandleFunc("GET /api/search", system.Search)
	mux.HandleFunc("GET /api/stats", system.Stats)
	mux.HandleFunc("GET /api/enums", system.Enums)
	mux.HandleFunc("GET /api/health", system.Health)

	if hub != nil {
		mux.Handle("GET /api/events", hub)
	}
	if m != nil {
		mux.Handle("GET /metrics", m.Handler())
	}

	return RequestIDMiddleware(RecoverMiddleware(LoggingMiddleware(m)(mux)))
}
