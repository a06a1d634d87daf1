package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Inventory is the quantity of an item held at one location.
type Inventory struct {
	ItemID     int64     `json:"item_id"`
	LocationID int64     `json:"location_id"`
	Quantity   int       `json:"quantity"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Joined fields (not always populated).
	ItemName     string `json:"item_name,omitempty"`
	LocationName string `json:"location_name,omitempty"`
	LocationPath string `json:"location_path,omitempty"`
}

// Movement is one immutable row of the movement history. Location paths and
// the item name are snapshots taken when the row was written, so history
// stays readable after the locations are deleted.
type Movement struct {
	ID               int64        `json:"id"`
	ItemID           int64        `json:"item_id"`
	Kind             MovementKind `json:"kind"`
	FromLocationID   *int64       `json:"from_location_id,omitempty"`
	ToLocationID     int64        `json:"to_location_id"`
	FromLocationPath string       `json:"from_location_path,omitempty"`
	ToLocationPath   string       `json:"to_location_path"`
	ItemName         string       `json:"item_name"`
	Quantity         int          `json:"quantity"`
	Note             string       `json:"note,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
}

// MovementFilter narrows a movement listing. Zero fields match everything.
type MovementFilter struct {
	ItemID     int64
	LocationID int64
	Kind       MovementKind
	Limit      int
}

// SplitTarget is one destination of a split.
type SplitTarget struct {
	LocationID int64 `json:"location_id"`
	Quantity   int   `json:"quantity"`
}

// ItemSummary is an item's total stock and its per-location breakdown.
type ItemSummary struct {
	ItemID    int64       `json:"item_id"`
	ItemName  string      `json:"item_name"`
	Total     int         `json:"total"`
	Locations []Inventory `json:"locations"`
}

// DeleteResult counts what a cascading location delete removed.
type DeleteResult struct {
	Locations        int `json:"locations"`
	InventoryEntries int `json:"inventory_entries"`
}

// Stats aggregates counts and values across the whole inventory.
type Stats struct {
	Items            int                  `json:"items"`
	ActiveItems      int                  `json:"active_items"`
	InactiveItems    int                  `json:"inactive_items"`
	ItemsByType      map[ItemType]int     `json:"items_by_type"`
	ItemsByStatus    map[Status]int       `json:"items_by_status"`
	ItemsByCondition map[Condition]int    `json:"items_by_condition"`
	TotalUnits       int                  `json:"total_units"`
	TotalValue       decimal.Decimal      `json:"total_value"`
	ValuableItems    int                  `json:"valuable_items"`
	UnderWarranty    int                  `json:"under_warranty"`
	Locations        int                  `json:"locations"`
	LocationsByType  map[LocationType]int `json:"locations_by_type"`
	Categories       int                  `json:"categories"`
	Movements        int                  `json:"movements"`
}
