package model

// ItemType is the closed set of item categories by kind.
type ItemType string

// Item types.
const (
	ItemTypeElectronics  ItemType = "electronics"
	ItemTypeFurniture    ItemType = "furniture"
	ItemTypeClothing     ItemType = "clothing"
	ItemTypeBooks        ItemType = "books"
	ItemTypeDocuments    ItemType = "documents"
	ItemTypeTools        ItemType = "tools"
	ItemTypeKitchen      ItemType = "kitchen"
	ItemTypeDecor        ItemType = "decor"
	ItemTypeCollectibles ItemType = "collectibles"
	ItemTypeHobby        ItemType = "hobby"
	ItemTypeOffice       ItemType = "office"
	ItemTypePersonal     ItemType = "personal"
	ItemTypeSeasonal     ItemType = "seasonal"
	ItemTypeStorage      ItemType = "storage"
	ItemTypeOther        ItemType = "other"
)

// ItemTypes lists every item type in display order.
var ItemTypes = []ItemType{
	ItemTypeElectronics, ItemTypeFurniture, ItemTypeClothing, ItemTypeBooks,
	ItemTypeDocuments, ItemTypeTools, ItemTypeKitchen, ItemTypeDecor,
	ItemTypeCollectibles, ItemTypeHobby, ItemTypeOffice, ItemTypePersonal,
	ItemTypeSeasonal, ItemTypeStorage, ItemTypeOther,
}

// Valid reports whether t is a known item type.
func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeElectronics, ItemTypeFurniture, ItemTypeClothing, ItemTypeBooks,
		ItemTypeDocuments, ItemTypeTools, ItemTypeKitchen, ItemTypeDecor,
		ItemTypeCollectibles, ItemTypeHobby, ItemTypeOffice, ItemTypePersonal,
		ItemTypeSeasonal, ItemTypeStorage, ItemTypeOther:
		return true
	}
	return false
}

// Condition describes the physical state of an item.
type Condition string

// Item conditions, best first.
const (
	ConditionExcellent  Condition = "excellent"
	ConditionVeryGood   Condition = "very_good"
	ConditionGood       Condition = "good"
	ConditionFair       Condition = "fair"
	ConditionPoor       Condition = "poor"
	ConditionForRepair  Condition = "for_repair"
	ConditionNotWorking Condition = "not_working"
)

// Conditions lists every condition, best first.
var Conditions = []Condition{
	ConditionExcellent, ConditionVeryGood, ConditionGood, ConditionFair,
	ConditionPoor, ConditionForRepair, ConditionNotWorking,
}

// Valid reports whether c is a known condition.
func (c Condition) Valid() bool {
	switch c {
	case ConditionExcellent, ConditionVeryGood, ConditionGood, ConditionFair,
		ConditionPoor, ConditionForRepair, ConditionNotWorking:
		return true
	}
	return false
}

// Status is the availability state of an item.
type Status string

// Item statuses.
const (
	StatusAvailable Status = "available"
	StatusInUse     Status = "in_use"
	StatusReserved  Status = "reserved"
	StatusLoaned    Status = "loaned"
	StatusMissing   Status = "missing"
	StatusDisposed  Status = "disposed"
	StatusSold      Status = "sold"
)

// Statuses lists every status.
var Statuses = []Status{
	StatusAvailable, StatusInUse, StatusReserved, StatusLoaned,
	StatusMissing, StatusDisposed, StatusSold,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusInUse, StatusReserved, StatusLoaned,
		StatusMissing, StatusDisposed, StatusSold:
		return true
	}
	return false
}

// LocationType is the kind of a location node. The order follows the usual
// nesting (house > room > container > shelf) but nesting is not enforced.
type LocationType string

// Location types.
const (
	LocationTypeHouse     LocationType = "house"
	LocationTypeRoom      LocationType = "room"
	LocationTypeContainer LocationType = "container"
	LocationTypeShelf     LocationType = "shelf"
)

// LocationTypes lists every location type in nesting order.
var LocationTypes = []LocationType{
	LocationTypeHouse, LocationTypeRoom, LocationTypeContainer, LocationTypeShelf,
}

// Valid reports whether t is a known location type.
func (t LocationType) Valid() bool {
	switch t {
	case LocationTypeHouse, LocationTypeRoom, LocationTypeContainer, LocationTypeShelf:
		return true
	}
	return false
}

// MovementKind identifies the ledger operation that wrote a movement row.
type MovementKind string

// Movement kinds.
const (
	MovementAssign MovementKind = "assign"
	MovementMove   MovementKind = "move"
	MovementSplit  MovementKind = "split"
	MovementMerge  MovementKind = "merge"
	MovementAdjust MovementKind = "adjust"
)

// MovementKinds lists every movement kind.
var MovementKinds = []MovementKind{MovementAssign, MovementMove, MovementSplit, MovementMerge, MovementAdjust}

// Valid reports whether k is a known movement kind.
func (k MovementKind) Valid() bool {
	switch k {
	case MovementAssign, MovementMove, MovementSplit, MovementMerge, MovementAdjust:
		return true
	}
	return false
}
