package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/hisa/internal/apperr"
)

// ValuableThreshold is the current or purchase value from which an item
// counts as valuable.
var ValuableThreshold = decimal.NewFromInt(100)

// Audit actions recorded in an item's history.
const (
	ActionCondition  = "condition"
	ActionStatus     = "status"
	ActionValue      = "value"
	ActionDeactivate = "deactivate"
	ActionRestore    = "restore"
	ActionTagAdd     = "tag_add"
	ActionTagRemove  = "tag_remove"
	ActionUpdate     = "update"
	ActionPhoto      = "photo"
)

// Item describes a physical object. Its stock is tracked per location in the
// inventory ledger.
type Item struct {
	ID             int64            `json:"id"`
	Name           string           `json:"name"`
	Description    string           `json:"description,omitempty"`
	Type           ItemType         `json:"type"`
	Condition      Condition        `json:"condition"`
	Status         Status           `json:"status"`
	Brand          string           `json:"brand,omitempty"`
	Model          string           `json:"model,omitempty"`
	SerialNumber   string           `json:"serial_number,omitempty"`
	Barcode        string           `json:"barcode,omitempty"`
	PurchasePrice  *decimal.Decimal `json:"purchase_price,omitempty"`
	CurrentValue   *decimal.Decimal `json:"current_value,omitempty"`
	PurchaseDate   *time.Time       `json:"purchase_date,omitempty"`
	WarrantyExpiry *time.Time       `json:"warranty_expiry,omitempty"`
	Weight         *decimal.Decimal `json:"weight,omitempty"`
	Dimensions     string           `json:"dimensions,omitempty"`
	Color          string           `json:"color,omitempty"`
	CategoryID     *int64           `json:"category_id,omitempty"`
	Active         bool             `json:"active"`
	Version        int64            `json:"version"`
	Notes          string           `json:"notes,omitempty"`
	Tags           string           `json:"tags,omitempty"`
	PhotoKey       string           `json:"-"`
	PhotoMime      string           `json:"photo_mime,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`

	// Joined fields (not always populated).
	History []AuditEntry `json:"history,omitempty"`
}

// AuditEntry is one immutable line of an item's history.
type AuditEntry struct {
	ItemID    int64     `json:"item_id"`
	Version   int64     `json:"version"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

// Line renders the entry the way it appears in the notes view.
func (e AuditEntry) Line() string {
	return e.CreatedAt.Format(time.DateOnly) + ": " + e.Detail
}

// AuditTrail renders the initial notes followed by one dated line per history
// entry, oldest first.
func (it *Item) AuditTrail() string {
	lines := make([]string, 0, len(it.History)+1)
	if it.Notes != "" {
		lines = append(lines, it.Notes)
	}
	for _, e := range it.History {
		lines = append(lines, e.Line())
	}
	return strings.Join(lines, "\n")
}

// DisplayName returns "brand model - name", dropping whatever is missing.
func (it *Item) DisplayName() string {
	prefix := strings.TrimSpace(strings.Join(nonEmpty(it.Brand, it.Model), " "))
	if prefix == "" {
		return it.Name
	}
	return prefix + " - " + it.Name
}

// IsValuable reports whether the current value, or failing that the purchase
// price, reaches ValuableThreshold.
func (it *Item) IsValuable() bool {
	if it.CurrentValue != nil && it.CurrentValue.GreaterThanOrEqual(ValuableThreshold) {
		return true
	}
	return it.PurchasePrice != nil && it.PurchasePrice.GreaterThanOrEqual(ValuableThreshold)
}

// Value returns the current value, falling back to the purchase price, or zero.
func (it *Item) Value() decimal.Decimal {
	switch {
	case it.CurrentValue != nil:
		return *it.CurrentValue
	case it.PurchasePrice != nil:
		return *it.PurchasePrice
	}
	return decimal.Zero
}

// AgeDays returns whole days since purchase, or nil without a purchase date.
func (it *Item) AgeDays(now time.Time) *int {
	if it.PurchaseDate == nil {
		return nil
	}
	days := int(truncateDay(now).Sub(truncateDay(*it.PurchaseDate)).Hours() / 24)
	return &days
}

// IsUnderWarranty reports whether the warranty expires after today.
func (it *Item) IsUnderWarranty(now time.Time) bool {
	return it.WarrantyExpiry != nil && truncateDay(*it.WarrantyExpiry).After(truncateDay(now))
}

// TagList returns the normalized tags.
func (it *Item) TagList() []string {
	return ParseTags(it.Tags)
}

// ParseTags splits a comma-separated tag list, trimming, lower-casing and
// dropping empty and repeated tags. Order of first appearance is kept.
func ParseTags(s string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		tag := NormalizeTag(part)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

// NormalizeTag trims and lower-cases a single tag.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// The mutators below change the item in memory, bump Version by one and
// return the audit entry to persist alongside. On error the item is left
// untouched. Persisting them with a compare-and-swap on the prior version is
// the store's job.

// ChangeCondition sets a new condition.
func (it *Item) ChangeCondition(c Condition, note string, now time.Time) (AuditEntry, error) {
	if !c.Valid() {
		return AuditEntry{}, apperr.Invalid("condition", "invalid value %q", c)
	}
	detail := withNote(fmt.Sprintf("Condition changed from %s to %s.", it.Condition, c), note)
	it.Condition = c
	return it.bump(ActionCondition, detail, now), nil
}

// ChangeStatus sets a new status.
func (it *Item) ChangeStatus(s Status, note string, now time.Time) (AuditEntry, error) {
	if !s.Valid() {
		return AuditEntry{}, apperr.Invalid("status", "invalid value %q", s)
	}
	it.Status = s
	return it.bump(ActionStatus, withNote(fmt.Sprintf("Status changed to %s.", s), note), now), nil
}

// UpdateValue sets the current value, recording the previous one.
func (it *Item) UpdateValue(v decimal.Decimal, note string, now time.Time) (AuditEntry, error) {
	if v.IsNegative() {
		return AuditEntry{}, apperr.Invalid("current_value", "must not be negative")
	}
	old := decimal.Zero
	if it.CurrentValue != nil {
		old = *it.CurrentValue
	}
	detail := withNote(fmt.Sprintf("Value updated from $%s to $%s.", old.StringFixed(2), v.StringFixed(2)), note)
	it.CurrentValue = &v
	return it.bump(ActionValue, detail, now), nil
}

// Deactivate soft-deletes the item: inactive and disposed.
func (it *Item) Deactivate(reason string, now time.Time) AuditEntry {
	it.Active = false
	it.Status = StatusDisposed
	return it.bump(ActionDeactivate, withNote("Item deactivated.", reason), now)
}

// Restore reactivates the item with the given status.
func (it *Item) Restore(s Status, now time.Time) (AuditEntry, error) {
	if s == "" {
		s = StatusAvailable
	}
	if !s.Valid() {
		return AuditEntry{}, apperr.Invalid("status", "invalid value %q", s)
	}
	it.Active = true
	it.Status = s
	return it.bump(ActionRestore, "Item restored with status: "+string(s), now), nil
}

// AddTag adds a tag. It reports false, with no version bump, when the tag is
// already present.
func (it *Item) AddTag(tag string, now time.Time) (AuditEntry, bool, error) {
	tag, err := checkTag(tag)
	if err != nil {
		return AuditEntry{}, false, err
	}
	tags := it.TagList()
	for _, t := range tags {
		if t == tag {
			return AuditEntry{}, false, nil
		}
	}
	it.Tags = strings.Join(append(tags, tag), ",")
	return it.bump(ActionTagAdd, "Tag added: "+tag, now), true, nil
}

// RemoveTag removes a tag. It reports false, with no version bump, when the
// tag is absent.
func (it *Item) RemoveTag(tag string, now time.Time) (AuditEntry, bool, error) {
	tag, err := checkTag(tag)
	if err != nil {
		return AuditEntry{}, false, err
	}
	tags := it.TagList()
	kept := tags[:0:0]
	for _, t := range tags {
		if t != tag {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(tags) {
		return AuditEntry{}, false, nil
	}
	it.Tags = strings.Join(kept, ",")
	return it.bump(ActionTagRemove, "Tag removed: "+tag, now), true, nil
}

// SetPhoto records a new photo blob for the item.
func (it *Item) SetPhoto(key, mime string, now time.Time) AuditEntry {
	it.PhotoKey = key
	it.PhotoMime = mime
	return it.bump(ActionPhoto, "Photo updated.", now)
}

func (it *Item) bump(action, detail string, now time.Time) AuditEntry {
	it.Version++
	it.UpdatedAt = now
	return AuditEntry{ItemID: it.ID, Version: it.Version, Action: action, Detail: detail, CreatedAt: now}
}

// MaxTagLength bounds a single tag, in bytes.
const MaxTagLength = 50

func checkTag(tag string) (string, error) {
	tag = NormalizeTag(tag)
	switch {
	case tag == "":
		return "", apperr.Invalid("tag", "is required")
	case strings.Contains(tag, ","):
		return "", apperr.Invalid("tag", "must not contain commas")
	case len(tag) > MaxTagLength:
		return "", apperr.Invalid("tag", "must be at most %d characters", MaxTagLength)
	}
	return tag, nil
}

func withNote(detail, note string) string {
	note = strings.TrimSpace(note)
	if note == "" {
		return detail
	}
	return detail + " " + note
}

func nonEmpty(ss ...string) []string {
	var out []string
	for _, s := range ss {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ItemDetails is an item with its derived properties, as returned by the API.
type ItemDetails struct {
	*Item
	DisplayName       string   `json:"display_name"`
	IsValuable        bool     `json:"is_valuable"`
	AgeDays           *int     `json:"age_days,omitempty"`
	IsUnderWarranty   bool     `json:"is_under_warranty"`
	PrimaryLocationID *int64   `json:"primary_location_id,omitempty"`
	FullLocationPath  string   `json:"full_location_path"`
	TagList           []string `json:"tag_list"`
	AuditTrail        string   `json:"audit_trail,omitempty"`
}

// Details derives the computed properties of it. primary is the location of
// the item's earliest inventory entry, nil when the item is not stocked
// anywhere.
func (it *Item) Details(primary *Location, now time.Time) ItemDetails {
	d := ItemDetails{
		Item:            it,
		DisplayName:     it.DisplayName(),
		IsValuable:      it.IsValuable(),
		AgeDays:         it.AgeDays(now),
		IsUnderWarranty: it.IsUnderWarranty(now),
		TagList:         it.TagList(),
		AuditTrail:      it.AuditTrail(),
	}
	if d.TagList == nil {
		d.TagList = []string{}
	}
	if primary != nil {
		id := primary.ID
		d.PrimaryLocationID = &id
		d.FullLocationPath = primary.FullPath
	}
	if d.FullLocationPath == "" {
		d.FullLocationPath = it.Name
	}
	return d
}
