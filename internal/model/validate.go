package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/erazemk/hisa/internal/apperr"
)

// MaxItemNameLength bounds item names, in characters.
const MaxItemNameLength = 200

// FlexString holds a numeric field as received. It accepts a JSON string or
// number so malformed input reaches validation as text instead of failing the
// decode.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
	default:
		*f = FlexString(data)
	}
	return nil
}

// ItemInput holds the raw fields accepted when creating an item.
type ItemInput struct {
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	Type           string     `json:"type"`
	Condition      string     `json:"condition"`
	Status         string     `json:"status"`
	Brand          string     `json:"brand"`
	Model          string     `json:"model"`
	SerialNumber   string     `json:"serial_number"`
	Barcode        string     `json:"barcode"`
	PurchasePrice  FlexString `json:"purchase_price"`
	CurrentValue   FlexString `json:"current_value"`
	PurchaseDate   string     `json:"purchase_date"`
	WarrantyExpiry string     `json:"warranty_expiry"`
	Weight         FlexString `json:"weight"`
	Dimensions     string     `json:"dimensions"`
	Color          string     `json:"color"`
	CategoryID     *int64     `json:"category_id"`
	Notes          string     `json:"notes"`
	Tags           string     `json:"tags"`
}

// ValidateItem checks a full item input and returns every violation found.
// Empty enum fields are allowed and take their defaults on create.
func ValidateItem(in ItemInput, now time.Time) []apperr.Violation {
	return validateItem(in, now, false)
}

// ValidateItemPartial checks only the fields that are present, for partial
// updates. A missing name is not a violation.
func ValidateItemPartial(in ItemInput, now time.Time) []apperr.Violation {
	return validateItem(in, now, true)
}

func validateItem(in ItemInput, now time.Time, partial bool) []apperr.Violation {
	var v violations

	name := strings.TrimSpace(in.Name)
	if name != "" || !partial {
		v.add(checkItemName(name))
	}
	if in.Type != "" && !ItemType(in.Type).Valid() {
		v.addf("type", "invalid value %q", in.Type)
	}
	if in.Condition != "" && !Condition(in.Condition).Valid() {
		v.addf("condition", "invalid value %q", in.Condition)
	}
	if in.Status != "" && !Status(in.Status).Valid() {
		v.addf("status", "invalid value %q", in.Status)
	}

	_, vs := parseAmount("purchase_price", in.PurchasePrice)
	v.add(vs)
	_, vs = parseAmount("current_value", in.CurrentValue)
	v.add(vs)
	_, vs = parseAmount("weight", in.Weight)
	v.add(vs)

	purchase, vs := parseDate("purchase_date", in.PurchaseDate)
	v.add(vs)
	warranty, vs := parseDate("warranty_expiry", in.WarrantyExpiry)
	v.add(vs)
	v.add(checkDates(purchase, warranty, now))

	return v.list
}

// NewItem validates in and builds a new item with its defaults applied:
// type other, condition good, status available, active, version 1.
func NewItem(in ItemInput, now time.Time) (*Item, error) {
	if err := apperr.Validation(ValidateItem(in, now)); err != nil {
		return nil, err
	}

	it := &Item{
		Name:         strings.TrimSpace(in.Name),
		Description:  strings.TrimSpace(in.Description),
		Type:         ItemTypeOther,
		Condition:    ConditionGood,
		Status:       StatusAvailable,
		Brand:        strings.TrimSpace(in.Brand),
		Model:        strings.TrimSpace(in.Model),
		SerialNumber: strings.TrimSpace(in.SerialNumber),
		Barcode:      strings.TrimSpace(in.Barcode),
		Dimensions:   strings.TrimSpace(in.Dimensions),
		Color:        strings.TrimSpace(in.Color),
		CategoryID:   in.CategoryID,
		Active:       true,
		Version:      1,
		Notes:        strings.TrimSpace(in.Notes),
		Tags:         strings.Join(ParseTags(in.Tags), ","),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.Type != "" {
		it.Type = ItemType(in.Type)
	}
	if in.Condition != "" {
		it.Condition = Condition(in.Condition)
	}
	if in.Status != "" {
		it.Status = Status(in.Status)
	}
	it.PurchasePrice, _ = parseAmount("purchase_price", in.PurchasePrice)
	it.CurrentValue, _ = parseAmount("current_value", in.CurrentValue)
	it.Weight, _ = parseAmount("weight", in.Weight)
	it.PurchaseDate, _ = parseDate("purchase_date", in.PurchaseDate)
	it.WarrantyExpiry, _ = parseDate("warranty_expiry", in.WarrantyExpiry)
	return it, nil
}

// ItemPatch holds optional changes to an item's descriptive fields. Condition,
// status, value, tags and activity have their own operations. An empty string
// clears an optional field.
type ItemPatch struct {
	Name           *string     `json:"name"`
	Description    *string     `json:"description"`
	Type           *string     `json:"type"`
	Brand          *string     `json:"brand"`
	Model          *string     `json:"model"`
	SerialNumber   *string     `json:"serial_number"`
	Barcode        *string     `json:"barcode"`
	PurchasePrice  *FlexString `json:"purchase_price"`
	PurchaseDate   *string     `json:"purchase_date"`
	WarrantyExpiry *string     `json:"warranty_expiry"`
	Weight         *FlexString `json:"weight"`
	Dimensions     *string     `json:"dimensions"`
	Color          *string     `json:"color"`
	CategoryID     *int64      `json:"category_id"`
	ClearCategory  bool        `json:"clear_category"`
}

// Empty reports whether the patch changes nothing.
func (p ItemPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Type == nil && p.Brand == nil &&
		p.Model == nil && p.SerialNumber == nil && p.Barcode == nil && p.PurchasePrice == nil &&
		p.PurchaseDate == nil && p.WarrantyExpiry == nil && p.Weight == nil &&
		p.Dimensions == nil && p.Color == nil && p.CategoryID == nil && !p.ClearCategory
}

// ApplyPatch validates p against the item, applies it and bumps the version.
// Date ordering is checked on the merged result. On error the item is left
// untouched.
func (it *Item) ApplyPatch(p ItemPatch, now time.Time) (AuditEntry, error) {
	if p.Empty() {
		return AuditEntry{}, apperr.Invalid("", "no fields to update")
	}

	next := *it
	var v violations

	if p.Name != nil {
		next.Name = strings.TrimSpace(*p.Name)
		v.add(checkItemName(next.Name))
	}
	if p.Description != nil {
		next.Description = strings.TrimSpace(*p.Description)
	}
	if p.Type != nil {
		if t := ItemType(*p.Type); t.Valid() {
			next.Type = t
		} else {
			v.addf("type", "invalid value %q", *p.Type)
		}
	}
	setString(&next.Brand, p.Brand)
	setString(&next.Model, p.Model)
	setString(&next.SerialNumber, p.SerialNumber)
	setString(&next.Barcode, p.Barcode)
	setString(&next.Dimensions, p.Dimensions)
	setString(&next.Color, p.Color)

	if p.PurchasePrice != nil {
		amount, vs := parseAmount("purchase_price", *p.PurchasePrice)
		next.PurchasePrice = amount
		v.add(vs)
	}
	if p.Weight != nil {
		amount, vs := parseAmount("weight", *p.Weight)
		next.Weight = amount
		v.add(vs)
	}
	datesParsed := true
	if p.PurchaseDate != nil {
		d, vs := parseDate("purchase_date", *p.PurchaseDate)
		next.PurchaseDate = d
		v.add(vs)
		datesParsed = datesParsed && len(vs) == 0
	}
	if p.WarrantyExpiry != nil {
		d, vs := parseDate("warranty_expiry", *p.WarrantyExpiry)
		next.WarrantyExpiry = d
		v.add(vs)
		datesParsed = datesParsed && len(vs) == 0
	}
	if datesParsed {
		v.add(checkDates(next.PurchaseDate, next.WarrantyExpiry, now))
	}

	if p.ClearCategory {
		next.CategoryID = nil
	} else if p.CategoryID != nil {
		next.CategoryID = p.CategoryID
	}

	if err := apperr.Validation(v.list); err != nil {
		return AuditEntry{}, err
	}
	*it = next
	return it.bump(ActionUpdate, "Details updated.", now), nil
}

// ParseAmount parses a non-negative decimal field. An empty string yields nil.
func ParseAmount(field, s string) (*decimal.Decimal, error) {
	d, vs := parseAmount(field, FlexString(s))
	return d, apperr.Validation(vs)
}

// ParseDate parses a date given as YYYY-MM-DD or RFC 3339. An empty string
// yields nil.
func ParseDate(field, s string) (*time.Time, error) {
	d, vs := parseDate(field, s)
	return d, apperr.Validation(vs)
}

type violations struct {
	list []apperr.Violation
}

func (v *violations) add(vs []apperr.Violation) {
	v.list = append(v.list, vs...)
}

func (v *violations) addf(field, format string, args ...any) {
	v.list = append(v.list, apperr.Violation{Field: field, Message: fmt.Sprintf(format, args...)})
}

func checkItemName(name string) []apperr.Violation {
	switch {
	case name == "":
		return []apperr.Violation{{Field: "name", Message: "is required"}}
	case utf8.RuneCountInString(name) > MaxItemNameLength:
		return []apperr.Violation{{Field: "name", Message: fmt.Sprintf("must be at most %d characters", MaxItemNameLength)}}
	}
	return nil
}

func parseAmount(field string, raw FlexString) (*decimal.Decimal, []apperr.Violation) {
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, []apperr.Violation{{Field: field, Message: fmt.Sprintf("invalid number format %q", s)}}
	}
	if d.IsNegative() {
		return nil, []apperr.Violation{{Field: field, Message: "must not be negative"}}
	}
	return &d, nil
}

func parseDate(field, s string) (*time.Time, []apperr.Violation) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return &t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.UTC()
		return &t, nil
	}
	return nil, []apperr.Violation{{Field: field, Message: fmt.Sprintf("invalid date format %q, want YYYY-MM-DD", s)}}
}

func checkDates(purchase, warranty *time.Time, now time.Time) []apperr.Violation {
	var vs []apperr.Violation
	if purchase != nil && truncateDay(*purchase).After(truncateDay(now)) {
		vs = append(vs, apperr.Violation{Field: "purchase_date", Message: "must not be in the future"})
	}
	if purchase != nil && warranty != nil && truncateDay(*warranty).Before(truncateDay(*purchase)) {
		vs = append(vs, apperr.Violation{Field: "warranty_expiry", Message: "must not be before purchase_date"})
	}
	return vs
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}
