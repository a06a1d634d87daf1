package model

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/erazemk/hisa/internal/apperr"
)

// MaxLocationNameLength bounds location names, in characters.
const MaxLocationNameLength = 100

// PathSeparator joins location names in a full path.
const PathSeparator = "/"

// Location is a node in the location hierarchy. A location without a parent
// is a root.
type Location struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Type        LocationType `json:"type"`
	ParentID    *int64       `json:"parent_id,omitempty"`
	CategoryID  *int64       `json:"category_id,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`

	// Derived fields (populated by the store, not persisted).
	FullPath string `json:"full_path,omitempty"`
	Depth    int    `json:"depth"`
}

// IsRoot reports whether the location has no parent.
func (l *Location) IsRoot() bool {
	return l.ParentID == nil
}

// LocationInput holds the fields accepted when creating a location.
type LocationInput struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Type        LocationType `json:"type"`
	ParentID    *int64       `json:"parent_id"`
	CategoryID  *int64       `json:"category_id"`
}

// LocationPatch holds optional location changes. Nil fields are left as is.
// Re-parenting goes through its own operation so acyclicity is checked.
type LocationPatch struct {
	Name          *string       `json:"name"`
	Description   *string       `json:"description"`
	Type          *LocationType `json:"type"`
	CategoryID    *int64        `json:"category_id"`
	ClearCategory bool          `json:"clear_category"`
}

// ValidateLocationName checks a location name and returns its violations.
func ValidateLocationName(name string) []apperr.Violation {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return []apperr.Violation{{Field: "name", Message: "is required"}}
	case utf8.RuneCountInString(name) > MaxLocationNameLength:
		return []apperr.Violation{{Field: "name", Message: "must be at most 100 characters"}}
	case strings.Contains(name, PathSeparator):
		return []apperr.Violation{{Field: "name", Message: "must not contain '/'"}}
	}
	return nil
}

// Validate checks a location input. An empty type defaults to room.
func (in *LocationInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Type == "" {
		in.Type = LocationTypeRoom
	}

	vs := ValidateLocationName(in.Name)
	if !in.Type.Valid() {
		vs = append(vs, apperr.Violation{Field: "type", Message: "must be one of house, room, container, shelf"})
	}
	return apperr.Validation(vs)
}

// Validate checks the fields present in a location patch.
func (p *LocationPatch) Validate() error {
	var vs []apperr.Violation
	if p.Name != nil {
		trimmed := strings.TrimSpace(*p.Name)
		p.Name = &trimmed
		vs = append(vs, ValidateLocationName(trimmed)...)
	}
	if p.Type != nil && !p.Type.Valid() {
		vs = append(vs, apperr.Violation{Field: "type", Message: "must be one of house, room, container, shelf"})
	}
	return apperr.Validation(vs)
}

// Apply copies the patch onto l.
func (p *LocationPatch) Apply(l *Location) {
	if p.Name != nil {
		l.Name = *p.Name
	}
	if p.Description != nil {
		l.Description = *p.Description
	}
	if p.Type != nil {
		l.Type = *p.Type
	}
	if p.ClearCategory {
		l.CategoryID = nil
	} else if p.CategoryID != nil {
		l.CategoryID = p.CategoryID
	}
}
