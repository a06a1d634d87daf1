package model

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/erazemk/hisa/internal/apperr"
)

// MaxCategoryNameLength bounds category names, in characters.
const MaxCategoryNameLength = 100

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Category is a flat grouping for items and locations.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Color       string    `json:"color,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CategoryInput holds the fields accepted when creating or updating a category.
// On update, empty fields keep their current value.
type CategoryInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

// Validate checks the input. Name is required only when requireName is set.
func (in *CategoryInput) Validate(requireName bool) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Color = strings.TrimSpace(in.Color)

	var vs []apperr.Violation
	switch {
	case in.Name == "" && requireName:
		vs = append(vs, apperr.Violation{Field: "name", Message: "is required"})
	case utf8.RuneCountInString(in.Name) > MaxCategoryNameLength:
		vs = append(vs, apperr.Violation{Field: "name", Message: "must be at most 100 characters"})
	}
	if in.Color != "" && !colorPattern.MatchString(in.Color) {
		vs = append(vs, apperr.Violation{Field: "color", Message: "must be a hex color like #A1B2C3"})
	}
	return apperr.Validation(vs)
}

// CategoryDeleteResult reports how a category delete was carried out.
type CategoryDeleteResult struct {
	// SoftDeleted is true when the category was still referenced and was
	// only deactivated.
	SoftDeleted bool `json:"soft_deleted"`
}
