package models

import "strings"

// Category groups events. Names are stored normalized (trimmed and
// lowercased) and are unique, so lookups never depend on the casing of
// user input.
type Category struct {
	Base
	Name  string `gorm:"not null;uniqueIndex" json:"name"`
	Color string `gorm:"not null;default:#4CAF50" json:"color"`

	// Relationships
	Events []Event `gorm:"foreignKey:CategoryID" json:"events,omitempty"`
}

// NormalizeCategoryName canonicalizes a raw category name for storage and
// comparison.
func NormalizeCategoryName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
