package domain

import "fmt"

// TaxonomyCategory enumerates the static taxonomy collections. Using a typed
// constant instead of raw collection strings keeps category dispatch
// exhaustive at compile time.
type TaxonomyCategory string

const (
	TaxonomyRegions   TaxonomyCategory = "regions"
	TaxonomyLanguages TaxonomyCategory = "languages"
	TaxonomyThemes    TaxonomyCategory = "themes"
	TaxonomyCountries TaxonomyCategory = "countries"
)

// AllTaxonomyCategories lists every category in display order.
func AllTaxonomyCategories() []TaxonomyCategory {
	return []TaxonomyCategory{TaxonomyRegions, TaxonomyLanguages, TaxonomyThemes, TaxonomyCountries}
}

// ParseTaxonomyCategory converts a path segment into a category.
func ParseTaxonomyCategory(s string) (TaxonomyCategory, error) {
	switch TaxonomyCategory(s) {
	case TaxonomyRegions, TaxonomyLanguages, TaxonomyThemes, TaxonomyCountries:
		return TaxonomyCategory(s), nil
	default:
		return "", fmt.Errorf("unknown taxonomy category %q", s)
	}
}

// CollectionName is the cache/persistence collection for this category.
// Categories live in distinct collections so invalidating one never touches
// another.
func (c TaxonomyCategory) CollectionName() string {
	return "taxonomy_" + string(c)
}

// TaxonomyEntry is a single taxonomy value (a region, language, theme or
// country).
type TaxonomyEntry struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Code      string `json:"code,omitempty"`
	SortOrder int    `json:"sortOrder,omitempty"`
}
