package plugin

import "fmt"

// Category groups plugins by the kind of data they model.
type Category string

// Supported categories.
const (
	Generic          Category = "generic"
	Privacy          Category = "privacy"
	TimeSeries       Category = "time_series"
	SurvivalAnalysis Category = "survival_analysis"
)

// Categories returns every supported category in a stable order.
func Categories() []Category {
	return []Category{Generic, Privacy, TimeSeries, SurvivalAnalysis}
}

// ParseCategory converts s to a Category.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories() {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("plugin: unknown category %q", s)
}

// String returns the category name.
func (c Category) String() string { return string(c) }
