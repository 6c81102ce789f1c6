package enums

import "fmt"

// LineItemCategory groups quote rows for display and reporting.
type LineItemCategory string

const (
	LineItemCategoryInitiation          LineItemCategory = "initiation"
	LineItemCategoryProfessionalService LineItemCategory = "professional_service"
	LineItemCategoryOther               LineItemCategory = "other"
)

var validLineItemCategories = []LineItemCategory{
	LineItemCategoryInitiation,
	LineItemCategoryProfessionalService,
	LineItemCategoryOther,
}

// String implements fmt.Stringer.
func (c LineItemCategory) String() string {
	return string(c)
}

// IsValid reports whether the category is recognized.
func (c LineItemCategory) IsValid() bool {
	for _, candidate := range validLineItemCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseLineItemCategory converts a raw string into a LineItemCategory.
func ParseLineItemCategory(value string) (LineItemCategory, error) {
	for _, candidate := range validLineItemCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid line item category %q", value)
}
