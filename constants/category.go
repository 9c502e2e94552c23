package constants

import (
	"strings"
)

type Category string

// Category labels as they appear in the rules file and in exported workbooks.
const (
	Travel              Category = "travel"
	Entertainment       Category = "entertainment"
	Communications      Category = "communications (phone, internet, postage)"
	Meetings            Category = "meetings"
	OfficeSupplies      Category = "Office supplies"
	Equipment           Category = "Equipment"
	Utilities           Category = "Utilities"
	ProfessionalFees    Category = "Professional fees"
	OutsourcedFees      Category = "outsourced fees"
	Rent                Category = "Rent"
	Advertising         Category = "Advertising"
	Memberships         Category = "Memberships"
	Education           Category = "Education"
	Medical             Category = "Medical"
	SoftwareAndServices Category = "Software and Services"
	Other               Category = "Other"
)

var allCategories = []Category{
	Travel,
	Entertainment,
	Communications,
	Meetings,
	OfficeSupplies,
	Equipment,
	Utilities,
	ProfessionalFees,
	OutsourcedFees,
	Rent,
	Advertising,
	Memberships,
	Education,
	Medical,
	SoftwareAndServices,
	Other,
}

func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

func Canonicalize(input string) (Category, bool) {
	if input == "" {
		return Other, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	// synonyms map
	synonyms := map[string]Category{
		"communications": Communications,
		"phone":          Communications,
		"internet":       Communications,
		"postage":        Communications,
		"meals":          Entertainment,
		"saas":           SoftwareAndServices,
		"subscription":   SoftwareAndServices,
		"software":       SoftwareAndServices,
		"taxi":           Travel,
		"hotel":          Travel,
		"airline":        Travel,
		"supplies":       OfficeSupplies,
	}

	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	// check if it matches any category string
	for _, cat := range allCategories {
		if normalized == strings.ToLower(string(cat)) {
			return cat, true
		}
	}

	return Other, false
}
