// Package directory holds the predefined organizations and issue categories
// and resolves which organizations handle a given category.
package directory

import (
	"slices"
	"strings"

	"civicconnect-be/models"
)

// Category is an issue type with its display label.
type Category struct {
	ID    models.IssueCategory `json:"id"`
	Label string               `json:"label"`
}

var categories = []Category{
	{ID: models.Waterlogging, Label: "Waterlogging & Drainage Issues"},
	{ID: models.Garbage, Label: "Garbage Overflow & Waste Management"},
	{ID: models.Roads, Label: "Road Maintenance & Potholes"},
	{ID: models.PublicPlaces, Label: "Unmaintained Public Places"},
	{ID: models.Streetlights, Label: "Streetlight & Electricity Issues"},
	{ID: models.WaterSupply, Label: "Broken Pipelines & Water Supply Issues"},
}

var organizations = []models.Organization{
	{
		ID:          "bmc-drainage",
		Name:        "BMC Stormwater Drain Department",
		Description: "Handles drainage systems and waterlogging issues in Mumbai",
		IssueTypes:  []models.IssueCategory{models.Waterlogging},
	},
	{
		ID:          "pwd",
		Name:        "Public Works Department (PWD)",
		Description: "Responsible for construction and maintenance of public infrastructure",
		IssueTypes:  []models.IssueCategory{models.Waterlogging, models.Roads},
	},
	{
		ID:          "mjp",
		Name:        "Maharashtra Jeevan Pradhikaran (MJP)",
		Description: "Water supply and sanitation in Maharashtra",
		IssueTypes:  []models.IssueCategory{models.Waterlogging, models.WaterSupply},
	},
	{
		ID:          "mmrda",
		Name:        "Mumbai Metropolitan Region Development Authority (MMRDA)",
		Description: "Infrastructure development in Mumbai Metropolitan Region",
		IssueTypes:  []models.IssueCategory{models.Roads},
	},
	{
		ID:          "bmc-waste",
		Name:        "BMC Solid Waste Management Department",
		Description: "Waste collection and disposal in Mumbai",
		IssueTypes:  []models.IssueCategory{models.Garbage},
	},
	{
		ID:          "mpcb",
		Name:        "Maharashtra Pollution Control Board (MPCB)",
		Description: "Monitoring and control of pollution in Maharashtra",
		IssueTypes:  []models.IssueCategory{models.Garbage},
	},
	{
		ID:          "sba",
		Name:        "Swachh Bharat Abhiyan (SBA) Local Ward Office",
		Description: "Cleanliness mission at local level",
		IssueTypes:  []models.IssueCategory{models.Garbage, models.PublicPlaces},
	},
	{
		ID:          "muni-waste",
		Name:        "Municipal Corporation Waste Management Division",
		Description: "Local waste management services",
		IssueTypes:  []models.IssueCategory{models.Garbage},
	},
	{
		ID:          "muni-roads",
		Name:        "Municipal Road Maintenance Department",
		Description: "Road repair and maintenance at local level",
		IssueTypes:  []models.IssueCategory{models.Roads},
	},
	{
		ID:          "bmc-garden",
		Name:        "BMC - Garden & Recreation Department",
		Description: "Maintenance of public parks and gardens",
		IssueTypes:  []models.IssueCategory{models.PublicPlaces},
	},
	{
		ID:          "muda",
		Name:        "Mumbai Urban Development Authority (MUDA)",
		Description: "Urban planning and development in Mumbai",
		IssueTypes:  []models.IssueCategory{models.PublicPlaces},
	},
	{
		ID:          "suda",
		Name:        "State Urban Development Authority (SUDA)",
		Description: "Urban planning at state level",
		IssueTypes:  []models.IssueCategory{models.PublicPlaces},
	},
	{
		ID:          "muni-parks",
		Name:        "Municipal Park Maintenance Division",
		Description: "Maintenance of local parks and recreational areas",
		IssueTypes:  []models.IssueCategory{models.PublicPlaces},
	},
	{
		ID:          "mseb",
		Name:        "Maharashtra State Electricity Board (MSEB)",
		Description: "Electricity supply and infrastructure in Maharashtra",
		IssueTypes:  []models.IssueCategory{models.Streetlights},
	},
	{
		ID:          "tata-power",
		Name:        "Tata Power",
		Description: "Private electricity distribution company",
		IssueTypes:  []models.IssueCategory{models.Streetlights},
	},
	{
		ID:          "adani-electricity",
		Name:        "Adani Electricity Mumbai",
		Description: "Private electricity distribution company",
		IssueTypes:  []models.IssueCategory{models.Streetlights},
	},
	{
		ID:          "local-electricity",
		Name:        "Local Municipal Electricity Department",
		Description: "Municipal electricity distribution and maintenance",
		IssueTypes:  []models.IssueCategory{models.Streetlights},
	},
	{
		ID:          "bmc-water",
		Name:        "BMC Water Supply Department",
		Description: "Water supply and distribution in Mumbai",
		IssueTypes:  []models.IssueCategory{models.WaterSupply},
	},
	{
		ID:          "water-management",
		Name:        "City Water Management Authorities",
		Description: "Local water supply and management",
		IssueTypes:  []models.IssueCategory{models.WaterSupply},
	},
}

// All returns a copy of every predefined organization in directory order.
func All() []models.Organization {
	out := make([]models.Organization, len(organizations))
	for i, org := range organizations {
		out[i] = clone(org)
	}
	return out
}

// clone detaches an entry from the static table.
func clone(org models.Organization) models.Organization {
	org.IssueTypes = slices.Clone(org.IssueTypes)
	return org
}

// Categories returns the known issue categories with labels.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// ValidCategory reports whether c is a known category.
func ValidCategory(c models.IssueCategory) bool {
	for _, cat := range categories {
		if cat.ID == c {
			return true
		}
	}
	return false
}

// ResolveOrganizations returns the organizations whose issue types contain
// category, in directory order. Unknown categories yield an empty slice.
func ResolveOrganizations(category models.IssueCategory) []models.Organization {
	out := []models.Organization{}
	for _, org := range organizations {
		if org.Handles(category) {
			out = append(out, clone(org))
		}
	}
	return out
}

// ByID looks up an organization by its slug.
func ByID(id string) (models.Organization, bool) {
	for _, org := range organizations {
		if org.ID == id {
			return clone(org), true
		}
	}
	return models.Organization{}, false
}

// ByName looks up an organization by display name, ignoring case and
// surrounding whitespace.
func ByName(name string) (models.Organization, bool) {
	name = strings.TrimSpace(name)
	for _, org := range organizations {
		if strings.EqualFold(org.Name, name) {
			return clone(org), true
		}
	}
	return models.Organization{}, false
}

// Lookup resolves a reference that may be either an id or a display name.
func Lookup(ref string) (models.Organization, bool) {
	if org, ok := ByID(ref); ok {
		return org, true
	}
	return ByName(ref)
}

// LookupID is Lookup reduced to the id, in the shape legacy normalization expects.
func LookupID(ref string) (string, bool) {
	org, ok := Lookup(ref)
	return org.ID, ok
}

// Handles reports whether the organization orgID exists and services category.
func Handles(orgID string, category models.IssueCategory) bool {
	org, ok := ByID(orgID)
	return ok && org.Handles(category)
}
