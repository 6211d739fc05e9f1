package model

// Category groups items by life area (car, health, work, etc.).
type Category string

const (
	CategoryCar        Category = "Car"
	CategoryPersonal   Category = "Personal"
	CategoryFamily     Category = "Family"
	CategoryFinance    Category = "Finance"
	CategoryHealth     Category = "Health"
	CategoryHome       Category = "Home"
	CategoryWork       Category = "Work"
	CategoryRecruiting Category = "Recruiting"
	CategoryTravel     Category = "Travel"
	CategoryIdeas      Category = "Ideas"
	CategoryReference  Category = "Reference"
)

// DefaultCategory replaces any category the model invents.
const DefaultCategory = CategoryPersonal

// Categories lists every top-level category in display order.
var Categories = []Category{
	CategoryCar,
	CategoryPersonal,
	CategoryFamily,
	CategoryFinance,
	CategoryHealth,
	CategoryHome,
	CategoryWork,
	CategoryRecruiting,
	CategoryTravel,
	CategoryIdeas,
	CategoryReference,
}

// IdeaSubcategories are only valid when the category is Ideas.
var IdeaSubcategories = []string{
	"Books",
	"Movies",
	"TV",
	"Restaurants",
	"Articles",
	"Gifts",
	"Products",
	"Places",
	"Activities",
	"Random",
}

// KnownPerson is handed to the model so it can tag people consistently.
type KnownPerson struct {
	Name         string
	Relationship string
}

var KnownPeople = []KnownPerson{
	{Name: "Dad", Relationship: "father"},
	{Name: "Mom", Relationship: "mother"},
	{Name: "Anjali", Relationship: "girlfriend"},
	{Name: "Dobby", Relationship: "dog"},
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// NormalizeCategory coerces unknown categories to DefaultCategory.
func NormalizeCategory(raw string) Category {
	c := Category(raw)
	if !c.Valid() {
		return DefaultCategory
	}
	return c
}

func ValidIdeaSubcategory(s string) bool {
	for _, known := range IdeaSubcategories {
		if s == known {
			return true
		}
	}
	return false
}
