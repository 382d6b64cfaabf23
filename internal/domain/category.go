package domain

import "strings"

// Category is the fixed classification of a ticket's purpose.
type Category string

const (
	CategorySupport Category = "support"
	CategoryRank    Category = "rank"
	CategoryStaff   Category = "staff"
	CategoryBug     Category = "bug"
	CategoryAppeal  Category = "appeal"
	CategoryReport  Category = "report"
)

// CategoryInfo carries presentation data for a category.
type CategoryInfo struct {
	Key         Category
	Name        string
	Emoji       string
	Description string
}

var categoryCatalog = []CategoryInfo{
	{Key: CategorySupport, Name: "Support Tickets", Emoji: "🎫", Description: "Get help with general issues"},
	{Key: CategoryRank, Name: "Rank Purchases", Emoji: "💎", Description: "Buy server ranks"},
	{Key: CategoryStaff, Name: "Staff Applications", Emoji: "👥", Description: "Apply for staff position"},
	{Key: CategoryBug, Name: "Bug Reports", Emoji: "🐛", Description: "Report bugs or technical issues"},
	{Key: CategoryAppeal, Name: "Ban Appeals", Emoji: "⚖️", Description: "Appeal a punishment"},
	{Key: CategoryReport, Name: "Player Reports", Emoji: "🚫", Description: "Report a player"},
}

// Categories returns every category in panel order.
func Categories() []CategoryInfo {
	out := make([]CategoryInfo, len(categoryCatalog))
	copy(out, categoryCatalog)
	return out
}

// ParseCategory resolves a selector value to a known category.
func ParseCategory(raw string) (Category, bool) {
	candidate := Category(strings.ToLower(strings.TrimSpace(raw)))
	for _, info := range categoryCatalog {
		if info.Key == candidate {
			return candidate, true
		}
	}
	return "", false
}

// Info returns presentation data; ok is false for unknown categories.
func (c Category) Info() (CategoryInfo, bool) {
	for _, info := range categoryCatalog {
		if info.Key == c {
			return info, true
		}
	}
	return CategoryInfo{}, false
}

// Valid reports whether c is one of the fixed categories.
func (c Category) Valid() bool {
	_, ok := c.Info()
	return ok
}
