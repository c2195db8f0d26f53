package dining

import (
	"strings"
	"time"
)

// categoryEmoji maps menu categories to the emoji that prefixes their item
// lines. Keys match the menu API's category strings verbatim (including the
// trailing colon quirk on the fruit category).
var categoryEmoji = map[string]string{
	"Main Course":               "🍽️",
	"Desserts":                  "🍰",
	"Starches":                  "🍚",
	"Vegetables":                "🥦",
	"Soup":                      "🍲",
	"Salads":                    "🥗",
	"Breads":                    "🍞",
	"Condiments":                "🧂",
	"Vegan Entree":              "🌱",
	"Deli":                      "🥪",
	"Express Meal":              "🥡",
	"Display":                   "👀",
	"Other":                     "❓",
	"Passover":                  "🍷",
	"Appetizer/ Fruit/ Juices:": "🍏",
}

// genericFoodEmoji prefixes items whose category has no dedicated emoji.
const genericFoodEmoji = "🍴"

// EmojiFor returns the item-line emoji for a category.
func EmojiFor(category string) string {
	if e, ok := categoryEmoji[category]; ok {
		return e
	}
	return genericFoodEmoji
}

// Format renders one hall's menu as a chat message. Empty menus render as an
// empty string so callers can skip the hall entirely.
//
// Layout:
//
//	🌲 Thorne Breakfast - 30 Aug 2026:
//
//	Main Course:
//	🍽️ Pancakes
//	🍽️ Bacon
func Format(hall Hall, meal Meal, date time.Time, menu Menu) string {
	if menu.Empty() {
		return ""
	}

	var b strings.Builder
	b.WriteString(hall.Label())
	b.WriteString(" ")
	b.WriteString(meal.Title())
	b.WriteString(" - ")
	b.WriteString(date.Format("02 Jan 2006"))
	b.WriteString(":\n\n")

	for _, cat := range menu.sorted().Categories {
		if len(cat.Items) == 0 {
			continue
		}
		b.WriteString(cat.Name)
		if !strings.HasSuffix(cat.Name, ":") {
			b.WriteString(":")
		}
		b.WriteString("\n")
		emoji := EmojiFor(cat.Name)
		for _, item := range cat.Items {
			if item == "" {
				continue
			}
			b.WriteString(emoji)
			b.WriteString(" ")
			b.WriteString(item)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
