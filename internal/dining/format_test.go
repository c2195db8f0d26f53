package dining

import (
	"strings"
	"testing"
	"time"
)

func TestFormat(t *testing.T) {
	t.Parallel()

	hall := Hall{ID: HallThorne, Name: "Thorne", Icon: "🌲"}
	date := time.Date(2026, time.August, 30, 0, 0, 0, 0, time.UTC)
	menu := Menu{Categories: []Category{
		{Name: "Main Course", Items: []string{"Pancakes", "Bacon"}},
	}}

	got := Format(hall, MealBreakfast, date, menu)

	wantHeader := "🌲 Thorne Breakfast - 30 Aug 2026:"
	if !strings.HasPrefix(got, wantHeader) {
		t.Fatalf("header = %q, want prefix %q", got, wantHeader)
	}
	for _, line := range []string{"Main Course:", "🍽️ Pancakes", "🍽️ Bacon"} {
		if !strings.Contains(got, line) {
			t.Fatalf("output missing %q:\n%s", line, got)
		}
	}
	if strings.HasSuffix(got, "\n") {
		t.Fatalf("output has trailing newline:\n%q", got)
	}
}

func TestFormatCategoryOrder(t *testing.T) {
	t.Parallel()

	menu := Menu{Categories: []Category{
		{Name: "Soup", Items: []string{"Chowder"}},
		{Name: "Desserts", Items: []string{"Pie"}},
		{Name: "Main Course", Items: []string{"Stew"}},
	}}
	got := Format(Hall{Name: "Moulton"}, MealDinner, time.Now(), menu)

	main := strings.Index(got, "Main Course:")
	dessert := strings.Index(got, "Desserts:")
	soup := strings.Index(got, "Soup:")
	if main < 0 || dessert < 0 || soup < 0 {
		t.Fatalf("missing categories:\n%s", got)
	}
	if !(main < dessert && dessert < soup) {
		t.Fatalf("category order wrong (main=%d dessert=%d soup=%d):\n%s", main, dessert, soup, got)
	}
}

func TestFormatGenericEmojiFallback(t *testing.T) {
	t.Parallel()

	menu := Menu{Categories: []Category{
		{Name: "Chef's Table", Items: []string{"Surprise"}},
	}}
	got := Format(Hall{Name: "Moulton"}, MealLunch, time.Now(), menu)
	if !strings.Contains(got, "🍴 Surprise") {
		t.Fatalf("expected generic emoji prefix:\n%s", got)
	}
}

func TestFormatFruitCategoryKeepsColon(t *testing.T) {
	t.Parallel()

	// The upstream category string already ends with a colon; the formatter
	// must not double it.
	menu := Menu{Categories: []Category{
		{Name: "Appetizer/ Fruit/ Juices:", Items: []string{"Apples"}},
	}}
	got := Format(Hall{Name: "Moulton"}, MealBreakfast, time.Now(), menu)
	if strings.Contains(got, "Juices::") {
		t.Fatalf("doubled colon in category header:\n%s", got)
	}
	if !strings.Contains(got, "🍏 Apples") {
		t.Fatalf("expected fruit emoji prefix:\n%s", got)
	}
}

func TestFormatEmptyMenu(t *testing.T) {
	t.Parallel()

	if got := Format(Hall{Name: "Thorne"}, MealDinner, time.Now(), Menu{}); got != "" {
		t.Fatalf("empty menu formatted as %q, want empty string", got)
	}
	empties := Menu{Categories: []Category{{Name: "Soup"}}}
	if got := Format(Hall{Name: "Thorne"}, MealDinner, time.Now(), empties); got != "" {
		t.Fatalf("item-less menu formatted as %q, want empty string", got)
	}
}

func TestEmojiFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		category string
		want     string
	}{
		{"Main Course", "🍽️"},
		{"Vegan Entree", "🌱"},
		{"Appetizer/ Fruit/ Juices:", "🍏"},
		{"Never Heard Of It", "🍴"},
	}
	for _, tt := range tests {
		if got := EmojiFor(tt.category); got != tt.want {
			t.Fatalf("EmojiFor(%q) = %q, want %q", tt.category, got, tt.want)
		}
	}
}
