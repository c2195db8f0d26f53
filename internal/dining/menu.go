package dining

// Category is one station/course heading with its items, in API order.
type Category struct {
	Name  string
	Items []string
}

// Menu is the ordered item listing for one hall, meal and date.
// It is built fresh per cycle and discarded after formatting.
type Menu struct {
	Categories []Category
}

// Empty reports whether the menu has no items at all.
func (m Menu) Empty() bool {
	for _, c := range m.Categories {
		if len(c.Items) > 0 {
			return false
		}
	}
	return true
}

// preferredOrder lists categories that are pulled to the front of formatted
// output; everything else keeps its API response order.
var preferredOrder = []string{"Main Course", "Desserts"}

// sorted returns a copy with the preferred categories first.
func (m Menu) sorted() Menu {
	out := Menu{Categories: make([]Category, 0, len(m.Categories))}
	taken := make(map[string]bool, len(preferredOrder))
	for _, want := range preferredOrder {
		for _, c := range m.Categories {
			if c.Name == want {
				out.Categories = append(out.Categories, c)
				taken[want] = true
				break
			}
		}
	}
	for _, c := range m.Categories {
		if !taken[c.Name] {
			out.Categories = append(out.Categories, c)
		}
	}
	return out
}
