package dining

import (
	"fmt"
	"strings"
	"time"
)

// Meal is a named meal period for which menus are requested.
type Meal string

const (
	MealBreakfast Meal = "breakfast"
	MealBrunch    Meal = "brunch"
	MealLunch     Meal = "lunch"
	MealDinner    Meal = "dinner"
)

// ParseMeal maps a user-supplied meal name to a Meal.
func ParseMeal(s string) (Meal, error) {
	switch m := Meal(strings.ToLower(strings.TrimSpace(s))); m {
	case MealBreakfast, MealBrunch, MealLunch, MealDinner:
		return m, nil
	default:
		return "", fmt.Errorf("unknown meal %q (want breakfast, brunch, lunch or dinner)", s)
	}
}

// Title returns the meal name capitalized for message headers.
func (m Meal) Title() string {
	s := string(m)
	if s == "" {
		return ""
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		return string(s[0]-'a'+'A') + s[1:]
	}
	return s
}

// Hall is a physical dining location, tracked independently for messaging.
type Hall struct {
	ID   int
	Name string
	Icon string
}

// Label returns the hall display name with its icon prefix (if any).
func (h Hall) Label() string {
	if h.Icon == "" {
		return h.Name
	}
	return h.Icon + " " + h.Name
}

// span is a half-open hour range [From, To).
type span struct {
	From, To int
}

func (s span) contains(h int) bool { return h >= s.From && h < s.To }

// mealRule maps a set of hour spans to a meal. A rule can flip to a different
// meal on one weekday; only the post-dinner rules do this (Friday night points
// at weekend brunch, Sunday night back at weekday breakfast).
type mealRule struct {
	Spans       []span
	Meal        Meal
	SpecialDay  time.Weekday
	SpecialMeal Meal
	hasSpecial  bool
}

// Schedule holds the hour tables that decide the upcoming meal for one hall.
//
// During a meal period the meal is still "upcoming"; the next meal takes over
// only once the current one ends. Only whole hours are considered.
type Schedule struct {
	Weekday []mealRule
	Weekend []mealRule
}

// UpcomingMeal returns the meal period to request for time t.
func (s Schedule) UpcomingMeal(t time.Time) Meal {
	day := t.Weekday()
	hour := t.Hour()

	rules := s.Weekday
	if day == time.Saturday || day == time.Sunday {
		rules = s.Weekend
	}
	for _, r := range rules {
		for _, sp := range r.Spans {
			if sp.contains(hour) {
				if r.hasSpecial && day == r.SpecialDay {
					return r.SpecialMeal
				}
				return r.Meal
			}
		}
	}
	return MealBreakfast
}

// Hall IDs as assigned by the campus menu API.
const (
	HallMoulton = 48
	HallThorne  = 49
)

var moultonSchedule = Schedule{
	Weekday: []mealRule{
		{Spans: []span{{0, 10}}, Meal: MealBreakfast},
		{Spans: []span{{10, 14}}, Meal: MealLunch},
		{Spans: []span{{14, 19}}, Meal: MealDinner},
		{Spans: []span{{19, 24}}, Meal: MealBreakfast, SpecialDay: time.Friday, SpecialMeal: MealBrunch, hasSpecial: true},
	},
	Weekend: []mealRule{
		{Spans: []span{{0, 11}}, Meal: MealBrunch},
		{Spans: []span{{11, 13}}, Meal: MealLunch},
		{Spans: []span{{13, 19}}, Meal: MealDinner},
		{Spans: []span{{19, 24}}, Meal: MealBrunch, SpecialDay: time.Sunday, SpecialMeal: MealBreakfast, hasSpecial: true},
	},
}

// Thorne serves until 20:00 and has no weekend lunch.
var thorneSchedule = Schedule{
	Weekday: []mealRule{
		{Spans: []span{{0, 10}}, Meal: MealBreakfast},
		{Spans: []span{{10, 14}}, Meal: MealLunch},
		{Spans: []span{{14, 20}}, Meal: MealDinner},
		{Spans: []span{{20, 24}}, Meal: MealBreakfast, SpecialDay: time.Friday, SpecialMeal: MealBrunch, hasSpecial: true},
	},
	Weekend: []mealRule{
		{Spans: []span{{0, 14}}, Meal: MealBrunch},
		{Spans: []span{{14, 20}}, Meal: MealDinner},
		{Spans: []span{{20, 24}}, Meal: MealBrunch, SpecialDay: time.Sunday, SpecialMeal: MealBreakfast, hasSpecial: true},
	},
}

// ScheduleFor returns the hour table for a hall. Halls without a dedicated
// table fall back to the Moulton hours.
func ScheduleFor(hallID int) Schedule {
	switch hallID {
	case HallThorne:
		return thorneSchedule
	default:
		return moultonSchedule
	}
}
