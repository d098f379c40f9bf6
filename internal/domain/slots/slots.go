// Package slots defines the recognized conversation preference slots and
// their value domains.
package slots

import (
	"strings"

	"github.com/palate-labs/palate/internal/domain"
)

// Name identifies a recognized preference slot.
type Name string

// Recognized slot names.
const (
	Dietary  Name = "dietary"
	Cuisine1 Name = "cuisine_1"
	Cuisine2 Name = "cuisine_2"
	ItemName Name = "item_name"
	Price    Name = "price"
	MealType Name = "meal_type"
	Label    Name = "label"
)

// All lists every recognized slot in its canonical order. Missing() reports
// unset slots in this order, which drives the next clarifying question.
var All = []Name{Dietary, Cuisine1, Cuisine2, ItemName, Price, MealType, Label}

// Price bounds accepted at the extraction boundary.
const (
	MinPrice = 50
	MaxPrice = 5000
)

var dietaryValues = map[string]bool{"veg": true, "nonveg": true, "vegan": true}

var mealValues = map[string]bool{"breakfast": true, "lunch": true, "dinner": true, "snacks": true}

var labelValues = map[string]bool{
	"bestseller": true, "must try": true, "chef's special": true, "new": true,
	"seasonal": true, "spicy": true, "dairy free": true, "vegan": true,
	"gluten free": true, "eggless available": true, "fodmap friendly": true,
	"not eligible for coupons": true, "not on pro": true,
}

// MealKeywords maps each meal type to the utterance keywords that imply it.
var MealKeywords = map[string][]string{
	"breakfast": {"breakfast", "brekkie", "morning"},
	"lunch":     {"lunch", "lunchtime", "noon"},
	"dinner":    {"dinner", "supper", "evening"},
	"snacks":    {"snack", "snacks", "tiffin", "munchies"},
}

// Known reports whether name is a recognized slot.
func Known(name Name) bool {
	for _, n := range All {
		if n == name {
			return true
		}
	}
	return false
}

// Slots holds the per-session preference state. A nil field means unset.
// Mutate only through Set, Merge, ReplaceAll, and Clear.
type Slots struct {
	dietary  *string
	cuisine1 *string
	cuisine2 *string
	itemName *string
	price    *int
	mealType *string
	label    *string
}

// Delta is one extraction's worth of slot changes. Nil fields mean
// "leave the current value untouched" — they never erase.
type Delta struct {
	Dietary  *string
	Cuisine1 *string
	Cuisine2 *string
	ItemName *string
	Price    *int
	MealType *string
	Label    *string
}

// IsEmpty reports whether the delta carries no values.
func (d Delta) IsEmpty() bool {
	return d.Dietary == nil && d.Cuisine1 == nil && d.Cuisine2 == nil &&
		d.ItemName == nil && d.Price == nil && d.MealType == nil && d.Label == nil
}

// Fields returns the non-nil entries of the delta, keyed by slot name.
func (d Delta) Fields() map[Name]any {
	out := make(map[Name]any)
	if d.Dietary != nil {
		out[Dietary] = *d.Dietary
	}
	if d.Cuisine1 != nil {
		out[Cuisine1] = *d.Cuisine1
	}
	if d.Cuisine2 != nil {
		out[Cuisine2] = *d.Cuisine2
	}
	if d.ItemName != nil {
		out[ItemName] = *d.ItemName
	}
	if d.Price != nil {
		out[Price] = *d.Price
	}
	if d.MealType != nil {
		out[MealType] = *d.MealType
	}
	if d.Label != nil {
		out[Label] = *d.Label
	}
	return out
}

// Set validates and stores a single slot value. String slots accept string
// values; price accepts int. Unknown names and out-of-domain values are
// rejected without touching the store.
func (s *Slots) Set(name Name, value any) error {
	switch name {
	case Dietary:
		v, ok := stringValue(value)
		if !ok || !dietaryValues[strings.ToLower(strings.TrimSpace(v))] {
			return domain.ErrInvalidSlotValue
		}
		v = strings.ToLower(strings.TrimSpace(v))
		s.dietary = &v
	case Cuisine1:
		v, ok := stringValue(value)
		if !ok || strings.TrimSpace(v) == "" {
			return domain.ErrInvalidSlotValue
		}
		s.cuisine1 = &v
	case Cuisine2:
		v, ok := stringValue(value)
		if !ok || strings.TrimSpace(v) == "" {
			return domain.ErrInvalidSlotValue
		}
		s.cuisine2 = &v
	case ItemName:
		v, ok := stringValue(value)
		if !ok || strings.TrimSpace(v) == "" {
			return domain.ErrInvalidSlotValue
		}
		s.itemName = &v
	case Price:
		p, ok := intValue(value)
		if !ok || p < MinPrice || p > MaxPrice {
			return domain.ErrInvalidSlotValue
		}
		s.price = &p
	case MealType:
		v, ok := stringValue(value)
		if !ok || !mealValues[strings.ToLower(strings.TrimSpace(v))] {
			return domain.ErrInvalidSlotValue
		}
		v = strings.ToLower(strings.TrimSpace(v))
		s.mealType = &v
	case Label:
		v, ok := stringValue(value)
		if !ok || !labelValues[strings.ToLower(strings.TrimSpace(v))] {
			return domain.ErrInvalidSlotValue
		}
		v = strings.ToLower(strings.TrimSpace(v))
		s.label = &v
	default:
		return domain.ErrUnknownSlot
	}
	return nil
}

// Merge applies the preserve-context policy: every non-nil delta field
// overwrites the matching slot; nil fields leave the slot untouched.
// Returns the applied values and any slots rejected by domain validation.
func (s *Slots) Merge(d Delta) (applied map[Name]any, rejected []Name) {
	applied = make(map[Name]any)
	for name, value := range d.Fields() {
		if err := s.Set(name, value); err != nil {
			rejected = append(rejected, name)
			continue
		}
		applied[name] = value
	}
	return applied, rejected
}

// ReplaceAll clears every slot and then applies the delta's non-nil fields.
// Used exactly once per new-query transition.
func (s *Slots) ReplaceAll(d Delta) (applied map[Name]any, rejected []Name) {
	s.Clear()
	return s.Merge(d)
}

// Clear resets every slot to unset.
func (s *Slots) Clear() {
	*s = Slots{}
}

// Filled returns only the non-nil slots.
func (s *Slots) Filled() map[Name]any {
	out := make(map[Name]any)
	if s.dietary != nil {
		out[Dietary] = *s.dietary
	}
	if s.cuisine1 != nil {
		out[Cuisine1] = *s.cuisine1
	}
	if s.cuisine2 != nil {
		out[Cuisine2] = *s.cuisine2
	}
	if s.itemName != nil {
		out[ItemName] = *s.itemName
	}
	if s.price != nil {
		out[Price] = *s.price
	}
	if s.mealType != nil {
		out[MealType] = *s.mealType
	}
	if s.label != nil {
		out[Label] = *s.label
	}
	return out
}

// Missing returns the still-unset slots in canonical order.
func (s *Slots) Missing() []Name {
	filled := s.Filled()
	var out []Name
	for _, n := range All {
		if _, ok := filled[n]; !ok {
			out = append(out, n)
		}
	}
	return out
}

// Display returns every slot with unset values rendered as the string "null".
func (s *Slots) Display() map[Name]any {
	out := make(map[Name]any, len(All))
	filled := s.Filled()
	for _, n := range All {
		if v, ok := filled[n]; ok {
			out[n] = v
		} else {
			out[n] = "null"
		}
	}
	return out
}

// Dietary returns the dietary preference if set.
func (s *Slots) Dietary() (string, bool) { return deref(s.dietary) }

// Cuisine1 returns the primary cuisine if set.
func (s *Slots) Cuisine1() (string, bool) { return deref(s.cuisine1) }

// Cuisine2 returns the secondary cuisine if set.
func (s *Slots) Cuisine2() (string, bool) { return deref(s.cuisine2) }

// ItemName returns the requested dish if set.
func (s *Slots) ItemName() (string, bool) { return deref(s.itemName) }

// MealType returns the meal type if set.
func (s *Slots) MealType() (string, bool) { return deref(s.mealType) }

// Label returns the menu-label preference if set.
func (s *Slots) Label() (string, bool) { return deref(s.label) }

// Price returns the budget if set.
func (s *Slots) Price() (int, bool) {
	if s.price == nil {
		return 0, false
	}
	return *s.price, true
}

func deref(p *string) (string, bool) {
	if p == nil {
		return "", false
	}
	return *p, true
}

func stringValue(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		// JSON numbers decode as float64
		return int(n), true
	default:
		return 0, false
	}
}
