package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/palate-labs/palate/internal/domain/slots"
)

var (
	reNoRestriction = regexp.MustCompile(`no restrictions?|no dietary|eat everything|not picky`)
	reNonVeg        = regexp.MustCompile(`\bnon[- ]?veg`)
	reVeg           = regexp.MustCompile(`\bveg( |$)`)

	// Ordered by specificity: bounded phrasings first, bare amounts last.
	pricePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:under|below|less than|max(?:imum)?|upto|up to)\s*₹?\s*(\d{2,4})`),
		regexp.MustCompile(`(?:within|budget of|spend)\s*₹?\s*(\d{2,4})`),
		regexp.MustCompile(`₹\s*(\d{2,4})`),
		regexp.MustCompile(`(\d{2,4})\s*(?:rs|rupees|bucks|₹)`),
	}
)

// fallbackExtract is the rule-based extractor used when the model call
// fails. It only ever fills slots it can read directly off the text.
func fallbackExtract(message string) slots.Delta {
	var d slots.Delta
	txt := strings.ToLower(message)

	switch {
	case reNoRestriction.MatchString(txt):
		// "No restrictions" is the widest diet, not an unset slot.
		d.Dietary = strp("nonveg")
	case reNonVeg.MatchString(txt):
		d.Dietary = strp("nonveg")
	case strings.Contains(txt, "vegan"):
		d.Dietary = strp("vegan")
	case reVeg.MatchString(txt):
		d.Dietary = strp("veg")
	}

	var found []string
	for _, c := range Cuisines {
		if strings.Contains(txt, c) {
			found = append(found, c)
		}
		if len(found) >= 2 {
			break
		}
	}
	if len(found) > 0 {
		d.Cuisine1 = strp(found[0])
	}
	if len(found) > 1 {
		d.Cuisine2 = strp(found[1])
	}

scan:
	for _, meal := range []string{"breakfast", "lunch", "dinner", "snacks"} {
		for _, w := range slots.MealKeywords[meal] {
			if strings.Contains(txt, w) {
				d.MealType = strp(meal)
				break scan
			}
		}
	}
	if d.MealType == nil {
		if meal, ok := nearestMeal(txt); ok {
			d.MealType = strp(meal)
		}
	}

	for _, pat := range pricePatterns {
		m := pat.FindStringSubmatch(txt)
		if m == nil {
			continue
		}
		val, err := strconv.Atoi(m[1])
		if err == nil && val >= slots.MinPrice && val <= slots.MaxPrice {
			d.Price = &val
			break
		}
	}

	return d
}

// mealMatchCutoff is the minimum similarity for a misspelled word to
// count as a meal keyword.
const mealMatchCutoff = 0.75

// nearestMeal catches misspelled meal words ("brekfast", "dinnner") by
// comparing each token against the meal keywords and keeping the closest
// one above the cutoff.
func nearestMeal(txt string) (string, bool) {
	var (
		best      string
		bestScore float64
	)
	for _, tok := range strings.FieldsFunc(txt, func(r rune) bool {
		return r < 'a' || r > 'z'
	}) {
		if len(tok) < 4 {
			continue
		}
		for _, meal := range []string{"breakfast", "lunch", "dinner", "snacks"} {
			for _, w := range slots.MealKeywords[meal] {
				if score := similarity(tok, w); score >= mealMatchCutoff && score > bestScore {
					best, bestScore = meal, score
				}
			}
		}
	}
	return best, best != ""
}

// similarity is a normalized edit-distance ratio in [0, 1], where 1 means
// the strings are identical.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	total := len(a) + len(b)
	if total == 0 {
		return 1
	}
	return float64(total-2*editDistance(a, b)) / float64(total)
}

// editDistance counts single-character edits, with adjacent
// transpositions ("lunhc") costing one edit like any other typo.
func editDistance(a, b string) int {
	prev2 := make([]int, len(b)+1)
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
			if i > 1 && j > 1 && a[i-1] == b[j-2] && a[i-2] == b[j-1] {
				cur[j] = min(cur[j], prev2[j-2]+1)
			}
		}
		prev2, prev, cur = prev, cur, prev2
	}
	return prev[len(b)]
}

func strp(s string) *string { return &s }
