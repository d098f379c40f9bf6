package query

// cuisineSynonyms expands a cuisine preference into every stored variant,
// so "chinese" also matches items tagged asian or oriental. Keys are
// lowercase; unmapped cuisines pass through as themselves.
var cuisineSynonyms = map[string][]string{
	"beverages":      {"beverages", "juices"},
	"chinese":        {"chinese", "asian", "pan-asian", "oriental"},
	"indian":         {"indian", "north indian", "south indian", "bengali", "punjabi", "mughlai", "lucknowi", "gujarati", "rajasthani", "maharashtrian", "kerala", "andhra", "chettinad", "hyderabadi", "bihari", "oriya", "mangalorean", "north eastern", "naga", "assamese", "jain"},
	"thai":           {"thai"},
	"italian":        {"italian", "italian-american"},
	"mexican":        {"mexican", "tex-mex"},
	"japanese":       {"japanese", "sushi"},
	"korean":         {"korean"},
	"french":         {"french"},
	"american":       {"american"},
	"continental":    {"continental", "european"},
	"fast food":      {"fast food"},
	"healthy food":   {"healthy food", "keto"},
	"desserts":       {"desserts", "sweets", "ice cream", "ice cream cakes"},
	"bakery":         {"bakery", "waffle"},
	"snacks":         {"snacks", "chaat", "paan"},
	"biryani":        {"biryani", "biryani - shivaji military hotel"},
	"pizzas":         {"pizzas"},
	"pastas":         {"pastas"},
	"burgers":        {"burgers"},
	"salads":         {"salads"},
	"seafood":        {"seafood", "coastal"},
	"tandoor":        {"tandoor", "kebabs", "grill"},
	"street food":    {"street food", "svanidhi street food vendor"},
	"thalis":         {"thalis"},
	"combo":          {"combo"},
	"middle eastern": {"middle eastern", "arabian", "lebanese", "turkish", "afghani"},
	"nepalese":       {"nepalese"},
	"tibetan":        {"tibetan"},
	"mediterranean":  {"mediterranean", "greek"},
	"burmese":        {"burmese"},
	"indonesian":     {"indonesian"},
	"malaysian":      {"malaysian"},
	"barbecue":       {"barbecue", "steakhouse"},
	"british":        {"british"},
	"portuguese":     {"portuguese"},
	"african":        {"african"},
	"home food":      {"home food"},
	"cafe":           {"cafe"},
}

// expandCuisine returns the stored variants for a cuisine, defaulting to
// the cuisine itself.
func expandCuisine(cuisine string) []string {
	if variants, ok := cuisineSynonyms[cuisine]; ok {
		return variants
	}
	return []string{cuisine}
}
