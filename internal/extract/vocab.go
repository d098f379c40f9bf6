package extract

// Cuisines is the recognized cuisine vocabulary, in scan order. The
// fallback extractor takes the first two distinct substring hits.
var Cuisines = []string{
	"pizzas", "bakery", "indian", "fast food", "chaat", "beverages", "desserts",
	"chinese", "north indian", "tandoor", "american", "thalis", "snacks",
	"south indian", "italian", "street food", "kebabs", "biryani", "salads",
	"pastas", "continental", "bengali", "burgers", "ice cream", "tibetan", "thai",
	"hyderabadi", "sweets", "lebanese", "nepalese", "mughlai", "lucknowi",
	"healthy food", "afghani", "asian", "combo", "seafood", "waffle",
	"italian-american", "punjabi", "arabian", "barbecue", "mexican",
	"ice cream cakes", "gujarati", "juices", "jain", "pan-asian", "rajasthani",
	"mediterranean", "burmese", "oriental", "maharashtrian", "kerala", "home food",
	"indonesian", "middle eastern", "grill", "japanese", "paan", "greek",
	"chettinad", "coastal", "andhra", "turkish", "african", "tex-mex",
	"oriya", "british", "mangalorean", "bihari", "keto", "european", "malaysian",
	"north eastern", "sushi", "french", "korean", "portuguese", "naga", "assamese",
	"steakhouse",
}
