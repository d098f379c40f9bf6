// Package document defines the retrievable menu-item record.
package document

// Metadata is the structured menu-item attributes stored alongside each
// document.
type Metadata struct {
	Food       string  `json:"food"`
	Restaurant string  `json:"restaurant"`
	Cuisine1   string  `json:"cuisine_1"`
	Cuisine2   string  `json:"cuisine_2,omitempty"`
	Dietary    string  `json:"dietary"`
	FoodRating float64 `json:"f_rating"`
	RestRating float64 `json:"r_rating,omitempty"`
	Price      float64 `json:"f_price"`
	Label      string  `json:"label,omitempty"`
	Popularity float64 `json:"popularity,omitempty"`
	Location   string  `json:"location,omitempty"`
}

// Document is a single retrieved menu item: its identity, the text the
// vectors were built from, and the structured metadata.
type Document struct {
	ID      string   `json:"id"`
	Content string   `json:"content"`
	Meta    Metadata `json:"metadata"`
}

// Lookup builds a doc-id index over a result set. Used to re-attach
// original metadata to reranked entries.
func Lookup(docs []Document) map[string]Document {
	idx := make(map[string]Document, len(docs))
	for _, d := range docs {
		idx[d.ID] = d
	}
	return idx
}
