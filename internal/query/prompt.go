package query

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/palate-labs/palate/internal/domain/foodfilter"
	"github.com/palate-labs/palate/internal/domain/slots"
	"github.com/palate-labs/palate/internal/session"
)

// refinementPrompt asks the model to restructure the accumulated
// preferences into one final query and filter, with explicit price rules.
func refinementPrompt(baseQuery string, baseFilter foodfilter.Expression, prefs slots.Slots, history []session.Turn) string {
	var lines []string
	for _, turn := range history {
		updated, _ := json.Marshal(turn.SlotsUpdated)
		lines = append(lines,
			"User: "+turn.UserMessage,
			"System: "+turn.Response,
			"Slots Updated: "+string(updated),
			"---",
		)
	}
	historyText := "No previous conversation"
	if len(lines) > 0 {
		historyText = strings.Join(lines, "\n")
	}

	filled, _ := json.MarshalIndent(filledStrings(prefs), "", "  ")
	filterJSON, _ := json.MarshalIndent(baseFilter, "", "  ")

	return fmt.Sprintf(`You are a food search query refinement expert that structures user preferences into optimized search queries.

Your goal is to structure the user's overall food preferences from conversation history into the request schema provided below.

<< Structured Request Schema >>

When responding use a markdown code snippet with a JSON object formatted in the following schema:

{
"query": "string", // text string to compare with document contents
"filter": "object | NO_FILTER" // a Chroma-compatible JSON filter or "NO_FILTER"
}

The query should only include keywords relevant to matching the content of documents. Filter conditions should only be included in the "filter" field and not repeated in the query.

<< CONVERSATION CONTEXT >>

**Conversation History:**
%s

**Current Filled Slots:**
%s

**Base Query Generated:** "%s"
**Base Filter Generated:** %s

<< REFINEMENT TASK >>

Analyze the ENTIRE conversation to understand user's final food preferences and create an optimized query and filter.

<< CRITICAL PRICE HANDLING RULES >>

1. **Strict conditions** ("under 300", "below 250", "maximum 400", "strictly under"):
   - Use exact upper limit: {"f_price": {"$lte": AMOUNT}}

2. **Approximate conditions** ("about 300", "around 250", "roughly 400"):
   - Use 15%% variance: {"$and": [{"f_price": {"$gte": AMOUNT*0.85}}, {"f_price": {"$lte": AMOUNT*1.15}}]}

3. **Range conditions** ("between 200 and 400"):
   - Use exact range: {"$and": [{"f_price": {"$gte": 200}}, {"f_price": {"$lte": 400}}]}

<< QUERY REFINEMENT RULES >>

- Remove duplicate terms (e.g., "biryani biryani" becomes "biryani")
- Combine related food terms intelligently (e.g., "dum biriyani" should be "dum biryani")
- Include flavor/style descriptors mentioned by user
- Keep cuisine and item_name terms prominent
- Focus on the user's FINAL food preference from conversation

<< FILTER ENHANCEMENT RULES >>

- Use ChromaDB compatible syntax with proper operators
- Handle multiple conditions with $and/$or as needed
- Use only attribute names that exist in the data source
- If no filters needed, return "NO_FILTER"

<< DATA SOURCE ATTRIBUTES >>

Available filter attributes:
- **dietary**: "veg", "nonveg", "vegan"
- **cuisine_1**, **cuisine_2**: cuisine types
- **f_price**: integer price in INR
- **f_rating**: float rating 0-5
- **location**: city names
- **label**: "bestseller", "must try", "spicy", etc.

<< EXAMPLES >>

**Example 1 - Conversation Leading to Biryani:**
History shows: User wants biryani, specifies nonveg, mentions under 400, updates to dum biryani

{
  "query": "dum biryani",
  "filter": {
    "$and": [
      {"dietary": {"$eq": "nonveg"}},
      {"f_price": {"$lte": 400}},
      {"$or": [
        {"cuisine_1": {"$eq": "biryani"}},
        {"cuisine_2": {"$eq": "biryani"}}
      ]}
    ]
  }
}

**Example 2 - Approximate Price:**
User mentions "about 300 rupees for pizza"

{
  "query": "pizza",
  "filter": {
    "$and": [
      {"$and": [
        {"f_price": {"$gte": 255}},
        {"f_price": {"$lte": 345}}
        ]},
      {"$or": [
        {"cuisine_1": {"$eq": "pizzas"}},
        {"cuisine_2": {"$eq": "pizzas"}}
      ]}
    ]
  }
}

**Example 3 - No Filter Needed:**
User just wants "general food recommendations"

{
  "query": "food recommendations",
  "filter": "NO_FILTER"
}

<< CRITICAL INSTRUCTIONS >>

1. Analyze the COMPLETE conversation flow to understand final user intent
2. Create ONE optimized query representing their final food choice
3. Build ONE comprehensive filter covering all their requirements
4. Remove query duplications and combine intelligently
5. Use proper ChromaDB filter syntax with correct operators
6. Return ONLY the JSON structure requested

Focus on the user's FINAL preferences after all conversation turns!`,
		historyText, filled, baseQuery, filterJSON)
}

func filledStrings(prefs slots.Slots) map[string]any {
	out := make(map[string]any)
	for k, v := range prefs.Filled() {
		out[string(k)] = v
	}
	return out
}
