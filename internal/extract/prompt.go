package extract

import (
	"encoding/json"
	"fmt"
	"strings"
)

// extractionPrompt builds the slot-and-intent extraction prompt around the
// user message and the currently filled slots.
func extractionPrompt(message string, filled map[string]any) string {
	ctx, _ := json.Marshal(filled)
	if filled == nil {
		ctx = []byte("{}")
	}
	return fmt.Sprintf(`Extract food preferences from this message and determine user intent based on previous context.

SLOT & INTENT EXTRACTION RULES

GENERAL PRINCIPLES:
Only extract values IN THE USER'S CURRENT MESSAGE; never infer, assume, or generalize.
Never use "any," "all," "whatever," etc. for any slot. If user expressly declines to specify ("no preference," "anything is fine"), extract null for that slot.
For all slot updates, update ONLY what is stated, ignore or null the rest.
Always output a single valid JSON.

Extract these slots:
- dietary: "veg", "nonveg", "vegan", or null
- cuisine_1: specific cuisine type from AVAILABLE_CUISINES mentioned or closely relatable by user, or null
- cuisine_2: second cuisine type from AVAILABLE_CUISINES that differs from cuisine_1, for multi cuisine requests, or null
- item_name: specific food dish mentioned (biryani, tikka biryani, strawberry icecream, etc.), or null
- price: numerical price or budget, or null
- meal_type: "breakfast", "lunch", "dinner", "snacks", or null
- label: "bestseller", "spicy", "sweet", "dairy free", etc., or null
- fill dietary slot without explicit mention if item_name implies it (e.g., "paneer" = veg, "chicken" or mutton = nonveg)

INTENT DETECTION:
- slot_updation: Use ONLY if the user's message adds/subtracts detail but does NOT imply a complete change (same dish/cuisine family, or explicit elaboration). Null slots not changed by user message.
- new_query: Trigger if user asks for a different food, especially with language like "now I want," "instead," "change to," or via a clear course switch (main to dessert, main to drink etc.), or if cuisine switches from current to another category. Clear all previous values except those directly called for in the new message and fill slots based on current message only.

EDGE CASE RULES:
- If user names a food item/dish or cuisine that does not match present context, trigger new_query.
- Course switches (e.g., from main to dessert/drink) or explicit "now/instead/change to" language must trigger new_query.
- If user gives a partial refinement (e.g., "under 400"), only fill the price slot, null for others.

Current preferences: %s
User message: "%s"

AVAILABLE_CUISINES = [%s]

---
RESPOND IN THIS EXACT JSON FORMAT:
{
 "user_intent": "slot_updation" or "new_query",
 "dietary": "specific value or null",
 "cuisine_1": "specific value or null",
 "cuisine_2": "specific value or null",
 "item_name": "specific value or null",
 "price": number or null,
 "meal_type": "specific value or null",
 "label": "specific value or null"
}

EXAMPLES:

Example 1 - slot_updation with context preservation:
Previous slots: {"dietary": "vegan", "cuisine_1": "ice cream", "item_name": "ice cream", "price": null}
User message: "under 400"
Response:
{"user_intent": "slot_updation", "dietary": null, "cuisine_1": null, "cuisine_2": null, "item_name": null, "price": 400, "meal_type": null, "label": null}

Example 2 - new_query clears everything:
Previous slots: {"dietary": "veg", "cuisine_1": "ice cream", "item_name": "peach ice cream", "price": 400}
User message: "actually, now I want paneer biryani"
Response:
{"user_intent": "new_query", "dietary": "veg", "cuisine_1": "biryani", "cuisine_2": null, "item_name": "paneer biryani", "price": null, "meal_type": null, "label": null}

Example 3 - implied dietary and label:
Previous slots: {}
User message: "i want something like spicy chicken burger"
Response:
{"user_intent": "slot_updation", "dietary": "nonveg", "cuisine_1": "burgers", "cuisine_2": null, "item_name": "chicken burger", "price": null, "meal_type": null, "label": "spicy"}
`, ctx, message, quotedCuisines())
}

func quotedCuisines() string {
	quoted := make([]string, len(Cuisines))
	for i, c := range Cuisines {
		quoted[i] = `"` + c + `"`
	}
	return strings.Join(quoted, ", ")
}
