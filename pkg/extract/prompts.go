package extract

import (
	"fmt"
	"strings"
)

const extractItemsPrompt = `You are an AI assistant for a grocery store in India.
Parse the customer's order request and extract individual items.

RULES:
1. Extract product name, quantity, and unit for each item
2. Common units: kg, g, liter, ml, pcs, dozen, packet, bottle
3. If no quantity specified, assume 1
4. If no unit specified, assume "pcs" (pieces)
5. Normalize Hindi/Hinglish to English product names
6. Handle common variations (chawal=rice, atta=flour, tel=oil)

CUSTOMER INPUT:
%s

Respond with a JSON array of items:
` + "```json" + `
[
  {"raw": "2 kg rice", "product": "rice", "quantity": 2, "unit": "kg"},
  {"raw": "1 liter oil", "product": "oil", "quantity": 1, "unit": "liter"}
]
` + "```" + `

If input is unclear or not an order, respond:
` + "```json" + `
{"error": "not_an_order", "message": "Could not understand the order"}
` + "```" + `
`

const imageOrderPrompt = `You are an AI assistant for a grocery store in India.
Analyze this shopping list image and extract the items.

For each item found, identify:
- Product name (normalize to common names like rice, oil, sugar, dal)
- Quantity (number)
- Unit (kg, liter, pcs, g, ml)

Respond ONLY with a JSON array:
` + "```json" + `
[
  {"raw": "original text", "product": "product name", "quantity": 2, "unit": "kg"},
  ...
]
` + "```" + `

If you cannot read the image or find no items, return:
` + "```json" + `
{"error": "Could not parse image"}
` + "```" + `
`

// TextPrompt renders the item extraction prompt for a single utterance.
func TextPrompt(userInput string) string {
	return fmt.Sprintf(extractItemsPrompt, strings.TrimSpace(userInput))
}

// ImagePrompt is the vision prompt for shopping-list photos. It takes no
// input; the image travels alongside it in the request.
func ImagePrompt() string {
	return imageOrderPrompt
}
