package catalog

import (
	"sort"
	"strings"
)

// productAliases maps colloquial Hindi/Hinglish terms onto the canonical
// English names shop catalogs use.
var productAliases = map[string]string{
	// Grains
	"chawal":  "rice",
	"basmati": "rice",
	"atta":    "wheat flour",
	"gehu":    "wheat",
	"maida":   "refined flour",
	"besan":   "gram flour",
	"suji":    "semolina",
	"rava":    "semolina",
	"poha":    "flattened rice",
	"daliya":  "broken wheat",

	// Pulses
	"dal":    "lentils",
	"chana":  "chickpeas",
	"rajma":  "kidney beans",
	"moong":  "green gram",
	"urad":   "black gram",
	"masoor": "red lentils",
	"toor":   "pigeon peas",
	"arhar":  "pigeon peas",

	// Oils
	"tel":       "oil",
	"sarso":     "mustard oil",
	"sunflower": "sunflower oil",
	"groundnut": "groundnut oil",
	"mungfali":  "groundnut oil",
	"refined":   "refined oil",

	// Dairy
	"doodh":  "milk",
	"dahi":   "curd",
	"paneer": "cottage cheese",
	"ghee":   "clarified butter",
	"makhan": "butter",

	// Spices
	"namak":   "salt",
	"cheeni":  "sugar",
	"shakkar": "sugar",
	"mirch":   "chili",
	"haldi":   "turmeric",
	"jeera":   "cumin",
	"dhania":  "coriander",

	// Vegetables
	"aloo":    "potato",
	"pyaz":    "onion",
	"tamatar": "tomato",
	"baingan": "eggplant",
	"bhindi":  "okra",
	"gobhi":   "cauliflower",
	"palak":   "spinach",
	"matar":   "peas",
}

// sortedAliases gives a stable substitution order; map iteration would make
// multi-alias names normalize differently run to run.
var sortedAliases = func() []string {
	keys := make([]string, 0, len(productAliases))
	for k := range productAliases {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}()

// NormalizeName maps a requested product name through the alias table.
// A containment hit in either direction triggers substitution, and the
// function is idempotent: a name already carrying the canonical term is
// left alone.
func NormalizeName(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := productAliases[lowered]; ok {
		return canonical
	}
	for _, alias := range sortedAliases {
		canonical := productAliases[alias]
		if strings.Contains(lowered, canonical) {
			continue
		}
		if strings.Contains(lowered, alias) {
			return strings.ReplaceAll(lowered, alias, canonical)
		}
		// Reverse containment ("mung" inside "mungfali") needs a few
		// characters of signal before it is trusted.
		if len(lowered) >= 4 && strings.Contains(alias, lowered) {
			return canonical
		}
	}
	return lowered
}
