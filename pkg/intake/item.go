package intake

// ParsedItem is one order line extracted from raw customer input. The
// extractor fills the first four fields; the catalog matcher sets the rest
// exactly once. Items are never mutated after matching.
type ParsedItem struct {
	RawText     string
	ProductName string
	Quantity    float64
	Unit        string

	Matched     bool
	ProductID   string
	MatchedName string
	Price       float64
	// Confidence keeps the best catalog score even for unmatched items.
	Confidence float64
}

// DisplayName prefers the canonical catalog name once matched.
func (p ParsedItem) DisplayName() string {
	if p.MatchedName != "" {
		return p.MatchedName
	}
	return p.ProductName
}

// LineTotal is price times quantity; zero for unmatched items.
func (p ParsedItem) LineTotal() float64 {
	if !p.Matched {
		return 0
	}
	return p.Price * p.Quantity
}
