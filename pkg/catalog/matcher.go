package catalog

import (
	"context"
	"log/slog"

	"github.com/storestorm/intake/pkg/errorsx"
	"github.com/storestorm/intake/pkg/intake"
)

// DefaultThreshold is the minimum winning score for a match to stand.
const DefaultThreshold = 0.6

// categoryWeight scales category hits below direct name hits so that a
// generic request ("cooking oil" against category "Oils") can still match
// without outranking a real name match.
const categoryWeight = 0.8

// Matcher resolves parsed items against a shop's product snapshot.
type Matcher struct {
	store     Store
	threshold float64
	log       *slog.Logger
}

func NewMatcher(store Store, log *slog.Logger) *Matcher {
	if log == nil {
		log = slog.Default()
	}
	return &Matcher{store: store, threshold: DefaultThreshold, log: log}
}

// SetThreshold overrides the acceptance threshold.
func (m *Matcher) SetThreshold(t float64) {
	if t > 0 && t <= 1 {
		m.threshold = t
	}
}

// Match scores every item against the shop snapshot, fetched once per call.
// Every input item lands in exactly one of the returned slices; unmatched
// items keep their best score in Confidence for diagnostics. A snapshot
// fetch failure degrades to "nothing matches" rather than an error.
func (m *Matcher) Match(ctx context.Context, items []intake.ParsedItem, shopID string) ([]intake.ParsedItem, []intake.ParsedItem) {
	snapshot, err := m.store.Products(ctx, shopID)
	if err != nil {
		err = errorsx.Wrap(err, errorsx.ReasonCatalogFetch)
		m.log.Error("catalog_fetch_failed", "shop_id", shopID, "reason_code", string(errorsx.Reason(err)), "error", err.Error())
		snapshot = nil
	}
	if len(snapshot) == 0 {
		unmatched := make([]intake.ParsedItem, len(items))
		copy(unmatched, items)
		return nil, unmatched
	}

	var matched, unmatched []intake.ParsedItem
	for _, item := range items {
		scored := m.matchOne(item, snapshot)
		if scored.Matched {
			matched = append(matched, scored)
		} else {
			unmatched = append(unmatched, scored)
		}
	}
	return matched, unmatched
}

func (m *Matcher) matchOne(item intake.ParsedItem, snapshot []Entry) intake.ParsedItem {
	normalized := NormalizeName(item.ProductName)

	var best *Entry
	bestScore := 0.0
	// First encountered wins on equal scores; snapshot order is the
	// store's iteration order.
	for i := range snapshot {
		entry := &snapshot[i]
		score := Score(normalized, entry.Name)
		if catScore := Score(normalized, entry.Category) * categoryWeight; catScore > score {
			score = catScore
		}
		if score > bestScore {
			bestScore = score
			best = entry
		}
	}

	item.Confidence = bestScore
	if best != nil && bestScore >= m.threshold {
		item.Matched = true
		item.ProductID = best.ID
		item.MatchedName = best.Name
		item.Price = best.Price
	} else {
		item.Matched = false
		item.ProductID = ""
		item.MatchedName = ""
		item.Price = 0
	}
	return item
}

var _ intake.Matcher = (*Matcher)(nil)
