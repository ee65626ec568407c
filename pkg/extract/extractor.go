package extract

import (
	"context"
	"encoding/base64"
	"log/slog"
	"strings"

	"github.com/storestorm/intake/pkg/errorsx"
	"github.com/storestorm/intake/pkg/intake"
	"github.com/storestorm/intake/pkg/llm"
)

const (
	textTemperature   = 0.5
	visionTemperature = 0.3
)

// Extractor turns raw utterances and shopping-list photos into parsed items
// via a single model call. Every failure mode collapses to "zero items": the
// conversation reprompts instead of surfacing an error to the caller.
type Extractor struct {
	adapter llm.Adapter
	log     *slog.Logger
}

func NewExtractor(adapter llm.Adapter, log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{adapter: adapter, log: log}
}

func (e *Extractor) ExtractText(ctx context.Context, text string) []intake.ParsedItem {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return e.extract(ctx, llm.Request{
		Prompt:      TextPrompt(text),
		Temperature: textTemperature,
	})
}

func (e *Extractor) ExtractImage(ctx context.Context, data []byte, mime string) []intake.ParsedItem {
	if len(data) == 0 {
		return nil
	}
	if mime == "" {
		mime = "image/jpeg"
	}
	return e.extract(ctx, llm.Request{
		Prompt:      ImagePrompt(),
		ImageB64:    base64.StdEncoding.EncodeToString(data),
		ImageMime:   mime,
		Temperature: visionTemperature,
	})
}

func (e *Extractor) extract(ctx context.Context, req llm.Request) []intake.ParsedItem {
	resp, err := e.adapter.Generate(ctx, req)
	if err != nil {
		err = errorsx.Wrap(err, errorsx.ReasonLLMGenerate)
		e.log.Error("extract_generate_failed",
			"provider", e.adapter.Name(),
			"reason_code", string(errorsx.Reason(err)),
			"error", err.Error())
		return nil
	}

	raw, ok := decodeItems(resp.Text)
	if !ok {
		e.log.Warn("extract_parse_failed",
			"provider", e.adapter.Name(),
			"reason_code", string(errorsx.ReasonExtractParse),
			"preview", preview(resp.Text))
		return nil
	}

	items := make([]intake.ParsedItem, 0, len(raw))
	for _, ri := range raw {
		item, ok := toParsedItem(ri)
		if !ok {
			continue
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return nil
	}
	return items
}

func toParsedItem(ri rawItem) (intake.ParsedItem, bool) {
	name := strings.TrimSpace(ri.Product)
	if name == "" {
		return intake.ParsedItem{}, false
	}
	qty := 1.0
	if f := float64(ri.Quantity); f > 0 {
		qty = f
	}
	unit := strings.TrimSpace(ri.Unit)
	if unit == "" {
		unit = "pcs"
	}
	raw := strings.TrimSpace(ri.Raw)
	if raw == "" {
		raw = name
	}
	return intake.ParsedItem{
		RawText:     raw,
		ProductName: strings.ToLower(name),
		Quantity:    qty,
		Unit:        unit,
	}, true
}

func preview(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 120 {
		return s[:120] + "..."
	}
	return s
}

var _ intake.Extractor = (*Extractor)(nil)
