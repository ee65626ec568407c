package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/storestorm/intake/pkg/providers/mock"
)

func TestStripFences(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"```json\n[1,2]\n```", "[1,2]"},
		{"```\n{\"a\":1}\n```", "{\"a\":1}"},
		{"[1,2]", "[1,2]"},
		{"  ```json\n[]\n```  ", "[]"},
	}
	for _, c := range cases {
		if got := StripFences(c.in); got != c.want {
			t.Fatalf("StripFences(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestExtractTextParsesItems(t *testing.T) {
	adapter := mock.NewLLMAdapter("```json\n[" +
		`{"raw": "2 kg chawal", "product": "Rice", "quantity": 2, "unit": "kg"},` +
		`{"raw": "oil", "product": "oil"}` +
		"]\n```")
	e := NewExtractor(adapter, nil)

	items := e.ExtractText(context.Background(), "2 kg chawal aur oil")
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].ProductName != "rice" || items[0].Quantity != 2 || items[0].Unit != "kg" {
		t.Fatalf("unexpected first item: %+v", items[0])
	}
	// Missing quantity and unit fall back to 1 pcs.
	if items[1].Quantity != 1 || items[1].Unit != "pcs" {
		t.Fatalf("expected defaults for second item, got %+v", items[1])
	}
}

func TestExtractTextAcceptsQuotedQuantities(t *testing.T) {
	adapter := mock.NewLLMAdapter("[" +
		`{"raw": "2 kg chawal", "product": "rice", "quantity": "2", "unit": "kg"},` +
		`{"raw": "aadha kilo cheeni", "product": "sugar", "quantity": "0.5", "unit": "kg"},` +
		`{"raw": "oil", "product": "oil", "quantity": "do", "unit": "liter"}` +
		"]")
	e := NewExtractor(adapter, nil)

	items := e.ExtractText(context.Background(), "chawal cheeni oil")
	if len(items) != 3 {
		t.Fatalf("string-typed quantity must not discard the turn, got %d items", len(items))
	}
	if items[0].Quantity != 2 || items[1].Quantity != 0.5 {
		t.Fatalf("quoted quantities not coerced: %+v", items[:2])
	}
	// A non-numeric quantity falls back to 1 instead of failing the item.
	if items[2].Quantity != 1 {
		t.Fatalf("expected fallback quantity 1, got %+v", items[2])
	}
}

func TestExtractTextErrorObjectMeansNoItems(t *testing.T) {
	adapter := mock.NewLLMAdapter(`{"error": "not_an_order", "message": "Could not understand the order"}`)
	e := NewExtractor(adapter, nil)

	if items := e.ExtractText(context.Background(), "hello how are you"); items != nil {
		t.Fatalf("expected nil items for a non-order, got %+v", items)
	}
}

func TestExtractTextMalformedReplyMeansNoItems(t *testing.T) {
	adapter := mock.NewLLMAdapter("sure, here is your order: rice")
	e := NewExtractor(adapter, nil)

	if items := e.ExtractText(context.Background(), "2 kg rice"); items != nil {
		t.Fatalf("expected nil items for malformed reply, got %+v", items)
	}
}

func TestExtractTextProviderFailureMeansNoItems(t *testing.T) {
	adapter := mock.NewFailingLLMAdapter(errors.New("upstream 502"))
	e := NewExtractor(adapter, nil)

	if items := e.ExtractText(context.Background(), "2 kg rice"); items != nil {
		t.Fatalf("expected nil items on provider failure, got %+v", items)
	}
}

func TestExtractTextSkipsBlankInput(t *testing.T) {
	adapter := mock.NewLLMAdapter()
	e := NewExtractor(adapter, nil)

	if items := e.ExtractText(context.Background(), "   "); items != nil {
		t.Fatalf("expected nil items for blank input, got %+v", items)
	}
	if calls := adapter.Calls(); len(calls) != 0 {
		t.Fatalf("blank input must not reach the provider, got %d calls", len(calls))
	}
}

func TestExtractImageCarriesPayload(t *testing.T) {
	adapter := mock.NewLLMAdapter(`[{"raw": "1 kg sugar", "product": "sugar", "quantity": 1, "unit": "kg"}]`)
	e := NewExtractor(adapter, nil)

	items := e.ExtractImage(context.Background(), []byte{0xff, 0xd8, 0xff}, "image/jpeg")
	if len(items) != 1 || items[0].ProductName != "sugar" {
		t.Fatalf("unexpected items: %+v", items)
	}
	calls := adapter.Calls()
	if len(calls) != 1 || calls[0].ImageB64 == "" || calls[0].ImageMime != "image/jpeg" {
		t.Fatalf("expected image payload on the request, got %+v", calls)
	}
	if calls[0].Temperature != visionTemperature {
		t.Fatalf("expected vision temperature, got %v", calls[0].Temperature)
	}
}
