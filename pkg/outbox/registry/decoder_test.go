package registry

import (
	"encoding/json"
	"testing"

	"github.com/angelmondragon/quotation-engine/pkg/enums"
	"github.com/angelmondragon/quotation-engine/pkg/outbox/payloads"
)

func TestQuoteDecoders(t *testing.T) {
	reg := NewQuoteDecoders()

	out, err := reg.Decode(enums.EventQuoteRejected, payloads.Version, json.RawMessage(`{"status":"rejected","reason":"too high"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	decided, ok := out.(*payloads.QuoteDecidedEvent)
	if !ok || decided.Status != enums.QuoteStatusRejected || decided.Reason == nil || *decided.Reason != "too high" {
		t.Fatalf("unexpected output %+v", out)
	}

	if _, err := reg.Decode(enums.EventQuoteSubmitted, 2, json.RawMessage(`{}`)); err == nil {
		t.Fatal("expected error for unregistered version")
	}
	if _, err := reg.Decode(enums.EventQuoteSubmitted, payloads.Version, json.RawMessage(`{`)); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}

func TestCustomDecoder(t *testing.T) {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventQuoteAccepted, 1, func(payload json.RawMessage) (any, error) {
		var decoded map[string]string
		if err := json.Unmarshal(payload, &decoded); err != nil {
			return nil, err
		}
		return decoded, nil
	})

	output, err := reg.Decode(enums.EventQuoteAccepted, 1, json.RawMessage(`{"status":"accepted"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outMap, ok := output.(map[string]string); !ok || outMap["status"] != "accepted" {
		t.Fatalf("unexpected output %+v", output)
	}
}
