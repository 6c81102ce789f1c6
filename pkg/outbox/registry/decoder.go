package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/angelmondragon/quotation-engine/pkg/enums"
	"github.com/angelmondragon/quotation-engine/pkg/outbox/payloads"
)

// DecoderFunc turns an envelope's data into a typed payload.
type DecoderFunc func(payload json.RawMessage) (any, error)

type registryKey struct {
	eventType enums.OutboxEventType
	version   int
}

// DecoderRegistry stores versioned payload decoders for consumers.
type DecoderRegistry struct {
	mtx      sync.RWMutex
	registry map[registryKey]DecoderFunc
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{registry: make(map[registryKey]DecoderFunc)}
}

// NewQuoteDecoders returns a registry that knows every quote event at the current version.
func NewQuoteDecoders() *DecoderRegistry {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventQuoteSubmitted, payloads.Version, decodeInto[payloads.QuoteSubmittedEvent])
	reg.Register(enums.EventQuoteAccepted, payloads.Version, decodeInto[payloads.QuoteDecidedEvent])
	reg.Register(enums.EventQuoteRejected, payloads.Version, decodeInto[payloads.QuoteDecidedEvent])
	return reg
}

func decodeInto[T any](payload json.RawMessage) (any, error) {
	var out T
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decoder DecoderFunc) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.registry[registryKey{eventType: eventType, version: version}] = decoder
}

// Decode runs the decoder registered for the event type and version.
func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (any, error) {
	r.mtx.RLock()
	decoder, ok := r.registry[registryKey{eventType: eventType, version: version}]
	r.mtx.RUnlock()
	if !ok {
		return nil, fmt.Errorf("decoder not registered for %s@v%d", eventType, version)
	}
	return decoder(payload)
}
