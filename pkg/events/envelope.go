package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const envelopeVersion = 1

// PayloadEnvelope is the stable wire shape for relayed domain events.
type PayloadEnvelope struct {
	Version       int             `json:"version"`
	EventID       string          `json:"eventId"`
	EventType     string          `json:"eventType"`
	AggregateType string          `json:"aggregateType"`
	AggregateID   string          `json:"aggregateId"`
	OccurredAt    time.Time       `json:"occurredAt"`
	Actor         *ActorRef       `json:"actor,omitempty"`
	Data          json.RawMessage `json:"data"`
}

func NewEnvelope(evt DomainEvent) (PayloadEnvelope, error) {
	if evt.Type == "" {
		return PayloadEnvelope{}, fmt.Errorf("event type is required")
	}
	data, err := json.Marshal(evt.Data)
	if err != nil {
		return PayloadEnvelope{}, fmt.Errorf("marshal %s payload: %w", evt.Type, err)
	}
	return PayloadEnvelope{
		Version:       envelopeVersion,
		EventID:       uuid.NewString(),
		EventType:     evt.Type,
		AggregateType: evt.AggregateType,
		AggregateID:   evt.AggregateID.String(),
		OccurredAt:    evt.OccurredAt.UTC(),
		Actor:         evt.Actor,
		Data:          data,
	}, nil
}
