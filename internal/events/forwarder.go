package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aim-injury/aim-intake/internal/aimos"
)

// EventSender is the part of the AIM OS client the forwarder needs.
type EventSender interface {
	SendEvent(ctx context.Context, evt aimos.Event) (aimos.Status, error)
}

// AIMOSForwarder delivers queued outbox rows to AIM OS.
type AIMOSForwarder struct {
	client EventSender
}

func NewAIMOSForwarder(client EventSender) *AIMOSForwarder {
	return &AIMOSForwarder{client: client}
}

func (f *AIMOSForwarder) Handle(ctx context.Context, entry OutboxEntry) error {
	if entry.Type != OutboxTypeAIMOSEvent {
		return fmt.Errorf("events: unsupported outbox type %q", entry.Type)
	}
	var evt aimos.Event
	if err := json.Unmarshal(entry.Payload, &evt); err != nil {
		return fmt.Errorf("events: decode aimos event: %w", err)
	}
	if _, err := f.client.SendEvent(ctx, evt); err != nil {
		return fmt.Errorf("events: forward %s: %w", evt.EventID, err)
	}
	return nil
}
