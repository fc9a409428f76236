package services

import (
	"context"
	"log"

	"swap-service/internal/observability"
	"swap-service/internal/telemetry"
)

// Routing keys of the domain events published to the bus.
const (
	RoutingMessagePosted    = "messages.posted"
	RoutingProposalCreated  = "proposals.created"
	RoutingProposalResolved = "proposals.resolved"
)

// EventPublisher delivers domain events to the message bus.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

func publishEvent(ctx context.Context, publisher EventPublisher, routingKey string, payload any) {
	if publisher == nil {
		return
	}
	envelope := observability.EventEnvelope{
		EventType: "domain_event",
		EventName: routingKey,
		Payload:   payload,
		Headers:   observability.BuildHeaders(telemetry.RequestID(ctx), observability.TraceIDFromContext(ctx)),
	}
	if err := publisher.Publish(ctx, routingKey, envelope); err != nil {
		log.Printf("domain event dropped routing_key=%s: %v", routingKey, err)
	}
}
