package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jmoris/stpark-backend/pkg/config"
	"github.com/jmoris/stpark-backend/pkg/db/models"
	"github.com/jmoris/stpark-backend/pkg/enums"
	"github.com/jmoris/stpark-backend/pkg/outbox"
	"github.com/jmoris/stpark-backend/pkg/outbox/payloads"
)

func testRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{BillingTopic: "stpark-billing"})
	if err != nil {
		t.Fatalf("NewEventRegistry: %v", err)
	}
	return reg
}

func envelopeWith(t *testing.T, data interface{}) json.RawMessage {
	t.Helper()
	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       payload,
	}
	raw, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return raw
}

func TestNewEventRegistryRequiresTopic(t *testing.T) {
	if _, err := NewEventRegistry(config.PubSubConfig{}); err == nil {
		t.Fatal("expected error when billing topic missing")
	}
}

func TestResolveCheckedOutEvent(t *testing.T) {
	reg := testRegistry(t)
	sessionID := uuid.New()

	row := models.OutboxEvent{
		EventType:     enums.EventSessionCheckedOut,
		AggregateType: enums.AggregateParkingSession,
		AggregateID:   sessionID,
		Payload: envelopeWith(t, payloads.SessionCheckedOutEvent{
			SessionID:     sessionID,
			Plate:         "GHJK12",
			NetAmount:     decimal.NewFromInt(2500),
			PaymentMethod: enums.PaymentMethodCash,
		}),
	}

	resolved, err := reg.Resolve(row)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.Descriptor.Topic != "stpark-billing" {
		t.Fatalf("unexpected topic %q", resolved.Descriptor.Topic)
	}
	payload, ok := resolved.Payload.(*payloads.SessionCheckedOutEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", resolved.Payload)
	}
	if payload.Plate != "GHJK12" || !payload.NetAmount.Equal(decimal.NewFromInt(2500)) {
		t.Fatalf("payload did not round-trip: %+v", payload)
	}
}

func TestResolveRejectsUnknownEventType(t *testing.T) {
	reg := testRegistry(t)
	_, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.OutboxEventType("order_created"),
		AggregateType: enums.AggregateParkingSession,
		AggregateID:   uuid.New(),
	})
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected NonRetryableError, got %v", err)
	}
}

func TestResolveRejectsAggregateMismatch(t *testing.T) {
	reg := testRegistry(t)
	_, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventShiftClosed,
		AggregateType: enums.AggregateParkingSession,
		AggregateID:   uuid.New(),
		Payload:       envelopeWith(t, payloads.ShiftClosedEvent{}),
	})
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected NonRetryableError, got %v", err)
	}
}

func TestResolveRejectsEmptyPayload(t *testing.T) {
	reg := testRegistry(t)
	envelope, err := json.Marshal(outbox.PayloadEnvelope{Version: 1, EventID: uuid.NewString(), Data: json.RawMessage("null")})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	_, err = reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventDebtCreated,
		AggregateType: enums.AggregateDebt,
		AggregateID:   uuid.New(),
		Payload:       envelope,
	})
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected NonRetryableError, got %v", err)
	}
}
