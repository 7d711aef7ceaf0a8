package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/md-arif-islam/rentplan-app-sub001/internal/core/domain"
	"github.com/md-arif-islam/rentplan-app-sub001/internal/core/port"
	"github.com/md-arif-islam/rentplan-app-sub001/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	UserID    string           `json:"user_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, userID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishLoginSucceeded publishes auth.login.succeeded events.
func (p *EventPublisher) PublishLoginSucceeded(ctx context.Context, event *domain.LoginSucceededEvent) error {
	payload := struct {
		UserID     string         `json:"user_id"`
		Email      string         `json:"email"`
		LoggedInAt time.Time      `json:"logged_in_at"`
		IPAddress  *string        `json:"ip_address,omitempty"`
		Metadata   map[string]any `json:"metadata,omitempty"`
	}{
		UserID:     event.IdentityID,
		Email:      event.Email,
		LoggedInAt: event.LoggedInAt.UTC(),
		IPAddress:  event.IPAddress,
		Metadata:   event.Metadata,
	}

	return p.publish(ctx, event.EventID, "auth.login.succeeded", event.IdentityID, event.LoggedInAt, payload)
}

// PublishPasswordResetRequested publishes auth.password.reset_requested events.
func (p *EventPublisher) PublishPasswordResetRequested(ctx context.Context, event *domain.PasswordResetRequestedEvent) error {
	payload := struct {
		UserID            string         `json:"user_id"`
		RequestID         string         `json:"request_id"`
		RequestedAt       time.Time      `json:"requested_at"`
		Destination       string         `json:"destination,omitempty"`
		MaskedDestination string         `json:"masked_destination,omitempty"`
		IPAddress         *string        `json:"ip_address,omitempty"`
		ExpiresAt         time.Time      `json:"expires_at"`
		Metadata          map[string]any `json:"metadata,omitempty"`
	}{
		UserID:            event.IdentityID,
		RequestID:         event.RequestID,
		RequestedAt:       event.RequestedAt.UTC(),
		Destination:       event.Destination,
		MaskedDestination: event.MaskedDestination,
		IPAddress:         event.IPAddress,
		ExpiresAt:         event.ExpiresAt.UTC(),
		Metadata:          event.Metadata,
	}

	return p.publish(ctx, event.EventID, "auth.password.reset_requested", event.IdentityID, event.RequestedAt, payload)
}

// PublishPasswordChanged publishes auth.password.changed events.
func (p *EventPublisher) PublishPasswordChanged(ctx context.Context, event *domain.PasswordChangedEvent) error {
	payload := struct {
		UserID        string         `json:"user_id"`
		ChangedAt     time.Time      `json:"changed_at"`
		ChangedBy     string         `json:"changed_by"`
		TokensRevoked int            `json:"tokens_revoked"`
		Metadata      map[string]any `json:"metadata,omitempty"`
	}{
		UserID:        event.IdentityID,
		ChangedAt:     event.ChangedAt.UTC(),
		ChangedBy:     event.ChangedBy,
		TokensRevoked: event.TokensRevoked,
		Metadata:      event.Metadata,
	}

	return p.publish(ctx, event.EventID, "auth.password.changed", event.IdentityID, event.ChangedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
