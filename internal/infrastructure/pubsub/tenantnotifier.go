// Package pubsub relays UI events between process instances over Redis
// Pub/Sub. Channels are tenant-scoped so each tenant's frontend sessions only
// receive their own traffic.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"atendo/internal/domain/ticket"
	"atendo/internal/importer"
	"atendo/internal/shared/logger"
	"atendo/internal/whatsapp"
)

// Tenant channel name patterns; the numeric prefix is the tenant id.
const (
	sessionChannelPattern = "%d-whatsappSession"
	ticketChannelPattern  = "%d-ticket"
	importChannelPattern  = "%d-importMessages"
)

// sessionEnvelope wraps a session update for cross-instance relay.
type sessionEnvelope struct {
	Update     whatsapp.SessionUpdate `json:"update"`
	Timestamp  int64                  `json:"timestamp"`
	InstanceID string                 `json:"instance_id,omitempty"` // Source instance ID to avoid self-delivery
}

type ticketEnvelope struct {
	Event      ticket.Event `json:"event"`
	Timestamp  int64        `json:"timestamp"`
	InstanceID string       `json:"instance_id,omitempty"`
}

type importEnvelope struct {
	Progress   importer.Progress `json:"progress"`
	Timestamp  int64             `json:"timestamp"`
	InstanceID string            `json:"instance_id,omitempty"`
}

// RedisTenantNotifier publishes session, ticket, and import events on the
// tenant's Redis channels. It implements the notifier ports of the session
// supervisor, the ticket use cases, and the import pipeline.
type RedisTenantNotifier struct {
	client     *redis.Client
	logger     logger.Interface
	instanceID string // Unique ID for this instance to avoid self-delivery
}

// NewRedisTenantNotifier creates a RedisTenantNotifier.
func NewRedisTenantNotifier(client *redis.Client, log logger.Interface) *RedisTenantNotifier {
	return &RedisTenantNotifier{
		client:     client,
		logger:     log,
		instanceID: uuid.NewString(),
	}
}

// PublishSessionUpdate publishes a connection state change.
func (n *RedisTenantNotifier) PublishSessionUpdate(ctx context.Context, tenantID uint, update whatsapp.SessionUpdate) error {
	env := sessionEnvelope{
		Update:     update,
		Timestamp:  time.Now().UnixMilli(),
		InstanceID: n.instanceID,
	}
	return n.publish(ctx, fmt.Sprintf(sessionChannelPattern, tenantID), env)
}

// PublishTicketEvent publishes a ticket create/update.
func (n *RedisTenantNotifier) PublishTicketEvent(ctx context.Context, tenantID uint, ev ticket.Event) error {
	env := ticketEnvelope{
		Event:      ev,
		Timestamp:  time.Now().UnixMilli(),
		InstanceID: n.instanceID,
	}
	return n.publish(ctx, fmt.Sprintf(ticketChannelPattern, tenantID), env)
}

// PublishImportProgress publishes backfill progress.
func (n *RedisTenantNotifier) PublishImportProgress(ctx context.Context, tenantID uint, p importer.Progress) error {
	env := importEnvelope{
		Progress:   p,
		Timestamp:  time.Now().UnixMilli(),
		InstanceID: n.instanceID,
	}
	return n.publish(ctx, fmt.Sprintf(importChannelPattern, tenantID), env)
}

func (n *RedisTenantNotifier) publish(ctx context.Context, channel string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal tenant event: %w", err)
	}

	if err := n.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}

	n.logger.Debugw("tenant event published", "channel", channel)
	return nil
}

// SubscribeSessionUpdates delivers session updates published by other
// instances for one tenant. Events from this instance are filtered out.
func (n *RedisTenantNotifier) SubscribeSessionUpdates(ctx context.Context, tenantID uint, handler func(whatsapp.SessionUpdate)) error {
	return n.subscribeWithReconnect(ctx, fmt.Sprintf(sessionChannelPattern, tenantID), func(payload string) {
		var env sessionEnvelope
		if err := json.Unmarshal([]byte(payload), &env); err != nil {
			n.logger.Warnw("failed to unmarshal session update",
				"payload", payload,
				"error", err,
			)
			return
		}
		if env.InstanceID == n.instanceID {
			return
		}
		handler(env.Update)
	})
}

// SubscribeTicketEvents delivers ticket events published by other instances
// for one tenant.
func (n *RedisTenantNotifier) SubscribeTicketEvents(ctx context.Context, tenantID uint, handler func(ticket.Event)) error {
	return n.subscribeWithReconnect(ctx, fmt.Sprintf(ticketChannelPattern, tenantID), func(payload string) {
		var env ticketEnvelope
		if err := json.Unmarshal([]byte(payload), &env); err != nil {
			n.logger.Warnw("failed to unmarshal ticket event",
				"payload", payload,
				"error", err,
			)
			return
		}
		if env.InstanceID == n.instanceID {
			return
		}
		handler(env.Event)
	})
}

// subscribeWithReconnect wraps subscribe with automatic reconnection and exponential backoff.
func (n *RedisTenantNotifier) subscribeWithReconnect(ctx context.Context, channel string, handler func(payload string)) error {
	backoff := time.Second
	maxBackoff := 30 * time.Second

	for {
		err := n.subscribe(ctx, channel, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		n.logger.Warnw("tenant subscription disconnected, reconnecting",
			"channel", channel,
			"error", err,
			"backoff", backoff,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff = min(backoff*2, maxBackoff)
	}
}

// subscribe is a generic Redis Pub/Sub subscriber.
func (n *RedisTenantNotifier) subscribe(ctx context.Context, channel string, handler func(payload string)) error {
	pubsub := n.client.Subscribe(ctx, channel)
	defer pubsub.Close()

	_, err := pubsub.Receive(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to channel %s: %w", channel, err)
	}

	n.logger.Infow("subscribed to tenant event channel", "channel", channel)

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			n.logger.Infow("tenant event subscriber stopped",
				"channel", channel,
				"reason", ctx.Err(),
			)
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("subscription channel %s closed", channel)
			}
			handler(msg.Payload)
		}
	}
}
