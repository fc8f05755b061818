// Package message defines the transport-native message envelope and the
// ingestion port that turns raw messages into ticket/message rows.
package message

import (
	"context"
	"time"
)

// Key identifies a message on the transport side. ID alone is the dedup key;
// RemoteJID and FromMe are carried for the ingestion layer.
type Key struct {
	ID        string `json:"id"`
	RemoteJID string `json:"remoteJid"`
	FromMe    bool   `json:"fromMe"`
}

// RawMessage is the transport-native envelope buffered during backfill and
// delivered on the live path. Payload is the opaque wire body; this core
// never interprets it beyond the fields below.
type RawMessage struct {
	Key       Key       `json:"key"`
	Timestamp time.Time `json:"timestamp"`
	IsGroup   bool      `json:"isGroup"`
	PushName  string    `json:"pushName,omitempty"`
	Body      string    `json:"body,omitempty"`
	Payload   []byte    `json:"payload,omitempty"`
}

// Ingestor is the single entrypoint both the import pipeline and the live
// event path call to project a raw message into the ticketing model. It must
// be idempotent keyed by RawMessage.Key.ID so replay after partial failure is
// safe.
type Ingestor interface {
	Ingest(ctx context.Context, msg RawMessage, accountID, tenantID uint, imported bool) error
}
