package importer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"atendo/internal/domain/message"
)

func raw(id string, ts time.Time) message.RawMessage {
	return message.RawMessage{
		Key:       message.Key{ID: id, RemoteJID: "5511999990000@s.whatsapp.net"},
		Timestamp: ts,
		Body:      "body-" + id,
	}
}

func TestBuffer_AppendAndSwap(t *testing.T) {
	b := NewBuffer(1)
	now := time.Now()

	assert.Equal(t, uint(1), b.AccountID())
	assert.Zero(t, b.Len())
	assert.True(t, b.LastBurst().IsZero())

	b.Append(raw("a", now), raw("b", now))
	b.Append(raw("c", now))

	assert.Equal(t, 3, b.Len())
	assert.False(t, b.LastBurst().IsZero())

	entries := b.Swap()
	assert.Len(t, entries, 3)
	assert.Zero(t, b.Len())

	// A second swap finds nothing.
	assert.Empty(t, b.Swap())
}

func TestBuffer_AppendEmptyBurstDoesNotStampClock(t *testing.T) {
	b := NewBuffer(1)
	b.Append()
	assert.True(t, b.LastBurst().IsZero())
}
