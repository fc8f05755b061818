// Package importer implements the historical-message backfill: a per-account
// staging buffer fed by the transport's initial sync, and the pipeline that
// drains it into the ticketing projection in chronological order.
package importer

import (
	"sync"
	"time"

	"atendo/internal/domain/message"
)

// Buffer is the per-account staging area for historical messages. Phase one
// of an import only accumulates: the transport may deliver history in
// multiple unordered bursts, so nothing is processed until the drain. The
// receiver appends and the drainer swaps; with at most one in-flight drain
// per account those two never race on the same slice.
type Buffer struct {
	mu        sync.Mutex
	accountID uint
	entries   []message.RawMessage
	lastBurst time.Time
}

// NewBuffer creates an empty buffer for an account.
func NewBuffer(accountID uint) *Buffer {
	return &Buffer{accountID: accountID}
}

// AccountID returns the owning account id.
func (b *Buffer) AccountID() uint {
	return b.accountID
}

// Append stages a burst of messages and stamps the quiescence clock.
func (b *Buffer) Append(msgs ...message.RawMessage) {
	if len(msgs) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, msgs...)
	b.lastBurst = time.Now()
}

// Swap returns all staged entries and resets the buffer to empty.
func (b *Buffer) Swap() []message.RawMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	entries := b.entries
	b.entries = nil
	return entries
}

// Len returns the number of staged entries.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// LastBurst returns when the most recent burst arrived. Zero when nothing
// was ever staged.
func (b *Buffer) LastBurst() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastBurst
}
