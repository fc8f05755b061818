package whatsapp

import (
	"sync"
	"time"
)

// Default retry policy. The reconnect delay grows exponentially from the
// base up to the cap; setting max equal to base reproduces a fixed delay.
const (
	DefaultMaxQRRetries       = 3
	DefaultReconnectBaseDelay = 2 * time.Second
	DefaultReconnectMaxDelay  = 60 * time.Second
)

type retryCounters struct {
	qr        int
	reconnect int
}

// RetryScheduler tracks per-account QR and reconnect counters and decides
// whether to retry, back off, or give up. It performs no I/O; the counter map
// is the only shared state and is guarded by a mutex because handlers for
// different accounts run concurrently.
type RetryScheduler struct {
	mu       sync.Mutex
	counters map[uint]*retryCounters

	maxQR     int
	baseDelay time.Duration
	maxDelay  time.Duration
}

// NewRetryScheduler creates a RetryScheduler with the given policy. Zero
// values fall back to the defaults.
func NewRetryScheduler(maxQR int, baseDelay, maxDelay time.Duration) *RetryScheduler {
	if maxQR <= 0 {
		maxQR = DefaultMaxQRRetries
	}
	if baseDelay <= 0 {
		baseDelay = DefaultReconnectBaseDelay
	}
	if maxDelay < baseDelay {
		maxDelay = baseDelay
	}
	return &RetryScheduler{
		counters:  make(map[uint]*retryCounters),
		maxQR:     maxQR,
		baseDelay: baseDelay,
		maxDelay:  maxDelay,
	}
}

func (r *RetryScheduler) get(accountID uint) *retryCounters {
	c, ok := r.counters[accountID]
	if !ok {
		c = &retryCounters{}
		r.counters[accountID] = c
	}
	return c
}

// ShouldRetryQR reports whether another QR code may be issued for the account.
func (r *RetryScheduler) ShouldRetryQR(accountID uint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(accountID).qr < r.maxQR
}

// RecordQRAttempt increments the QR counter and returns the new count.
func (r *RetryScheduler) RecordQRAttempt(accountID uint) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.get(accountID)
	c.qr++
	return c.qr
}

// RecordReconnectAttempt increments the reconnect counter and returns the new
// count.
func (r *RetryScheduler) RecordReconnectAttempt(accountID uint) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.get(accountID)
	c.reconnect++
	return c.reconnect
}

// Reset zeroes both counters after a successful connection.
func (r *RetryScheduler) Reset(accountID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.counters, accountID)
}

// QRAttempts returns the current QR counter.
func (r *RetryScheduler) QRAttempts(accountID uint) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(accountID).qr
}

// ReconnectAttempts returns the current reconnect counter.
func (r *RetryScheduler) ReconnectAttempts(accountID uint) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(accountID).reconnect
}

// ReconnectDelay returns the backoff delay for the given attempt number
// (1-based): base * 2^(attempt-1), capped at the configured maximum.
func (r *RetryScheduler) ReconnectDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return r.baseDelay
	}
	d := r.baseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= r.maxDelay {
			return r.maxDelay
		}
	}
	return d
}
