package whatsapp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryScheduler_QRBudget(t *testing.T) {
	r := NewRetryScheduler(3, time.Second, time.Minute)

	// Three attempts fit the budget; the fourth does not.
	for i := 1; i <= 3; i++ {
		assert.True(t, r.ShouldRetryQR(1), "attempt %d", i)
		assert.Equal(t, i, r.RecordQRAttempt(1))
	}
	assert.False(t, r.ShouldRetryQR(1))

	// Accounts do not share budgets.
	assert.True(t, r.ShouldRetryQR(2))
}

func TestRetryScheduler_ResetClearsCounters(t *testing.T) {
	r := NewRetryScheduler(3, time.Second, time.Minute)

	r.RecordQRAttempt(1)
	r.RecordReconnectAttempt(1)
	r.Reset(1)

	assert.Equal(t, 0, r.QRAttempts(1))
	assert.Equal(t, 0, r.ReconnectAttempts(1))
	assert.True(t, r.ShouldRetryQR(1))
}

func TestRetryScheduler_ReconnectDelayBacksOffToCap(t *testing.T) {
	r := NewRetryScheduler(3, 2*time.Second, 60*time.Second)

	assert.Equal(t, 2*time.Second, r.ReconnectDelay(1))
	assert.Equal(t, 4*time.Second, r.ReconnectDelay(2))
	assert.Equal(t, 8*time.Second, r.ReconnectDelay(3))
	assert.Equal(t, 32*time.Second, r.ReconnectDelay(5))
	assert.Equal(t, 60*time.Second, r.ReconnectDelay(6))
	assert.Equal(t, 60*time.Second, r.ReconnectDelay(50))
}

func TestRetryScheduler_FixedDelayWhenCapEqualsBase(t *testing.T) {
	r := NewRetryScheduler(3, 2*time.Second, 2*time.Second)

	assert.Equal(t, 2*time.Second, r.ReconnectDelay(1))
	assert.Equal(t, 2*time.Second, r.ReconnectDelay(10))
}
