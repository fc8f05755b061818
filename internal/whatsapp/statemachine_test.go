package whatsapp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandle_PairingIssuesQRUntilExhausted(t *testing.T) {
	tr := Handle(StateInit, PairingEvent{Code: "qr-1"}, false)
	assert.Equal(t, StateQRPending, tr.Next)
	assert.Equal(t, ActionIssueQR, tr.Action)

	tr = Handle(StateQRPending, PairingEvent{Code: "qr-4"}, true)
	assert.Equal(t, StateDisconnected, tr.Next)
	assert.Equal(t, ActionExhaustQR, tr.Action)
}

func TestHandle_ConnectedCompletesFromAnyState(t *testing.T) {
	for _, from := range []State{StateInit, StateQRPending, StateReconnecting} {
		tr := Handle(from, ConnectedEvent{Number: "5511999990000"}, false)
		assert.Equal(t, StateConnected, tr.Next, "from %s", from)
		assert.Equal(t, ActionCompleteConnect, tr.Action)
	}
}

func TestHandle_ClosedReasonClassification(t *testing.T) {
	tests := []struct {
		name   string
		reason CloseReason
		next   State
		action Action
	}{
		{"logout is terminal", CloseReasonLoggedOut, StatePending, ActionHandleLogout},
		{"ban is terminal", CloseReasonBanned, StatePending, ActionHandleBan},
		{"connection lost retries", CloseReasonConnectionLost, StateReconnecting, ActionScheduleReconnect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := Handle(StateConnected, ClosedEvent{Reason: tt.reason, Err: errors.New("boom")}, false)
			assert.Equal(t, tt.next, tr.Next)
			assert.Equal(t, tt.action, tr.Action)
		})
	}
}

func TestHandle_MessageEventsPreserveState(t *testing.T) {
	tr := Handle(StateConnected, MessageEvent{}, false)
	assert.Equal(t, StateConnected, tr.Next)
	assert.Equal(t, ActionIngestLive, tr.Action)

	tr = Handle(StateConnected, HistoryBatchEvent{}, false)
	assert.Equal(t, StateConnected, tr.Next)
	assert.Equal(t, ActionBufferHistory, tr.Action)

	tr = Handle(StateConnected, HistorySyncCompleteEvent{}, false)
	assert.Equal(t, StateConnected, tr.Next)
	assert.Equal(t, ActionDrainImport, tr.Action)
}
