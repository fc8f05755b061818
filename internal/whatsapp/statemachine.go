package whatsapp

// State is the connection lifecycle state of one account's session.
type State int

const (
	StateInit State = iota
	StateQRPending
	StateConnected
	StateReconnecting
	// StatePending means logged out or banned: credentials are gone and a
	// human must re-pair. No automatic retry.
	StatePending
	// StateDisconnected is terminal for the run: QR retries exhausted.
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateQRPending:
		return "qr_pending"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StatePending:
		return "pending"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Action is the side effect the supervisor must execute for a transition.
// The state machine itself performs no I/O.
type Action int

const (
	ActionNone Action = iota
	// ActionIssueQR: persist the new pairing payload, notify the UI.
	ActionIssueQR
	// ActionExhaustQR: clear credentials, persist DISCONNECTED, stop the run.
	ActionExhaustQR
	// ActionCompleteConnect: reset retry counters, persist CONNECTED with
	// the reported identity, register the session.
	ActionCompleteConnect
	// ActionHandleLogout: persist PENDING, clear credentials, deregister.
	ActionHandleLogout
	// ActionHandleBan: like logout, plus purge locally cached auth material.
	ActionHandleBan
	// ActionScheduleReconnect: deregister, bump the reconnect counter,
	// retry after a backoff delay.
	ActionScheduleReconnect
	// ActionBufferHistory: append the burst to the import buffer.
	ActionBufferHistory
	// ActionIngestLive: feed the message to the live ingestion path.
	ActionIngestLive
	// ActionDrainImport: trigger an import drain now.
	ActionDrainImport
)

// Transition is the outcome of classifying one event.
type Transition struct {
	Next   State
	Action Action
}

// Handle classifies a transport event into a transition. It is pure: the one
// stateful decision (is the QR budget exhausted?) is passed in by the caller,
// which keeps the machine unit-testable without a transport.
func Handle(current State, ev Event, qrExhausted bool) Transition {
	switch e := ev.(type) {
	case PairingEvent:
		if qrExhausted {
			return Transition{Next: StateDisconnected, Action: ActionExhaustQR}
		}
		return Transition{Next: StateQRPending, Action: ActionIssueQR}

	case ConnectedEvent:
		return Transition{Next: StateConnected, Action: ActionCompleteConnect}

	case ClosedEvent:
		switch e.Reason {
		case CloseReasonLoggedOut:
			return Transition{Next: StatePending, Action: ActionHandleLogout}
		case CloseReasonBanned:
			return Transition{Next: StatePending, Action: ActionHandleBan}
		default:
			return Transition{Next: StateReconnecting, Action: ActionScheduleReconnect}
		}

	case MessageEvent:
		return Transition{Next: current, Action: ActionIngestLive}

	case HistoryBatchEvent:
		return Transition{Next: current, Action: ActionBufferHistory}

	case HistorySyncCompleteEvent:
		return Transition{Next: current, Action: ActionDrainImport}

	default:
		return Transition{Next: current, Action: ActionNone}
	}
}
