package account

import "fmt"

// Status is the persisted lifecycle status of a WhatsApp account.
type Status string

const (
	// StatusQRCode means the account is waiting for a QR/pairing code scan.
	StatusQRCode Status = "qrcode"
	// StatusConnected means the transport session is live.
	StatusConnected Status = "CONNECTED"
	// StatusPending means the session was logged out or banned and requires
	// explicit re-pairing; no automatic retry happens.
	StatusPending Status = "PENDING"
	// StatusDisconnected is terminal for a run: QR retries were exhausted.
	StatusDisconnected Status = "DISCONNECTED"
	// StatusOpening means a connection attempt is in flight.
	StatusOpening Status = "OPENING"
)

var validStatuses = map[Status]bool{
	StatusQRCode:       true,
	StatusConnected:    true,
	StatusPending:      true,
	StatusDisconnected: true,
	StatusOpening:      true,
}

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	return validStatuses[s]
}

func (s Status) IsConnected() bool {
	return s == StatusConnected
}

func NewStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", fmt.Errorf("invalid account status: %s", s)
	}
	return st, nil
}
