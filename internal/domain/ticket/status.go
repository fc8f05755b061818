package ticket

import "fmt"

// Status is the lifecycle status of a ticket. A ticket counts as active while
// its status is open, pending, or group; closed, nps, and lgpd do not.
type Status string

const (
	StatusOpen    Status = "open"
	StatusPending Status = "pending"
	StatusGroup   Status = "group"
	StatusClosed  Status = "closed"
	StatusNPS     Status = "nps"
	StatusLGPD    Status = "lgpd"
)

var validStatuses = map[Status]bool{
	StatusOpen:    true,
	StatusPending: true,
	StatusGroup:   true,
	StatusClosed:  true,
	StatusNPS:     true,
	StatusLGPD:    true,
}

// ActiveStatuses is the set enforced by the one-active-ticket invariant.
var ActiveStatuses = []Status{StatusOpen, StatusPending, StatusGroup}

var statusTransitions = map[Status][]Status{
	StatusPending: {StatusOpen, StatusClosed, StatusLGPD},
	StatusOpen:    {StatusPending, StatusClosed, StatusNPS, StatusLGPD},
	StatusGroup:   {StatusClosed},
	StatusNPS:     {StatusClosed},
	// Closed tickets may only go back to pending, the backfill reopen path.
	StatusClosed: {StatusPending},
	StatusLGPD:   {},
}

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	return validStatuses[s]
}

func (s Status) IsActive() bool {
	for _, a := range ActiveStatuses {
		if s == a {
			return true
		}
	}
	return false
}

func (s Status) IsClosed() bool {
	return s == StatusClosed
}

func (s Status) CanTransitionTo(next Status) bool {
	allowed, ok := statusTransitions[s]
	if !ok {
		return false
	}
	for _, a := range allowed {
		if a == next {
			return true
		}
	}
	return false
}

func NewStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", fmt.Errorf("invalid ticket status: %s", s)
	}
	return st, nil
}
