package whatsapp

import (
	"fmt"
	"sync"
)

var (
	driverMu sync.RWMutex
	driver   Dialer
)

// RegisterDialer installs the transport driver the server wires into new
// supervisors. Like database/sql drivers, the concrete implementation lives
// in its own package and registers itself from main.
func RegisterDialer(d Dialer) {
	driverMu.Lock()
	defer driverMu.Unlock()
	driver = d
}

// DefaultDialer returns the registered transport driver.
func DefaultDialer() (Dialer, error) {
	driverMu.RLock()
	defer driverMu.RUnlock()
	if driver == nil {
		return nil, fmt.Errorf("no whatsapp transport driver registered")
	}
	return driver, nil
}
