// Package env provides shared helpers to set up both ends of the boundary.
package env

import (
	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// ContextType is the type name of the transmitter context.
const ContextType = "thermo-ta"

const appID = "thermo.go"

// MachineID retrieves the ID identifying the machine, hashed per
// application so the raw machine ID is never published.
// It falls back to "local" when the machine ID is unavailable.
func MachineID() string {
	id, err := machineid.ProtectedID(appID)
	if err != nil {
		glog.Warningf("machine id unavailable: %v", err)
		return "local"
	}
	if len(id) > 16 {
		id = id[:16]
	}
	return id
}
