package walletmgr

import "fmt"

// State is the lifecycle state of the whole wallet set.
type State uint8

const (
	// StateUnvalidated is the initial state.
	StateUnvalidated State = iota

	// StateVerified is reached once the configured wallets were resolved
	// and checked.
	StateVerified

	// StateLoaded is reached once every wallet was loaded and registered.
	StateLoaded

	// StateRunning is reached once the wallets were notified that the
	// node is up and the maintenance task was installed.
	StateRunning

	// StateFlushing is reached after the first soft flush.
	StateFlushing

	// StateStopped is reached after the hard flush at shutdown.
	StateStopped

	// StateUnloaded is the final state: the registry is empty.
	StateUnloaded

	// StateFailed is reached when loading aborted. The wallets loaded
	// before the failure stay registered until Unload.
	StateFailed
)

// String returns a human readable name for the state.
func (s State) String() string {
	switch s {
	case StateUnvalidated:
		return "unvalidated"
	case StateVerified:
		return "verified"
	case StateLoaded:
		return "loaded"
	case StateRunning:
		return "running"
	case StateFlushing:
		return "flushing"
	case StateStopped:
		return "stopped"
	case StateUnloaded:
		return "unloaded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// validFrom lists the states each operation may be started from.
var validFrom = map[string][]State{
	"verify": {StateUnvalidated},
	"load":   {StateVerified},
	"start":  {StateLoaded},
	"flush":  {StateRunning, StateFlushing},
	"stop":   {StateRunning, StateFlushing},
	"unload": {
		StateVerified, StateLoaded, StateStopped, StateFailed,
	},
}
