package walletcfg

import (
	"time"

	"github.com/decred/dcrwalletmgr/walletmgr"
)

// Automation holds the options of the periodic wallet tasks.
type Automation struct {
	// MaintenanceInterval is the period of the wallet maintenance task,
	// which flushes wallets that have been idle since their last write.
	MaintenanceInterval time.Duration `long:"maintenanceinterval" description:"Interval between wallet maintenance runs"`
}

// DefaultAutomation returns the default automation options.
func DefaultAutomation() *Automation {
	return &Automation{
		MaintenanceInterval: walletmgr.DefaultMaintenanceInterval,
	}
}
