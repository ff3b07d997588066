package walletcfg

import (
	"github.com/decred/dcrd/dcrutil/v4"
)

// DefaultHighTxFeePerKB is the relay fee above which the wallets warn that
// they will refuse to pay less than the minimum relay fee.
const DefaultHighTxFeePerKB = dcrutil.Amount(dcrutil.AtomsPerCoin / 100)

// Snapshot is an immutable view of every option the parameter interaction
// rules read or override. Validate never mutates its input; it hands back an
// adjusted copy.
type Snapshot struct {
	DisableWallet bool
	Wallets       []string

	// WalletDir is the wallet directory override. WalletDirSet is false
	// when the default location is in use.
	WalletDir    string
	WalletDirSet bool

	Salvage        Bool
	ZapMode        int
	Rescan         Bool
	Upgrade        Bool
	Broadcast      Bool
	PersistMempool Bool

	BlocksOnly bool
	SysPerms   bool
	Prune      uint64

	MinRelayTxFee    dcrutil.Amount
	HighFeeThreshold dcrutil.Amount
}

// IsMultiWallet returns true if more than one wallet is configured.
func (s *Snapshot) IsMultiWallet() bool {
	return len(s.Wallets) > 1
}

// copy returns a deep copy of the snapshot.
func (s Snapshot) copy() Snapshot {
	c := s
	if s.Wallets != nil {
		c.Wallets = make([]string, len(s.Wallets))
		copy(c.Wallets, s.Wallets)
	}
	return c
}
