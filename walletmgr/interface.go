package walletmgr

import (
	"github.com/decred/dcrwalletmgr/walletpath"
	"github.com/decred/dcrwalletmgr/walletreg"
)

// Wallet is a live wallet handle. It is owned by the registry once loaded.
type Wallet interface {
	walletreg.Handle

	// PostInit is called once the node is ready, after every wallet got
	// loaded. Wallets subscribe to chain notifications here.
	PostInit() error

	// Flush persists pending state. A hard flush also releases the
	// underlying storage and is only done once, at shutdown.
	Flush(hard bool) error

	// Maintain runs a bounded housekeeping step. It is invoked
	// periodically and must not block for long.
	Maintain() error
}

// Backend creates, checks and releases wallets. The manager never looks at
// wallet internals; it only sequences calls into the backend.
type Backend interface {
	// Verify checks the wallet at loc without loading it. A non-empty
	// warning is meant for the user even when verification succeeds.
	Verify(loc walletpath.Location, salvage bool) (string, error)

	// LoadWallet opens, or creates, the wallet at loc.
	LoadWallet(loc walletpath.Location) (Wallet, error)

	// Unload releases a wallet that is no longer registered.
	Unload(w Wallet) error
}
