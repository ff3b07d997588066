package walletpath

import (
	"os"
)

// Location is the resolved on-disk location of a wallet.
type Location struct {
	// ID is the identifier the user configured, "" for the default
	// wallet.
	ID string

	// Path is the absolute, and when the wallet already exists canonical,
	// path of the wallet.
	Path string
}

// Exists returns true if something is present at the location.
func (l Location) Exists() bool {
	_, err := os.Stat(l.Path)
	return err == nil
}

// DisplayName returns the name used for the wallet in user facing messages.
func (l Location) DisplayName() string {
	if l.ID == "" {
		return "[default wallet]"
	}
	return l.ID
}

// String returns the location in a form suitable for logging.
func (l Location) String() string {
	return l.DisplayName() + " (" + l.Path + ")"
}
