package walletmigrate

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	// PeersFilename is the node's peer address cache. Its absence marks
	// the first run of the node on a data directory.
	PeersFilename = "peers.json"

	// WalletFilename is the name of the database file of the default
	// wallet.
	WalletFilename = "wallet.db"
)

// ErrDestinationExists is returned when the migration target is already
// present. An existing wallet is never overwritten.
var ErrDestinationExists = errors.New("destination wallet already exists")

// Config describes the directories involved in the legacy wallet migration.
type Config struct {
	// DataDir is the node data directory holding the peers file and,
	// possibly, a default wallet.
	DataDir string

	// WalletDir is the wallet directory of the current layout.
	WalletDir string

	// LegacyDataDir is the data directory of the previous generation
	// node.
	LegacyDataDir string
}

// IsFirstRun returns true if the node has never run on dataDir.
func IsFirstRun(dataDir string) bool {
	_, err := os.Stat(filepath.Join(dataDir, PeersFilename))
	return errors.Is(err, os.ErrNotExist)
}

// MaybeMigrate copies the legacy default wallet into the wallet directory on
// the first run of the node, as long as no default wallet of the current
// layout exists. It returns true if a wallet was copied.
func MaybeMigrate(cfg *Config) (bool, error) {
	if !IsFirstRun(cfg.DataDir) {
		log.Debugf("Peers file found in %s, skipping legacy wallet "+
			"migration", cfg.DataDir)
		return false, nil
	}

	rootWallet := filepath.Join(cfg.DataDir, WalletFilename)
	defaultWallet := filepath.Join(cfg.WalletDir, WalletFilename)
	legacyWallet := filepath.Join(cfg.LegacyDataDir, WalletFilename)

	switch {
	case exists(rootWallet), exists(defaultWallet):
		log.Debugf("Default wallet already present, skipping legacy " +
			"wallet migration")
		return false, nil

	case !exists(legacyWallet):
		log.Debugf("No legacy wallet at %s", legacyWallet)
		return false, nil
	}

	log.Infof("Copying legacy wallet file %s to %s", legacyWallet,
		defaultWallet)

	if err := copyFileNoClobber(legacyWallet, defaultWallet); err != nil {
		return false, err
	}

	return true, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// copyFileNoClobber copies src to dst, failing if dst already exists.
func copyFileNoClobber(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("unable to open legacy wallet: %w", err)
	}
	defer in.Close()

	fi, err := in.Stat()
	if err != nil {
		return fmt.Errorf("unable to stat legacy wallet: %w", err)
	}

	out, err := os.OpenFile(
		dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, fi.Mode().Perm(),
	)
	switch {
	case errors.Is(err, os.ErrExist):
		return fmt.Errorf("unable to copy legacy wallet to %s: %w", dst,
			ErrDestinationExists)

	case err != nil:
		return fmt.Errorf("unable to create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("unable to copy legacy wallet: %w", err)
	}

	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("unable to sync %s: %w", dst, err)
	}

	return out.Close()
}
