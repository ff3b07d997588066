package walletpath

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultWalletsSubDir is the data dir subdirectory holding the wallets when
// it exists.
const DefaultWalletsSubDir = "wallets"

var (
	// ErrWalletDirNotExist is returned when the configured wallet
	// directory does not exist.
	ErrWalletDirNotExist = errors.New("does not exist")

	// ErrWalletDirNotDir is returned when the configured wallet directory
	// is not a directory.
	ErrWalletDirNotDir = errors.New("is not a directory")

	// ErrWalletDirRelative is returned when the configured wallet
	// directory is a relative path.
	ErrWalletDirRelative = errors.New("is a relative path")

	// ErrDuplicateWallet is returned when two configured wallets resolve to
	// the same location.
	ErrDuplicateWallet = errors.New("duplicate --wallet filename specified")
)

// ResolveWalletDir checks an explicitly configured wallet directory and
// returns its canonical absolute form.
func ResolveWalletDir(dir string) (string, error) {
	fail := func(err error) (string, error) {
		return "", fmt.Errorf("specified --walletdir %q %w", dir, err)
	}

	fi, err := os.Stat(dir)
	if err != nil {
		return fail(ErrWalletDirNotExist)
	}
	if !fi.IsDir() {
		return fail(ErrWalletDirNotDir)
	}

	// Canonicalizing turns relative paths into absolute ones, so the check
	// has to run against the raw value.
	if !filepath.IsAbs(dir) {
		return fail(ErrWalletDirRelative)
	}

	canonical, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return fail(ErrWalletDirNotExist)
	}

	return canonical, nil
}

// DefaultWalletDir returns <dataDir>/wallets if it is a directory, otherwise
// dataDir itself.
func DefaultWalletDir(dataDir string) string {
	walletsDir := filepath.Join(dataDir, DefaultWalletsSubDir)
	if fi, err := os.Stat(walletsDir); err == nil && fi.IsDir() {
		return walletsDir
	}
	return dataDir
}

// Resolve maps a wallet identifier onto its location under baseDir. Absolute
// identifiers are used as they are. Paths that already exist are
// canonicalized; others are only cleaned since the wallet may still have to
// be created.
func Resolve(id, baseDir string) (Location, error) {
	path := id
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, id)
	}

	path, err := filepath.Abs(path)
	if err != nil {
		return Location{}, fmt.Errorf("unable to resolve wallet %q: %w",
			id, err)
	}

	// Paths that do not exist yet, including dangling links, are kept
	// as given.
	if _, err := os.Stat(path); err == nil {
		canonical, err := filepath.EvalSymlinks(path)
		if err != nil {
			return Location{}, fmt.Errorf("unable to resolve "+
				"wallet %q: %w", id, err)
		}
		path = canonical
	}

	return Location{ID: id, Path: path}, nil
}

// ResolveAll resolves every identifier in order and fails on the first one
// whose location was already produced by an earlier identifier.
func ResolveAll(ids []string, baseDir string) ([]Location, error) {
	seen := make(map[string]struct{}, len(ids))
	locs := make([]Location, 0, len(ids))
	for _, id := range ids {
		loc, err := Resolve(id, baseDir)
		if err != nil {
			return nil, err
		}

		if _, ok := seen[loc.Path]; ok {
			return nil, fmt.Errorf("error loading wallet %s: %w",
				loc.DisplayName(), ErrDuplicateWallet)
		}
		seen[loc.Path] = struct{}{}

		locs = append(locs, loc)
	}

	return locs, nil
}
