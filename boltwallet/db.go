package boltwallet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/decred/dcrwalletmgr/walletpath"
	"go.etcd.io/bbolt"
)

const (
	// DBFilename is the name of the database file inside a wallet
	// directory.
	DBFilename = "wallet.db"

	// CurrentVersion is the latest wallet database format.
	CurrentVersion uint32 = 2

	dbFilePermission = 0600
	dirPermission    = 0700

	// DefaultOpenTimeout is how long opening waits for another process to
	// release the database lock.
	DefaultOpenTimeout = time.Second
)

var (
	metaBucket   = []byte("meta")
	txBucket     = []byte("txs")
	txMetaBucket = []byte("txmeta")

	versionKey = []byte("version")
	createdKey = []byte("created")
	rescanKey  = []byte("rescan")
)

var (
	// ErrInvalidPath is returned when a location can neither hold nor
	// be a wallet.
	ErrInvalidPath = errors.New("invalid --wallet path")

	// ErrCorrupt is returned when the database fails its integrity check.
	ErrCorrupt = errors.New("wallet database corrupt")

	// ErrInUse is returned when another process holds the database.
	ErrInUse = errors.New("wallet database in use by another process")

	// ErrUnknownVersion is returned for databases written by a newer
	// release.
	ErrUnknownVersion = errors.New("unknown wallet database version")

	// ErrWalletClosed is returned when using a released wallet.
	ErrWalletClosed = errors.New("wallet closed")
)

// dbFile returns the database file of the wallet at loc. The second return
// value reports whether the database file exists.
//
// A wallet is a directory holding DBFilename. For backwards compatibility a
// location may also point directly at an existing database file.
func dbFile(loc walletpath.Location) (string, bool, error) {
	fi, err := os.Stat(loc.Path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// The wallet will be created; its parent must be usable.
		parent, perr := os.Stat(filepath.Dir(loc.Path))
		if perr != nil || !parent.IsDir() {
			return "", false, invalidPath(loc)
		}
		return filepath.Join(loc.Path, DBFilename), false, nil

	case err != nil:
		return "", false, fmt.Errorf("%w: %v", invalidPath(loc), err)

	case fi.IsDir():
		path := filepath.Join(loc.Path, DBFilename)
		_, err := os.Stat(path)
		return path, err == nil, nil

	case fi.Mode().IsRegular():
		return loc.Path, true, nil

	default:
		return "", false, invalidPath(loc)
	}
}

func invalidPath(loc walletpath.Location) error {
	return fmt.Errorf("%w %q: it should point to a directory where %s "+
		"can be stored, a location where such a directory could be "+
		"created, or (for backwards compatibility) the name of an "+
		"existing data file in --walletdir", ErrInvalidPath,
		loc.DisplayName(), DBFilename)
}

// openDB opens the database at path, translating lock timeouts.
func openDB(path string, readOnly bool, timeout time.Duration) (*bbolt.DB,
	error) {

	db, err := bbolt.Open(path, dbFilePermission, &bbolt.Options{
		Timeout:  timeout,
		ReadOnly: readOnly,

		// Commits are made durable by Flush and by the maintenance
		// task.
		NoSync: true,
	})
	if errors.Is(err, bbolt.ErrTimeout) {
		return nil, fmt.Errorf("%w: %s", ErrInUse, path)
	}
	return db, err
}

// checkDB runs the integrity check over every page of the database.
func checkDB(db *bbolt.DB) error {
	return db.View(func(tx *bbolt.Tx) error {
		// The channel must be drained for the checker to finish.
		var first error
		for err := range tx.Check() {
			if first == nil {
				first = fmt.Errorf("%w: %v", ErrCorrupt, err)
			}
		}
		return first
	})
}

func putUint32(b *bbolt.Bucket, key []byte, v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	return b.Put(key, buf[:])
}

func getUint32(b *bbolt.Bucket, key []byte) (uint32, bool) {
	v := b.Get(key)
	if len(v) != 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(v), true
}
