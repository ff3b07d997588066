package boltwallet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/decred/dcrwalletmgr/walletmgr"
	"github.com/decred/dcrwalletmgr/walletpath"
	"go.etcd.io/bbolt"
)

// Zap modes accepted by Options.ZapMode.
const (
	ZapNone     = 0
	ZapKeepMeta = 1
	ZapAll      = 2
)

// Options are the startup settings applied to every wallet the backend
// loads.
type Options struct {
	// Upgrade migrates older databases to CurrentVersion.
	Upgrade bool

	// ZapMode removes stored transactions. ZapKeepMeta keeps their
	// metadata, ZapAll drops it as well.
	ZapMode int

	// Rescan marks loaded wallets as needing a chain rescan.
	Rescan bool

	// Broadcast is reported by loaded wallets.
	Broadcast bool

	// Timeout bounds the wait for another process to release a
	// database. DefaultOpenTimeout is used when zero.
	Timeout time.Duration
}

// Backend verifies and loads bbolt wallets.
type Backend struct {
	opts Options
}

// A compile-time check to ensure Backend satisfies the walletmgr.Backend
// interface.
var _ walletmgr.Backend = (*Backend)(nil)

// A compile-time check to ensure Wallet satisfies the walletmgr.Wallet
// interface.
var _ walletmgr.Wallet = (*Wallet)(nil)

// New returns a backend applying opts.
func New(opts Options) *Backend {
	if opts.Timeout == 0 {
		opts.Timeout = DefaultOpenTimeout
	}
	return &Backend{opts: opts}
}

// Verify checks that loc can hold a wallet and that any existing database
// passes an integrity check. When salvage is set an existing database is
// first rebuilt from its readable records, and a warning is returned.
func (b *Backend) Verify(loc walletpath.Location, salvageDB bool) (string,
	error) {

	file, exists, err := dbFile(loc)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", nil
	}

	var warning string
	if salvageDB {
		backup, n, err := salvage(file, b.opts.Timeout)
		if err != nil {
			return "", err
		}
		log.Infof("Salvaged %d records of wallet %s", n,
			loc.DisplayName())

		warning = fmt.Sprintf("wallet file %s corrupt, data "+
			"salvaged! Original %s saved as %s; if your balance "+
			"or transactions are incorrect you should restore "+
			"from a backup", loc.DisplayName(), file, backup)
	}

	db, err := openDB(file, true, b.opts.Timeout)
	switch {
	case errors.Is(err, ErrInUse):
		return warning, err

	// A flat file that is not a database was never a wallet.
	case err != nil && file == loc.Path:
		return warning, fmt.Errorf("%w: %w", invalidPath(loc), err)

	case err != nil:
		return warning, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	defer db.Close()

	return warning, checkDB(db)
}

// LoadWallet opens the wallet at loc, creating it if needed, and applies the
// backend options.
func (b *Backend) LoadWallet(loc walletpath.Location) (walletmgr.Wallet,
	error) {

	file, exists, err := dbFile(loc)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := os.MkdirAll(filepath.Dir(file), dirPermission); err != nil {
			return nil, err
		}
		log.Infof("Creating wallet %s", loc.DisplayName())
	}

	db, err := openDB(file, false, b.opts.Timeout)
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if err := b.initBuckets(tx, loc); err != nil {
			return err
		}
		if err := b.zap(tx, loc); err != nil {
			return err
		}
		if b.opts.Rescan {
			log.Infof("Wallet %s will rescan the chain",
				loc.DisplayName())
			return tx.Bucket(metaBucket).Put(rescanKey, []byte{1})
		}
		return tx.Bucket(metaBucket).Delete(rescanKey)
	})
	if err == nil {
		err = db.Sync()
	}
	if err != nil {
		db.Close()
		return nil, err
	}

	return newWallet(loc, file, db, b.opts.Broadcast), nil
}

// Unload releases a wallet returned by LoadWallet.
func (b *Backend) Unload(w walletmgr.Wallet) error {
	bw, ok := w.(*Wallet)
	if !ok {
		return fmt.Errorf("unexpected wallet type %T", w)
	}
	return bw.close()
}

// initBuckets creates the top level buckets and handles the format version.
func (b *Backend) initBuckets(tx *bbolt.Tx, loc walletpath.Location) error {
	for _, name := range [][]byte{metaBucket, txBucket, txMetaBucket} {
		if _, err := tx.CreateBucketIfNotExists(name); err != nil {
			return err
		}
	}

	meta := tx.Bucket(metaBucket)
	version, ok := getUint32(meta, versionKey)
	switch {
	case !ok:
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(time.Now().Unix()))
		if err := meta.Put(createdKey, buf[:]); err != nil {
			return err
		}
		return putUint32(meta, versionKey, CurrentVersion)

	case version > CurrentVersion:
		return fmt.Errorf("%w %d", ErrUnknownVersion, version)

	case version < CurrentVersion && b.opts.Upgrade:
		log.Infof("Upgrading wallet %s from version %d to %d",
			loc.DisplayName(), version, CurrentVersion)
		return putUint32(meta, versionKey, CurrentVersion)

	case version < CurrentVersion:
		log.Warnf("Wallet %s uses version %d, restart with "+
			"--upgradewallet to upgrade to %d", loc.DisplayName(),
			version, CurrentVersion)
	}
	return nil
}

func (b *Backend) zap(tx *bbolt.Tx, loc walletpath.Location) error {
	var buckets [][]byte
	switch b.opts.ZapMode {
	case ZapNone:
		return nil
	case ZapKeepMeta:
		buckets = [][]byte{txBucket}
	case ZapAll:
		buckets = [][]byte{txBucket, txMetaBucket}
	default:
		return fmt.Errorf("invalid zap mode %d", b.opts.ZapMode)
	}

	zapped := tx.Bucket(txBucket).Stats().KeyN
	for _, name := range buckets {
		if err := tx.DeleteBucket(name); err != nil {
			return err
		}
		if _, err := tx.CreateBucket(name); err != nil {
			return err
		}
	}

	log.Infof("Zapped %d transactions from wallet %s", zapped,
		loc.DisplayName())
	return nil
}
