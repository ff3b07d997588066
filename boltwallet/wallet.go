package boltwallet

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrwalletmgr/walletpath"
	"go.etcd.io/bbolt"
)

// idleFlushDelay is how long a wallet must go without writes before the
// maintenance task flushes it.
const idleFlushDelay = 2 * time.Second

// Wallet is a loaded wallet backed by a bbolt database.
type Wallet struct {
	started int32 // To be used atomically.

	// updates counts committed writes; flushed is the value of updates
	// at the last sync. Both are used atomically.
	updates uint64
	flushed uint64

	// lastWrite is the unix nano time of the last committed write.
	lastWrite int64

	loc       walletpath.Location
	file      string
	broadcast bool
	now       func() time.Time

	// mtx guards db. It is held for the duration of syncs so that a
	// close never races a running flush.
	mtx sync.Mutex
	db  *bbolt.DB
}

func newWallet(loc walletpath.Location, file string, db *bbolt.DB,
	broadcast bool) *Wallet {

	return &Wallet{
		loc:       loc,
		file:      file,
		broadcast: broadcast,
		now:       time.Now,
		db:        db,
	}
}

// Name returns the identifier the wallet was loaded with.
func (w *Wallet) Name() string {
	return w.loc.ID
}

// Path returns the canonical location of the wallet.
func (w *Wallet) Path() string {
	return w.loc.Path
}

// File returns the path of the database file.
func (w *Wallet) File() string {
	return w.file
}

// Broadcast reports whether the wallet relays its own transactions.
func (w *Wallet) Broadcast() bool {
	return w.broadcast
}

// PostInit marks the wallet as running.
func (w *Wallet) PostInit() error {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	if w.db == nil {
		return ErrWalletClosed
	}
	if !atomic.CompareAndSwapInt32(&w.started, 0, 1) {
		return nil
	}

	log.Infof("Wallet %s started (file=%s, broadcast=%v)",
		w.loc.DisplayName(), w.file, w.broadcast)
	return nil
}

// Flush writes pending changes to disk. A hard flush also closes the
// database, after which the wallet can no longer be used.
func (w *Wallet) Flush(hard bool) error {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	if w.db == nil {
		if hard {
			return nil
		}
		return ErrWalletClosed
	}

	if err := w.syncLocked(); err != nil {
		return err
	}
	if !hard {
		return nil
	}
	return w.closeLocked()
}

// Maintain flushes the wallet once it has been idle for a while after a
// write. It returns immediately if another flush is in progress.
func (w *Wallet) Maintain() error {
	if !w.mtx.TryLock() {
		return nil
	}
	defer w.mtx.Unlock()

	if w.db == nil {
		return nil
	}

	updates := atomic.LoadUint64(&w.updates)
	if updates == atomic.LoadUint64(&w.flushed) {
		return nil
	}
	last := time.Unix(0, atomic.LoadInt64(&w.lastWrite))
	if w.now().Sub(last) < idleFlushDelay {
		return nil
	}

	log.Debugf("Flushing idle wallet %s", w.loc.DisplayName())
	return w.syncLocked()
}

// PutTx stores a transaction and its metadata.
func (w *Wallet) PutTx(hash chainhash.Hash, tx, meta []byte) error {
	return w.update(func(btx *bbolt.Tx) error {
		if err := btx.Bucket(txBucket).Put(hash[:], tx); err != nil {
			return err
		}
		if meta == nil {
			return nil
		}
		return btx.Bucket(txMetaBucket).Put(hash[:], meta)
	})
}

// TxCount returns the number of stored transactions.
func (w *Wallet) TxCount() (int, error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	if w.db == nil {
		return 0, ErrWalletClosed
	}

	var n int
	err := w.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(txBucket).Stats().KeyN
		return nil
	})
	return n, err
}

// RescanPending reports whether a rescan was requested when the wallet was
// loaded.
func (w *Wallet) RescanPending() (bool, error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	if w.db == nil {
		return false, ErrWalletClosed
	}

	var pending bool
	err := w.db.View(func(tx *bbolt.Tx) error {
		pending = tx.Bucket(metaBucket).Get(rescanKey) != nil
		return nil
	})
	return pending, err
}

// version returns the stored format version of an open wallet.
func (w *Wallet) version() (uint32, error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	if w.db == nil {
		return 0, ErrWalletClosed
	}

	var v uint32
	err := w.db.View(func(tx *bbolt.Tx) error {
		v, _ = getUint32(tx.Bucket(metaBucket), versionKey)
		return nil
	})
	return v, err
}

func (w *Wallet) update(f func(*bbolt.Tx) error) error {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	if w.db == nil {
		return ErrWalletClosed
	}
	if err := w.db.Update(f); err != nil {
		return err
	}

	atomic.StoreInt64(&w.lastWrite, w.now().UnixNano())
	atomic.AddUint64(&w.updates, 1)
	return nil
}

func (w *Wallet) syncLocked() error {
	updates := atomic.LoadUint64(&w.updates)
	if err := w.db.Sync(); err != nil {
		return err
	}
	atomic.StoreUint64(&w.flushed, updates)
	return nil
}

func (w *Wallet) closeLocked() error {
	err := w.db.Close()
	w.db = nil
	log.Debugf("Closed wallet %s", w.loc.DisplayName())
	return err
}

// close syncs and releases the database if it is still open.
func (w *Wallet) close() error {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	if w.db == nil {
		return nil
	}
	if err := w.syncLocked(); err != nil {
		log.Errorf("Unable to sync wallet %s: %v",
			w.loc.DisplayName(), err)
	}
	return w.closeLocked()
}
