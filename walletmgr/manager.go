package walletmgr

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/decred/dcrwalletmgr/automation"
	"github.com/decred/dcrwalletmgr/walletpath"
	"github.com/decred/dcrwalletmgr/walletreg"
)

// DefaultMaintenanceInterval is how often the maintenance task visits every
// wallet.
const DefaultMaintenanceInterval = 500 * time.Millisecond

// maintenanceTaskName is the name the maintenance task is scheduled under.
const maintenanceTaskName = "wallet maintenance"

// ErrInvalidState is returned when an operation is attempted from a state it
// cannot be started from.
var ErrInvalidState = errors.New("invalid wallet manager state")

// Config holds everything the manager needs to drive the wallets.
type Config struct {
	// Backend creates and releases the wallets.
	Backend Backend

	// Registry receives the loaded wallets. It should be empty.
	Registry *walletreg.Registry[Wallet]

	// Scheduler runs the periodic maintenance task.
	Scheduler automation.Scheduler

	// Disabled turns every operation into a no-op over an empty wallet
	// set.
	Disabled bool

	// Salvage requests a salvage attempt during verification. It is only
	// honored when at most one wallet is configured.
	Salvage bool

	// MaintenanceInterval overrides DefaultMaintenanceInterval.
	MaintenanceInterval time.Duration

	// Metrics is optional.
	Metrics *Metrics
}

// VerifyResult is the outcome of verifying the configured wallets.
type VerifyResult struct {
	// Locations are the resolved wallets, in configuration order.
	Locations []walletpath.Location

	// Errors holds one entry per wallet that failed verification.
	Errors []error

	// Warnings holds the non fatal messages reported by the backend.
	Warnings []string
}

// OK returns true if every wallet verified.
func (r *VerifyResult) OK() bool {
	return len(r.Errors) == 0
}

// Err joins the verification errors.
func (r *VerifyResult) Err() error {
	return errors.Join(r.Errors...)
}

// Manager sequences the lifecycle of the configured wallet set: verify, load,
// start, flush, stop and unload.
//
// Loading is all-or-nothing: the first failure aborts the batch. Every other
// per-wallet operation is best effort: a failing wallet is logged and the
// remaining ones are still processed.
type Manager struct {
	cfg *Config

	mtx   sync.Mutex
	state State
}

// New creates a wallet manager.
func New(cfg *Config) *Manager {
	if cfg.MaintenanceInterval <= 0 {
		cfg.MaintenanceInterval = DefaultMaintenanceInterval
	}
	if cfg.Registry == nil {
		cfg.Registry = walletreg.New[Wallet]()
	}

	return &Manager{cfg: cfg}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	return m.state
}

// Registry returns the registry holding the loaded wallets.
func (m *Manager) Registry() *walletreg.Registry[Wallet] {
	return m.cfg.Registry
}

// transition checks that op may run from the current state and moves to
// next.
func (m *Manager) transition(op string, next State) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	for _, s := range validFrom[op] {
		if s == m.state {
			log.Tracef("Wallet manager %v -> %v", m.state, next)
			m.state = next
			return nil
		}
	}

	return fmt.Errorf("%w: cannot %s wallets while %v", ErrInvalidState,
		op, m.state)
}

func (m *Manager) setState(s State) {
	m.mtx.Lock()
	m.state = s
	m.mtx.Unlock()
}

// Verify resolves the configured wallet identifiers under walletDir and asks
// the backend to check each of them. No identifier selects the default
// wallet.
//
// Two identifiers resolving to the same wallet are a configuration error and
// abort verification. Per wallet failures are collected in the result so
// that every broken wallet gets reported; the caller decides whether to
// abort.
func (m *Manager) Verify(ids []string, walletDir string) (*VerifyResult,
	error) {

	if err := m.transition("verify", StateVerified); err != nil {
		return nil, err
	}

	res := &VerifyResult{}
	if m.cfg.Disabled {
		return res, nil
	}

	if len(ids) == 0 {
		ids = []string{""}
	}

	locs, err := walletpath.ResolveAll(ids, walletDir)
	if err != nil {
		m.setState(StateUnvalidated)
		return nil, err
	}
	res.Locations = locs

	salvage := m.cfg.Salvage && len(ids) <= 1

	for _, loc := range locs {
		log.Debugf("Verifying wallet %v", loc)

		warning, err := m.cfg.Backend.Verify(loc, salvage)
		if warning != "" {
			log.Warnf("Wallet %s: %s", loc.DisplayName(), warning)
			res.Warnings = append(res.Warnings, warning)
		}
		if err != nil {
			log.Errorf("Unable to verify wallet %s: %v",
				loc.DisplayName(), err)
			m.cfg.Metrics.walletError("verify")
			res.Errors = append(res.Errors, fmt.Errorf("wallet %s: %w",
				loc.DisplayName(), err))
		}
	}

	return res, nil
}

// Load loads every location in order and registers each wallet as soon as it
// is created. The first failure aborts the batch and moves the manager to
// StateFailed; wallets loaded before the failure stay registered until
// Unload is called.
func (m *Manager) Load(locs []walletpath.Location) error {
	if err := m.transition("load", StateLoaded); err != nil {
		return err
	}

	if m.cfg.Disabled {
		return nil
	}

	for _, loc := range locs {
		log.Infof("Loading wallet %v", loc)

		w, err := m.cfg.Backend.LoadWallet(loc)
		if err != nil {
			m.setState(StateFailed)
			m.cfg.Metrics.walletError("load")
			return fmt.Errorf("unable to load wallet %s: %w",
				loc.DisplayName(), err)
		}

		if err := m.cfg.Registry.Add(w); err != nil {
			m.setState(StateFailed)
			m.cfg.Metrics.walletError("load")

			// The handle never made it into the registry, so it
			// is ours to release.
			if uerr := m.cfg.Backend.Unload(w); uerr != nil {
				log.Errorf("Unable to unload wallet %s: %v",
					w.Name(), uerr)
			}
			return err
		}
		m.cfg.Metrics.setLoaded(m.cfg.Registry.Len())
	}

	log.Infof("Loaded %d wallet(s)", len(locs))

	return nil
}

// Start notifies every registered wallet that the node is up and installs
// the periodic maintenance task.
func (m *Manager) Start() error {
	if err := m.transition("start", StateRunning); err != nil {
		return err
	}

	if m.cfg.Disabled {
		return nil
	}

	m.forEach("start", func(w Wallet) error {
		return w.PostInit()
	})

	m.cfg.Scheduler.ScheduleEvery(
		maintenanceTaskName, m.Maintain, m.cfg.MaintenanceInterval,
	)

	return nil
}

// Maintain runs one maintenance pass over the registered wallets. It is the
// body of the periodic maintenance task.
func (m *Manager) Maintain() {
	m.cfg.Metrics.maintenanceRun()

	for _, w := range m.cfg.Registry.Wallets() {
		// Skip wallets that were unregistered since the snapshot was
		// taken; they may be in the middle of being released.
		if !m.cfg.Registry.Contains(w) {
			continue
		}

		if err := w.Maintain(); err != nil {
			log.Errorf("Maintenance of wallet %s failed: %v",
				w.Name(), err)
			m.cfg.Metrics.walletError("maintain")
		}
	}
}

// Flush asks every wallet to persist its pending state without releasing
// any resources.
func (m *Manager) Flush() error {
	if err := m.transition("flush", StateFlushing); err != nil {
		return err
	}

	m.forEach("flush", func(w Wallet) error {
		return w.Flush(false)
	})

	return nil
}

// Stop asks every wallet to persist its state and release its storage. It is
// called once, at shutdown.
func (m *Manager) Stop() error {
	if err := m.transition("stop", StateStopped); err != nil {
		return err
	}

	m.forEach("stop", func(w Wallet) error {
		return w.Flush(true)
	})

	return nil
}

// Unload drains the registry, most recently loaded wallet first. Each wallet
// is removed from the registry before it is released so that nobody looking
// up wallets can observe one that is being torn down.
func (m *Manager) Unload() error {
	if err := m.transition("unload", StateUnloaded); err != nil {
		return err
	}

	for {
		w, ok := m.cfg.Registry.PopBack()
		if !ok {
			break
		}
		m.cfg.Metrics.setLoaded(m.cfg.Registry.Len())

		log.Infof("Unloading wallet %s", w.Name())
		if err := m.cfg.Backend.Unload(w); err != nil {
			log.Errorf("Unable to unload wallet %s: %v", w.Name(),
				err)
			m.cfg.Metrics.walletError("unload")
		}
	}

	return nil
}

// forEach applies fn to a snapshot of the registered wallets, logging and
// skipping over failures.
func (m *Manager) forEach(op string, fn func(Wallet) error) {
	for _, w := range m.cfg.Registry.Wallets() {
		if err := fn(w); err != nil {
			log.Errorf("Unable to %s wallet %s: %v", op, w.Name(),
				err)
			m.cfg.Metrics.walletError(op)
		}
	}
}
