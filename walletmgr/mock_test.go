package walletmgr

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/decred/dcrwalletmgr/walletpath"
	"github.com/decred/dcrwalletmgr/walletreg"
)

var errMock = errors.New("mock failure")

// callLog records the calls made into the mocks, in order.
type callLog struct {
	mtx   sync.Mutex
	calls []string
}

func (l *callLog) add(format string, args ...interface{}) {
	l.mtx.Lock()
	l.calls = append(l.calls, fmt.Sprintf(format, args...))
	l.mtx.Unlock()
}

func (l *callLog) get() []string {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	return append([]string(nil), l.calls...)
}

type mockWallet struct {
	loc   walletpath.Location
	calls *callLog

	failPostInit bool
	failFlush    bool
	failMaintain bool

	onMaintain func()
}

func (w *mockWallet) Name() string { return w.loc.ID }
func (w *mockWallet) Path() string { return w.loc.Path }

func (w *mockWallet) PostInit() error {
	w.calls.add("postinit %s", w.loc.ID)
	if w.failPostInit {
		return errMock
	}
	return nil
}

func (w *mockWallet) Flush(hard bool) error {
	w.calls.add("flush %s %v", w.loc.ID, hard)
	if w.failFlush {
		return errMock
	}
	return nil
}

func (w *mockWallet) Maintain() error {
	w.calls.add("maintain %s", w.loc.ID)
	if w.onMaintain != nil {
		w.onMaintain()
	}
	if w.failMaintain {
		return errMock
	}
	return nil
}

type mockBackend struct {
	calls *callLog

	// registry is checked on unload to make sure released wallets are no
	// longer registered.
	registry *walletreg.Registry[Wallet]

	verifyErr  map[string]error
	verifyWarn map[string]string
	loadErr    map[string]error
	unloadErr  map[string]error

	// configure is applied to every created wallet.
	configure func(w *mockWallet)

	unloadedWhileRegistered []string
}

func newMockBackend(reg *walletreg.Registry[Wallet]) *mockBackend {
	return &mockBackend{
		calls:      &callLog{},
		registry:   reg,
		verifyErr:  make(map[string]error),
		verifyWarn: make(map[string]string),
		loadErr:    make(map[string]error),
		unloadErr:  make(map[string]error),
	}
}

func (b *mockBackend) Verify(loc walletpath.Location, salvage bool) (string,
	error) {

	b.calls.add("verify %s %v", loc.ID, salvage)
	return b.verifyWarn[loc.ID], b.verifyErr[loc.ID]
}

func (b *mockBackend) LoadWallet(loc walletpath.Location) (Wallet, error) {
	b.calls.add("load %s", loc.ID)
	if err := b.loadErr[loc.ID]; err != nil {
		return nil, err
	}

	w := &mockWallet{loc: loc, calls: b.calls}
	if b.configure != nil {
		b.configure(w)
	}
	return w, nil
}

func (b *mockBackend) Unload(w Wallet) error {
	b.calls.add("unload %s", w.Name())
	if b.registry.Contains(w) {
		b.unloadedWhileRegistered = append(
			b.unloadedWhileRegistered, w.Name(),
		)
	}
	return b.unloadErr[w.Name()]
}

type scheduledTask struct {
	name     string
	task     func()
	interval time.Duration
}

type mockScheduler struct {
	tasks []scheduledTask
}

func (s *mockScheduler) ScheduleEvery(name string, task func(),
	interval time.Duration) {

	s.tasks = append(s.tasks, scheduledTask{name, task, interval})
}
