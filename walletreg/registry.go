package walletreg

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	list "github.com/bahlo/generic-list-go"
)

var (
	// ErrDuplicate is returned when adding a wallet whose location is
	// already registered.
	ErrDuplicate = errors.New("wallet already registered")

	// ErrNilHandle is returned when adding a nil handle.
	ErrNilHandle = errors.New("nil wallet handle")
)

// Handle is the part of a live wallet the registry needs to know about.
type Handle interface {
	// Name returns the identifier the wallet was configured with.
	Name() string

	// Path returns the canonical location of the wallet.
	Path() string
}

// Registry is an insertion ordered set of live wallets. It only guards its
// own membership; the handles are responsible for their own concurrency.
//
// Membership in the registry is the authoritative "still alive" signal of a
// wallet: a handle is removed before it gets released.
type Registry[H Handle] struct {
	mtx sync.RWMutex

	wallets *list.List[H]
	byPath  map[string]*list.Element[H]
}

// New returns an empty registry.
func New[H Handle]() *Registry[H] {
	return &Registry[H]{
		wallets: list.New[H](),
		byPath:  make(map[string]*list.Element[H]),
	}
}

// Add appends the wallet to the registry. It fails if a wallet with the same
// path is already present.
func (r *Registry[H]) Add(h H) error {
	if isNil(h) {
		return ErrNilHandle
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	path := h.Path()
	if _, ok := r.byPath[path]; ok {
		return fmt.Errorf("%w: %s (%s)", ErrDuplicate, h.Name(), path)
	}

	r.byPath[path] = r.wallets.PushBack(h)
	log.Debugf("Registered wallet %s (%s), %d wallets loaded", h.Name(),
		path, r.wallets.Len())

	return nil
}

// Remove drops the wallet from the registry. It returns false if the handle
// was not registered.
func (r *Registry[H]) Remove(h H) bool {
	if isNil(h) {
		return false
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	elem, ok := r.byPath[h.Path()]
	if !ok || any(elem.Value) != any(h) {
		return false
	}

	delete(r.byPath, h.Path())
	r.wallets.Remove(elem)
	log.Debugf("Removed wallet %s, %d wallets loaded", h.Name(),
		r.wallets.Len())

	return true
}

// PopBack removes and returns the most recently added wallet.
func (r *Registry[H]) PopBack() (H, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	var h H
	elem := r.wallets.Back()
	if elem == nil {
		return h, false
	}

	h = r.wallets.Remove(elem)
	delete(r.byPath, h.Path())

	return h, true
}

// Get returns the wallet registered at path.
func (r *Registry[H]) Get(path string) (H, bool) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	var h H
	elem, ok := r.byPath[path]
	if !ok {
		return h, false
	}
	return elem.Value, true
}

// Contains returns true if the handle is registered.
func (r *Registry[H]) Contains(h H) bool {
	if isNil(h) {
		return false
	}

	r.mtx.RLock()
	defer r.mtx.RUnlock()

	elem, ok := r.byPath[h.Path()]
	return ok && any(elem.Value) == any(h)
}

// Wallets returns a snapshot of the registered wallets in insertion order.
// The snapshot can be iterated without holding any lock.
func (r *Registry[H]) Wallets() []H {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	wallets := make([]H, 0, r.wallets.Len())
	for e := r.wallets.Front(); e != nil; e = e.Next() {
		wallets = append(wallets, e.Value)
	}
	return wallets
}

// Len returns the number of registered wallets.
func (r *Registry[H]) Len() int {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	return r.wallets.Len()
}

// isNil reports whether h is a nil interface or a typed nil pointer.
func isNil(h Handle) bool {
	if h == nil {
		return true
	}

	v := reflect.ValueOf(h)
	return v.Kind() == reflect.Ptr && v.IsNil()
}
