package auth

import (
	"context"
	"sync"

	"github.com/oncontrol/platform/internal/model"
)

// StateTracker is the authentication-state observable the session manager
// binds to. Listeners fire once immediately with the current state and
// again on every sign-in or sign-out.
type StateTracker struct {
	mu        sync.Mutex
	user      *model.User
	listeners map[int]func(*model.User)
	nextID    int
}

func NewStateTracker() *StateTracker {
	return &StateTracker{listeners: make(map[int]func(*model.User))}
}

// OnChange registers a listener and invokes it immediately with the
// current state. The returned func removes the listener and is safe to
// call more than once.
func (t *StateTracker) OnChange(fn func(*model.User)) (cancel func()) {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.listeners[id] = fn
	current := t.user
	t.mu.Unlock()

	fn(current)

	return func() {
		t.mu.Lock()
		delete(t.listeners, id)
		t.mu.Unlock()
	}
}

// SignIn marks the identity as active and notifies listeners.
func (t *StateTracker) SignIn(user model.User) {
	t.mu.Lock()
	u := user
	t.user = &u
	fns := t.snapshotListeners()
	t.mu.Unlock()
	for _, fn := range fns {
		fn(&u)
	}
}

// SignOut clears the identity and notifies listeners.
func (t *StateTracker) SignOut() {
	t.mu.Lock()
	t.user = nil
	fns := t.snapshotListeners()
	t.mu.Unlock()
	for _, fn := range fns {
		fn(nil)
	}
}

// CurrentUser returns the active identity, or nil when signed out.
func (t *StateTracker) CurrentUser(_ context.Context) *model.User {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.user
}

func (t *StateTracker) snapshotListeners() []func(*model.User) {
	fns := make([]func(*model.User), 0, len(t.listeners))
	for _, fn := range t.listeners {
		fns = append(fns, fn)
	}
	return fns
}
