package projector

import (
	"context"
	"sync"
)

// subscriptionManager owns the child subscriptions a parent subscription
// fans out to (per-conversation message lists, per-post comment subtrees).
// Children are keyed by parent entity id; reconciling against the latest
// parent set tears down subscriptions whose entity disappeared, so a
// shrinking parent collection cannot leak watchers.
type subscriptionManager struct {
	mu      sync.Mutex
	ctx     context.Context
	cancels map[string]context.CancelFunc
}

func newSubscriptionManager(ctx context.Context) *subscriptionManager {
	return &subscriptionManager{
		ctx:     ctx,
		cancels: make(map[string]context.CancelFunc),
	}
}

// Sync reconciles active children against want. open is invoked once per new
// id with a context that is cancelled when the id drops out of a later Sync,
// or when the manager closes; it must return promptly and run its
// subscription loop on its own goroutine.
func (m *subscriptionManager) Sync(want []string, open func(ctx context.Context, id string)) {
	wanted := make(map[string]bool, len(want))
	for _, id := range want {
		wanted[id] = true
	}

	m.mu.Lock()
	var added []string
	for id, cancel := range m.cancels {
		if !wanted[id] {
			cancel()
			delete(m.cancels, id)
		}
	}
	var contexts []context.Context
	for id := range wanted {
		if _, ok := m.cancels[id]; ok {
			continue
		}
		ctx, cancel := context.WithCancel(m.ctx)
		m.cancels[id] = cancel
		added = append(added, id)
		contexts = append(contexts, ctx)
	}
	m.mu.Unlock()

	for i, id := range added {
		open(contexts[i], id)
	}
}

// Active returns the currently subscribed ids.
func (m *subscriptionManager) Active() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.cancels))
	for id := range m.cancels {
		ids = append(ids, id)
	}
	return ids
}

// Close cancels every child subscription.
func (m *subscriptionManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, cancel := range m.cancels {
		cancel()
		delete(m.cancels, id)
	}
}
