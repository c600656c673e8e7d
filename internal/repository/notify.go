package repository

import (
	"context"
	"sync"
)

// notifier fans out per-user change notifications to subscribers. Stores
// embed one and call changed(uid) after every successful write.
type notifier struct {
	mu   sync.Mutex
	next int
	subs map[string]map[int]chan struct{}
}

func newNotifier() *notifier {
	return &notifier{subs: map[string]map[int]chan struct{}{}}
}

func (n *notifier) changed(uid string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs[uid] {
		select {
		case ch <- struct{}{}:
		default: // a pending tick already covers this change
		}
	}
}

// run delivers an initial snapshot, then one per change notification, until
// ctx is done. load is called outside the notifier lock.
func (n *notifier) run(ctx context.Context, uid string, load func() (Snapshot, error), fn SubscribeFunc) error {
	ch := make(chan struct{}, 1)

	n.mu.Lock()
	id := n.next
	n.next++
	if n.subs[uid] == nil {
		n.subs[uid] = map[int]chan struct{}{}
	}
	n.subs[uid][id] = ch
	n.mu.Unlock()

	defer func() {
		n.mu.Lock()
		delete(n.subs[uid], id)
		if len(n.subs[uid]) == 0 {
			delete(n.subs, uid)
		}
		n.mu.Unlock()
	}()

	deliver := func() error {
		snap, err := load()
		if err != nil {
			return err
		}
		fn(snap)
		return nil
	}
	if err := deliver(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
			if err := deliver(); err != nil {
				return err
			}
		}
	}
}
