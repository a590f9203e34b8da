package storage

import (
	"context"
	"sync"
)

// subscriberBuffer is the number of changes a slow subscriber may lag
// behind before further changes are dropped for it.
const subscriberBuffer = 16

// Broadcaster fans changes out to subscribers of matching paths. Writers
// never block on a slow subscriber.
type Broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]subscription
}

type subscription struct {
	collection string
	id         string
	ch         chan Change
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]subscription)}
}

// Subscribe registers interest in path. The channel is closed once ctx is
// done or Close is called.
func (b *Broadcaster) Subscribe(ctx context.Context, path string) (<-chan Change, error) {
	collection, id, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	ch := make(chan Change, subscriberBuffer)

	b.mu.Lock()
	key := b.nextID
	b.nextID++
	b.subs[key] = subscription{collection: collection, id: id, ch: ch}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		if s, ok := b.subs[key]; ok {
			delete(b.subs, key)
			close(s.ch)
		}
	}()
	return ch, nil
}

// Publish delivers c to every subscriber whose path covers it.
func (b *Broadcaster) Publish(c Change) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subs {
		if s.collection != c.Collection {
			continue
		}
		// a document subscriber also hears about whole-collection writes
		if s.id != "" && c.ID != "" && s.id != c.ID {
			continue
		}
		select {
		case s.ch <- c:
		default:
		}
	}
}

// PublishSnapshot announces that every collection was replaced.
func (b *Broadcaster) PublishSnapshot() {
	for _, c := range Collections {
		b.Publish(Change{Collection: c})
	}
}

// Close ends every subscription.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for key, s := range b.subs {
		delete(b.subs, key)
		close(s.ch)
	}
}
