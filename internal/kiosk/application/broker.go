package application

import (
	"context"
	"sync"

	"github.com/sngm3741/haraj-kiosk/api/internal/kiosk/domain"
)

// LocalBroker delivers inserts to subscribers of the same process.
type LocalBroker struct {
	mu     sync.RWMutex
	subs   map[int]func(domain.Review)
	nextID int
}

// NewLocalBroker returns an empty in-process broker.
func NewLocalBroker() *LocalBroker {
	return &LocalBroker{subs: make(map[int]func(domain.Review))}
}

func (b *LocalBroker) PublishInsert(_ context.Context, review domain.Review) error {
	b.mu.RLock()
	subs := make([]func(domain.Review), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.RUnlock()
	for _, fn := range subs {
		fn(review)
	}
	return nil
}

func (b *LocalBroker) SubscribeInserts(_ context.Context, fn func(domain.Review)) (func(), error) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[id] = fn
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}, nil
}
