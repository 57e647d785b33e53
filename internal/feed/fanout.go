package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/cartridge/fighter/internal/gamestate"
)

// Fanout copies one upstream source to several subscribers. Every subscriber
// sees every snapshot in order; a slow subscriber stalls the others once its
// buffer is full.
type Fanout struct {
	upstream Source
	subs     []*subscriber

	mu  sync.Mutex
	err error
}

// NewFanout creates n subscribers, each buffering up to buffer snapshots.
func NewFanout(upstream Source, n, buffer int) (*Fanout, error) {
	if n <= 0 {
		return nil, fmt.Errorf("fanout needs at least one subscriber, got %d", n)
	}
	if buffer < 0 {
		return nil, fmt.Errorf("fanout buffer must not be negative, got %d", buffer)
	}
	f := &Fanout{upstream: upstream}
	for i := 0; i < n; i++ {
		f.subs = append(f.subs, &subscriber{parent: f, ch: make(chan gamestate.Snapshot, buffer)})
	}
	return f, nil
}

// Subscriber returns subscriber i.
func (f *Fanout) Subscriber(i int) Source {
	return f.subs[i]
}

// Run pumps upstream until it is exhausted, fails, or ctx ends. Subscribers
// drain their buffers and then see the same ending: io.EOF for a clean end,
// the upstream error otherwise.
func (f *Fanout) Run(ctx context.Context) error {
	err := f.pump(ctx)
	f.mu.Lock()
	if err == nil {
		f.err = io.EOF
	} else {
		f.err = err
	}
	f.mu.Unlock()
	for _, s := range f.subs {
		close(s.ch)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (f *Fanout) pump(ctx context.Context) error {
	for {
		snap, err := f.upstream.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		for _, s := range f.subs {
			select {
			case s.ch <- snap:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (f *Fanout) ending() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

type subscriber struct {
	parent *Fanout
	ch     chan gamestate.Snapshot
}

func (s *subscriber) Next(ctx context.Context) (gamestate.Snapshot, error) {
	select {
	case snap, ok := <-s.ch:
		if !ok {
			return gamestate.Snapshot{}, s.parent.ending()
		}
		return snap, nil
	case <-ctx.Done():
		return gamestate.Snapshot{}, ctx.Err()
	}
}
