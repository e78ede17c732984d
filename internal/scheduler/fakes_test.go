package scheduler

import (
	"context"
	"errors"
	"sync"

	"calbot/internal/transport"
)

type fakeChannel struct {
	id   int64
	mu   sync.Mutex
	sent []string
}

func (c *fakeChannel) Target() transport.ChatTarget { return transport.ChatTarget{ChatID: c.id} }
func (c *fakeChannel) Title() string                { return "test" }
func (c *fakeChannel) Send(_ context.Context, text string, _ *transport.SendOptions) (transport.MessageRef, error) {
	c.mu.Lock()
	c.sent = append(c.sent, text)
	c.mu.Unlock()
	return transport.MessageRef{ChatID: c.id}, nil
}

type fakeResolver struct {
	ready    chan struct{}
	channels map[int64]*fakeChannel
}

func newFakeResolver(ready bool, ids ...int64) *fakeResolver {
	r := &fakeResolver{ready: make(chan struct{}), channels: map[int64]*fakeChannel{}}
	if ready {
		close(r.ready)
	}
	for _, id := range ids {
		r.channels[id] = &fakeChannel{id: id}
	}
	return r
}

func (r *fakeResolver) Ready() <-chan struct{} { return r.ready }

func (r *fakeResolver) ResolveChannel(_ context.Context, id int64) (transport.Channel, error) {
	ch, ok := r.channels[id]
	if !ok {
		return nil, errors.New("chat not found")
	}
	return ch, nil
}

// recorder is a payload that remembers the channels it was given.
type recorder struct {
	mu    sync.Mutex
	calls []transport.Channel
	err   error
}

func (r *recorder) payload(_ context.Context, ch transport.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, ch)
	return r.err
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func noop(context.Context, transport.Channel) error { return nil }
