package broker

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/petermattis/goid"
)

type subscription struct {
	id        uint64
	topic     Topic
	owner     any
	handler   Handler
	cancelled atomic.Bool
}

type Stats struct {
	Fired         uint64
	Delivered     uint64
	Panics        uint64
	DroppedNested uint64
	Subscriptions int
	Owners        int
}

// Broker is a synchronous topic hub with owner-scoped subscriptions.
type Broker struct {
	mu       sync.Mutex
	topics   map[Topic][]*subscription
	owners   map[any][]*subscription
	services map[string]any
	nextID   uint64

	maxDepth int
	depth    atomic.Int32

	affinity bool
	loopGID  atomic.Int64

	log *slog.Logger

	fired         atomic.Uint64
	delivered     atomic.Uint64
	panics        atomic.Uint64
	droppedNested atomic.Uint64
}

func New(opts ...Option) *Broker {
	b := &Broker{
		topics:   make(map[Topic][]*subscription),
		owners:   make(map[any][]*subscription),
		services: make(map[string]any),
		maxDepth: defaultMaxDepth,
		log:      slog.Default().With("component", "broker"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Listen registers handler for topic on behalf of owner. Owner must be comparable
// (a pointer in practice) and non-nil.
func (b *Broker) Listen(topic Topic, owner any, handler Handler) {
	if owner == nil || handler == nil {
		b.log.Error("listen ignored: owner and handler are required", "topic", topic)
		return
	}
	b.checkAffinity("listen", topic, false)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &subscription{
		id:      b.nextID,
		topic:   topic,
		owner:   owner,
		handler: handler,
	}
	b.topics[topic] = append(b.topics[topic], sub)
	b.owners[owner] = append(b.owners[owner], sub)
}

// Fire invokes every live handler of topic in registration order and returns when
// the last one has finished.
func (b *Broker) Fire(topic Topic, source any, args ...any) {
	b.checkAffinity("fire", topic, true)

	depth := b.depth.Add(1)
	defer b.depth.Add(-1)
	if int(depth) > b.maxDepth {
		b.droppedNested.Add(1)
		b.log.Error("nested fire dropped", "topic", topic, "depth", depth, "max_depth", b.maxDepth)
		return
	}

	b.mu.Lock()
	live := b.topics[topic]
	snapshot := make([]*subscription, len(live))
	copy(snapshot, live)
	b.mu.Unlock()

	b.fired.Add(1)
	if len(snapshot) == 0 {
		return
	}

	evt := Event{Topic: topic, Source: source, Args: args}
	for _, sub := range snapshot {
		if sub.cancelled.Load() {
			continue
		}
		b.dispatch(sub, evt)
	}
}

func (b *Broker) dispatch(sub *subscription, evt Event) {
	defer func() {
		if recovered := recover(); recovered != nil {
			b.panics.Add(1)
			b.log.Error("handler panic recovered",
				"topic", evt.Topic,
				"owner", fmt.Sprintf("%T", sub.owner),
				"error", fmt.Sprintf("%v", recovered),
				"stack", string(debug.Stack()))
		}
	}()

	sub.handler(evt)
	b.delivered.Add(1)
}

// StopListening removes the subscriptions owner holds on topic.
func (b *Broker) StopListening(topic Topic, owner any) {
	if owner == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	owned := b.owners[owner]
	kept := owned[:0]
	for _, sub := range owned {
		if sub.topic == topic {
			sub.cancelled.Store(true)
			continue
		}
		kept = append(kept, sub)
	}
	if len(kept) == 0 {
		delete(b.owners, owner)
	} else {
		b.owners[owner] = kept
	}

	b.pruneTopicLocked(topic)
}

// StopListeningAll removes every subscription owner holds, on every topic, under
// a single lock. Calling it for an owner with no subscriptions is a no-op.
func (b *Broker) StopListeningAll(owner any) {
	if owner == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	owned, ok := b.owners[owner]
	if !ok {
		return
	}
	delete(b.owners, owner)

	touched := make(map[Topic]struct{}, len(owned))
	for _, sub := range owned {
		sub.cancelled.Store(true)
		touched[sub.topic] = struct{}{}
	}
	for topic := range touched {
		b.pruneTopicLocked(topic)
	}
}

func (b *Broker) pruneTopicLocked(topic Topic) {
	subs := b.topics[topic]
	kept := make([]*subscription, 0, len(subs))
	for _, sub := range subs {
		if !sub.cancelled.Load() {
			kept = append(kept, sub)
		}
	}
	if len(kept) == 0 {
		delete(b.topics, topic)
		return
	}
	b.topics[topic] = kept
}

// Listeners returns the number of live subscriptions on topic.
func (b *Broker) Listeners(topic Topic) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.topics[topic])
}

// Owns reports whether owner holds any live subscription.
func (b *Broker) Owns(owner any) bool {
	if owner == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.owners[owner]) > 0
}

// SetService registers a named service instance, replacing any previous one.
func (b *Broker) SetService(name string, service any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.services[name] = service
}

// Service returns the named service, or nil.
func (b *Broker) Service(name string) any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.services[name]
}

func (b *Broker) Stats() Stats {
	b.mu.Lock()
	subs := 0
	for _, list := range b.topics {
		subs += len(list)
	}
	owners := len(b.owners)
	b.mu.Unlock()

	return Stats{
		Fired:         b.fired.Load(),
		Delivered:     b.delivered.Load(),
		Panics:        b.panics.Load(),
		DroppedNested: b.droppedNested.Load(),
		Subscriptions: subs,
		Owners:        owners,
	}
}

// checkAffinity compares the calling goroutine with the loop goroutine. Only Fire
// claims ownership, so components may subscribe before the loop starts.
func (b *Broker) checkAffinity(op string, topic Topic, claim bool) {
	if !b.affinity {
		return
	}

	gid := goid.Get()
	if claim && b.loopGID.CompareAndSwap(0, gid) {
		return
	}
	if owner := b.loopGID.Load(); owner != 0 && owner != gid {
		b.log.Warn("broker used off the event loop", "op", op, "topic", topic, "loop_goroutine", owner, "goroutine", gid)
	}
}
