// Package local is the in-process event bus.
package local

import (
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/veesix-networks/dhcprelay/pkg/events"
	"github.com/veesix-networks/dhcprelay/pkg/logger"
)

const mailboxLen = 1024

// mailbox serialises delivery to one handler. A full mailbox drops the
// event rather than blocking the publisher.
type mailbox struct {
	id      uint64
	topic   string
	handler events.Handler
	queue   chan events.Event
}

func (m *mailbox) run(wg *sync.WaitGroup) {
	defer wg.Done()
	for e := range m.queue {
		m.handler(e)
	}
}

type subscription struct {
	bus  *Bus
	box  *mailbox
	once sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() { s.bus.remove(s.box) })
}

type Bus struct {
	mu      sync.RWMutex
	topics  map[string]map[uint64]*mailbox
	global  map[uint64]*mailbox
	closed  bool
	workers sync.WaitGroup

	nextID    atomic.Uint64
	published atomic.Uint64
	dropped   atomic.Uint64
	logger    *slog.Logger
}

var _ events.Bus = (*Bus)(nil)

func NewBus() events.Bus {
	return &Bus{
		topics: make(map[string]map[uint64]*mailbox),
		global: make(map[uint64]*mailbox),
		logger: logger.Get(logger.Events),
	}
}

// Publish stamps the event with an id, time and type where unset and queues
// it for every matching subscriber.
func (b *Bus) Publish(topic string, event events.Event) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Type == "" {
		event.Type = topic
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		b.dropped.Add(1)
		return
	}
	b.published.Add(1)

	for _, m := range b.topics[topic] {
		b.deliver(m, event)
	}
	for _, m := range b.global {
		b.deliver(m, event)
	}
}

func (b *Bus) deliver(m *mailbox, e events.Event) {
	select {
	case m.queue <- e:
	default:
		b.dropped.Add(1)
		b.logger.Warn("Subscriber queue full, dropping event", "topic", e.Type, "subscriber", m.id)
	}
}

func (b *Bus) Subscribe(topic string, handler events.Handler) events.Subscription {
	return b.add(topic, handler)
}

// SubscribeAll receives every topic.
func (b *Bus) SubscribeAll(handler events.Handler) events.Subscription {
	return b.add("", handler)
}

func (b *Bus) add(topic string, handler events.Handler) events.Subscription {
	m := &mailbox{
		id:      b.nextID.Add(1),
		topic:   topic,
		handler: handler,
		queue:   make(chan events.Event, mailboxLen),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(m.queue)
		return &subscription{bus: b, box: m}
	}
	if topic == "" {
		b.global[m.id] = m
	} else {
		if b.topics[topic] == nil {
			b.topics[topic] = make(map[uint64]*mailbox)
		}
		b.topics[topic][m.id] = m
	}
	b.workers.Add(1)
	b.mu.Unlock()

	go m.run(&b.workers)
	b.logger.Debug("Subscribed", "topic", topic, "subscriber", m.id)
	return &subscription{bus: b, box: m}
}

func (b *Bus) remove(m *mailbox) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if m.topic == "" {
		if _, ok := b.global[m.id]; !ok {
			return
		}
		delete(b.global, m.id)
	} else {
		subs, ok := b.topics[m.topic]
		if !ok {
			return
		}
		if _, ok := subs[m.id]; !ok {
			return
		}
		delete(subs, m.id)
		if len(subs) == 0 {
			delete(b.topics, m.topic)
		}
	}
	close(m.queue)
}

func (b *Bus) Stats() events.Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	stats := events.Stats{
		Topics:    make([]events.TopicStats, 0, len(b.topics)),
		Global:    len(b.global),
		Published: b.published.Load(),
		Dropped:   b.dropped.Load(),
	}
	for topic, subs := range b.topics {
		stats.Topics = append(stats.Topics, events.TopicStats{Topic: topic, Subscribers: len(subs)})
		for _, m := range subs {
			stats.Pending += len(m.queue)
		}
	}
	for _, m := range b.global {
		stats.Pending += len(m.queue)
	}
	sort.Slice(stats.Topics, func(i, j int) bool { return stats.Topics[i].Topic < stats.Topics[j].Topic })
	return stats
}

// Close stops accepting events, lets every subscriber drain its queue and
// waits for the handlers to return.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for _, subs := range b.topics {
		for _, m := range subs {
			close(m.queue)
		}
	}
	for _, m := range b.global {
		close(m.queue)
	}
	b.topics = make(map[string]map[uint64]*mailbox)
	b.global = make(map[uint64]*mailbox)
	b.mu.Unlock()

	b.workers.Wait()
	return nil
}
