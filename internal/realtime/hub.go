// Package realtime fans change notifications out to in-process subscribers.
//
// Notifications carry no payload beyond the topic: a subscriber reloads the
// current snapshot when it is told the topic changed. Two signals that arrive
// while a reload is still pending therefore collapse into one.
package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/gofrs/uuid"
)

const (
	TopicProducts = "products"
	TopicSettings = "settings"
	TopicOrders   = "orders"
	TopicBanners  = "banners"
)

func CartTopic(userID uuid.UUID) string {
	return "cart:" + userID.String()
}

func UserOrdersTopic(userID uuid.UUID) string {
	return "orders:" + userID.String()
}

// Unsubscribe detaches a subscription. It is safe to call more than once.
type Unsubscribe func()

// Notifier announces that the documents behind topics changed.
type Notifier interface {
	Notify(ctx context.Context, topics ...string) error
}

type Event struct {
	Topic string
	At    time.Time
	Err   error
}

type subscriber struct {
	queue    chan Event
	done     chan struct{}
	once     sync.Once
	onUpdate func(Event)
	onError  func(error)
}

func (s *subscriber) run() {
	for {
		select {
		case <-s.done:
			return
		case ev := <-s.queue:
			if ev.Err != nil {
				if s.onError != nil {
					s.onError(ev.Err)
				}
				continue
			}
			s.onUpdate(ev)
		}
	}
}

func (s *subscriber) offer(ev Event) {
	select {
	case s.queue <- ev:
	default:
		// a signal is already pending; the reload it triggers sees this change too
	}
}

type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[uint64]*subscriber
	nextID uint64
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[uint64]*subscriber)}
}

// Subscribe registers callbacks for topic. Callbacks of one subscription run
// sequentially on a dedicated goroutine; onError may be nil.
func (h *Hub) Subscribe(topic string, onUpdate func(Event), onError func(error)) Unsubscribe {
	sub := &subscriber{
		queue:    make(chan Event, 1),
		done:     make(chan struct{}),
		onUpdate: onUpdate,
		onError:  onError,
	}

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[uint64]*subscriber)
	}
	h.subs[topic][id] = sub
	h.mu.Unlock()

	go sub.run()

	return func() {
		h.mu.Lock()
		if byID, ok := h.subs[topic]; ok {
			delete(byID, id)
			if len(byID) == 0 {
				delete(h.subs, topic)
			}
		}
		h.mu.Unlock()
		sub.once.Do(func() { close(sub.done) })
	}
}

// Publish signals every subscriber of topic.
func (h *Hub) Publish(topic string) {
	h.dispatch(topic, Event{Topic: topic, At: time.Now()})
}

// Fail delivers err to every subscriber of every topic.
func (h *Hub) Fail(err error) {
	for _, topic := range h.Topics() {
		h.dispatch(topic, Event{Topic: topic, At: time.Now(), Err: err})
	}
}

// Resync publishes every topic that has subscribers. Changes made while the
// feed was down produced no signal, so subscribers reload after a reconnect.
func (h *Hub) Resync() {
	for _, topic := range h.Topics() {
		h.Publish(topic)
	}
}

// Topics lists the topics that currently have at least one subscriber.
func (h *Hub) Topics() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	topics := make([]string, 0, len(h.subs))
	for topic := range h.subs {
		topics = append(topics, topic)
	}
	return topics
}

func (h *Hub) dispatch(topic string, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs[topic] {
		sub.offer(ev)
	}
}

// Notify publishes in-process. It makes Hub a Notifier for single-instance
// deployments and tests.
func (h *Hub) Notify(_ context.Context, topics ...string) error {
	for _, topic := range topics {
		h.Publish(topic)
	}
	return nil
}

// Subscribers reports how many subscriptions topic has.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}
