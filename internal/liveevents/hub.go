package liveevents

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/fx"
)

const (
	EventSnapshot = "snapshot"
	EventReset    = "reset"
)

const (
	// Only the latest session snapshot is worth replaying to a new subscriber.
	DefaultBacklogSize      = 1
	DefaultSubscriberBuffer = 8
)

var (
	ErrHubUnavailable  = errors.New("hub_unavailable")
	ErrInvalidDeviceID = errors.New("invalid_device_id")
)

var Module = fx.Module("liveevents",
	fx.Provide(NewHub),
)

// Event is one message on a device stream. Data is pre-encoded JSON.
type Event struct {
	Type     string          `json:"type"`
	Sequence uint64          `json:"sequence"`
	At       time.Time       `json:"at"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// Hub fans events out to the subscribers of each device. Slow subscribers
// drop events rather than block publishers.
type Hub struct {
	mu               sync.RWMutex
	streams          map[string]*stream
	backlogSize      int
	subscriberBuffer int
}

type stream struct {
	mu      sync.Mutex
	backlog []Event
	subs    map[uint64]chan Event
	nextID  uint64
	seq     uint64
}

type Subscription struct {
	hub      *Hub
	deviceID string
	id       uint64
	ch       chan Event
	once     sync.Once
}

func NewHub() *Hub {
	return NewHubWithSizes(DefaultBacklogSize, DefaultSubscriberBuffer)
}

func NewHubWithSizes(backlogSize, subscriberBuffer int) *Hub {
	if backlogSize < 0 {
		backlogSize = 0
	}
	if subscriberBuffer <= 0 {
		subscriberBuffer = DefaultSubscriberBuffer
	}
	return &Hub{
		streams:          make(map[string]*stream),
		backlogSize:      backlogSize,
		subscriberBuffer: subscriberBuffer,
	}
}

// Publish stamps event with the stream's next sequence number and delivers it.
// Events for devices nobody has subscribed to are still kept as backlog.
func (h *Hub) Publish(deviceID string, event Event) {
	if h == nil {
		return
	}
	id := strings.TrimSpace(deviceID)
	if id == "" {
		return
	}

	stream := h.ensureStream(id)
	stream.mu.Lock()
	stream.seq++
	event.Sequence = stream.seq
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	if h.backlogSize > 0 {
		stream.backlog = append(stream.backlog, event)
		if len(stream.backlog) > h.backlogSize {
			stream.backlog = stream.backlog[len(stream.backlog)-h.backlogSize:]
		}
	}
	subs := make([]chan Event, 0, len(stream.subs))
	for _, ch := range stream.subs {
		subs = append(subs, ch)
	}
	stream.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
}

func (h *Hub) Subscribe(deviceID string) (*Subscription, []Event, error) {
	if h == nil {
		return nil, nil, ErrHubUnavailable
	}
	id := strings.TrimSpace(deviceID)
	if id == "" {
		return nil, nil, ErrInvalidDeviceID
	}

	stream := h.ensureStream(id)
	stream.mu.Lock()
	subID := stream.nextID
	stream.nextID++
	ch := make(chan Event, h.subscriberBuffer)
	stream.subs[subID] = ch
	backlog := append([]Event(nil), stream.backlog...)
	stream.mu.Unlock()

	return &Subscription{hub: h, deviceID: id, id: subID, ch: ch}, backlog, nil
}

// Subscribers reports the live subscriber count for a device.
func (h *Hub) Subscribers(deviceID string) int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	stream := h.streams[strings.TrimSpace(deviceID)]
	h.mu.RUnlock()
	if stream == nil {
		return 0
	}
	stream.mu.Lock()
	defer stream.mu.Unlock()
	return len(stream.subs)
}

func (h *Hub) ensureStream(deviceID string) *stream {
	h.mu.RLock()
	current := h.streams[deviceID]
	h.mu.RUnlock()
	if current != nil {
		return current
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	current = h.streams[deviceID]
	if current == nil {
		current = &stream{subs: make(map[uint64]chan Event)}
		h.streams[deviceID] = current
	}
	return current
}

// Streams stay registered after their last subscriber leaves so the backlog
// and sequence survive reconnects; a device has exactly one stream.
func (h *Hub) unsubscribe(deviceID string, id uint64) {
	h.mu.RLock()
	stream := h.streams[deviceID]
	h.mu.RUnlock()
	if stream == nil {
		return
	}
	stream.mu.Lock()
	delete(stream.subs, id)
	stream.mu.Unlock()
}

func (s *Subscription) Events() <-chan Event {
	if s == nil {
		return nil
	}
	return s.ch
}

func (s *Subscription) Close() {
	if s == nil || s.hub == nil {
		return
	}
	s.once.Do(func() {
		s.hub.unsubscribe(s.deviceID, s.id)
	})
}
