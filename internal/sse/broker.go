// Package sse implements a Server-Sent Events broker for live graph updates.
package sse

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// Event types sent to clients.
const (
	EventDocumentCreated = "document.created"
	EventDocumentUpdated = "document.updated"
	EventDocumentDeleted = "document.deleted"
	EventGraphRebuilt    = "graph.rebuilt"
	EventLayoutUpdated   = "layout.updated"
	EventNodeActivated   = "node.activated"
)

var changeEvents = map[string]string{
	"created": EventDocumentCreated,
	"updated": EventDocumentUpdated,
	"deleted": EventDocumentDeleted,
}

const (
	clientBuffer     = 64
	defaultKeepAlive = 15 * time.Second
	// retryMillis is the reconnect delay suggested to EventSource clients.
	retryMillis = 2000
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Broker manages SSE client connections and broadcasts events.
//
// A single goroutine owns the client set, the event counter and the layout
// throttle. Public methods talk to it through channels.
//
// layout.updated is rate limited: the first payload in a quiet period is
// sent at once, later ones replace each other until the interval elapses
// and then the newest is sent. The final layout of a burst is never lost.
type Broker struct {
	layoutMin time.Duration
	// KeepAlive is the interval of comment pings on idle streams. Set it
	// before serving; zero means 15s.
	KeepAlive time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	layoutCh      chan any
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker. layout.updated events are sent at
// most once per layoutThrottle.
func NewBroker(layoutThrottle time.Duration) *Broker {
	if layoutThrottle <= 0 {
		layoutThrottle = 250 * time.Millisecond
	}

	b := &Broker{
		layoutMin:     layoutThrottle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		layoutCh:      make(chan any, 1),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

// encode formats one SSE frame. Events whose data cannot be marshalled
// are dropped.
func encode(id uint64, event Event) ([]byte, bool) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, false
	}
	var buf bytes.Buffer
	buf.WriteString("id: ")
	buf.WriteString(strconv.FormatUint(id, 10))
	buf.WriteString("\nevent: ")
	buf.WriteString(event.Type)
	buf.WriteString("\ndata: ")
	buf.Write(payload)
	buf.WriteString("\n\n")
	return buf.Bytes(), true
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var (
		nextID     uint64
		lastLayout time.Time
		pending    any
		hasPending bool
		flush      *time.Timer
		flushC     <-chan time.Time
	)

	broadcast := func(event Event) {
		if len(clients) == 0 {
			return
		}
		nextID++
		raw, ok := encode(nextID, event)
		if !ok {
			return
		}
		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Slow client; it misses this event.
			}
		}
	}

	sendLayout := func(now time.Time, data any) {
		lastLayout = now
		broadcast(Event{Type: EventLayoutUpdated, Data: data})
	}

	for {
		select {
		case <-b.stopCh:
			if flush != nil {
				flush.Stop()
			}
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case data := <-b.layoutCh:
			now := time.Now()
			if wait := b.layoutMin - now.Sub(lastLayout); wait > 0 {
				pending, hasPending = data, true
				if flushC == nil {
					flush = time.NewTimer(wait)
					flushC = flush.C
				}
				continue
			}
			sendLayout(now, data)

		case now := <-flushC:
			flushC = nil
			if hasPending {
				sendLayout(now, pending)
				pending, hasPending = nil, false
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}
	return <-resp
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishChange publishes a document.* event for a vault change. kind is
// one of "created", "updated", "deleted"; other kinds are ignored.
func (b *Broker) PublishChange(kind, path string) {
	typ, ok := changeEvents[kind]
	if !ok {
		return
	}
	b.Publish(Event{Type: typ, Data: map[string]string{"path": path}})
}

// PublishLayout offers a layout.updated payload. It never blocks; a
// payload offered while the broker is busy is dropped in favour of the
// next one.
func (b *Broker) PublishLayout(data any) {
	if b.closed.Load() {
		return
	}
	select {
	case b.layoutCh <- data:
	default:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("retry: " + strconv.Itoa(retryMillis) + "\n\n"))
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	keepAlive := b.KeepAlive
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	ping := time.NewTicker(keepAlive)
	defer ping.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
