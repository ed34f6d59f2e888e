// Package sse implements a Server-Sent Events broker that pushes note
// lifecycle updates (creation, transcription completion, edits, deletes)
// to connected clients. Delivery is best-effort: slow clients drop
// events, and the polling loop remains the consistency backstop.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
)

// Event kinds broadcast by the broker.
const (
	EventNoteCreated            = "note.created"
	EventNoteUpdated            = "note.updated"
	EventNoteDeleted            = "note.deleted"
	EventTranscriptionCompleted = "transcription.completed"
	EventTranscriptionFailed    = "transcription.failed"
)

// Event is a single SSE payload.
type Event struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Broker manages SSE client connections and broadcasts events.
//
// Concurrency model: a single internal event loop owns the client set.
// Public methods communicate with the loop through channels, so no
// mutexes are required.
type Broker struct {
	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker and starts its event loop.
func NewBroker() *Broker {
	b := &Broker{
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})

	for {
		select {
		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case ev := <-b.publishCh:
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			raw := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", ev.Type, payload))
			for ch := range clients {
				select {
				case ch <- raw:
				default:
					// Slow client: drop the event rather than block the loop.
				}
			}

		case reply := <-b.countReqCh:
			reply <- len(clients)

		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return
		}
	}
}

// Subscribe registers a new client channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 16)
	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client channel and closes it.
func (b *Broker) Unsubscribe(ch chan []byte) {
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// Publish broadcasts a note event to all connected clients.
func (b *Broker) Publish(kind, noteID string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- Event{Type: kind, ID: noteID}:
	default:
		// Broker backlog full; the poller will pick the change up.
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	reply := make(chan int, 1)
	select {
	case b.countReqCh <- reply:
		return <-reply
	case <-b.stopped:
		return 0
	}
}

// Close shuts the broker down and disconnects all clients.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
		<-b.stopped
	}
}

// ServeHTTP implements the SSE endpoint.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	if b.closed.Load() {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Initial comment so proxies flush the connection open.
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
