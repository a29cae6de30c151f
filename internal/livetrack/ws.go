package livetrack

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPingInterval   = 30 * time.Second
	subscriberBuffer = 16
)

// Subscriber receives position snapshots for one session until the
// session stops or the subscriber is dropped.
type Subscriber struct {
	C  chan Snapshot
	id string
}

// hub fans session snapshots out to websocket viewers. Slow
// subscribers are dropped rather than allowed to stall an update.
type hub struct {
	mu   sync.Mutex
	subs map[string]map[*Subscriber]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[string]map[*Subscriber]struct{})}
}

func (h *hub) subscribe(id string) *Subscriber {
	sub := &Subscriber{C: make(chan Snapshot, subscriberBuffer), id: id}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[id] == nil {
		h.subs[id] = make(map[*Subscriber]struct{})
	}
	h.subs[id][sub] = struct{}{}
	return sub
}

func (h *hub) unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[sub.id]; ok {
		if _, member := set[sub]; member {
			delete(set, sub)
			close(sub.C)
		}
		if len(set) == 0 {
			delete(h.subs, sub.id)
		}
	}
}

func (h *hub) publish(id string, snap Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[id] {
		select {
		case sub.C <- snap:
		default:
			delete(h.subs[id], sub)
			close(sub.C)
		}
	}
}

func (h *hub) close(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[id] {
		close(sub.C)
	}
	delete(h.subs, id)
}

// Unsubscribe releases a subscriber obtained from Subscribe.
func (s *liveTrackService) Unsubscribe(sub *Subscriber) {
	s.hub.unsubscribe(sub)
}

// serveSubscriber pumps snapshots to one websocket connection.
func serveSubscriber(conn *websocket.Conn, sub *Subscriber, initial Snapshot) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	defer conn.Close()

	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(initial); err != nil {
		return
	}

	for {
		select {
		case snap, ok := <-sub.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"))
				return
			}
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
