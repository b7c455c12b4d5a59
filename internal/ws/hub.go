package ws

import (
	"context"
	"log"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/shinyyama/marketplace-backend/internal/presence"
)

// Hub owns the connection registry: userID -> connections and
// conversationID -> subscribed connections. All map mutation happens on the
// single run goroutine; callers interact through channels. An optional Redis
// client bridges conversation and private-channel events across instances.
type Hub struct {
	rdb      *redis.Client
	pub      publisher
	presence *presence.Tracker

	clients map[string]map[*Client]bool
	convs   map[uint64]map[*Client]bool

	register    chan *Client
	unregister  chan *Client
	subscribe   chan subscription
	unsubscribe chan subscription
	broadcast   chan *envelope
}

type subscription struct {
	c      *Client
	convID uint64
}

type envelope struct {
	targetUser string // non-empty: private channel
	convID     uint64 // non-zero: conversation channel
	payload    []byte
}

// publisher is the write half of the Redis bridge, narrowed so tests can
// observe publishes without a broker.
type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

func NewHub(rdb *redis.Client, pres *presence.Tracker) *Hub {
	h := &Hub{
		rdb:         rdb,
		presence:    pres,
		clients:     make(map[string]map[*Client]bool),
		convs:       make(map[uint64]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		subscribe:   make(chan subscription),
		unsubscribe: make(chan subscription),
		broadcast:   make(chan *envelope, 256),
	}
	if rdb != nil {
		h.pub = rdb
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	if h.rdb != nil {
		pubsub := h.rdb.PSubscribe(context.Background(), "conv:*", "user:*")
		ch := pubsub.Channel()
		go func() {
			for msg := range ch {
				env := &envelope{payload: []byte(msg.Payload)}
				if rest, ok := strings.CutPrefix(msg.Channel, "conv:"); ok {
					id, err := strconv.ParseUint(rest, 10, 64)
					if err != nil {
						continue
					}
					env.convID = id
				} else if rest, ok := strings.CutPrefix(msg.Channel, "user:"); ok {
					env.targetUser = rest
				} else {
					continue
				}
				h.broadcast <- env
			}
		}()
	}

	for {
		select {
		case c := <-h.register:
			if _, ok := h.clients[c.uid]; !ok {
				h.clients[c.uid] = make(map[*Client]bool)
			}
			h.clients[c.uid][c] = true
			log.Printf("ws: client registered uid=%s conn=%s", c.uid, c.connID)
			if h.presence.Connect(c.uid) {
				h.deliverAll(Encode(EventPresenceOnline, PresencePayload{UserID: c.uid}))
			}

		case c := <-h.unregister:
			if conns, ok := h.clients[c.uid]; ok {
				if _, exists := conns[c]; exists {
					delete(conns, c)
					close(c.send)
				}
				if len(conns) == 0 {
					delete(h.clients, c.uid)
				}
			}
			for convID := range c.joined {
				h.dropSubscription(c, convID)
			}
			log.Printf("ws: client unregistered uid=%s conn=%s", c.uid, c.connID)
			// Unregister runs once per registered client, so this balances the
			// Connect from registration even when the client was already
			// dropped as a slow consumer.
			if h.presence.Disconnect(c.uid) {
				h.deliverAll(Encode(EventPresenceOffline, PresencePayload{UserID: c.uid}))
			}

		case sub := <-h.subscribe:
			set, ok := h.convs[sub.convID]
			if !ok {
				set = make(map[*Client]bool)
				h.convs[sub.convID] = set
			}
			set[sub.c] = true
			sub.c.joined[sub.convID] = true

		case sub := <-h.unsubscribe:
			h.dropSubscription(sub.c, sub.convID)
			delete(sub.c.joined, sub.convID)

		case env := <-h.broadcast:
			h.deliver(env)
		}
	}
}

func (h *Hub) dropSubscription(c *Client, convID uint64) {
	if set, ok := h.convs[convID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.convs, convID)
		}
	}
}

// deliver is in-memory only; the Redis mirror happens in publishAsync before
// the envelope is enqueued.
func (h *Hub) deliver(env *envelope) {
	switch {
	case env.targetUser != "":
		if conns, ok := h.clients[env.targetUser]; ok {
			for c := range conns {
				h.send(conns, c, env.payload)
			}
		}
	case env.convID != 0:
		if set, ok := h.convs[env.convID]; ok {
			for c := range set {
				h.send(h.clients[c.uid], c, env.payload)
			}
		}
	}
}

func (h *Hub) deliverAll(payload []byte) {
	for _, conns := range h.clients {
		for c := range conns {
			h.send(conns, c, payload)
		}
	}
}

// send drops slow consumers: a full send buffer disconnects the client rather
// than blocking the hub loop.
func (h *Hub) send(conns map[*Client]bool, c *Client, payload []byte) {
	select {
	case c.send <- payload:
	default:
		if conns == nil {
			return
		}
		if _, ok := conns[c]; ok {
			delete(conns, c)
			close(c.send)
			for convID := range c.joined {
				h.dropSubscription(c, convID)
			}
		}
		if len(conns) == 0 {
			delete(h.clients, c.uid)
		}
	}
}

// publishAsync mirrors a locally originated event to the Redis bridge. It runs
// off the hub loop: a slow broker must not stall local fan-out or presence
// events. Events arriving from the bridge are enqueued directly and never pass
// through here, so nothing is re-published.
func (h *Hub) publishAsync(channel string, payload []byte) {
	if h.pub == nil {
		return
	}
	go func() {
		if err := h.pub.Publish(context.Background(), channel, payload).Err(); err != nil {
			log.Printf("ws: redis publish %s failed: %v", channel, err)
		}
	}()
}

func (h *Hub) Register(c *Client) {
	h.register <- c
}

func (h *Hub) Unregister(c *Client) {
	h.unregister <- c
}

func (h *Hub) Subscribe(c *Client, convID uint64) {
	h.subscribe <- subscription{c: c, convID: convID}
}

func (h *Hub) Unsubscribe(c *Client, convID uint64) {
	h.unsubscribe <- subscription{c: c, convID: convID}
}

// SendToUser enqueues a payload for every connection of one user.
func (h *Hub) SendToUser(uid string, payload []byte) {
	h.publishAsync("user:"+uid, payload)
	h.broadcast <- &envelope{targetUser: uid, payload: payload}
}

// BroadcastConversation enqueues a payload for every subscriber of a
// conversation channel.
func (h *Hub) BroadcastConversation(convID uint64, payload []byte) {
	h.publishAsync("conv:"+strconv.FormatUint(convID, 10), payload)
	h.broadcast <- &envelope{convID: convID, payload: payload}
}
