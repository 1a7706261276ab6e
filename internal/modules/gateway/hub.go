package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/blogstack/core/internal/middleware"
	"github.com/blogstack/core/internal/pkg/events"
	pkgredis "github.com/blogstack/core/internal/pkg/redis"
	socketio "github.com/zishang520/socket.io/v2/socket"
	"go.uber.org/zap"
)

// NewHub builds the realtime hub. The admin namespace requires a bearer token
// in the handshake; the web namespace is open.
func NewHub(rc *pkgredis.Client, bus *events.Bus, authn *middleware.Authenticator, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	sio := socketio.NewServer(nil, nil)
	h := &Hub{
		sidRoom:    make(map[string]string),
		roomCount:  make(map[string]int),
		broadcast:  make(chan Message, 256),
		register:   make(chan clientMeta, 256),
		unregister: make(chan clientMeta, 256),
		rc:         rc,
		bus:        bus,
		log:        log,
		sio:        sio,
		authn:      authn,
	}
	h.registerNamespaces()
	return h
}

// Handler returns the socket.io HTTP handler mounted at /socket.io.
func (h *Hub) Handler() http.Handler {
	return h.sio.ServeHandler(nil)
}

// Run starts the hub loop, the event-bus consumer and the Redis subscriber.
// It blocks until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	go h.consumeBus(ctx)
	if h.rc != nil {
		go h.subscribeRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			h.sio.Close(nil)
			return

		case c := <-h.register:
			h.registerClient(c)

		case c := <-h.unregister:
			h.unregisterClient(c)

		case msg := <-h.broadcast:
			h.deliver(msg)
			h.publishRedis(ctx, msg)
		}
	}
}

// BroadcastPublic queues an event for every web client.
func (h *Hub) BroadcastPublic(event string, payload interface{}) {
	h.enqueue(Message{Event: event, Payload: payload, Room: RoomPublic})
}

// BroadcastAdmin queues an event for every admin client.
func (h *Hub) BroadcastAdmin(event string, payload interface{}) {
	h.enqueue(Message{Event: event, Payload: payload, Room: RoomAdmin})
}

func (h *Hub) enqueue(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn("gateway broadcast queue full, message dropped", zap.String("event", msg.Event))
	}
}

// consumeBus forwards in-process application events to connected clients.
func (h *Hub) consumeBus(ctx context.Context) {
	if h.bus == nil {
		return
	}
	ch, cancel := h.bus.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if ev.Name == events.PostActivity {
				h.BroadcastPublic(eventPostActivity, ev.Payload)
			}
		}
	}
}

func (h *Hub) registerClient(c clientMeta) {
	online := -1

	h.mu.Lock()
	if oldRoom, ok := h.sidRoom[c.sid]; ok {
		if oldRoom == c.room {
			h.mu.Unlock()
			return
		}
		if h.roomCount[oldRoom] > 0 {
			h.roomCount[oldRoom]--
		}
	}
	h.sidRoom[c.sid] = c.room
	h.roomCount[c.room]++
	if c.room == RoomPublic {
		online = h.roomCount[RoomPublic]
	}
	h.mu.Unlock()

	if online >= 0 {
		h.BroadcastPublic(eventVisitorOnline, map[string]int{"online": online})
	}
}

func (h *Hub) unregisterClient(c clientMeta) {
	online := -1

	h.mu.Lock()
	room, ok := h.sidRoom[c.sid]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.sidRoom, c.sid)
	if h.roomCount[room] > 0 {
		h.roomCount[room]--
	}
	if room == RoomPublic {
		online = h.roomCount[RoomPublic]
	}
	h.mu.Unlock()

	if online >= 0 {
		h.BroadcastPublic(eventVisitorOffline, map[string]int{"online": online})
	}
}

// Online returns the current public client count.
func (h *Hub) Online() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.roomCount[RoomPublic]
}

func (h *Hub) gatewayMessageFormat(event string, payload interface{}) gatewayPayload {
	return gatewayPayload{Type: event, Data: payload}
}

func (h *Hub) emitNamespace(nsp string, msg Message) {
	h.sio.Of(nsp, nil).Emit("message", h.gatewayMessageFormat(msg.Event, msg.Payload))
}

func (h *Hub) deliver(msg Message) {
	switch msg.Room {
	case RoomAdmin:
		h.emitNamespace(namespaceAdmin, msg)
	case RoomPublic:
		h.emitNamespace(namespaceWeb, msg)
	case "":
		h.emitNamespace(namespaceAdmin, msg)
		h.emitNamespace(namespaceWeb, msg)
	}
}

func (h *Hub) publishRedis(ctx context.Context, msg Message) {
	if h.rc == nil {
		return
	}
	channel := redisChanPublic
	if msg.Room == RoomAdmin {
		channel = redisChanAdmin
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := h.rc.Publish(ctx, channel, string(data)); err != nil {
		h.log.Warn("gateway publish failed", zap.String("channel", channel), zap.Error(err))
	}
}

// subscribeRedis listens for broadcasts from other server instances.
func (h *Hub) subscribeRedis(ctx context.Context) {
	pubsub := h.rc.Subscribe(ctx, redisChanPublic, redisChanAdmin)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return

		case redisMsg, ok := <-ch:
			if !ok {
				return
			}
			var msg Message
			if err := json.Unmarshal([]byte(redisMsg.Payload), &msg); err != nil {
				continue
			}
			h.deliver(msg)
		}
	}
}

// authenticateHandshake resolves a principal from the handshake query token
// or authorization header.
func (h *Hub) authenticateHandshake(ctx context.Context, client *socketio.Socket) *middleware.Principal {
	if h.authn == nil {
		return nil
	}

	token := extractHandshakeToken(client)
	if token == "" {
		return nil
	}

	p, err := h.authn.Authenticate(ctx, "Bearer "+token, false)
	if err != nil || p == nil {
		return nil
	}
	return p
}

func extractHandshakeToken(client *socketio.Socket) string {
	handshake := client.Handshake()
	if handshake == nil {
		return ""
	}
	if handshake.Query != nil {
		if token := firstValueFromMultiMap(handshake.Query.All(), "token"); token != "" {
			return stripBearer(token)
		}
	}
	if handshake.Headers != nil {
		if token := firstValueFromMultiMap(handshake.Headers.All(), "authorization"); token != "" {
			return stripBearer(token)
		}
	}
	return ""
}

func firstValueFromMultiMap(values map[string][]string, key string) string {
	if len(values) == 0 {
		return ""
	}
	for k, list := range values {
		if !strings.EqualFold(strings.TrimSpace(k), key) || len(list) == 0 {
			continue
		}
		v := strings.TrimSpace(list[0])
		if v != "" {
			return v
		}
	}
	return ""
}

func stripBearer(raw string) string {
	token := strings.TrimSpace(raw)
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
