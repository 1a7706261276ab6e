package gateway

import (
	"sync"

	"github.com/blogstack/core/internal/middleware"
	"github.com/blogstack/core/internal/pkg/events"
	pkgredis "github.com/blogstack/core/internal/pkg/redis"
	socketio "github.com/zishang520/socket.io/v2/socket"
	"go.uber.org/zap"
)

const (
	RoomPublic = "public"
	RoomAdmin  = "admin"

	namespaceWeb   = "/web"
	namespaceAdmin = "/admin"

	redisChanPublic = "blogstack:gateway:public"
	redisChanAdmin  = "blogstack:gateway:admin"

	eventGatewayConnect = "GATEWAY_CONNECT"
	eventPostActivity   = "POST_ACTIVITY"
	eventVisitorOnline  = "VISITOR_ONLINE"
	eventVisitorOffline = "VISITOR_OFFLINE"
	eventPong           = "PONG"
)

// Message is the envelope used by hub broadcasts and Redis fan-out.
type Message struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
	Room    string      `json:"room,omitempty"`
}

type gatewayPayload struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type clientMeta struct {
	sid  string
	room string
}

// Hub manages socket.io namespaces, the activity fan-out loop and the Redis
// cross-instance bridge.
type Hub struct {
	mu sync.RWMutex

	sidRoom   map[string]string
	roomCount map[string]int

	broadcast  chan Message
	register   chan clientMeta
	unregister chan clientMeta

	rc    *pkgredis.Client
	bus   *events.Bus
	log   *zap.Logger
	sio   *socketio.Server
	authn *middleware.Authenticator
}
