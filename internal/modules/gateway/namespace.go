package gateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/blogstack/core/internal/models"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

type inboundMessage struct {
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload"`
}

const (
	messagePing  = "ping"
	messageJoin  = "join"
	messageLeave = "leave"
)

func (h *Hub) registerNamespaces() {
	webNS := h.sio.Of(namespaceWeb, nil)
	_ = webNS.On("connection", func(args ...any) {
		client, ok := args[0].(*socketio.Socket)
		if !ok {
			return
		}
		sid := string(client.Id())
		h.register <- clientMeta{sid: sid, room: RoomPublic}
		_ = client.Emit("message", h.gatewayMessageFormat(eventGatewayConnect, "WebSocket connected"))

		_ = client.On("message", func(eventArgs ...any) {
			msg, ok := parseInboundMessage(eventArgs...)
			if !ok {
				return
			}
			switch msg.Type {
			case messagePing:
				_ = client.Emit("message", h.gatewayMessageFormat(eventPong, time.Now().UTC()))
			case messageJoin:
				if room := strFromAny(msg.Payload["roomName"]); room != "" {
					client.Join(socketio.Room(room))
				}
			case messageLeave:
				if room := strFromAny(msg.Payload["roomName"]); room != "" {
					client.Leave(socketio.Room(room))
				}
			}
		})

		_ = client.On("disconnect", func(_ ...any) {
			h.unregister <- clientMeta{sid: sid, room: RoomPublic}
		})
	})

	adminNS := h.sio.Of(namespaceAdmin, nil)
	_ = adminNS.On("connection", func(args ...any) {
		client, ok := args[0].(*socketio.Socket)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		p := h.authenticateHandshake(ctx, client)
		cancel()
		if p == nil || (p.Role != string(models.RoleAdmin) && p.Role != string(models.RoleModerator)) {
			_ = client.Emit("message", h.gatewayMessageFormat("AUTH_FAILED", "auth failed"))
			client.Disconnect(true)
			return
		}

		sid := string(client.Id())
		h.register <- clientMeta{sid: sid, room: RoomAdmin}
		_ = client.Emit("message", h.gatewayMessageFormat(eventGatewayConnect, "WebSocket connected"))

		_ = client.On("disconnect", func(_ ...any) {
			h.unregister <- clientMeta{sid: sid, room: RoomAdmin}
		})
	})
}

func parseInboundMessage(eventArgs ...any) (inboundMessage, bool) {
	var msg inboundMessage
	if len(eventArgs) == 0 {
		return msg, false
	}

	switch v := eventArgs[0].(type) {
	case string:
		if err := json.Unmarshal([]byte(v), &msg); err != nil {
			return msg, false
		}
	case []byte:
		if err := json.Unmarshal(v, &msg); err != nil {
			return msg, false
		}
	case map[string]interface{}:
		msg.Type = strFromAny(v["type"])
		if payload, ok := v["payload"].(map[string]interface{}); ok {
			msg.Payload = payload
		}
	default:
		return msg, false
	}
	return msg, msg.Type != ""
}

func strFromAny(v interface{}) string {
	s, _ := v.(string)
	return s
}
