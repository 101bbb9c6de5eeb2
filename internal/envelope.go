package internal

import "encoding/json"

// outbound event names pushed over the transport. Each frame on the wire is
// {"event": <name>, "data": <payload>}.
const (
	EventMessage      = "message"      // room traffic, system notices, admin broadcasts
	EventAdminMessage = "adminMessage" // mirrored user traffic, admin group only
	EventAdminEvent   = "adminEvent"   // join/leave membership notices, admin group only
	EventAdminEcho    = "adminEcho"    // confirmation of an admin's own broadcast, sender only
	EventOnlineUsers  = "onlineUsers"  // full directory snapshot, admin group only
)

// kind tags carried inside an envelope.
const (
	KindJoin           = "join"
	KindLeave          = "leave"
	KindMessage        = "message"
	KindAdminBroadcast = "adminBroadcast"
	KindSystem         = "system"
)

// membership event types carried by adminEvent frames.
const (
	MemberJoined = "USER_JOINED"
	MemberLeft   = "USER_LEFT"
)

// SystemSender is the display name stamped on system-generated envelopes.
const SystemSender = "SYSTEM"

// RoomAll is the sentinel target an admin uses to reach every room at once.
const RoomAll = "ALL"

// Envelope is the self-contained payload describing one delivered message or
// notice. It is transient; nothing here is ever persisted.
type Envelope struct {
	Kind     string `json:"type"`
	Username string `json:"username"`
	Room     string `json:"room,omitempty"`
	Text     string `json:"text"`
	Ts       string `json:"ts"`

	// Origin is the connection the envelope came from, or empty for
	// system-generated envelopes. In-process only, never on the wire.
	Origin ConnID `json:"-"`
}

// MembershipEvent describes one join or leave to the admin group.
type MembershipEvent struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	Room     string `json:"room"`
	Ts       string `json:"ts"`
}

// encodeFrame wraps a payload in the named-event wire envelope.
func encodeFrame(event string, data any) ([]byte, error) {
	return json.Marshal(struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}{Event: event, Data: data})
}

// inboundFrame is one client-to-server event before its payload is decoded.
type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type joinPayload struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	Room     string `json:"room"`
}

type chatPayload struct {
	Text       string `json:"text"`
	TargetRoom string `json:"targetRoom"`
}

// decodeChatPayload accepts either the structured {text, targetRoom} form or a
// bare JSON string, which the original browser client emits for plain sends.
func decodeChatPayload(data json.RawMessage) (chatPayload, bool) {
	var payload chatPayload
	if err := json.Unmarshal(data, &payload); err == nil {
		return payload, true
	}
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		return chatPayload{Text: text}, true
	}
	return chatPayload{}, false
}
