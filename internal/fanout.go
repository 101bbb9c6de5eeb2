package internal

import "log"

type scopeKind int

const (
	scopeRoom scopeKind = iota
	scopeAdmins
	scopeAll
)

// Scope is the targeting rule for one delivery: a single room, the admin
// group, or every connection.
type Scope struct {
	kind scopeKind
	room string
}

func RoomScope(room string) Scope { return Scope{kind: scopeRoom, room: room} }
func AdminScope() Scope           { return Scope{kind: scopeAdmins} }
func AllScope() Scope             { return Scope{kind: scopeAll} }

// NoExclude means the computed recipient set is delivered to in full.
const NoExclude ConnID = ""

// Fanout computes recipient sets from the registry and pushes frames to them.
// Delivery is fire-and-forget: no acknowledgment, no partial-failure handling,
// and an empty recipient set is not an error.
type Fanout struct {
	registry *Registry
}

func NewFanout(registry *Registry) *Fanout {
	return &Fanout{registry: registry}
}

// Deliver encodes one frame and pushes it to every connection selected by the
// scope, minus the excluded connection if any. The recipient set reflects the
// registry at the moment it is computed.
func (fanout *Fanout) Deliver(scope Scope, event string, data any, exclude ConnID) {
	frame, err := encodeFrame(event, data)
	if err != nil {
		log.Printf("fanout: encode %s frame: %v", event, err)
		return
	}
	recipients := fanout.registry.sinks(func(record *Participant) bool {
		if exclude != NoExclude && record.ID == exclude {
			return false
		}
		switch scope.kind {
		case scopeRoom:
			return record.Role == RoleUser && record.Room == scope.room
		case scopeAdmins:
			return record.Role == RoleAdmin
		default:
			return true
		}
	})
	for _, sink := range recipients {
		sink.Push(frame)
	}
}

// Unicast pushes one frame to a single sink, outside any registry scope. Used
// for the admin echo and the directory snapshot sent to a freshly joined admin.
func (fanout *Fanout) Unicast(sink Sink, event string, data any) {
	frame, err := encodeFrame(event, data)
	if err != nil {
		log.Printf("fanout: encode %s frame: %v", event, err)
		return
	}
	sink.Push(frame)
}
