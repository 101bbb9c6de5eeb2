package internal

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	maxNameLength = 32
	maxTextLength = 500
)

// Controller owns the three externally triggered session transitions: join,
// chat message, and disconnect. Every transition is one short critical
// section under the controller mutex: validate, mutate the registry, fan out.
// Invalid input is dropped silently and mutates nothing; events referencing a
// connection with no record are ignored. One connection's misbehavior never
// touches another connection's session.
type Controller struct {
	mutex     sync.Mutex
	rooms     RoomSet
	registry  *Registry
	fanout    *Fanout
	directory *DirectoryPublisher
	metrics   *Metrics
	now       func() time.Time
}

func NewController(rooms RoomSet, registry *Registry, fanout *Fanout, directory *DirectoryPublisher, metrics *Metrics) *Controller {
	return &Controller{
		rooms:     rooms,
		registry:  registry,
		fanout:    fanout,
		directory: directory,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Join validates a join event and installs the participant record. Users are
// announced to their room and to the admin group; a joining admin instead
// receives the current directory immediately. A join on an already-joined
// connection is ignored, preserving the original record.
func (controller *Controller) Join(id ConnID, sink Sink, username, rawRole, room string) {
	controller.mutex.Lock()
	defer controller.mutex.Unlock()

	name := strings.TrimSpace(username)
	if name == "" {
		return
	}
	name = truncateRunes(name, maxNameLength)
	role, ok := ParseRole(rawRole)
	if !ok {
		return
	}
	if role == RoleUser && !controller.rooms.Contains(room) {
		return
	}
	record := &Participant{ID: id, Name: name, Role: role, sink: sink}
	if role == RoleUser {
		record.Room = room
	}
	if err := controller.registry.Put(record); err != nil {
		// Duplicate join on a live connection; the original record stands.
		return
	}
	controller.metrics.IncJoin()

	timestamp := controller.timestamp()
	if role == RoleAdmin {
		controller.directory.PublishTo(sink)
		return
	}
	controller.fanout.Deliver(RoomScope(room), EventMessage, Envelope{
		Kind:     KindJoin,
		Username: SystemSender,
		Room:     room,
		Text:     fmt.Sprintf("%s joined %s", name, room),
		Ts:       timestamp,
	}, NoExclude)
	controller.fanout.Deliver(AdminScope(), EventAdminEvent, MembershipEvent{
		Type:     MemberJoined,
		Username: name,
		Room:     room,
		Ts:       timestamp,
	}, NoExclude)
	controller.directory.Publish()
}

// ChatMessage routes one inbound message. A user's message goes to their own
// room, sender included, with a mirror copy to the admin group. An admin's
// message is a broadcast: to one room when targetRoom names a configured
// room, otherwise to every connection except the sending admin, which gets a
// single echo instead.
func (controller *Controller) ChatMessage(id ConnID, text, targetRoom string) {
	controller.mutex.Lock()
	defer controller.mutex.Unlock()

	record, exists := controller.registry.Get(id)
	if !exists {
		return
	}
	body := strings.TrimSpace(text)
	if body == "" {
		return
	}
	body = truncateRunes(body, maxTextLength)
	timestamp := controller.timestamp()

	if record.Role == RoleUser {
		envelope := Envelope{
			Kind:     KindMessage,
			Username: record.Name,
			Room:     record.Room,
			Text:     body,
			Ts:       timestamp,
			Origin:   id,
		}
		controller.fanout.Deliver(RoomScope(record.Room), EventMessage, envelope, NoExclude)
		controller.fanout.Deliver(AdminScope(), EventAdminMessage, envelope, NoExclude)
		controller.metrics.IncMessage()
		return
	}

	target := RoomAll
	if controller.rooms.Contains(targetRoom) {
		target = targetRoom
	}
	envelope := Envelope{
		Kind:     KindAdminBroadcast,
		Username: record.Name,
		Room:     target,
		Text:     body,
		Ts:       timestamp,
		Origin:   id,
	}
	if target != RoomAll {
		controller.fanout.Deliver(RoomScope(target), EventMessage, envelope, NoExclude)
	} else {
		controller.fanout.Deliver(AllScope(), EventMessage, envelope, id)
		controller.fanout.Unicast(record.sink, EventAdminEcho, envelope)
	}
	controller.metrics.IncBroadcast()
}

// Disconnect tears down the connection's session, if it has one. A departing
// user is announced to their room and to the admin group; either role's
// departure republishes the directory so every admin view stays a snapshot.
func (controller *Controller) Disconnect(id ConnID) {
	controller.mutex.Lock()
	defer controller.mutex.Unlock()

	record, exists := controller.registry.Get(id)
	if !exists {
		return
	}
	timestamp := controller.timestamp()
	if record.Role == RoleUser {
		controller.fanout.Deliver(RoomScope(record.Room), EventMessage, Envelope{
			Kind:     KindLeave,
			Username: SystemSender,
			Room:     record.Room,
			Text:     fmt.Sprintf("%s left %s", record.Name, record.Room),
			Ts:       timestamp,
		}, NoExclude)
		controller.fanout.Deliver(AdminScope(), EventAdminEvent, MembershipEvent{
			Type:     MemberLeft,
			Username: record.Name,
			Room:     record.Room,
			Ts:       timestamp,
		}, NoExclude)
	}
	controller.registry.Remove(id)
	controller.directory.Publish()
}

func (controller *Controller) timestamp() string {
	return controller.now().Format("15:04:05")
}

// truncateRunes caps a string at max characters without splitting a rune.
func truncateRunes(value string, max int) string {
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max])
}
