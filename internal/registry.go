package internal

import (
	"errors"
	"strings"
	"sync"
)

// ConnID is the opaque, transport-assigned handle for one live connection.
type ConnID string

// Sink is the one-way send capability attached to a connection. Pushes are
// fire-and-forget; a dead peer simply never sees the frame.
type Sink interface {
	Push(frame []byte)
}

// Role of a participant, declared at join time and immutable afterwards.
type Role int

const (
	RoleUser Role = iota
	RoleAdmin
)

// ParseRole maps the wire-level role string onto a Role. The original client
// sends lowercase role names, so matching is case-insensitive.
func ParseRole(raw string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "user":
		return RoleUser, true
	case "admin":
		return RoleAdmin, true
	default:
		return 0, false
	}
}

// Participant is the stored identity bound to one connection. Users carry the
// room they joined; admins carry no room and belong to the admin group.
type Participant struct {
	ID   ConnID
	Name string
	Role Role
	Room string
	sink Sink
}

// DirectoryEntry is one row of the online directory pushed to admins.
type DirectoryEntry struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Room     string `json:"room"`
}

// ErrAlreadyJoined is returned when a record already exists for a connection.
var ErrAlreadyJoined = errors.New("connection already joined")

// Registry maps connection handles to participant records. It is the single
// source of truth for who is currently present; rooms are never materialized,
// membership is always derived from the records here.
type Registry struct {
	mutex   sync.RWMutex
	records map[ConnID]*Participant
	order   []ConnID
}

func NewRegistry() *Registry {
	return &Registry{records: make(map[ConnID]*Participant)}
}

// Put installs a record for the connection. A connection holds at most one
// record, so a second Put fails rather than mutating the original.
func (registry *Registry) Put(record *Participant) error {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()
	if _, exists := registry.records[record.ID]; exists {
		return ErrAlreadyJoined
	}
	registry.records[record.ID] = record
	registry.order = append(registry.order, record.ID)
	return nil
}

// Get returns the record for the connection, if it has completed a join.
func (registry *Registry) Get(id ConnID) (*Participant, bool) {
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()
	record, exists := registry.records[id]
	return record, exists
}

// Remove deletes the record; removing an unknown connection is a no-op.
func (registry *Registry) Remove(id ConnID) {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()
	if _, exists := registry.records[id]; !exists {
		return
	}
	delete(registry.records, id)
	for index, existing := range registry.order {
		if existing == id {
			registry.order = append(registry.order[:index], registry.order[index+1:]...)
			break
		}
	}
}

// ActiveUsers lists every USER record in insertion order. Admins never appear
// in the directory.
func (registry *Registry) ActiveUsers() []DirectoryEntry {
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()
	entries := make([]DirectoryEntry, 0, len(registry.order))
	for _, id := range registry.order {
		record := registry.records[id]
		if record == nil || record.Role != RoleUser {
			continue
		}
		entries = append(entries, DirectoryEntry{
			ID:       string(record.ID),
			Username: record.Name,
			Room:     record.Room,
		})
	}
	return entries
}

// sinks collects the send capabilities of every record matching the filter,
// in insertion order. The slice is a snapshot; later joins or leaves do not
// affect an in-flight delivery.
func (registry *Registry) sinks(match func(*Participant) bool) []Sink {
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()
	var collected []Sink
	for _, id := range registry.order {
		record := registry.records[id]
		if record == nil || record.sink == nil {
			continue
		}
		if match(record) {
			collected = append(collected, record.sink)
		}
	}
	return collected
}
