package internal

import "strings"

// RoomSet is the closed set of room identifiers, fixed at startup. Rooms are
// configuration, not data: they are never created or destroyed at runtime.
type RoomSet struct {
	names   []string
	members map[string]struct{}
}

// NewRoomSet builds the set from the configured names, trimming blanks and
// dropping duplicates while preserving order.
func NewRoomSet(names []string) RoomSet {
	set := RoomSet{members: make(map[string]struct{}, len(names))}
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		if _, seen := set.members[trimmed]; seen {
			continue
		}
		set.members[trimmed] = struct{}{}
		set.names = append(set.names, trimmed)
	}
	return set
}

func (set RoomSet) Contains(room string) bool {
	_, ok := set.members[room]
	return ok
}

// Names returns the room identifiers in configuration order.
func (set RoomSet) Names() []string {
	names := make([]string, len(set.names))
	copy(names, set.names)
	return names
}

func (set RoomSet) Len() int { return len(set.names) }
