package app

import "strings"

// DefaultRooms is the room set used when no configuration is given. The set
// is fixed for the life of the process; rooms never appear or disappear at
// runtime.
const DefaultRooms = "room1,room2"

// ServerConfig defines how the HTTP/WebSocket backend should run.
type ServerConfig struct {
	Addr  string
	Path  string
	Rooms []string
}

// ClientConfig defines the parameters the TUI client needs.
type ClientConfig struct {
	ServerURL string
	Username  string
	Role      string
	Room      string
}

// ParseRooms splits a comma-separated room list, dropping blanks.
func ParseRooms(raw string) []string {
	var rooms []string
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			rooms = append(rooms, trimmed)
		}
	}
	return rooms
}

// NormalizeWSPath guarantees the websocket path starts with '/' and falls
// back to /ws when empty.
func NormalizeWSPath(path string) string {
	if path == "" {
		return "/ws"
	}
	if path[0] != '/' {
		return "/" + path
	}
	return path
}
