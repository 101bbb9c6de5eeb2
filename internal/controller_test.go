package internal

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

// recorderSink captures every frame pushed to one connection so tests can
// assert exactly what the transport would have delivered.
type recorderSink struct {
	frames [][]byte
}

func (r *recorderSink) Push(frame []byte) {
	r.frames = append(r.frames, frame)
}

func (r *recorderSink) reset() {
	r.frames = nil
}

type recordedFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (r *recorderSink) recorded(t *testing.T) []recordedFrame {
	t.Helper()
	frames := make([]recordedFrame, 0, len(r.frames))
	for _, raw := range r.frames {
		var frame recordedFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			t.Fatalf("decode frame %q: %v", raw, err)
		}
		frames = append(frames, frame)
	}
	return frames
}

func (r *recorderSink) framesNamed(t *testing.T, event string) []json.RawMessage {
	t.Helper()
	var matched []json.RawMessage
	for _, frame := range r.recorded(t) {
		if frame.Event == event {
			matched = append(matched, frame.Data)
		}
	}
	return matched
}

func (r *recorderSink) envelopesNamed(t *testing.T, event string) []Envelope {
	t.Helper()
	var envelopes []Envelope
	for _, data := range r.framesNamed(t, event) {
		var envelope Envelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			t.Fatalf("decode %s envelope: %v", event, err)
		}
		envelopes = append(envelopes, envelope)
	}
	return envelopes
}

func newTestController(rooms ...string) (*Controller, *Registry) {
	if len(rooms) == 0 {
		rooms = []string{"room1", "room2"}
	}
	registry := NewRegistry()
	fanout := NewFanout(registry)
	directory := NewDirectoryPublisher(registry, fanout)
	controller := NewController(NewRoomSet(rooms), registry, fanout, directory, NewMetrics())
	controller.now = func() time.Time {
		return time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)
	}
	return controller, registry
}

func TestJoinValidationSilentDrop(t *testing.T) {
	tests := []struct {
		name     string
		username string
		role     string
		room     string
	}{
		{name: "empty name", username: "", role: "user", room: "room1"},
		{name: "whitespace name", username: "   ", role: "user", room: "room1"},
		{name: "unknown role", username: "Amit", role: "superuser", room: "room1"},
		{name: "user without room", username: "Amit", role: "user", room: ""},
		{name: "room outside closed set", username: "Amit", role: "user", room: "room9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			controller, registry := newTestController()
			admin := &recorderSink{}
			controller.Join("admin-1", admin, "Zara", "admin", "")
			admin.reset()

			joiner := &recorderSink{}
			controller.Join("conn-1", joiner, tt.username, tt.role, tt.room)

			if _, exists := registry.Get("conn-1"); exists {
				t.Fatalf("expected no record for rejected join")
			}
			if len(joiner.frames) != 0 {
				t.Fatalf("expected no frames to joiner, got %d", len(joiner.frames))
			}
			if len(admin.frames) != 0 {
				t.Fatalf("expected no frames to admin, got %d", len(admin.frames))
			}
		})
	}
}

func TestUserJoinAnnouncements(t *testing.T) {
	controller, registry := newTestController()
	admin := &recorderSink{}
	controller.Join("admin-1", admin, "Zara", "admin", "")
	admin.reset()

	user := &recorderSink{}
	controller.Join("conn-1", user, "Amit", "user", "room1")

	record, exists := registry.Get("conn-1")
	if !exists {
		t.Fatalf("expected record after join")
	}
	if record.Name != "Amit" || record.Role != RoleUser || record.Room != "room1" {
		t.Fatalf("unexpected record: %+v", record)
	}

	joins := user.envelopesNamed(t, EventMessage)
	if len(joins) != 1 {
		t.Fatalf("expected 1 join envelope to room, got %d", len(joins))
	}
	if joins[0].Kind != KindJoin || joins[0].Username != SystemSender || joins[0].Text != "Amit joined room1" {
		t.Fatalf("unexpected join envelope: %+v", joins[0])
	}

	events := admin.framesNamed(t, EventAdminEvent)
	if len(events) != 1 {
		t.Fatalf("expected 1 adminEvent, got %d", len(events))
	}
	var membership MembershipEvent
	if err := json.Unmarshal(events[0], &membership); err != nil {
		t.Fatalf("decode membership event: %v", err)
	}
	if membership.Type != MemberJoined || membership.Username != "Amit" || membership.Room != "room1" {
		t.Fatalf("unexpected membership event: %+v", membership)
	}

	snapshots := admin.framesNamed(t, EventOnlineUsers)
	if len(snapshots) != 1 {
		t.Fatalf("expected 1 directory publish, got %d", len(snapshots))
	}
}

func TestAdminJoinReceivesSnapshot(t *testing.T) {
	controller, _ := newTestController()
	controller.Join("conn-1", &recorderSink{}, "Amit", "user", "room1")
	controller.Join("conn-2", &recorderSink{}, "Nina", "user", "room2")

	admin := &recorderSink{}
	controller.Join("admin-1", admin, "Zara", "admin", "")

	snapshots := admin.framesNamed(t, EventOnlineUsers)
	if len(snapshots) != 1 {
		t.Fatalf("expected exactly 1 snapshot for fresh admin, got %d", len(snapshots))
	}
	var entries []DirectoryEntry
	if err := json.Unmarshal(snapshots[0], &entries); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(entries) != 2 || entries[0].Username != "Amit" || entries[1].Username != "Nina" {
		t.Fatalf("unexpected snapshot: %+v", entries)
	}
}

func TestDuplicateJoinKeepsOriginalRecord(t *testing.T) {
	controller, registry := newTestController()
	user := &recorderSink{}
	controller.Join("conn-1", user, "Amit", "user", "room1")
	framesAfterJoin := len(user.frames)

	controller.Join("conn-1", user, "Somebody", "user", "room2")

	record, exists := registry.Get("conn-1")
	if !exists {
		t.Fatalf("expected original record to survive")
	}
	if record.Name != "Amit" || record.Room != "room1" {
		t.Fatalf("duplicate join mutated record: %+v", record)
	}
	if len(user.frames) != framesAfterJoin {
		t.Fatalf("duplicate join emitted frames: %d -> %d", framesAfterJoin, len(user.frames))
	}
}

func TestRoomIsolationAndAdminMirror(t *testing.T) {
	controller, _ := newTestController()
	amit := &recorderSink{}
	nina := &recorderSink{}
	zara := &recorderSink{}
	controller.Join("conn-amit", amit, "Amit", "user", "room1")
	controller.Join("conn-nina", nina, "Nina", "user", "room2")
	controller.Join("conn-zara", zara, "Zara", "admin", "")
	amit.reset()
	nina.reset()
	zara.reset()

	controller.ChatMessage("conn-amit", "hi", "")

	// self-visibility: the sender sees their own room message.
	amitMessages := amit.envelopesNamed(t, EventMessage)
	if len(amitMessages) != 1 {
		t.Fatalf("expected sender to receive own message, got %d", len(amitMessages))
	}
	if amitMessages[0].Kind != KindMessage || amitMessages[0].Username != "Amit" || amitMessages[0].Text != "hi" {
		t.Fatalf("unexpected room envelope: %+v", amitMessages[0])
	}

	// room isolation: a room2 user hears nothing from room1.
	if len(nina.frames) != 0 {
		t.Fatalf("expected no delivery to other room, got %d frames", len(nina.frames))
	}

	// admin mirroring: exactly one adminMessage and zero plain message copies.
	mirrors := zara.envelopesNamed(t, EventAdminMessage)
	if len(mirrors) != 1 {
		t.Fatalf("expected 1 adminMessage, got %d", len(mirrors))
	}
	if mirrors[0].Username != "Amit" || mirrors[0].Room != "room1" || mirrors[0].Text != "hi" {
		t.Fatalf("unexpected mirror envelope: %+v", mirrors[0])
	}
	if got := len(zara.framesNamed(t, EventMessage)); got != 0 {
		t.Fatalf("admin must not receive the room copy, got %d", got)
	}
}

func TestAdminBroadcastAllExcludesSenderWithEcho(t *testing.T) {
	controller, _ := newTestController()
	amit := &recorderSink{}
	nina := &recorderSink{}
	zara := &recorderSink{}
	controller.Join("conn-amit", amit, "Amit", "user", "room1")
	controller.Join("conn-nina", nina, "Nina", "user", "room2")
	controller.Join("conn-zara", zara, "Zara", "admin", "")
	amit.reset()
	nina.reset()
	zara.reset()

	controller.ChatMessage("conn-zara", "maintenance soon", RoomAll)

	for name, sink := range map[string]*recorderSink{"amit": amit, "nina": nina} {
		envelopes := sink.envelopesNamed(t, EventMessage)
		if len(envelopes) != 1 {
			t.Fatalf("%s: expected 1 broadcast, got %d", name, len(envelopes))
		}
		if envelopes[0].Kind != KindAdminBroadcast || envelopes[0].Text != "maintenance soon" {
			t.Fatalf("%s: unexpected broadcast envelope: %+v", name, envelopes[0])
		}
	}

	if got := len(zara.framesNamed(t, EventMessage)); got != 0 {
		t.Fatalf("sender must not receive the broadcast copy, got %d", got)
	}
	echoes := zara.envelopesNamed(t, EventAdminEcho)
	if len(echoes) != 1 {
		t.Fatalf("expected exactly 1 adminEcho, got %d", len(echoes))
	}
	if echoes[0].Text != "maintenance soon" || echoes[0].Room != RoomAll {
		t.Fatalf("unexpected echo envelope: %+v", echoes[0])
	}
}

func TestAdminBroadcastTargetsSingleRoom(t *testing.T) {
	controller, _ := newTestController()
	amit := &recorderSink{}
	nina := &recorderSink{}
	zara := &recorderSink{}
	controller.Join("conn-amit", amit, "Amit", "user", "room1")
	controller.Join("conn-nina", nina, "Nina", "user", "room2")
	controller.Join("conn-zara", zara, "Zara", "admin", "")
	amit.reset()
	nina.reset()
	zara.reset()

	controller.ChatMessage("conn-zara", "room2 only", "room2")

	if len(amit.frames) != 0 {
		t.Fatalf("expected no delivery outside the target room, got %d frames", len(amit.frames))
	}
	envelopes := nina.envelopesNamed(t, EventMessage)
	if len(envelopes) != 1 {
		t.Fatalf("expected 1 targeted broadcast, got %d", len(envelopes))
	}
	if envelopes[0].Kind != KindAdminBroadcast || envelopes[0].Room != "room2" {
		t.Fatalf("unexpected targeted envelope: %+v", envelopes[0])
	}
	if got := len(zara.framesNamed(t, EventAdminEcho)); got != 0 {
		t.Fatalf("targeted broadcast must not echo, got %d", got)
	}
}

func TestAdminBroadcastInvalidTargetFallsBackToAll(t *testing.T) {
	controller, _ := newTestController()
	amit := &recorderSink{}
	zara := &recorderSink{}
	controller.Join("conn-amit", amit, "Amit", "user", "room1")
	controller.Join("conn-zara", zara, "Zara", "admin", "")
	amit.reset()
	zara.reset()

	controller.ChatMessage("conn-zara", "heads up", "room999")

	envelopes := amit.envelopesNamed(t, EventMessage)
	if len(envelopes) != 1 {
		t.Fatalf("expected fallback ALL broadcast, got %d envelopes", len(envelopes))
	}
	if envelopes[0].Room != RoomAll {
		t.Fatalf("expected ALL sentinel, got %q", envelopes[0].Room)
	}
	if got := len(zara.envelopesNamed(t, EventAdminEcho)); got != 1 {
		t.Fatalf("expected 1 echo on fallback broadcast, got %d", got)
	}
}

func TestBroadcastReachesOtherAdmins(t *testing.T) {
	controller, _ := newTestController()
	zara := &recorderSink{}
	otherAdmin := &recorderSink{}
	controller.Join("conn-zara", zara, "Zara", "admin", "")
	controller.Join("conn-other", otherAdmin, "Omar", "admin", "")
	zara.reset()
	otherAdmin.reset()

	controller.ChatMessage("conn-zara", "all hands", RoomAll)

	if got := len(otherAdmin.envelopesNamed(t, EventMessage)); got != 1 {
		t.Fatalf("expected other admin to receive the broadcast, got %d", got)
	}
	if got := len(zara.framesNamed(t, EventMessage)); got != 0 {
		t.Fatalf("sender must be excluded, got %d", got)
	}
}

func TestTruncation(t *testing.T) {
	controller, registry := newTestController()
	longName := strings.Repeat("n", 40)
	user := &recorderSink{}
	controller.Join("conn-1", user, longName, "user", "room1")

	record, exists := registry.Get("conn-1")
	if !exists {
		t.Fatalf("expected record")
	}
	if record.Name != strings.Repeat("n", 32) {
		t.Fatalf("expected 32-char name, got %d chars", len(record.Name))
	}

	user.reset()
	longText := strings.Repeat("x", 600)
	controller.ChatMessage("conn-1", longText, "")
	envelopes := user.envelopesNamed(t, EventMessage)
	if len(envelopes) != 1 {
		t.Fatalf("expected 1 message, got %d", len(envelopes))
	}
	if envelopes[0].Text != strings.Repeat("x", 500) {
		t.Fatalf("expected 500-char text, got %d chars", len(envelopes[0].Text))
	}
}

func TestChatMessageSilentDrops(t *testing.T) {
	controller, _ := newTestController()
	user := &recorderSink{}
	controller.Join("conn-1", user, "Amit", "user", "room1")
	user.reset()

	// unjoined connection: no-op, not an error.
	controller.ChatMessage("conn-ghost", "hello", "")
	// empty after trim: dropped.
	controller.ChatMessage("conn-1", "   ", "")

	if len(user.frames) != 0 {
		t.Fatalf("expected no frames, got %d", len(user.frames))
	}
}

func TestDisconnectUser(t *testing.T) {
	controller, registry := newTestController()
	amit := &recorderSink{}
	nina := &recorderSink{}
	zara := &recorderSink{}
	controller.Join("conn-amit", amit, "Amit", "user", "room1")
	controller.Join("conn-nina", nina, "Nina", "user", "room1")
	controller.Join("conn-zara", zara, "Zara", "admin", "")
	nina.reset()
	zara.reset()

	controller.Disconnect("conn-amit")

	if _, exists := registry.Get("conn-amit"); exists {
		t.Fatalf("expected record removed on disconnect")
	}
	leaves := nina.envelopesNamed(t, EventMessage)
	if len(leaves) != 1 {
		t.Fatalf("expected 1 leave envelope, got %d", len(leaves))
	}
	if leaves[0].Kind != KindLeave || leaves[0].Text != "Amit left room1" {
		t.Fatalf("unexpected leave envelope: %+v", leaves[0])
	}
	events := zara.framesNamed(t, EventAdminEvent)
	if len(events) != 1 {
		t.Fatalf("expected 1 adminEvent, got %d", len(events))
	}
	var membership MembershipEvent
	if err := json.Unmarshal(events[0], &membership); err != nil {
		t.Fatalf("decode membership event: %v", err)
	}
	if membership.Type != MemberLeft || membership.Username != "Amit" {
		t.Fatalf("unexpected membership event: %+v", membership)
	}
	snapshots := zara.framesNamed(t, EventOnlineUsers)
	if len(snapshots) != 1 {
		t.Fatalf("expected directory republish, got %d", len(snapshots))
	}
	var entries []DirectoryEntry
	if err := json.Unmarshal(snapshots[0], &entries); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(entries) != 1 || entries[0].Username != "Nina" {
		t.Fatalf("unexpected directory after disconnect: %+v", entries)
	}
}

func TestDisconnectAdminRepublishesDirectory(t *testing.T) {
	controller, registry := newTestController()
	zara := &recorderSink{}
	otherAdmin := &recorderSink{}
	controller.Join("conn-zara", zara, "Zara", "admin", "")
	controller.Join("conn-other", otherAdmin, "Omar", "admin", "")
	otherAdmin.reset()

	controller.Disconnect("conn-zara")

	if _, exists := registry.Get("conn-zara"); exists {
		t.Fatalf("expected admin record removed")
	}
	if got := len(otherAdmin.framesNamed(t, EventAdminEvent)); got != 0 {
		t.Fatalf("admin departure must not emit a membership event, got %d", got)
	}
	if got := len(otherAdmin.framesNamed(t, EventOnlineUsers)); got != 1 {
		t.Fatalf("expected uniform directory republish, got %d", got)
	}
}

func TestDisconnectUnknownConnectionIsNoop(t *testing.T) {
	controller, _ := newTestController()
	admin := &recorderSink{}
	controller.Join("admin-1", admin, "Zara", "admin", "")
	admin.reset()

	controller.Disconnect("conn-ghost")

	if len(admin.frames) != 0 {
		t.Fatalf("expected no frames for unknown disconnect, got %d", len(admin.frames))
	}
}

func TestDirectoryConsistencyAcrossSequence(t *testing.T) {
	controller, registry := newTestController()
	sinks := map[ConnID]*recorderSink{}
	join := func(id ConnID, name, role, room string) {
		sink := &recorderSink{}
		sinks[id] = sink
		controller.Join(id, sink, name, role, room)
	}

	join("c1", "Amit", "user", "room1")
	join("c2", "Nina", "user", "room2")
	join("c3", "Zara", "admin", "")
	join("c4", "Ravi", "user", "room1")
	controller.Disconnect("c1")
	join("c5", "Leila", "user", "room2")
	controller.Disconnect("c4")

	entries := registry.ActiveUsers()
	want := []DirectoryEntry{
		{ID: "c2", Username: "Nina", Room: "room2"},
		{ID: "c5", Username: "Leila", Room: "room2"},
	}
	if len(entries) != len(want) {
		t.Fatalf("expected %d active users, got %d: %+v", len(want), len(entries), entries)
	}
	for index := range want {
		if entries[index] != want[index] {
			t.Fatalf("entry %d = %+v, want %+v", index, entries[index], want[index])
		}
	}

	// the last directory publish to the admin must match the registry exactly.
	snapshots := sinks["c3"].framesNamed(t, EventOnlineUsers)
	if len(snapshots) == 0 {
		t.Fatalf("expected at least one directory publish")
	}
	var published []DirectoryEntry
	if err := json.Unmarshal(snapshots[len(snapshots)-1], &published); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(published) != len(want) {
		t.Fatalf("published directory has %d entries, want %d", len(published), len(want))
	}
	for index := range want {
		if published[index] != want[index] {
			t.Fatalf("published entry %d = %+v, want %+v", index, published[index], want[index])
		}
	}
}

// TestMonitoringScenario walks the full Amit/Nina/Zara exchange end to end.
func TestMonitoringScenario(t *testing.T) {
	controller, _ := newTestController()
	amit := &recorderSink{}
	nina := &recorderSink{}
	zara := &recorderSink{}
	controller.Join("conn-amit", amit, "Amit", "user", "room1")
	controller.Join("conn-nina", nina, "Nina", "user", "room2")
	controller.Join("conn-zara", zara, "Zara", "admin", "")
	amit.reset()
	nina.reset()
	zara.reset()

	controller.ChatMessage("conn-amit", "hi", "")

	if len(nina.frames) != 0 {
		t.Fatalf("Nina must receive nothing, got %d frames", len(nina.frames))
	}
	mirrors := zara.envelopesNamed(t, EventAdminMessage)
	if len(mirrors) != 1 || mirrors[0].Username != "Amit" || mirrors[0].Room != "room1" || mirrors[0].Text != "hi" {
		t.Fatalf("unexpected admin mirror: %+v", mirrors)
	}

	amit.reset()
	nina.reset()
	zara.reset()
	controller.ChatMessage("conn-zara", "maintenance soon", RoomAll)

	for name, sink := range map[string]*recorderSink{"Amit": amit, "Nina": nina} {
		envelopes := sink.envelopesNamed(t, EventMessage)
		if len(envelopes) != 1 || envelopes[0].Kind != KindAdminBroadcast || envelopes[0].Text != "maintenance soon" {
			t.Fatalf("%s: unexpected broadcast: %+v", name, envelopes)
		}
	}
	if got := len(zara.framesNamed(t, EventMessage)); got != 0 {
		t.Fatalf("Zara must receive zero message events, got %d", got)
	}
	echoes := zara.envelopesNamed(t, EventAdminEcho)
	if len(echoes) != 1 || echoes[0].Text != "maintenance soon" {
		t.Fatalf("unexpected echo: %+v", echoes)
	}
}
