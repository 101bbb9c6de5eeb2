package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
)

var httpTimeout = 5 * time.Second

// these are bubbletea messages that represent asynchronous events like
// connecting, receiving a frame from the server, or encountering an error.
type (
	connectedMsg     struct{}
	incomingMsg      Envelope
	adminMirrorMsg   Envelope
	adminEchoMsg     Envelope
	adminEventMsg    MembershipEvent
	onlineUsersMsg   []DirectoryEntry
	errorMsg         error
	connectFailedMsg struct{ err error }
	reconnectMsg     struct{}
	roomListMsg      struct {
		rooms []string
		err   error
	}
)

// when the program starts (or reconnects) we dial the websocket and announce
// ourselves with a join frame; the server stays silent until that arrives.
func (model *TUIModel) connectCmd() tea.Cmd {
	return func() tea.Msg {
		conn, _, err := websocket.DefaultDialer.Dial(model.serverWSURL, nil)
		if err != nil {
			return connectFailedMsg{err: err}
		}
		join, err := encodeFrame("join", joinPayload{
			Username: model.username,
			Role:     model.role,
			Room:     model.room,
		})
		if err != nil {
			_ = conn.Close()
			return connectFailedMsg{err: err}
		}
		if err := conn.WriteMessage(websocket.TextMessage, join); err != nil {
			_ = conn.Close()
			return connectFailedMsg{err: err}
		}
		model.websocketConn = conn
		return connectedMsg{}
	}
}

// readOnceCmd pulls a single frame off the websocket and converts it into the
// matching bubbletea message; Update re-issues it after every delivery.
func (model *TUIModel) readOnceCmd() tea.Cmd {
	conn := model.websocketConn
	return func() tea.Msg {
		if conn == nil {
			return connectFailedMsg{err: fmt.Errorf("not connected")}
		}
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return connectFailedMsg{err: err}
		}
		var frame inboundFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			return errorMsg(fmt.Errorf("malformed frame: %w", err))
		}
		switch frame.Event {
		case EventMessage:
			var envelope Envelope
			if err := json.Unmarshal(frame.Data, &envelope); err == nil {
				return incomingMsg(envelope)
			}
		case EventAdminMessage:
			var envelope Envelope
			if err := json.Unmarshal(frame.Data, &envelope); err == nil {
				return adminMirrorMsg(envelope)
			}
		case EventAdminEcho:
			var envelope Envelope
			if err := json.Unmarshal(frame.Data, &envelope); err == nil {
				return adminEchoMsg(envelope)
			}
		case EventAdminEvent:
			var event MembershipEvent
			if err := json.Unmarshal(frame.Data, &event); err == nil {
				return adminEventMsg(event)
			}
		case EventOnlineUsers:
			var entries []DirectoryEntry
			if err := json.Unmarshal(frame.Data, &entries); err == nil {
				return onlineUsersMsg(entries)
			}
		}
		// unknown or undecodable frames are skipped, not fatal.
		return reconnectReadMsg{}
	}
}

// reconnectReadMsg asks Update to continue the read loop without rendering.
type reconnectReadMsg struct{}

func (model *TUIModel) sendCmd(text, targetRoom string) tea.Cmd {
	conn := model.websocketConn
	return func() tea.Msg {
		if conn == nil {
			return nil
		}
		frame, err := encodeFrame("chatMessage", chatPayload{Text: text, TargetRoom: targetRoom})
		if err != nil {
			return errorMsg(err)
		}
		model.writeMutex.Lock()
		defer model.writeMutex.Unlock()
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return connectFailedMsg{err: err}
		}
		return nil
	}
}

// roomsCmd asks the server for the closed room set so the picker never has to
// hardcode configuration.
func (model *TUIModel) roomsCmd() tea.Cmd {
	base, err := httpBaseFromWSURL(model.serverWSURL)
	return func() tea.Msg {
		if err != nil {
			return roomListMsg{err: err}
		}
		client := &http.Client{Timeout: httpTimeout}
		resp, err := client.Get(base + "/rooms")
		if err != nil {
			return roomListMsg{err: err}
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return roomListMsg{err: fmt.Errorf("server returned %d", resp.StatusCode)}
		}
		var decoded struct {
			Rooms []string `json:"rooms"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return roomListMsg{err: err}
		}
		return roomListMsg{rooms: decoded.Rooms}
	}
}

func (model *TUIModel) scheduleReconnect() tea.Cmd {
	return tea.Tick(2*time.Second, func(time.Time) tea.Msg {
		return reconnectMsg{}
	})
}

func httpBaseFromWSURL(wsURL string) (string, error) {
	parsed, err := url.Parse(wsURL)
	if err != nil {
		return "", err
	}
	switch parsed.Scheme {
	case "ws":
		parsed.Scheme = "http"
	case "wss":
		parsed.Scheme = "https"
	default:
		return "", fmt.Errorf("unsupported scheme %s", parsed.Scheme)
	}
	parsed.Path = ""
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return strings.TrimRight(parsed.String(), "/"), nil
}
