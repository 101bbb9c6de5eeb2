package internal

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
)

func (model *TUIModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch typedMessage := message.(type) {
	case tea.KeyMsg:
		// Any mode should respect Ctrl+C or Esc so the user can bail out quickly.
		if typedMessage.Type == tea.KeyCtrlC || typedMessage.Type == tea.KeyEsc {
			model.closeConn("client quit")
			return model, tea.Quit
		}
		switch model.mode {
		case modeRoomPick:
			return model.updateRoomPick(typedMessage)
		case modeChat:
			return model.updateChat(typedMessage)
		}

	case connectedMsg:
		model.isConnected = true
		model.connectionError = nil
		return model, model.readOnceCmd()

	case incomingMsg:
		model.items = append(model.items, chatItem{
			ts:       typedMessage.Ts,
			username: typedMessage.Username,
			room:     typedMessage.Room,
			text:     typedMessage.Text,
			kind:     typedMessage.Kind,
		})
		return model, model.readOnceCmd()

	case adminMirrorMsg:
		model.items = append(model.items, chatItem{
			ts:       typedMessage.Ts,
			username: typedMessage.Username,
			room:     typedMessage.Room,
			text:     typedMessage.Text,
			kind:     typedMessage.Kind,
			mirrored: true,
		})
		return model, model.readOnceCmd()

	case adminEchoMsg:
		model.items = append(model.items, chatItem{
			ts:       typedMessage.Ts,
			username: typedMessage.Username,
			room:     typedMessage.Room,
			text:     typedMessage.Text,
			kind:     typedMessage.Kind,
			echo:     true,
		})
		return model, model.readOnceCmd()

	case adminEventMsg:
		model.items = append(model.items, chatItem{
			ts:   typedMessage.Ts,
			kind: KindSystem,
			text: fmt.Sprintf("%s - %s (%s)", typedMessage.Type, typedMessage.Username, typedMessage.Room),
		})
		return model, model.readOnceCmd()

	case onlineUsersMsg:
		model.onlineUsers = typedMessage
		return model, model.readOnceCmd()

	case reconnectReadMsg:
		return model, model.readOnceCmd()

	case errorMsg:
		model.items = append(model.items, chatItem{
			ts:   time.Now().Format("15:04:05"),
			kind: KindSystem,
			text: typedMessage.Error(),
		})
		return model, model.readOnceCmd()

	case connectFailedMsg:
		model.isConnected = false
		model.connectionError = typedMessage.err
		if model.mode == modeChat {
			return model, model.scheduleReconnect()
		}
		return model, nil

	case reconnectMsg:
		if model.mode == modeChat && !model.isConnected {
			return model, model.connectCmd()
		}
		return model, nil

	case roomListMsg:
		if typedMessage.err != nil {
			model.connectionError = typedMessage.err
			return model, nil
		}
		model.roomChoices = typedMessage.rooms
		model.connectionError = nil
		return model, nil
	}
	return model, nil
}

func (model *TUIModel) updateRoomPick(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "up", "k":
		if model.menuIndex > 0 {
			model.menuIndex--
		}
	case "down", "j":
		if model.menuIndex < len(model.roomChoices)-1 {
			model.menuIndex++
		}
	case "r":
		return model, model.roomsCmd()
	case "enter":
		if model.menuIndex < len(model.roomChoices) {
			return model, model.enterRoom(model.roomChoices[model.menuIndex])
		}
	default:
		// digit shortcuts mirror the on-screen numbering.
		if index, err := strconv.Atoi(key.String()); err == nil {
			if index >= 1 && index <= len(model.roomChoices) {
				return model, model.enterRoom(model.roomChoices[index-1])
			}
		}
	}
	return model, nil
}

func (model *TUIModel) enterRoom(room string) tea.Cmd {
	model.room = room
	model.mode = modeChat
	model.textInput.Placeholder = "Type a message…"
	model.textInput.Prompt = "> "
	focusCmd := model.textInput.Focus()
	return tea.Batch(focusCmd, model.connectCmd())
}

func (model *TUIModel) updateChat(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Type == tea.KeyEnter {
		trimmed := strings.TrimSpace(model.textInput.Value())
		if strings.HasPrefix(trimmed, "/") {
			lower := strings.ToLower(trimmed)
			if lower == "/quit" || lower == "/exit" {
				model.closeConn("client quit")
				return model, tea.Quit
			}
			return model, nil
		}
		if trimmed != "" && model.isConnected {
			model.textInput.SetValue("")
			text, target := trimmed, ""
			if model.isAdmin() {
				text, target = parseAdminTarget(trimmed)
			}
			return model, model.sendCmd(text, target)
		}
		return model, nil
	}
	var command tea.Cmd
	model.textInput, command = model.textInput.Update(key)
	return model, command
}

// parseAdminTarget splits "@room1 message" into its target room and text; any
// other shape broadcasts to every room.
func parseAdminTarget(input string) (text, target string) {
	if !strings.HasPrefix(input, "@") {
		return input, RoomAll
	}
	parts := strings.SplitN(input[1:], " ", 2)
	if len(parts) != 2 || strings.TrimSpace(parts[1]) == "" {
		return input, RoomAll
	}
	return strings.TrimSpace(parts[1]), parts[0]
}

func (model *TUIModel) closeConn(reason string) {
	if model.websocketConn == nil {
		return
	}
	model.writeMutex.Lock()
	defer model.writeMutex.Unlock()
	_ = model.websocketConn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason))
	_ = model.websocketConn.Close()
}
