package internal

import (
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
)

// this model holds the bubbletea state for the chat client, including the
// input, message log, online directory, and websocket connection.
type TUIModel struct {
	textInput       textinput.Model
	items           []chatItem
	onlineUsers     []DirectoryEntry
	serverWSURL     string
	username        string
	role            string
	room            string
	roomChoices     []string
	menuIndex       int
	websocketConn   *websocket.Conn
	writeMutex      sync.Mutex
	isConnected     bool
	connectionError error
	mode            appMode
}

// chatItem is one rendered line of the message log.
type chatItem struct {
	ts       string
	username string
	room     string
	text     string
	kind     string
	mirrored bool // true for adminMessage copies of user room traffic
	echo     bool // true for the admin's own broadcast confirmation
}

type appMode int

const (
	modeRoomPick appMode = iota
	modeChat
)

func NewTUIModel(serverWSURL, username, role, room string) *TUIModel {
	input := textinput.New()
	input.Placeholder = "Type a message…"
	input.CharLimit = 0
	input.Focus()
	input.Prompt = "> "

	if username == "" {
		username = defaultUsername()
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		role = "user"
	}

	model := &TUIModel{
		textInput:   input,
		items:       make([]chatItem, 0, 64),
		serverWSURL: serverWSURL,
		username:    username,
		role:        role,
		room:        room,
	}
	if role == "user" && room == "" {
		model.mode = modeRoomPick
		model.textInput.Blur()
		model.textInput.Prompt = ""
		model.textInput.Placeholder = ""
	} else {
		model.mode = modeChat
	}
	return model
}

func defaultUsername() string {
	if user := os.Getenv("ROOMCAST_USER"); user != "" {
		return user
	}
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "anon"
}

func (model *TUIModel) isAdmin() bool {
	return model.role == "admin"
}

func (model *TUIModel) Init() tea.Cmd {
	if model.mode == modeRoomPick {
		return model.roomsCmd()
	}
	return model.connectCmd()
}
