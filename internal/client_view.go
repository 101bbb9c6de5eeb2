package internal

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	appTitleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213")).Padding(0, 1)
	subtitleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("110")).MarginTop(1)
	menuBoxStyle       = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(1, 2).MarginTop(1)
	menuItemStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).PaddingLeft(1)
	menuHotkeyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Bold(true)
	menuHintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).MarginTop(1)
	chatHeaderStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213")).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("109")).MarginTop(1)
	connectedStyle     = statusStyle.Copy().Foreground(lipgloss.Color("42")).Bold(true)
	connectingStyle    = statusStyle.Copy().Foreground(lipgloss.Color("178")).Italic(true)
	messageBoxStyle    = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("60")).Padding(1, 2).MarginTop(1)
	inputBoxStyle      = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1).MarginTop(1)
	timestampStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	usernameStyle      = lipgloss.NewStyle().Bold(true)
	roomTagStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true)
	mirrorTagStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("141")).Italic(true)
	systemMessageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Italic(true)
	broadcastStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	onlineStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle         = statusStyle.Copy().Foreground(lipgloss.Color("196")).Bold(true)
)

const maxVisibleMessages = 18

func (model *TUIModel) View() string {
	if model.mode == modeRoomPick {
		return model.renderRoomPickView()
	}
	return model.renderChatView()
}

func (model *TUIModel) renderRoomPickView() string {
	title := appTitleStyle.Render("Roomcast")
	subtitle := subtitleStyle.Render("Pick a room to join")

	var options []string
	for index, room := range model.roomChoices {
		options = append(options, renderMenuOption(fmt.Sprintf("%d", index+1), room, index == model.menuIndex))
	}
	if len(options) == 0 {
		options = append(options, menuItemStyle.Render("Fetching rooms…"))
	}

	viewSections := []string{
		lipgloss.JoinVertical(lipgloss.Left, title, subtitle),
		menuBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, options...)),
	}
	if model.connectionError != nil {
		viewSections = append(viewSections, errorStyle.Render(fmt.Sprintf("Error: %v (press r to retry)", model.connectionError)))
	}
	viewSections = append(viewSections, menuHintStyle.Render("↑/↓ select  •  Enter join  •  Esc quit"))
	return lipgloss.JoinVertical(lipgloss.Left, viewSections...)
}

func renderMenuOption(hotkey, label string, selected bool) string {
	line := fmt.Sprintf("%s %s", menuHotkeyStyle.Render(hotkey+")"), label)
	if selected {
		line = "▸" + line
	} else {
		line = " " + line
	}
	return menuItemStyle.Render(line)
}

func (model *TUIModel) renderChatView() string {
	header := fmt.Sprintf("%s @ %s", model.username, model.room)
	if model.isAdmin() {
		header = fmt.Sprintf("👑 %s (admin monitor)", model.username)
	}

	viewSections := []string{chatHeaderStyle.Render(header)}

	if model.isAdmin() {
		viewSections = append(viewSections, onlineStyle.Render(renderOnlineUsers(model.onlineUsers)))
	}

	visible := model.items
	if len(visible) > maxVisibleMessages {
		visible = visible[len(visible)-maxVisibleMessages:]
	}
	lines := make([]string, 0, len(visible))
	for _, item := range visible {
		lines = append(lines, renderChatItem(item, model.isAdmin()))
	}
	if len(lines) == 0 {
		lines = append(lines, systemMessageStyle.Render("No messages yet."))
	}
	viewSections = append(viewSections, messageBoxStyle.Render(strings.Join(lines, "\n")))

	viewSections = append(viewSections, inputBoxStyle.Render(model.textInput.View()))

	switch {
	case model.connectionError != nil && !model.isConnected:
		viewSections = append(viewSections, errorStyle.Render(fmt.Sprintf("Disconnected: %v — retrying…", model.connectionError)))
	case model.isConnected:
		viewSections = append(viewSections, connectedStyle.Render("Connected"))
	default:
		viewSections = append(viewSections, connectingStyle.Render("Connecting…"))
	}
	if model.isAdmin() {
		viewSections = append(viewSections, menuHintStyle.Render("@room1 text targets one room  •  anything else broadcasts to ALL"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, viewSections...)
}

func renderChatItem(item chatItem, adminView bool) string {
	ts := timestampStyle.Render(item.ts)
	switch item.kind {
	case KindJoin, KindLeave, KindSystem:
		return fmt.Sprintf("%s %s", ts, systemMessageStyle.Render(item.text))
	case KindAdminBroadcast:
		label := "📢 " + item.username
		if item.echo {
			label = "📢 sent to " + item.room
		}
		return fmt.Sprintf("%s %s %s", ts, broadcastStyle.Render(label+":"), item.text)
	default:
		var tags []string
		if adminView && item.room != "" {
			tags = append(tags, roomTagStyle.Render("["+item.room+"]"))
		}
		if item.mirrored {
			tags = append(tags, mirrorTagStyle.Render("(mirror)"))
		}
		prefix := strings.Join(tags, " ")
		if prefix != "" {
			prefix += " "
		}
		return fmt.Sprintf("%s %s%s %s", ts, prefix, usernameStyle.Render(item.username+":"), item.text)
	}
}

func renderOnlineUsers(entries []DirectoryEntry) string {
	if len(entries) == 0 {
		return "online: nobody"
	}
	parts := make([]string, 0, len(entries))
	for _, entry := range entries {
		parts = append(parts, fmt.Sprintf("%s (%s)", entry.Username, entry.Room))
	}
	return "online: " + strings.Join(parts, ", ")
}
