package app

import (
	tea "github.com/charmbracelet/bubbletea"

	intrnl "roomcast/internal"
)

// RunClient starts the terminal chat UI and blocks until it exits.
func RunClient(cfg ClientConfig) error {
	model := intrnl.NewTUIModel(cfg.ServerURL, cfg.Username, cfg.Role, cfg.Room)
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()
	return err
}
