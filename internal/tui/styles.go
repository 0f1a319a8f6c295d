package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle           = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	categoryStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Padding(0, 1)
	currentCategoryStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Padding(0, 1)
	cursorStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	playingStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	groupStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	dimStyle             = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
	statusStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("236")).Padding(0, 1)
	errorStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)
