package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"FormulaBoard/internal/state"
)

// Actions are the toolbar's hooks into the window.
type Actions struct {
	SetTool  func(state.ToolMode)
	Clear    func()
	Capture  func()
	Submit   func()
	Push     func()
	Discover func()
	Export   func()
	Settings func()
}

// NewToolbar builds the tool row; a label beside the tools shows the active mode.
func NewToolbar(a Actions) fyne.CanvasObject {
	toolLabel := widget.NewLabel(state.ToolDraw.String())
	setTool := func(m state.ToolMode) {
		a.SetTool(m)
		toolLabel.SetText(m.String())
	}

	tools := widget.NewToolbar(
		widget.NewToolbarAction(theme.DocumentCreateIcon(), func() { setTool(state.ToolDraw) }),
		widget.NewToolbarAction(theme.DeleteIcon(), func() { setTool(state.ToolErase) }),
		widget.NewToolbarAction(theme.ContentClearIcon(), a.Clear),
	)
	recognize := widget.NewToolbar(
		widget.NewToolbarAction(theme.VisibilityIcon(), a.Capture),
		widget.NewToolbarAction(theme.MailSendIcon(), a.Submit),
	)
	share := widget.NewToolbar(
		widget.NewToolbarAction(theme.UploadIcon(), a.Push),
		widget.NewToolbarAction(theme.SearchIcon(), a.Discover),
		widget.NewToolbarAction(theme.DocumentSaveIcon(), a.Export),
	)

	return container.NewHBox(
		widget.NewLabel("Tool:"),
		tools,
		toolLabel,
		widget.NewSeparator(),
		widget.NewLabel("Formula:"),
		recognize,
		widget.NewSeparator(),
		widget.NewLabel("Share:"),
		share,
		layout.NewSpacer(),
		widget.NewButtonWithIcon("", theme.SettingsIcon(), a.Settings),
	)
}
