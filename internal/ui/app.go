package ui

import (
	"context"
	"image"
	"log"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"FormulaBoard/internal/app"
	"FormulaBoard/internal/capture"
	"FormulaBoard/internal/preview"
	"FormulaBoard/internal/settings"
)

const discoverWindow = 3 * time.Second

// window is the desktop front-end for one Session.
type window struct {
	sess  *app.Session
	win   fyne.Window
	board *BoardWidget

	latex       *widget.Entry
	syncing     bool
	previewImg  *canvas.Image
	placeholder *widget.Label
	status      *widget.Label
	activity    *widget.ProgressBarInfinite

	mu      sync.Mutex
	dialogs []dialog.Dialog
}

// RunApp opens the desktop window and blocks until it is closed.
func RunApp(store *settings.Store, deps app.Deps) {
	a := fyneapp.New()
	w := a.NewWindow("FormulaBoard")
	w.Resize(fyne.NewSize(1024, 768))

	sess := app.NewSession(store, 800, 400, deps)
	ui := newWindow(sess, w)
	w.SetContent(ui.layout())
	w.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if ev.Name == fyne.KeyEscape {
			ui.closeDialogs()
		}
	})
	w.ShowAndRun()
}

func newWindow(sess *app.Session, w fyne.Window) *window {
	ui := &window{
		sess:        sess,
		win:         w,
		board:       NewBoardWidget(sess.Surface),
		latex:       widget.NewMultiLineEntry(),
		previewImg:  canvas.NewImageFromImage(nil),
		placeholder: widget.NewLabel(preview.Placeholder),
		status:      widget.NewLabel("Ready"),
		activity:    widget.NewProgressBarInfinite(),
	}
	ui.board.OnResize = sess.Captures.Discard
	ui.latex.SetPlaceHolder("LaTeX")
	ui.latex.SetMinRowsVisible(3)
	ui.latex.OnChanged = func(text string) {
		if !ui.syncing {
			sess.EditLatex(text)
		}
	}
	ui.previewImg.FillMode = canvas.ImageFillContain
	ui.previewImg.SetMinSize(fyne.NewSize(200, 80))
	ui.previewImg.Hide()
	ui.placeholder.Wrapping = fyne.TextWrapWord
	ui.activity.Hide()
	ui.activity.Stop()
	ui.wire()
	return ui
}

func (ui *window) layout() fyne.CanvasObject {
	toolbar := NewToolbar(Actions{
		SetTool:  ui.sess.Surface.SetTool,
		Clear:    ui.clear,
		Capture:  func() { ui.sess.PreviewCapture() },
		Submit:   func() { go ui.sess.Submit(context.Background()) },
		Push:     func() { go ui.sess.Push(context.Background()) },
		Discover: func() { go ui.sess.DiscoverRelay(discoverWindow) },
		Export:   ui.export,
		Settings: ui.showSettings,
	})
	result := container.NewVBox(
		widget.NewLabel("LaTeX"),
		ui.latex,
		container.NewStack(ui.placeholder, ui.previewImg),
		container.NewBorder(nil, nil, nil, ui.activity, ui.status),
	)
	return container.NewBorder(toolbar, result, nil, nil, ui.board)
}

// wire routes session callbacks onto the UI goroutine.
func (ui *window) wire() {
	ui.sess.OnAlert = func(msg string) {
		fyne.Do(func() { ui.show(dialog.NewInformation("FormulaBoard", msg, ui.win)) })
	}
	ui.sess.OnBusy = func(busy bool) {
		fyne.Do(func() { ui.setBusy(busy) })
	}
	ui.sess.OnCapture = func(c *capture.Capture) {
		fyne.Do(func() { ui.showCapture(c) })
	}
	ui.sess.OnResult = func(latex string) {
		fyne.Do(func() {
			ui.syncing = true
			ui.latex.SetText(latex)
			ui.syncing = false
		})
	}
	ui.sess.OnPreview = func(out preview.Output) {
		fyne.Do(func() { ui.setPreview(out) })
	}
}

func (ui *window) clear() {
	ui.sess.Clear()
	ui.board.Redraw()
	ui.status.SetText("Cleared")
}

func (ui *window) setBusy(busy bool) {
	if busy {
		ui.status.SetText("Recognizing...")
		ui.activity.Show()
		ui.activity.Start()
		return
	}
	ui.status.SetText("Ready")
	ui.activity.Stop()
	ui.activity.Hide()
}

func (ui *window) setPreview(out preview.Output) {
	if out.IsPlaceholder() {
		ui.previewImg.Hide()
		ui.placeholder.SetText(out.Message)
		ui.placeholder.Show()
		return
	}
	ui.placeholder.Hide()
	ui.previewImg.Image = out.Image
	ui.previewImg.Show()
	ui.previewImg.Refresh()
}

func (ui *window) showCapture(c *capture.Capture) {
	img, err := c.Decode()
	if err != nil {
		log.Printf("[UI] Could not decode capture %s: %v", c.ID(), err)
		img = image.NewRGBA(image.Rect(0, 0, 1, 1))
	}
	shot := canvas.NewImageFromImage(img)
	shot.FillMode = canvas.ImageFillContain
	shot.SetMinSize(fyne.NewSize(float32(c.Width())/2, float32(c.Height())/2))

	d := dialog.NewCustomConfirm("Capture preview", "Submit", "Keep writing", shot, func(ok bool) {
		if ok {
			go ui.sess.ConfirmCapture(context.Background())
			return
		}
		ui.sess.CancelCapture()
	}, ui.win)
	ui.show(d)
}

func (ui *window) showSettings() {
	cur := ui.sess.Settings.Get()
	endpoint := widget.NewEntry()
	endpoint.SetText(cur.Endpoint)
	key := widget.NewPasswordEntry()
	key.SetText(cur.APIKey)
	model := widget.NewEntry()
	model.SetText(cur.Model)
	instruction := widget.NewMultiLineEntry()
	instruction.SetText(cur.Instruction)
	instruction.Wrapping = fyne.TextWrapWord
	host := widget.NewEntry()
	host.SetText(cur.RelayHost)
	port := widget.NewEntry()
	port.SetText(cur.RelayPort)

	items := []*widget.FormItem{
		widget.NewFormItem("API URL", endpoint),
		widget.NewFormItem("API key", key),
		widget.NewFormItem("Model", model),
		widget.NewFormItem("Instruction", instruction),
		widget.NewFormItem("Relay host", host),
		widget.NewFormItem("Relay port", port),
	}
	d := dialog.NewForm("Settings", "Save", "Cancel", items, func(ok bool) {
		if !ok {
			return
		}
		ui.sess.SaveSettings(settings.Settings{
			Endpoint:    endpoint.Text,
			APIKey:      key.Text,
			Model:       model.Text,
			Instruction: instruction.Text,
			RelayHost:   host.Text,
			RelayPort:   port.Text,
		})
	}, ui.win)
	d.Resize(fyne.NewSize(520, 420))
	ui.show(d)
}

func (ui *window) export() {
	d := dialog.NewFileSave(func(w fyne.URIWriteCloser, err error) {
		if err != nil {
			ui.show(dialog.NewError(err, ui.win))
			return
		}
		if w == nil {
			return
		}
		defer func() {
			if err := w.Close(); err != nil {
				log.Printf("[UI] Error closing export: %v", err)
			}
		}()
		if err := ui.sess.ExportPDF(w); err == nil {
			ui.status.SetText("Exported " + w.URI().Name())
		}
	}, ui.win)
	d.SetFileName("formula.pdf")
	d.Show()
}

// show displays d and remembers it so Escape can close it.
func (ui *window) show(d dialog.Dialog) {
	ui.mu.Lock()
	ui.dialogs = append(ui.dialogs, d)
	ui.mu.Unlock()
	d.SetOnClosed(func() { ui.forget(d) })
	d.Show()
}

func (ui *window) forget(d dialog.Dialog) {
	ui.mu.Lock()
	defer ui.mu.Unlock()
	for i, open := range ui.dialogs {
		if open == d {
			ui.dialogs = append(ui.dialogs[:i], ui.dialogs[i+1:]...)
			return
		}
	}
}

func (ui *window) closeDialogs() {
	ui.mu.Lock()
	open := append([]dialog.Dialog(nil), ui.dialogs...)
	ui.mu.Unlock()
	for _, d := range open {
		d.Hide()
	}
}
