package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"FormulaBoard/internal/capture"
	"FormulaBoard/internal/errs"
	"FormulaBoard/internal/export"
	boardnet "FormulaBoard/internal/net"
	"FormulaBoard/internal/preview"
	"FormulaBoard/internal/recognize"
	"FormulaBoard/internal/settings"
	"FormulaBoard/internal/state"
)

// Recognizer turns a capture into LaTeX.
type Recognizer interface {
	Recognize(ctx context.Context, img recognize.Image, cfg recognize.Config) (string, error)
}

// Pusher forwards text to a relay listener.
type Pusher interface {
	Push(ctx context.Context, host, port, latex string) error
}

// Deps are the collaborators of a Session. Nil fields get the real
// implementations.
type Deps struct {
	Recognizer Recognizer
	Relay      Pusher
	Typesetter preview.Typesetter
	Discover   func(timeout time.Duration) (boardnet.RelayAddr, error)
}

// Session ties one drawing surface to capture, recognition, preview and
// relay. Every user action is a method; results and messages come back
// through the On* callbacks, which are invoked without any lock held.
type Session struct {
	ID       string
	Surface  *state.Surface
	Captures *capture.Service
	Preview  *preview.Renderer
	Settings *settings.Store

	recognizer Recognizer
	relay      Pusher
	discover   func(time.Duration) (boardnet.RelayAddr, error)

	mu    sync.Mutex
	busy  bool
	latex string

	OnAlert   func(msg string)
	OnBusy    func(busy bool)
	OnCapture func(c *capture.Capture)
	OnResult  func(latex string)
	OnPreview func(out preview.Output)
}

// NewSession creates a session with a width×height surface.
func NewSession(store *settings.Store, width, height int, deps Deps) *Session {
	if deps.Recognizer == nil {
		deps.Recognizer = recognize.NewClient(nil)
	}
	if deps.Relay == nil {
		deps.Relay = boardnet.NewRelayClient(nil)
	}
	if deps.Discover == nil {
		deps.Discover = boardnet.Discover
	}
	s := &Session{
		ID:         uuid.NewString(),
		Surface:    state.NewSurface(width, height),
		Captures:   capture.NewService(),
		Preview:    preview.NewRenderer(deps.Typesetter),
		Settings:   store,
		recognizer: deps.Recognizer,
		relay:      deps.Relay,
		discover:   deps.Discover,
	}
	s.Surface.OnClear = s.Captures.Discard
	return s
}

func (s *Session) alert(msg string) {
	log.Printf("[SESSION %s] %s", shortID(s.ID), msg)
	if s.OnAlert != nil {
		s.OnAlert(msg)
	}
}

func (s *Session) setBusy(b bool) {
	s.mu.Lock()
	s.busy = b
	s.mu.Unlock()
	if s.OnBusy != nil {
		s.OnBusy(b)
	}
}

// Busy reports whether a recognition is outstanding.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Latex is the current recognized (or edited) text.
func (s *Session) Latex() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latex
}

// Clear wipes the surface; the held capture goes with it.
func (s *Session) Clear() {
	s.Surface.Clear()
}

// PreviewCapture snapshots the surface and holds the capture for
// confirmation.
func (s *Session) PreviewCapture() (*capture.Capture, error) {
	c, err := s.Captures.Take(s.Surface.Image())
	if err != nil {
		if errors.Is(err, errs.ErrEmptyCapture) {
			s.alert("The canvas is empty, write a formula first.")
		} else {
			s.alert("Could not capture the canvas: " + err.Error())
		}
		return nil, err
	}
	if s.OnCapture != nil {
		s.OnCapture(c)
	}
	return c, nil
}

// CancelCapture rejects the previewed capture; the drawing stays.
func (s *Session) CancelCapture() {
	s.Captures.Discard()
}

// ConfirmCapture accepts the previewed capture and submits it.
func (s *Session) ConfirmCapture(ctx context.Context) error {
	return s.Submit(ctx)
}

// Submit sends the held capture for recognition. Only one submission runs at
// a time; a second call while busy returns errs.ErrBusy without queueing.
// The busy indicator is cleared on every return path.
func (s *Session) Submit(ctx context.Context) error {
	c := s.Captures.Held()
	if c == nil {
		s.alert("Preview the capture before submitting.")
		return errs.ErrNoCapture
	}

	cfg := s.Settings.Get().RecognizeConfig()
	if err := cfg.Validate(); err != nil {
		s.alert(describe(err))
		return err
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		s.alert("A recognition is already running, please wait.")
		return errs.ErrBusy
	}
	s.busy = true
	s.mu.Unlock()
	if s.OnBusy != nil {
		s.OnBusy(true)
	}
	defer s.setBusy(false)

	text, err := s.recognizer.Recognize(ctx, c, cfg)
	if err != nil {
		s.alert("Recognition failed: " + describe(err))
		return fmt.Errorf("recognize capture %s: %w", c.ID(), err)
	}

	s.setLatex(text)
	if s.OnResult != nil {
		s.OnResult(text)
	}
	return nil
}

// EditLatex replaces the current text, as when the user edits it by hand.
func (s *Session) EditLatex(text string) {
	s.setLatex(text)
}

func (s *Session) setLatex(text string) {
	s.mu.Lock()
	s.latex = text
	s.mu.Unlock()

	out, err := s.Preview.Render(text)
	if err != nil {
		log.Printf("[SESSION %s] Preview kept previous output: %v", shortID(s.ID), err)
	}
	if s.OnPreview != nil {
		s.OnPreview(out)
	}
}

// Push forwards the current text to the configured relay.
func (s *Session) Push(ctx context.Context) error {
	latex := strings.TrimSpace(s.Latex())
	if latex == "" {
		s.alert("There is no LaTeX code to push.")
		return errors.New("nothing to push")
	}
	cfg := s.Settings.Get()
	if err := s.relay.Push(ctx, cfg.RelayHost, cfg.RelayPort, latex); err != nil {
		var transport *errs.TransportError
		if errors.As(err, &transport) {
			s.alert("Connection failed, check that the relay is running and its address is correct.")
		} else {
			s.alert("Push failed, check that the relay is running and its address is correct.")
		}
		return err
	}
	s.alert("Pushed to the desktop clipboard.")
	return nil
}

// DiscoverRelay looks for a relay on the LAN and stores its address.
func (s *Session) DiscoverRelay(timeout time.Duration) (boardnet.RelayAddr, error) {
	addr, err := s.discover(timeout)
	if err != nil {
		s.alert("No relay found on the local network.")
		return addr, err
	}
	cfg := s.Settings.Get()
	cfg.RelayHost, cfg.RelayPort = addr.Host, addr.Port
	if _, err := s.Settings.Save(cfg); err != nil {
		s.alert("Found a relay but could not save settings: " + err.Error())
		return addr, err
	}
	s.alert(fmt.Sprintf("Found relay at %s:%s.", addr.Host, addr.Port))
	return addr, nil
}

// SaveSettings persists cfg.
func (s *Session) SaveSettings(cfg settings.Settings) (settings.Settings, error) {
	saved, err := s.Settings.Save(cfg)
	if err != nil {
		s.alert("Could not save settings: " + err.Error())
		return saved, err
	}
	s.alert("Settings saved.")
	return saved, nil
}

// ExportPDF writes the held capture (or the current drawing) and the
// current text as a PDF.
func (s *Session) ExportPDF(w io.Writer) error {
	c := s.Captures.Held()
	if c == nil {
		if snap, err := capture.Snapshot(s.Surface.Image()); err == nil {
			c = snap
		}
	}
	if err := export.WritePDF(w, c, s.Latex()); err != nil {
		s.alert("Export failed: " + err.Error())
		return err
	}
	return nil
}

// describe renders an error kind as a message for the user.
func describe(err error) string {
	var (
		missing   *errs.ConfigMissingError
		transport *errs.TransportError
		remote    *errs.RemoteError
		malformed *errs.MalformedResponseError
	)
	switch {
	case errors.As(err, &missing):
		return fieldLabel(missing.Field) + " must not be empty, fill it in under Settings."
	case errors.As(err, &transport):
		return "could not reach " + transport.URL + "."
	case errors.As(err, &remote):
		return fmt.Sprintf("API request failed [%d]: %s", remote.Status, remote.Message)
	case errors.As(err, &malformed):
		return "the API response did not contain LaTeX code."
	}
	return err.Error()
}

func fieldLabel(field string) string {
	switch field {
	case "api_key":
		return "API key"
	case "endpoint":
		return "API URL"
	case "model":
		return "Model name"
	}
	return field
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
