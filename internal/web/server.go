package web

import (
	"bytes"
	"context"
	"embed"
	"encoding/base64"
	"image"
	"image/png"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"FormulaBoard/internal/app"
	"FormulaBoard/internal/capture"
	"FormulaBoard/internal/preview"
	"FormulaBoard/internal/settings"
	"FormulaBoard/internal/state"
)

//go:embed static
var staticFiles embed.FS

const (
	initialWidth   = 800
	initialHeight  = 400
	discoverWindow = 3 * time.Second
	maxMessageSize = 1 << 20
)

// Server hosts the browser front-end. Each websocket connection owns one
// Session; the settings store is shared.
type Server struct {
	store    *settings.Store
	deps     app.Deps
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewServer(store *settings.Store, deps app.Deps) *Server {
	return &Server{
		store: store,
		deps:  deps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		sessions: make(map[string]*app.Session),
	}
}

// Handler routes the page, the websocket and the PDF export.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	static, _ := fs.Sub(staticFiles, "static")
	mux.Handle("GET /", http.FileServerFS(static))
	mux.HandleFunc("GET /ws", s.serveWS)
	mux.HandleFunc("GET /export", s.serveExport)
	return mux
}

func (s *Server) session(id string) *app.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

func (s *Server) serveExport(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r.URL.Query().Get("session"))
	if sess == nil {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	var buf bytes.Buffer
	if err := sess.ExportPDF(&buf); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="formula.pdf"`)
	w.Write(buf.Bytes())
}

// client serializes writes to one websocket.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(msg outbound) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := c.conn.WriteJSON(msg); err != nil {
		log.Printf("[WEB] Write to %s failed: %v", c.conn.RemoteAddr(), err)
	}
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WEB] Upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	c := &client{conn: conn}
	sess := app.NewSession(s.store, initialWidth, initialHeight, s.deps)
	s.wire(sess, c)

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.sessions, sess.ID)
		s.mu.Unlock()
		log.Printf("[WEB] Session %s closed", sess.ID)
	}()
	log.Printf("[WEB] Session %s opened from %s", sess.ID, conn.RemoteAddr())

	hello := settingsMessage(s.store.Get())
	hello.Type, hello.Session, hello.Message = msgHello, sess.ID, preview.Placeholder
	c.send(hello)

	// Events are applied strictly in arrival order. Long-running actions
	// run on their own goroutine; the session's busy flag guards re-entry.
	var inflight sync.WaitGroup
	defer inflight.Wait()
	for {
		var msg inbound
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[WEB] Session %s read error: %v", sess.ID, err)
			}
			return
		}
		s.dispatch(sess, c, msg, &inflight)
	}
}

func (s *Server) wire(sess *app.Session, c *client) {
	sess.OnAlert = func(m string) { c.send(outbound{Type: msgAlert, Message: m}) }
	sess.OnBusy = func(b bool) { c.send(outbound{Type: msgBusy, Busy: b}) }
	sess.OnCapture = func(cp *capture.Capture) { c.send(outbound{Type: msgCapture, Image: cp.DataURI()}) }
	sess.OnResult = func(latex string) { c.send(outbound{Type: msgResult, Latex: latex}) }
	sess.OnPreview = func(out preview.Output) { c.send(previewMessage(out)) }
}

func (s *Server) dispatch(sess *app.Session, c *client, msg inbound, inflight *sync.WaitGroup) {
	background := func(f func(ctx context.Context)) {
		inflight.Add(1)
		go func() {
			defer inflight.Done()
			f(context.Background())
		}()
	}

	switch msg.Type {
	case msgResize:
		sess.Surface.Resize(msg.Width, msg.Height)
		sess.Captures.Discard()
	case msgBegin:
		p := state.MapPoint(msg.X, msg.Y, msg.OriginX, msg.OriginY)
		sess.Surface.BeginStroke(p.X, p.Y)
	case msgExtend:
		p := state.MapPoint(msg.X, msg.Y, msg.OriginX, msg.OriginY)
		sess.Surface.ExtendStroke(p.X, p.Y)
	case msgEnd:
		sess.Surface.EndStroke()
	case msgTool:
		if mode, ok := state.ParseToolMode(msg.Tool); ok {
			sess.Surface.SetTool(mode)
		}
	case msgClear:
		sess.Clear()
	case msgCapture:
		sess.PreviewCapture()
	case msgCancel:
		sess.CancelCapture()
	case msgConfirm:
		background(func(ctx context.Context) { sess.ConfirmCapture(ctx) })
	case msgSubmit:
		background(func(ctx context.Context) { sess.Submit(ctx) })
	case msgPush:
		background(func(ctx context.Context) { sess.Push(ctx) })
	case msgLatex:
		sess.EditLatex(msg.Latex)
	case msgSettings:
		if msg.Settings != nil {
			cfg := *msg.Settings
			if strings.TrimSpace(cfg.APIKey) == "" {
				cfg.APIKey = s.store.Get().APIKey
			}
			if saved, err := sess.SaveSettings(cfg); err == nil {
				c.send(settingsMessage(saved))
			}
		}
	case msgDiscover:
		background(func(context.Context) {
			if _, err := sess.DiscoverRelay(discoverWindow); err == nil {
				c.send(settingsMessage(s.store.Get()))
			}
		})
	default:
		log.Printf("[WEB] Session %s sent unknown message %q", sess.ID, msg.Type)
	}
}

// settingsMessage carries cfg to the page with the API key withheld. A blank
// key sent back from the page keeps the stored one.
func settingsMessage(cfg settings.Settings) outbound {
	set := cfg.APIKey != ""
	cfg.APIKey = ""
	return outbound{Type: msgSettings, Settings: &cfg, APIKeySet: set}
}

func previewMessage(out preview.Output) outbound {
	if out.IsPlaceholder() {
		return outbound{Type: msgPreview, Message: out.Message}
	}
	uri, err := pngDataURI(out.Image)
	if err != nil {
		return outbound{Type: msgPreview, Message: out.Source}
	}
	return outbound{Type: msgPreview, Image: uri, Latex: out.Source}
}

func pngDataURI(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
