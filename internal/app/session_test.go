package app

import (
	"bytes"
	"context"
	"errors"
	"image"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FormulaBoard/internal/capture"
	"FormulaBoard/internal/errs"
	boardnet "FormulaBoard/internal/net"
	"FormulaBoard/internal/recognize"
	"FormulaBoard/internal/settings"
)

type fakeRecognizer struct {
	text    string
	err     error
	calls   int
	gate    chan struct{}
	entered chan struct{}
}

func (f *fakeRecognizer) Recognize(ctx context.Context, img recognize.Image, cfg recognize.Config) (string, error) {
	f.calls++
	if f.entered != nil {
		close(f.entered)
	}
	if f.gate != nil {
		<-f.gate
	}
	return f.text, f.err
}

type fakePusher struct {
	got []string
	err error
}

func (f *fakePusher) Push(ctx context.Context, host, port, latex string) error {
	f.got = append(f.got, host+":"+port+" "+latex)
	return f.err
}

type recordingTypesetter struct{ got []string }

func (r *recordingTypesetter) Typeset(latex string) (image.Image, error) {
	r.got = append(r.got, latex)
	return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
}

type harness struct {
	*Session
	rec    *fakeRecognizer
	relay  *fakePusher
	ts     *recordingTypesetter
	alerts []string
	busy   []bool
}

func newHarness(t *testing.T, apiKey string) *harness {
	store, err := settings.NewStore("")
	require.NoError(t, err)
	cfg := settings.Defaults()
	cfg.APIKey = apiKey
	_, err = store.Save(cfg)
	require.NoError(t, err)

	h := &harness{rec: &fakeRecognizer{}, relay: &fakePusher{}, ts: &recordingTypesetter{}}
	h.Session = NewSession(store, 240, 100, Deps{
		Recognizer: h.rec,
		Relay:      h.relay,
		Typesetter: h.ts,
		Discover: func(time.Duration) (boardnet.RelayAddr, error) {
			return boardnet.RelayAddr{Host: "10.0.0.7", Port: "8123"}, nil
		},
	})
	var mu sync.Mutex
	h.OnAlert = func(msg string) { mu.Lock(); h.alerts = append(h.alerts, msg); mu.Unlock() }
	h.OnBusy = func(b bool) { mu.Lock(); h.busy = append(h.busy, b); mu.Unlock() }
	return h
}

func (h *harness) drawStroke() {
	h.Surface.BeginStroke(20, 20)
	h.Surface.ExtendStroke(200, 80)
	h.Surface.EndStroke()
}

func TestPreviewCaptureOnEmptyCanvas(t *testing.T) {
	h := newHarness(t, "sk")
	c, err := h.PreviewCapture()
	assert.Nil(t, c)
	assert.ErrorIs(t, err, errs.ErrEmptyCapture)
	assert.Equal(t, []string{"The canvas is empty, write a formula first."}, h.alerts)
	assert.Nil(t, h.Captures.Held())
}

func TestSubmitWithoutCredential(t *testing.T) {
	h := newHarness(t, "")
	h.drawStroke()
	var captured *capture.Capture
	h.OnCapture = func(c *capture.Capture) { captured = c }
	c, err := h.PreviewCapture()
	require.NoError(t, err)
	assert.Same(t, c, captured)

	err = h.ConfirmCapture(context.Background())
	var missing *errs.ConfigMissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "api_key", missing.Field)
	assert.False(t, h.Busy())
	assert.NotContains(t, h.busy, true)
	assert.Zero(t, h.rec.calls)
	assert.Contains(t, h.alerts, "API key must not be empty, fill it in under Settings.")
}

func TestSubmitSuccessFeedsPreview(t *testing.T) {
	h := newHarness(t, "sk")
	h.rec.text = "x^2+y^2=1"
	var result string
	h.OnResult = func(s string) { result = s }

	h.drawStroke()
	_, err := h.PreviewCapture()
	require.NoError(t, err)
	require.NoError(t, h.Submit(context.Background()))

	assert.Equal(t, "x^2+y^2=1", result)
	assert.Equal(t, "x^2+y^2=1", h.Latex())
	assert.Equal(t, []string{"x^2+y^2=1"}, h.ts.got)
	assert.Equal(t, "x^2+y^2=1", h.Preview.Current().Source)
	assert.Equal(t, []bool{true, false}, h.busy)
}

func TestSubmitFailureClearsBusy(t *testing.T) {
	h := newHarness(t, "sk")
	h.rec.err = &errs.RemoteError{Status: 500, Message: "boom"}
	h.drawStroke()
	_, err := h.PreviewCapture()
	require.NoError(t, err)

	err = h.Submit(context.Background())
	var remote *errs.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.False(t, h.Busy())
	assert.Equal(t, []bool{true, false}, h.busy)
	assert.Contains(t, h.alerts, "Recognition failed: API request failed [500]: boom")
	assert.Empty(t, h.Latex())
}

func TestSubmitRequiresCapture(t *testing.T) {
	h := newHarness(t, "sk")
	h.drawStroke()
	assert.ErrorIs(t, h.Submit(context.Background()), errs.ErrNoCapture)

	_, err := h.PreviewCapture()
	require.NoError(t, err)
	h.CancelCapture()
	assert.ErrorIs(t, h.Submit(context.Background()), errs.ErrNoCapture)
	assert.Zero(t, h.rec.calls)
}

func TestClearInvalidatesCapture(t *testing.T) {
	h := newHarness(t, "sk")
	h.drawStroke()
	_, err := h.PreviewCapture()
	require.NoError(t, err)

	h.Clear()
	assert.Nil(t, h.Captures.Held())
	assert.ErrorIs(t, h.Submit(context.Background()), errs.ErrNoCapture)
	_, err = h.PreviewCapture()
	assert.ErrorIs(t, err, errs.ErrEmptyCapture)
}

func TestSecondSubmitWhileBusyIsRejected(t *testing.T) {
	h := newHarness(t, "sk")
	h.rec.text = "a"
	h.rec.gate = make(chan struct{})
	h.rec.entered = make(chan struct{})
	h.drawStroke()
	_, err := h.PreviewCapture()
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- h.Submit(context.Background()) }()
	<-h.rec.entered

	assert.True(t, h.Busy())
	assert.ErrorIs(t, h.Submit(context.Background()), errs.ErrBusy)

	close(h.rec.gate)
	require.NoError(t, <-done)
	assert.Equal(t, 1, h.rec.calls)
	assert.False(t, h.Busy())
}

func TestPushUsesRelaySettings(t *testing.T) {
	h := newHarness(t, "sk")
	assert.Error(t, h.Push(context.Background()))
	assert.Contains(t, h.alerts, "There is no LaTeX code to push.")
	assert.Empty(t, h.relay.got)

	h.EditLatex("  \\sqrt{2}  ")
	require.NoError(t, h.Push(context.Background()))
	assert.Equal(t, []string{"127.0.0.1:8000 \\sqrt{2}"}, h.relay.got)
	assert.Contains(t, h.alerts, "Pushed to the desktop clipboard.")
}

func TestPushToUnreachableRelay(t *testing.T) {
	h := newHarness(t, "sk")
	h.Session.relay = boardnet.NewRelayClient(nil)

	srv := httptest.NewServer(http.NotFoundHandler())
	u, _ := url.Parse(srv.URL)
	srv.Close()
	cfg := h.Settings.Get()
	cfg.RelayHost, cfg.RelayPort = u.Hostname(), u.Port()
	_, err := h.Settings.Save(cfg)
	require.NoError(t, err)

	h.EditLatex("x")
	assert.NotPanics(t, func() { err = h.Push(context.Background()) })
	var transport *errs.TransportError
	assert.ErrorAs(t, err, &transport)
	assert.Contains(t, h.alerts, "Connection failed, check that the relay is running and its address is correct.")
}

func TestPushRemoteFailure(t *testing.T) {
	h := newHarness(t, "sk")
	h.relay.err = &errs.RemoteError{Status: 404, Message: "path not found"}
	h.EditLatex("x")
	assert.Error(t, h.Push(context.Background()))
	assert.Contains(t, h.alerts, "Push failed, check that the relay is running and its address is correct.")
}

func TestDiscoverRelayStoresAddress(t *testing.T) {
	h := newHarness(t, "sk")
	addr, err := h.DiscoverRelay(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.7", addr.Host)
	assert.Equal(t, "10.0.0.7", h.Settings.Get().RelayHost)
	assert.Equal(t, "8123", h.Settings.Get().RelayPort)

	h.discover = func(time.Duration) (boardnet.RelayAddr, error) {
		return boardnet.RelayAddr{}, errors.New("timeout")
	}
	_, err = h.DiscoverRelay(time.Millisecond)
	assert.Error(t, err)
	assert.Contains(t, h.alerts, "No relay found on the local network.")
}

func TestExportPDF(t *testing.T) {
	h := newHarness(t, "sk")
	var buf bytes.Buffer
	assert.Error(t, h.ExportPDF(&buf))

	h.drawStroke()
	h.EditLatex("a^2")
	require.NoError(t, h.ExportPDF(&buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}
