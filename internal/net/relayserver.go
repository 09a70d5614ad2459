package net

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/atotto/clipboard"
)

// Clipboard receives relayed text.
type Clipboard interface {
	WriteAll(text string) error
	ReadAll() (string, error)
}

// SystemClipboard is the desktop clipboard.
type SystemClipboard struct{}

func (SystemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }
func (SystemClipboard) ReadAll() (string, error)   { return clipboard.ReadAll() }

const clipboardCheckText = "FormulaBoard clipboard check"

// CheckClipboard copies a marker and reads it back, then restores the
// previous content when there was any. The relay refuses to start without a
// working clipboard.
func CheckClipboard(cb Clipboard) error {
	previous, readErr := cb.ReadAll()
	if err := cb.WriteAll(clipboardCheckText); err != nil {
		return fmt.Errorf("clipboard write failed: %w", err)
	}
	got, err := cb.ReadAll()
	if err != nil {
		return fmt.Errorf("clipboard read failed: %w", err)
	}
	if got != clipboardCheckText {
		return errors.New("clipboard did not keep the copied text")
	}
	if readErr == nil && previous != "" {
		if err := cb.WriteAll(previous); err != nil {
			log.Printf("[RELAY] Could not restore clipboard: %v", err)
		}
	}
	return nil
}

// RelayServer is the companion listener: it copies pushed LaTeX to the
// clipboard. Browsers on other devices call it, so every answer allows any
// origin.
type RelayServer struct {
	Clipboard Clipboard
	// OnCopy runs after a successful copy.
	OnCopy func(latex string)
}

func NewRelayServer(cb Clipboard) *RelayServer {
	if cb == nil {
		cb = SystemClipboard{}
	}
	return &RelayServer{Clipboard: cb}
}

func (s *RelayServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	if r.URL.Path != "/copy" {
		writeJSON(w, http.StatusNotFound, &CopyResponse{Status: "error", Message: "path not found"})
		return
	}
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, &CopyResponse{Status: "error", Message: "use POST"})
		return
	}

	var req CopyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, &CopyResponse{Status: "error", Message: "invalid JSON body"})
		return
	}
	if req.Latex == nil {
		writeJSON(w, http.StatusBadRequest, &CopyResponse{Status: "error", Message: "missing latex parameter"})
		return
	}
	if err := s.Clipboard.WriteAll(*req.Latex); err != nil {
		log.Printf("[RELAY] Clipboard write failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, &CopyResponse{Status: "error", Message: "clipboard unavailable"})
		return
	}

	log.Printf("[RELAY] Copied LaTeX to clipboard: %s", *req.Latex)
	if s.OnCopy != nil {
		s.OnCopy(*req.Latex)
	}
	writeJSON(w, http.StatusOK, &CopyResponse{Status: "success", Message: "copied to clipboard"})
}

func writeJSON(w http.ResponseWriter, status int, v *CopyResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}
