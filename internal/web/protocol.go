package web

import "FormulaBoard/internal/settings"

// inbound is a browser event or action.
type inbound struct {
	Type string `json:"type"`

	// Pointer position in page coordinates and the canvas' on-screen origin.
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	OriginX float64 `json:"originX"`
	OriginY float64 `json:"originY"`

	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`

	Tool     string             `json:"tool,omitempty"`
	Latex    string             `json:"latex,omitempty"`
	Settings *settings.Settings `json:"settings,omitempty"`
}

// outbound is a server notification.
type outbound struct {
	Type     string             `json:"type"`
	Session  string             `json:"session,omitempty"`
	Message  string             `json:"message,omitempty"`
	Busy     bool               `json:"busy,omitempty"`
	Image    string             `json:"image,omitempty"`
	Latex    string             `json:"latex,omitempty"`
	Settings *settings.Settings `json:"settings,omitempty"`
	// APIKeySet reports a stored key; the key itself never leaves the server.
	APIKeySet bool `json:"apiKeySet,omitempty"`
}

const (
	msgResize   = "resize"
	msgBegin    = "begin"
	msgExtend   = "extend"
	msgEnd      = "end"
	msgTool     = "tool"
	msgClear    = "clear"
	msgCapture  = "capture"
	msgCancel   = "cancel"
	msgConfirm  = "confirm"
	msgSubmit   = "submit"
	msgPush     = "push"
	msgLatex    = "latex"
	msgSettings = "settings"
	msgDiscover = "discover"

	msgHello   = "hello"
	msgAlert   = "alert"
	msgBusy    = "busy"
	msgResult  = "result"
	msgPreview = "preview"
)
