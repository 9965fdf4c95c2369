package server

import (
	"github.com/zeusync/tileboard/internal/core/board"
	"github.com/zeusync/tileboard/internal/core/events/bus"
	"github.com/zeusync/tileboard/internal/core/picking"
)

// Actions accepted in Command.Action.
const (
	ActionSetToolMode      = "set_tool_mode"
	ActionSetCreationGroup = "set_creation_group"
	ActionPointer          = "pointer"
	ActionHover            = "hover"
	ActionRotateSelected   = "rotate_selected"
	ActionResetAll         = "reset_all"
	ActionPopulate         = "populate"
	ActionPlaceHero        = "place_hero"
	ActionRotateHero       = "rotate_hero"
	ActionMoveHero         = "move_hero"
	ActionSnapshot         = "snapshot"
	ActionSaveLayout       = "save_layout"
	ActionLoadLayout       = "load_layout"
)

// Command is one client request. Only the fields the action needs are read.
type Command struct {
	ID        string           `json:"id"`
	Action    string           `json:"action"`
	Mode      string           `json:"mode,omitempty"`
	Group     string           `json:"group,omitempty"`
	Pointer   *picking.Pointer `json:"pointer,omitempty"`
	Clockwise bool             `json:"clockwise,omitempty"`
	Forward   bool             `json:"forward,omitempty"`
	Name      string           `json:"name,omitempty"`
}

type Reply struct {
	ID     string `json:"id"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
	Result any    `json:"result,omitempty"`
}

// Frame is a board.Frame numbered in session order.
type Frame struct {
	Seq uint64 `json:"seq"`
	board.Frame
}

// Message types pushed to clients.
const (
	MessageWelcome = "welcome"
	MessageReply   = "reply"
	MessageFrame   = "frame"
	MessageEvent   = "event"
)

// Message is the envelope of everything a client receives.
type Message struct {
	Type    string     `json:"type"`
	Welcome *Welcome   `json:"welcome,omitempty"`
	Reply   *Reply     `json:"reply,omitempty"`
	Frame   *Frame     `json:"frame,omitempty"`
	Event   *bus.Event `json:"event,omitempty"`
}

// Welcome is sent once per connection with the full board state.
type Welcome struct {
	ClientID string         `json:"client_id"`
	Snapshot board.Snapshot `json:"snapshot"`
	Layout   board.Layout   `json:"layout"`
}

type SnapshotResult struct {
	Snapshot board.Snapshot `json:"snapshot"`
	Layout   board.Layout   `json:"layout"`
}

type CountResult struct {
	Count int `json:"count"`
}

type SaveResult struct {
	ID string `json:"id"`
}
