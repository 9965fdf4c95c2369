package board

import "fmt"

// ToolMode decides what a pointer action does to the tile under it.
type ToolMode string

const (
	ToolActivate ToolMode = "activate"
	ToolSelect   ToolMode = "select"
	ToolDelete   ToolMode = "delete"
	ToolCreate   ToolMode = "create"
)

var ToolModes = []ToolMode{ToolActivate, ToolSelect, ToolDelete, ToolCreate}

func ParseToolMode(s string) (ToolMode, error) {
	for _, m := range ToolModes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%q: %w", s, ErrInvalidToolMode)
}

// Action is what a pointer action ended up doing.
type Action string

const (
	ActionNone   Action = "none"
	ActionToggle Action = "toggle"
	ActionSelect Action = "select"
	ActionDelete Action = "delete"
	ActionCreate Action = "create"
)
