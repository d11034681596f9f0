package ports

import (
	"flowcanvas/domain/core/valueobjects"
)

// LayoutDirection selects the main axis for automatic layout.
type LayoutDirection string

const (
	LayoutLeftToRight LayoutDirection = "LR"
	LayoutTopToBottom LayoutDirection = "TB"
)

// ParseLayoutDirection maps the wire value onto a direction, defaulting
// to left-to-right for an empty value.
func ParseLayoutDirection(s string) (LayoutDirection, bool) {
	switch LayoutDirection(s) {
	case LayoutLeftToRight, LayoutTopToBottom:
		return LayoutDirection(s), true
	case "":
		return LayoutLeftToRight, true
	default:
		return "", false
	}
}

// LayoutNode is the read-only node view handed to a layout function.
type LayoutNode struct {
	ID       valueobjects.NodeID
	Type     valueobjects.NodeType
	Position valueobjects.Position
}

// LayoutEdge is the read-only edge view handed to a layout function.
type LayoutEdge struct {
	Source valueobjects.NodeID
	Target valueobjects.NodeID
}

// LayoutFunc computes new positions for the given graph. It is a pure
// function of its inputs; the editor applies the returned positions as
// ordinary node moves. Nodes absent from the result keep their position.
type LayoutFunc func(nodes []LayoutNode, edges []LayoutEdge, direction LayoutDirection) (map[valueobjects.NodeID]valueobjects.Position, error)
