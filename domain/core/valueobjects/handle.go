package valueobjects

import (
	pkgerrors "flowcanvas/pkg/errors"
)

// Handle names a port on a node. Ports are tagged input or output and
// constrain the legal direction of an edge: connections run from an
// output port on the source node to an input port on the target node.
type Handle string

const (
	HandleIn  Handle = "in"
	HandleOut Handle = "out"
)

// ParseHandle validates a handle string
func ParseHandle(s string) (Handle, error) {
	switch Handle(s) {
	case HandleIn, HandleOut:
		return Handle(s), nil
	default:
		return "", pkgerrors.ErrIllegalPortDirection.WithDetail("handle", s)
	}
}

// String returns the string representation of the Handle
func (h Handle) String() string {
	return string(h)
}

// IsInput reports whether the handle names an input port
func (h Handle) IsInput() bool {
	return h == HandleIn
}

// IsOutput reports whether the handle names an output port
func (h Handle) IsOutput() bool {
	return h == HandleOut
}

// HasInputPort reports whether nodes of the given type expose an input
// port. Start nodes do not: control flow can only leave them.
func HasInputPort(t NodeType) bool {
	return t != NodeTypeStart
}

// HasOutputPort reports whether nodes of the given type expose an output
// port. End nodes do not: control flow can only arrive at them.
func HasOutputPort(t NodeType) bool {
	return t != NodeTypeEnd
}
