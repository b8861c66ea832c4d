package pipeline

import (
	"encoding/json"
	"fmt"
)

// ConnectionKind says what flows along a connection.
type ConnectionKind int

const (
	// ImageConnection routes the source's output image to the target as input.
	ImageConnection ConnectionKind = iota
	// ResultConnection skips the target when the source fails.
	ResultConnection
	// CoordinatesConnection re-positions the target's ROI from the source's
	// CenterX/CenterY and BoundingRect data.
	CoordinatesConnection
)

var kindNames = [...]string{"image", "result", "coordinates"}

func (k ConnectionKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("ConnectionKind(%d)", int(k))
	}
	return kindNames[k]
}

// MarshalJSON encodes the kind by name.
func (k ConnectionKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// ParseConnectionKind accepts the names produced by String.
func ParseConnectionKind(s string) (ConnectionKind, error) {
	for i, n := range kindNames {
		if n == s {
			return ConnectionKind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown connection kind %q", ErrInvalidConnection, s)
}

// Connection links two tools by id.
type Connection struct {
	Source string         `json:"source"`
	Target string         `json:"target"`
	Kind   ConnectionKind `json:"kind"`
}

// connectionSet keeps connections unique per (source, target, kind) in
// insertion order.
type connectionSet struct {
	list []Connection
}

func (s *connectionSet) add(c Connection) bool {
	if s.has(c) {
		return false
	}
	s.list = append(s.list, c)
	return true
}

func (s *connectionSet) has(c Connection) bool {
	for _, e := range s.list {
		if e == c {
			return true
		}
	}
	return false
}

func (s *connectionSet) remove(c Connection) bool {
	for i, e := range s.list {
		if e == c {
			s.list = append(s.list[:i], s.list[i+1:]...)
			return true
		}
	}
	return false
}

// removeTool drops every connection that references id.
func (s *connectionSet) removeTool(id string) {
	kept := s.list[:0]
	for _, c := range s.list {
		if c.Source != id && c.Target != id {
			kept = append(kept, c)
		}
	}
	s.list = kept
}

// into returns the connections of the given kind that target id.
func (s *connectionSet) into(id string, kind ConnectionKind) []Connection {
	var out []Connection
	for _, c := range s.list {
		if c.Target == id && c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func (s *connectionSet) snapshot() []Connection {
	return append([]Connection(nil), s.list...)
}

func (s *connectionSet) clear() {
	s.list = nil
}
