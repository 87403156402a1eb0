package model

import (
	"fmt"
	"net"
	"time"
)

// EventKind tags what a classified frame carried.
type EventKind uint8

const (
	EventIgnore EventKind = iota
	EventRequest
	EventResponse
)

func (k EventKind) String() string {
	switch k {
	case EventRequest:
		return "request"
	case EventResponse:
		return "response"
	default:
		return "ignore"
	}
}

// Event is the unit handed to the stats engine for every frame on the watched port.
type Event struct {
	Kind EventKind
	// Host is the literal Host header of a request. Empty for responses and
	// for requests that did not declare one.
	Host string
	// ByteSize is the transport payload length of the single frame.
	ByteSize int
	// Method is the request method, StatusCode the response status line
	// code. Both are optional.
	Method     string
	StatusCode int
	StatusText string
	// ContentType is the response media type with any parameters such as
	// charset removed.
	ContentType string
	// Flow identifies the TCP connection regardless of direction.
	Flow      string
	Timestamp time.Time
}

// RequestEvent builds a request event.
func RequestEvent(host string, byteSize int) Event {
	return Event{Kind: EventRequest, Host: host, ByteSize: byteSize}
}

// ResponseEvent builds a response event.
func ResponseEvent(byteSize int) Event {
	return Event{Kind: EventResponse, ByteSize: byteSize}
}

// Status returns "<code> <reason>" for a response, the key used by the status table.
func (e Event) Status() string {
	if e.StatusText == "" {
		return fmt.Sprintf("%d", e.StatusCode)
	}
	return fmt.Sprintf("%d %s", e.StatusCode, e.StatusText)
}

// NewFlowKey creates a direction-independent key for a TCP connection, so the
// request and its response map to the same value.
func NewFlowKey(ipA net.IP, portA uint16, ipB net.IP, portB uint16) string {
	a := fmt.Sprintf("%s:%d", ipA, portA)
	b := fmt.Sprintf("%s:%d", ipB, portB)
	if a > b {
		a, b = b, a
	}
	return a + "-" + b
}
