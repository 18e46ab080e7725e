package transport

import (
	"context"

	"crmgen/logging"
)

const (
	// EventConnected is emitted when a websocket session to the adapter opens.
	EventConnected logging.EventType = "transport.connected"
	// EventDisconnected is emitted when a session closes.
	EventDisconnected logging.EventType = "transport.disconnected"
	// EventMalformed is emitted when a frame cannot be decoded.
	EventMalformed logging.EventType = "transport.malformed"
	// EventCallFailed is emitted when the adapter reports an error for a call.
	EventCallFailed logging.EventType = "transport.call_failed"
)

// SessionPayload captures session lifecycle details.
type SessionPayload struct {
	RemoteAddr string `json:"remoteAddr"`
	Reason     string `json:"reason,omitempty"`
}

// CallPayload captures a failed adapter call.
type CallPayload struct {
	Op      string `json:"op"`
	Seq     uint64 `json:"seq"`
	Message string `json:"message"`
}

// Connected publishes an info event when a session opens.
func Connected(ctx context.Context, pub logging.Publisher, remote logging.EntityRef, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventConnected,
		Entity:   remote,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryTransport,
		Payload:  SessionPayload{RemoteAddr: remote.ID},
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// Disconnected publishes an info event when a session closes.
func Disconnected(ctx context.Context, pub logging.Publisher, remote logging.EntityRef, reason string, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventDisconnected,
		Entity:   remote,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryTransport,
		Payload:  SessionPayload{RemoteAddr: remote.ID, Reason: reason},
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// Malformed publishes a warning event when a frame cannot be decoded.
func Malformed(ctx context.Context, pub logging.Publisher, remote logging.EntityRef, reason string, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventMalformed,
		Entity:   remote,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryTransport,
		Payload:  SessionPayload{RemoteAddr: remote.ID, Reason: reason},
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// CallFailed publishes a warning event when the adapter rejects a call.
func CallFailed(ctx context.Context, pub logging.Publisher, remote logging.EntityRef, payload CallPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventCallFailed,
		Entity:   remote,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryTransport,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
