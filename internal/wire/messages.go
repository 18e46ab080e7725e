// Package wire defines the versioned JSON frames exchanged with the CRM
// adapter service over websocket.
package wire

import (
	"encoding/json"
	"fmt"

	"crmgen/adapter"
)

const (
	// Version tracks the wire-protocol revision expected by both peers.
	Version = 1

	// Operation identifiers carried in frames.
	OpCreateEntity   = "createEntity"
	OpUpdateEntity   = "updateEntity"
	OpSearchEntities = "searchEntities"
)

// RequestV1 captures the version 1 request frame layout. Exactly one of the
// payload fields matching Op is set.
type RequestV1 struct {
	Ver    int                    `json:"ver"`
	Seq    uint64                 `json:"seq"`
	Op     string                 `json:"op"`
	Create *adapter.CreateRequest `json:"create,omitempty"`
	Update *adapter.UpdateRequest `json:"update,omitempty"`
	Search *adapter.SearchRequest `json:"search,omitempty"`
}

// ResponseV1 captures the version 1 response frame layout. Seq echoes the
// request. Error is set instead of a payload when the adapter refuses the
// call.
type ResponseV1 struct {
	Ver    int                     `json:"ver"`
	Seq    uint64                  `json:"seq"`
	Op     string                  `json:"op"`
	Error  string                  `json:"error,omitempty"`
	Create *adapter.CreateResponse `json:"create,omitempty"`
	Update *adapter.UpdateResponse `json:"update,omitempty"`
	Search *adapter.SearchResponse `json:"search,omitempty"`
}

// EncodeRequest renders a versioned request frame.
func EncodeRequest(msg RequestV1) ([]byte, error) {
	msg.Ver = Version
	return json.Marshal(msg)
}

// DecodeRequest converts a raw websocket payload into a structured request.
func DecodeRequest(payload []byte) (RequestV1, error) {
	var msg RequestV1
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, err
	}
	if msg.Ver == 0 {
		msg.Ver = Version
	}
	if msg.Ver != Version {
		return msg, fmt.Errorf("unsupported wire protocol version %d", msg.Ver)
	}
	switch msg.Op {
	case OpCreateEntity, OpUpdateEntity, OpSearchEntities:
	default:
		return msg, fmt.Errorf("unknown operation %q", msg.Op)
	}
	return msg, nil
}

// EncodeResponse renders a versioned response frame.
func EncodeResponse(msg ResponseV1) ([]byte, error) {
	msg.Ver = Version
	return json.Marshal(msg)
}

// DecodeResponse converts a raw websocket payload into a structured response.
func DecodeResponse(payload []byte) (ResponseV1, error) {
	var msg ResponseV1
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, err
	}
	if msg.Ver == 0 {
		msg.Ver = Version
	}
	if msg.Ver != Version {
		return msg, fmt.Errorf("unsupported wire protocol version %d", msg.Ver)
	}
	return msg, nil
}

// ErrorResponse builds the response frame for a refused call.
func ErrorResponse(seq uint64, op string, err error) ResponseV1 {
	msg := ResponseV1{Ver: Version, Seq: seq, Op: op}
	if err != nil {
		msg.Error = err.Error()
	}
	return msg
}
