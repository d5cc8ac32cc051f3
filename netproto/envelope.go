// Package netproto implements the server<->client wire protocol of spec
// section 6: an identity-tagged duplex channel over gorilla/websocket,
// every message carrying a monotonically increasing per-client sequence
// number.
package netproto

import (
	"encoding/json"
	"time"
)

// MessageType names an Envelope's payload shape, mirroring the
// string-enum message-type pattern used by the example pack's own
// websocket protocols.
type MessageType string

const (
	// Client -> server.
	TypeRecords   MessageType = "records"
	TypeHeartbeat MessageType = "heartbeat"

	// Server -> client.
	TypeRequest MessageType = "request"
	TypeWait    MessageType = "wait"
)

// Envelope is the "Inter-process transport" of spec section 6.
type Envelope struct {
	Type      MessageType     `json:"type"`
	Seq       uint64          `json:"seq"`
	Identity  string          `json:"identity"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// RecordsPayload is the client->server TypeRecords payload: a batch of
// completed game records plus each reporting thread's liveness snapshot
// (spec section 6).
type RecordsPayload struct {
	Records []json.RawMessage `json:"records"`
	Threads []ThreadSnapshot  `json:"threads"`
}

// ThreadSnapshot mirrors controller.ThreadState over the wire.
type ThreadSnapshot struct {
	ThreadID int    `json:"thread_id"`
	Seq      uint64 `json:"seq"`
	MoveIdx  int    `json:"move_idx"`
	BlackVer int64  `json:"black_ver"`
	WhiteVer int64  `json:"white_ver"`
}

// RequestPayload is the server->client TypeRequest payload.
type RequestPayload struct {
	BlackVer          int64   `json:"black_ver"`
	WhiteVer          int64   `json:"white_ver"`
	ResignThres       float32 `json:"resign_thres"`
	NeverResignProb   float32 `json:"never_resign_prob"`
	PlayerSwap        bool    `json:"player_swap"`
	Async             bool    `json:"async"`
	NumGameThreadUsed int     `json:"num_game_thread_used"`
}

// Encode marshals v into Payload alongside the rest of the envelope's
// fields.
func Encode(typ MessageType, seq uint64, identity string, v any) (Envelope, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: typ, Seq: seq, Identity: identity, Payload: raw, Timestamp: time.Now()}, nil
}
