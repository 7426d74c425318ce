package protocol

import "encoding/json"

const Version = "1.0"

// Message types exchanged with the websocket gateway.
const (
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"
	TypeFrame   = "FRAME"
)

// Frame kinds. Enter/leaving/update/eject/state flow from the cluster to a
// repository; update/interest/disconnect flow the other way.
const (
	KindEnter      = "ENTER"
	KindLeaving    = "LEAVING"
	KindUpdate     = "UPDATE"
	KindEject      = "EJECT"
	KindState      = "STATE"
	KindInterest   = "INTEREST"
	KindDisconnect = "DISCONNECT"
)

// Connection states, as tracked by the client agent.
const (
	StateNew         = 0
	StateEstablished = 2
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}

// HELLO (client -> gateway)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name,omitempty"`
}

// WELCOME (gateway -> client)
type WelcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Channel         uint64 `json:"channel"`
}

// Frame is one routed notification or operation. Kind selects which fields
// are meaningful; unused fields stay at their zero value and are omitted on
// the wire.
type Frame struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
	Kind            string `json:"kind"`

	Class      string `json:"class,omitempty"`
	DoID       uint32 `json:"do_id,omitempty"`
	ParentID   uint32 `json:"parent_id,omitempty"`
	ZoneID     uint32 `json:"zone_id"`
	Role       string `json:"role,omitempty"`
	InterestID uint32 `json:"interest_id,omitempty"`

	Method string `json:"method,omitempty"`
	Args   []any  `json:"args,omitempty"`
	From   uint64 `json:"from,omitempty"`

	Code   uint16 `json:"code,omitempty"`
	Reason string `json:"reason,omitempty"`
	State  int    `json:"state,omitempty"`
}

func DecodeFrame(b []byte) (Frame, error) {
	var f Frame
	err := json.Unmarshal(b, &f)
	return f, err
}
