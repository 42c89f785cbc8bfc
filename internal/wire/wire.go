// Package wire defines the JSON frames exchanged with out-of-process widget
// clients (the WebSocket gateway and the Redis relay) and the glue that turns
// bus traffic into frames and inbound frames into workbench calls.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zjrosen/devdeck/internal/bus"
	"github.com/zjrosen/devdeck/internal/pubsub"
	"github.com/zjrosen/devdeck/internal/workbench"
)

// Channels that are not bus channels.
const (
	// ChannelWorkbench carries session lifecycle events.
	ChannelWorkbench = "workbench"
	// ChannelControl carries client requests and their replies.
	ChannelControl = "control"
)

// Workbench event types.
const (
	TypeSessionsChanged = "sessions_changed"
	TypeStateChanged    = "state_changed"
	TypeReplyPending    = "reply_pending"
)

// Control operations a client may request.
const (
	OpSend           = "send"
	OpPost           = "post"
	OpNewChat        = "new_chat"
	OpCancelNewChat  = "cancel_new_chat"
	OpConfirmNewChat = "confirm_new_chat"
	OpSelectSession  = "select_session"
	OpSnapshot       = "snapshot"
)

var (
	// ErrUnknownOp is returned for a control frame naming no known operation.
	ErrUnknownOp = errors.New("unknown operation")

	// ErrBadFrame is returned when a frame cannot be decoded.
	ErrBadFrame = errors.New("malformed frame")
)

// Frame is one JSON message on the wire.
//
// Outbound frames carry a bus channel name (or "workbench") in Channel, the
// event type in Type and the payload in Data. Inbound frames use Channel
// "control", an operation in Type and an optional correlation ID echoed on
// the reply.
type Frame struct {
	Channel string          `json:"channel"`
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// SendData is the body of a send request.
type SendData struct {
	Text string `json:"text"`
}

// PostData is the body of a post request.
type PostData struct {
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

// ConfirmData is the body of a confirm_new_chat request.
type ConfirmData struct {
	SourceID string   `json:"source_id"`
	Widgets  []string `json:"widgets,omitempty"`
}

// SelectData is the body of a select_session request.
type SelectData struct {
	ID string `json:"id"`
}

// NewFrame builds a frame with v encoded as its data.
func NewFrame(channel, typ string, v any) (Frame, error) {
	f := Frame{Channel: channel, Type: typ}
	if v == nil {
		return f, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return Frame{}, fmt.Errorf("encoding %s/%s: %w", channel, typ, err)
	}
	f.Data = data
	return f, nil
}

// Encode marshals f.
func Encode(f Frame) ([]byte, error) {
	return json.Marshal(f)
}

// Decode unmarshals data into a Frame.
func Decode(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	if f.Channel == "" || f.Type == "" {
		return Frame{}, fmt.Errorf("%w: channel and type are required", ErrBadFrame)
	}
	return f, nil
}

// DecodeData unmarshals the frame body into v.
func (f Frame) DecodeData(v any) error {
	if len(f.Data) == 0 {
		return fmt.Errorf("%w: %s requires data", ErrBadFrame, f.Type)
	}
	if err := json.Unmarshal(f.Data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	return nil
}

// eventFrame maps a workbench event onto a frame. ok is false for events
// that are not exported to clients.
func eventFrame(event any) (Frame, bool, error) {
	var typ string
	switch event.(type) {
	case workbench.SessionsChanged:
		typ = TypeSessionsChanged
	case workbench.StateChanged:
		typ = TypeStateChanged
	case workbench.ReplyPending:
		typ = TypeReplyPending
	default:
		return Frame{}, false, nil
	}
	f, err := NewFrame(ChannelWorkbench, typ, event)
	return f, true, err
}

func busFrame[T any](name bus.Name, ev pubsub.Event[T]) (Frame, error) {
	return NewFrame(name.String(), string(ev.Type), ev.Payload)
}
