package websocket

import (
	"encoding/json"
	"fmt"

	"course-chat-service/internal/services"
)

// Event names the socket protocol's message kinds.
type Event string

// Client→server events
const (
	EventChannelJoin  Event = "channel:join"
	EventChannelLeave Event = "channel:leave"
	EventMessageSend  Event = "message:send"
	EventTypingStart  Event = "typing:start"
	EventTypingStop   Event = "typing:stop"
)

// Server→client events
const (
	EventMessageNew   Event = "message:new"
	EventTypingUpdate Event = "typing:update"
	EventAck          Event = "ack"
	EventError        Event = "error"
)

// ClientEvents lists every inbound event the gateway must bind a handler
// for. The gateway constructor validates its dispatch table against this
// list so an unbound event is a startup error, not a silent no-op.
func ClientEvents() []Event {
	return []Event{
		EventChannelJoin,
		EventChannelLeave,
		EventMessageSend,
		EventTypingStart,
		EventTypingStop,
	}
}

// RoomName derives the fan-out room for a channel. The gateway and the
// REST broadcast path must agree on this mapping.
func RoomName(channelID string) string {
	return "channel:" + channelID
}

// Frame is the wire envelope. ID is an optional client-chosen correlation
// id echoed back in acknowledgments.
type Frame struct {
	Event Event           `json:"event"`
	ID    string          `json:"id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// OutboundFrame is the server-side envelope with a concrete payload.
type OutboundFrame struct {
	Event Event       `json:"event"`
	ID    string      `json:"id,omitempty"`
	Data  interface{} `json:"data,omitempty"`
}

/** -------------------- payloads -------------------- */

type ChannelPayload struct {
	ChannelID string `json:"channelId"`
}

type SendMessagePayload struct {
	ChannelID   string  `json:"channelId"`
	Text        string  `json:"text"`
	ThreadID    *string `json:"threadId,omitempty"`
	IsEmergency bool    `json:"isEmergency,omitempty"`
}

type TypingUpdatePayload struct {
	UserID    string `json:"userId"`
	ChannelID string `json:"channelId"`
	IsTyping  bool   `json:"isTyping"`
}

type AckError struct {
	Code    services.ErrorCode `json:"code"`
	Message string             `json:"message"`
}

// Ack acknowledges a client request. For denotes the event being
// acknowledged; error payloads carry only the closed taxonomy code and a
// safe message.
type Ack struct {
	For       Event     `json:"for"`
	Success   bool      `json:"success"`
	MessageID string    `json:"messageId,omitempty"`
	Error     *AckError `json:"error,omitempty"`
}

func ackSuccess(forEvent Event) *Ack {
	return &Ack{For: forEvent, Success: true}
}

func ackFailure(forEvent Event, err error) *Ack {
	svcErr := services.AsError(err)
	return &Ack{
		For:     forEvent,
		Success: false,
		Error:   &AckError{Code: svcErr.Code, Message: svcErr.Message},
	}
}

// ErrorPayload is sent for protocol-level problems that are not tied to a
// pending acknowledgment, such as unparsable frames.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func errorFrame(code, format string, args ...interface{}) *OutboundFrame {
	return &OutboundFrame{
		Event: EventError,
		Data:  &ErrorPayload{Code: code, Message: fmt.Sprintf(format, args...)},
	}
}
