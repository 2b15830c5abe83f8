package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"course-chat-service/internal/models"
	"course-chat-service/internal/services"
)

// ErrUnboundEvent is returned at construction time when a declared client
// event has no handler in the dispatch table.
var ErrUnboundEvent = errors.New("client event has no bound handler")

const defaultSendTimeout = 5 * time.Second

// MessageSender is the slice of the message service the gateway needs.
type MessageSender interface {
	SendMessage(ctx context.Context, userID, channelID string, data services.SendMessageData) (*models.MessageResponse, error)
}

// JoinAuthorizer resolves channels to courses and checks membership. Only
// consulted when join-time authorization is enabled.
type JoinAuthorizer interface {
	ResolveCourseID(ctx context.Context, channelID string) (string, error)
	IsCourseMember(ctx context.Context, userID, courseID string) (bool, error)
}

// GatewayConfig controls gateway policy.
type GatewayConfig struct {
	// RequireMembershipOnJoin gates channel:join on course membership.
	// The send path always checks membership; whether reads are broader
	// than writes is a deployment decision, so both behaviors are
	// reachable by configuration.
	RequireMembershipOnJoin bool

	// SendTimeout bounds the message service call behind message:send so
	// a hung store turns into a transient acknowledgment instead of a
	// stalled connection.
	SendTimeout time.Duration
}

type handlerFunc func(ctx context.Context, c *Client, frame *Frame)

// Gateway routes inbound socket events to typed handlers and owns the
// broadcast rules: message:new only after successful persistence, typing
// updates to everyone but the sender, failures only to the requester.
type Gateway struct {
	hub      *Hub
	messages MessageSender
	channels JoinAuthorizer
	cfg      GatewayConfig
	handlers map[Event]handlerFunc
	logger   *slog.Logger
}

// NewGateway builds the gateway and its dispatch table. The table is
// validated against ClientEvents so a missing handler fails at startup.
func NewGateway(hub *Hub, messages MessageSender, channels JoinAuthorizer, cfg GatewayConfig, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}

	g := &Gateway{
		hub:      hub,
		messages: messages,
		channels: channels,
		cfg:      cfg,
		logger:   logger,
	}
	g.handlers = map[Event]handlerFunc{
		EventChannelJoin:  g.handleChannelJoin,
		EventChannelLeave: g.handleChannelLeave,
		EventMessageSend:  g.handleMessageSend,
		EventTypingStart:  g.typingHandler(true),
		EventTypingStop:   g.typingHandler(false),
	}

	for _, event := range ClientEvents() {
		if g.handlers[event] == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnboundEvent, event)
		}
	}
	return g, nil
}

func (g *Gateway) dispatch(ctx context.Context, c *Client, frame *Frame) {
	handler, ok := g.handlers[frame.Event]
	if !ok {
		c.SendFrame(errorFrame("unknown_event", "unknown event %q", frame.Event))
		return
	}
	handler(ctx, c, frame)
}

func (g *Gateway) handleChannelJoin(ctx context.Context, c *Client, frame *Frame) {
	var payload ChannelPayload
	if err := json.Unmarshal(frame.Data, &payload); err != nil || payload.ChannelID == "" {
		g.ack(c, frame, ackFailure(EventChannelJoin, services.InvalidState("channelId is required")))
		return
	}

	if g.cfg.RequireMembershipOnJoin {
		courseID, err := g.channels.ResolveCourseID(ctx, payload.ChannelID)
		if err != nil {
			g.ack(c, frame, ackFailure(EventChannelJoin, err))
			return
		}
		member, err := g.channels.IsCourseMember(ctx, c.identity.UserID, courseID)
		if err != nil {
			g.ack(c, frame, ackFailure(EventChannelJoin, err))
			return
		}
		if !member {
			g.ack(c, frame, ackFailure(EventChannelJoin, services.Forbidden("You are not a member of this course")))
			return
		}
	}

	g.hub.JoinRoom(c, RoomName(payload.ChannelID))
	g.logger.Info("client joined channel", "clientID", c.id, "channelID", payload.ChannelID)
	g.ack(c, frame, ackSuccess(EventChannelJoin))
}

func (g *Gateway) handleChannelLeave(ctx context.Context, c *Client, frame *Frame) {
	var payload ChannelPayload
	if err := json.Unmarshal(frame.Data, &payload); err != nil || payload.ChannelID == "" {
		g.ack(c, frame, ackFailure(EventChannelLeave, services.InvalidState("channelId is required")))
		return
	}

	g.hub.LeaveRoom(c, RoomName(payload.ChannelID))
	g.logger.Info("client left channel", "clientID", c.id, "channelID", payload.ChannelID)
	g.ack(c, frame, ackSuccess(EventChannelLeave))
}

func (g *Gateway) handleMessageSend(ctx context.Context, c *Client, frame *Frame) {
	var payload SendMessagePayload
	if err := json.Unmarshal(frame.Data, &payload); err != nil || payload.ChannelID == "" || payload.Text == "" {
		g.ack(c, frame, ackFailure(EventMessageSend, services.InvalidState("channelId and text are required")))
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, g.cfg.SendTimeout)
	defer cancel()

	message, err := g.messages.SendMessage(sendCtx, c.identity.UserID, payload.ChannelID, services.SendMessageData{
		Text:        payload.Text,
		ThreadID:    payload.ThreadID,
		IsEmergency: payload.IsEmergency,
	})
	if err != nil {
		if errors.Is(sendCtx.Err(), context.DeadlineExceeded) {
			err = services.Transient("Message delivery timed out, please retry")
		}
		g.logger.Warn("message send failed",
			"clientID", c.id, "userID", c.identity.UserID, "channelID", payload.ChannelID, "error", err)
		g.ack(c, frame, ackFailure(EventMessageSend, err))
		return
	}

	ack := ackSuccess(EventMessageSend)
	ack.MessageID = message.ID
	g.ack(c, frame, ack)

	// Broadcast strictly after durability, to the whole room including
	// the sender.
	g.Broadcast(payload.ChannelID, message)
}

// Broadcast emits message:new to a channel's room. The REST message path
// uses this too, so HTTP-originated writes reach socket subscribers.
func (g *Gateway) Broadcast(channelID string, message *models.MessageResponse) {
	payload, err := json.Marshal(&OutboundFrame{Event: EventMessageNew, Data: message})
	if err != nil {
		g.logger.Error("failed to encode broadcast", "channelID", channelID, "error", err)
		return
	}
	g.hub.BroadcastToRoom(RoomName(channelID), payload, nil)
}

// typingHandler builds the typing:start / typing:stop handler. Typing
// events are fire-and-forget: no persistence, no acknowledgment, and the
// sender never receives its own update.
func (g *Gateway) typingHandler(isTyping bool) handlerFunc {
	return func(ctx context.Context, c *Client, frame *Frame) {
		var payload ChannelPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil || payload.ChannelID == "" {
			return
		}

		update, err := json.Marshal(&OutboundFrame{
			Event: EventTypingUpdate,
			Data: &TypingUpdatePayload{
				UserID:    c.identity.UserID,
				ChannelID: payload.ChannelID,
				IsTyping:  isTyping,
			},
		})
		if err != nil {
			return
		}
		g.hub.BroadcastToRoom(RoomName(payload.ChannelID), update, c)
	}
}

func (g *Gateway) ack(c *Client, frame *Frame, ack *Ack) {
	if err := c.SendFrame(&OutboundFrame{Event: EventAck, ID: frame.ID, Data: ack}); err != nil {
		g.logger.Debug("failed to deliver ack", "clientID", c.id, "error", err)
	}
}
