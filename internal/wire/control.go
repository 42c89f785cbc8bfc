package wire

import (
	"context"
	"fmt"

	"github.com/zjrosen/devdeck/internal/command"
	"github.com/zjrosen/devdeck/internal/dispatch"
	"github.com/zjrosen/devdeck/internal/message"
	"github.com/zjrosen/devdeck/internal/workbench"
)

// Controller is the subset of the workbench a remote client may drive.
type Controller interface {
	SendFrom(ctx context.Context, source command.CommandSource, text string) (dispatch.Outcome, error)
	Post(ctx context.Context, source command.CommandSource, msg message.Message) error
	RequestNewChat(ctx context.Context) error
	CancelNewChat(ctx context.Context) error
	ConfirmNewChat(ctx context.Context, sourceID string, widgets []string) (workbench.SessionSummary, error)
	SelectSession(ctx context.Context, id string) error
	Snapshot(ctx context.Context) (workbench.Snapshot, error)
}

var _ Controller = (*workbench.Workbench)(nil)

// Handle executes one control frame against c and returns the reply frame.
// Failures are reported in the reply's Error field, never returned.
func Handle(ctx context.Context, c Controller, source command.CommandSource, req Frame) Frame {
	result, err := handle(ctx, c, source, req)
	reply, encErr := NewFrame(ChannelControl, req.Type, result)
	if encErr != nil && err == nil {
		err = encErr
	}
	reply.ID = req.ID
	if err != nil {
		reply.Error = err.Error()
	}
	return reply
}

func handle(ctx context.Context, c Controller, source command.CommandSource, req Frame) (any, error) {
	if req.Channel != ChannelControl {
		return nil, fmt.Errorf("%w: channel %q is not writable", ErrBadFrame, req.Channel)
	}

	switch req.Type {
	case OpSend:
		var data SendData
		if err := req.DecodeData(&data); err != nil {
			return nil, err
		}
		return c.SendFrom(ctx, source, data.Text)

	case OpPost:
		var data PostData
		if err := req.DecodeData(&data); err != nil {
			return nil, err
		}
		sender := message.Sender(data.Sender)
		if sender == "" {
			sender = message.SenderSystem
		}
		if !sender.IsValid() {
			return nil, fmt.Errorf("%w: unknown sender %q", ErrBadFrame, data.Sender)
		}
		return nil, c.Post(ctx, source, message.New(sender, data.Content))

	case OpNewChat:
		return nil, c.RequestNewChat(ctx)

	case OpCancelNewChat:
		return nil, c.CancelNewChat(ctx)

	case OpConfirmNewChat:
		var data ConfirmData
		if err := req.DecodeData(&data); err != nil {
			return nil, err
		}
		return c.ConfirmNewChat(ctx, data.SourceID, data.Widgets)

	case OpSelectSession:
		var data SelectData
		if err := req.DecodeData(&data); err != nil {
			return nil, err
		}
		return nil, c.SelectSession(ctx, data.ID)

	case OpSnapshot:
		return c.Snapshot(ctx)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOp, req.Type)
	}
}
