// Package dispatch routes parsed directives onto the bus and acknowledges
// each one in the active session.
package dispatch

import (
	"errors"
	"fmt"

	"github.com/zjrosen/devdeck/internal/directive"
	"github.com/zjrosen/devdeck/internal/log"
	"github.com/zjrosen/devdeck/internal/message"
	"github.com/zjrosen/devdeck/internal/payload"
)

// Acknowledgement texts appended after a directive is published.
const (
	AckEditor        = "I've sent your code to the editor."
	AckShell         = "I've sent your command to the shell."
	AckVisualization = "I've updated the visualization with your data."
)

// ChartError formats the message shown for an undecodable @chart payload.
func ChartError(reason string) string {
	return fmt.Sprintf("Error updating chart: %s. Use format: %s", reason, directive.ChartFormat)
}

// Router publishes a payload on the channel matching its target.
type Router interface {
	Route(p payload.Payload)
}

// Appender records a message in the active session.
type Appender interface {
	AppendActive(msg message.Message) error
}

// ReplyStarter hands conversational text to the assistant.
type ReplyStarter interface {
	StartReply(text string)
}

// Outcome summarises one Dispatch call.
type Outcome struct {
	// Routed counts directives that reached the bus.
	Routed int `json:"routed"`
	// Failed counts directives rejected before publishing.
	Failed int `json:"failed"`
	// Replied is true when the text had no directive and went to the assistant.
	Replied bool `json:"replied"`
}

// Dispatcher turns chat text into bus traffic and chat acknowledgements.
type Dispatcher struct {
	router   Router
	appender Appender
	replies  ReplyStarter
}

// New creates a Dispatcher.
func New(router Router, appender Appender, replies ReplyStarter) *Dispatcher {
	return &Dispatcher{router: router, appender: appender, replies: replies}
}

// Dispatch parses text and handles every directive in order. Text without a
// directive is passed to the ReplyStarter instead.
func (d *Dispatcher) Dispatch(text string) Outcome {
	parsed := directive.Parse(text)
	if !parsed.HasDirectives() {
		d.replies.StartReply(text)
		return Outcome{Replied: true}
	}

	var out Outcome
	for _, dir := range parsed.Directives {
		if dir.Err != nil {
			out.Failed++
			d.ack(message.System(ChartError(reason(dir.Err))))
			continue
		}

		d.router.Route(dir.Payload)
		out.Routed++
		d.ack(message.System(ackText(dir.Payload)))
	}
	log.Debug(log.CatDispatch, "directives dispatched", "routed", out.Routed, "failed", out.Failed)
	return out
}

func (d *Dispatcher) ack(msg message.Message) {
	if err := d.appender.AppendActive(msg); err != nil {
		log.ErrorErr(log.CatDispatch, "append acknowledgement failed", err)
	}
}

func ackText(p payload.Payload) string {
	switch p.(type) {
	case payload.Editor:
		return AckEditor
	case payload.Shell:
		return AckShell
	case payload.Chart:
		return AckVisualization
	}
	return ""
}

func reason(err error) string {
	var fe *directive.ChartFormatError
	if errors.As(err, &fe) {
		return fe.Reason
	}
	return err.Error()
}
