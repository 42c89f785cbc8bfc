// Package responder produces assistant replies for chat text that carries no
// directive.
package responder

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/zjrosen/devdeck/internal/log"
	"github.com/zjrosen/devdeck/internal/tasks"
)

// Apology is shown in place of a reply when the responder fails.
const Apology = "Sorry, there was an error processing your request."

// Responder turns user text into an assistant reply.
type Responder interface {
	Respond(ctx context.Context, text string) (string, error)
}

// Func adapts a function to Responder.
type Func func(ctx context.Context, text string) (string, error)

// Respond calls f(ctx, text).
func (f Func) Respond(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}

const (
	replyGreeting = "Hello! How can I assist you with your development today?"

	replyPython = "Here's a simple Python function:\n\n```python\n" +
		"def greet(name):\n    return f\"Hello, {name}!\"\n\nprint(greet(\"Developer\"))\n```\n\n" +
		"You can send this to the code editor with @code followed by the code."

	replyChart = "I can help you create a chart. Try sending this to the visualization:\n\n" +
		"`@chart {\"labels\": [\"Red\", \"Blue\", \"Yellow\", \"Green\", \"Purple\", \"Orange\"], " +
		"\"data\": [12, 19, 3, 5, 2, 3], \"label\": \"Sample Colors\"}`\n\n" +
		"This will create a bar chart with the specified data."

	replyKafka = "To interact with Kafka, you can use the shell:\n\n`@shell kafka --list-topics`\n\n" +
		"This will show you the available Kafka topics."

	replyGRPC = "For gRPC services, you can use the shell:\n\n`@shell grpc --list-services`\n\n" +
		"This will show you the available gRPC services."

	replyHelp = "I'm your AI assistant for development tasks. You can:\n\n" +
		"1. Ask me to generate code with @code\n" +
		"2. Run commands in the shell with @shell\n" +
		"3. Create visualizations with @chart\n\n" +
		"What would you like to work on today?"
)

var greetingPattern = regexp.MustCompile(`(?i)\b(hello|hi|hey)\b`)

type rule struct {
	match func(lower string) bool
	reply string
}

func contains(words ...string) func(string) bool {
	return func(lower string) bool {
		for _, w := range words {
			if strings.Contains(lower, w) {
				return true
			}
		}
		return false
	}
}

var rules = []rule{
	{match: greetingPattern.MatchString, reply: replyGreeting},
	{match: contains("python"), reply: replyPython},
	{match: contains("chart", "graph"), reply: replyChart},
	{match: contains("kafka"), reply: replyKafka},
	{match: contains("grpc"), reply: replyGRPC},
}

// Scripted answers from a fixed keyword table after a simulated latency.
type Scripted struct {
	latency time.Duration
}

// NewScripted creates a Scripted responder. latency may be zero.
func NewScripted(latency time.Duration) *Scripted {
	return &Scripted{latency: latency}
}

// Respond waits for the configured latency, then picks the first matching
// keyword reply. It fails only when ctx ends first.
func (s *Scripted) Respond(ctx context.Context, text string) (string, error) {
	if err := tasks.Sleep(ctx, s.latency); err != nil {
		return "", err
	}
	reply := Match(text)
	log.Debug(log.CatResponder, "scripted reply", "chars", len(reply))
	return reply, nil
}

// Match returns the scripted reply for text without any latency.
func Match(text string) string {
	lower := strings.ToLower(text)
	for _, r := range rules {
		if r.match(lower) {
			return r.reply
		}
	}
	return replyHelp
}
