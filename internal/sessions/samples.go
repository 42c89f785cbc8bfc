package sessions

import (
	"fmt"
	"time"

	"github.com/zjrosen/devdeck/internal/message"
	"github.com/zjrosen/devdeck/internal/sessions/domain"
)

const loadedGreeting = "Chat history loaded. How can I help you today?"

type sample struct {
	title   string
	age     time.Duration
	preview string
	history []string
}

var samples = []sample{
	{
		title:   "Angular Component Help",
		age:     time.Hour,
		preview: "How do I create a reusable component?",
		history: []string{
			"How do I create a reusable component in Angular?",
			"To create a reusable component in Angular, you can use the @Component decorator and make it standalone. " +
				"Here's an example:\n\n```typescript\n@Component({\n  selector: 'app-my-component',\n  standalone: true,\n" +
				"  imports: [CommonModule],\n  template: `<div>My Component</div>`,\n})\nexport class MyComponent {}\n```\n\n" +
				"You can then import and use this component in other components.",
		},
	},
	{
		title:   "TypeScript Types",
		age:     3 * time.Hour,
		preview: "Can you explain generics in TypeScript?",
		history: []string{
			"Can you explain generics in TypeScript?",
			"Generics in TypeScript allow you to create reusable components that can work with a variety of types " +
				"rather than a single one. They help you create type-safe code while maintaining flexibility.\n\n" +
				"```typescript\nfunction identity<T>(arg: T): T {\n  return arg;\n}\n\n// Usage\n" +
				"let output = identity<string>(\"myString\");\n```\n\n" +
				"In this example, `T` is a type variable that gets replaced with the actual type when the function is called.",
		},
	},
	{title: "RxJS Observables", age: 24 * time.Hour, preview: "How do I use switchMap operator?"},
	{title: "Kafka Integration", age: 2 * 24 * time.Hour, preview: "Setting up Kafka with Angular"},
	{title: "gRPC Services", age: 5 * 24 * time.Hour, preview: "How to implement gRPC in my app?"},
}

// SampleSessions builds the demo sessions seeded by the demo-sessions flag.
// Ids are "sample-1" through "sample-n"; timestamps are relative to now.
func SampleSessions(now time.Time) []*domain.Session {
	out := make([]*domain.Session, 0, len(samples))
	for i, s := range samples {
		created := now.Add(-s.age)

		greeting := message.Assistant(loadedGreeting)
		greeting.Timestamp = created
		msgs := []message.Message{greeting}
		for j, content := range s.history {
			msg := message.User(content)
			if j%2 == 1 {
				msg = message.Assistant(content)
			}
			msg.Timestamp = created.Add(time.Duration(j) * time.Minute)
			msgs = append(msgs, msg)
		}

		out = append(out, domain.ReconstituteSession(
			fmt.Sprintf("sample-%d", i+1),
			s.title,
			created,
			s.preview,
			msgs,
			DefaultWidgets,
			nil,
		))
	}
	return out
}

// FormatAge renders t relative to now the way the session list shows it.
func FormatAge(t, now time.Time) string {
	days := int(now.Sub(t).Hours() / 24)
	switch {
	case days <= 0:
		return "Today"
	case days == 1:
		return "Yesterday"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("Jan 2, 2006")
	}
}
