package widgets

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/mattn/go-runewidth"

	"github.com/zjrosen/devdeck/internal/bus"
	"github.com/zjrosen/devdeck/internal/log"
	"github.com/zjrosen/devdeck/internal/payload"
	"github.com/zjrosen/devdeck/internal/pubsub"
)

// ChartKind selects how the chart is drawn.
type ChartKind string

const (
	KindBar  ChartKind = "bar"
	KindPie  ChartKind = "pie"
	KindLine ChartKind = "line"
)

// ChartKinds lists the supported kinds in menu order.
var ChartKinds = []ChartKind{KindBar, KindPie, KindLine}

// ParseChartKind validates a kind name.
func ParseChartKind(s string) (ChartKind, error) {
	k := ChartKind(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(ChartKinds, k) {
		return "", fmt.Errorf("unknown chart kind %q", s)
	}
	return k, nil
}

// SampleChart is the dataset shown before any chart data arrives.
func SampleChart() payload.Chart {
	return payload.Chart{
		Labels: []string{"Angular", "React", "Vue", "Svelte", "Ember"},
		Series: []float64{35, 30, 20, 10, 5},
		Label:  "Framework Popularity",
	}
}

// Chart is the visualization adapter.
type Chart struct {
	gate    *gate[payload.Chart]
	sub     *pubsub.Subscription
	changes *pubsub.Broker[Change]

	mu   sync.RWMutex
	data payload.Chart
	kind ChartKind
}

// NewChart subscribes a new chart to the visualization channel. It starts
// with SampleChart drawn as a pie.
func NewChart(ctx context.Context, b *bus.Bus) *Chart {
	c := &Chart{
		changes: pubsub.NewBroker[Change](),
		data:    SampleChart(),
		kind:    KindPie,
	}
	c.gate = newGate(c.apply)
	c.sub = b.Visualization().Subscribe(ctx, func(ev pubsub.Event[payload.Chart]) {
		c.gate.offer(ev.Payload)
	})
	return c
}

// apply replaces labels and series. A dataset without a label keeps the
// current one.
func (c *Chart) apply(p payload.Chart) {
	c.mu.Lock()
	label := c.data.Label
	if p.Label != "" {
		label = p.Label
	}
	c.data = payload.Chart{
		Labels: slices.Clone(p.Labels),
		Series: slices.Clone(p.Series),
		Label:  label,
	}
	c.mu.Unlock()

	log.Debug(log.CatWidget, "chart updated", "points", p.Len())
	c.notify()
}

// MarkReady opens the chart, applying the last dataset received while closed.
func (c *Chart) MarkReady() {
	c.gate.open()
}

// Ready reports whether MarkReady has been called.
func (c *Chart) Ready() bool {
	return c.gate.isReady()
}

// Data returns a copy of the current dataset.
func (c *Chart) Data() payload.Chart {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return payload.Chart{
		Labels: slices.Clone(c.data.Labels),
		Series: slices.Clone(c.data.Series),
		Label:  c.data.Label,
	}
}

// Kind returns the current chart kind.
func (c *Chart) Kind() ChartKind {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.kind
}

// SetKind switches the chart kind.
func (c *Chart) SetKind(k ChartKind) {
	c.mu.Lock()
	c.kind = k
	c.mu.Unlock()
	c.notify()
}

// Changes publishes after every data or kind change.
func (c *Chart) Changes() *pubsub.Broker[Change] {
	return c.changes
}

// Close releases the chart's subscription.
func (c *Chart) Close() {
	c.sub.Unsubscribe()
	c.changes.Close()
}

// Render draws the chart as text at most width cells wide.
func (c *Chart) Render(width int) string {
	return Render(c.Data(), c.Kind(), width)
}

func (c *Chart) notify() {
	c.changes.Publish(Changed, Change{Widget: payload.TargetVisualization})
}

var sparks = []rune("▁▂▃▄▅▆▇█")

// Render draws data as a text chart of the given kind.
func Render(data payload.Chart, kind ChartKind, width int) string {
	var b strings.Builder
	if data.Label != "" {
		b.WriteString(data.Label)
		b.WriteByte('\n')
	}
	if data.Len() == 0 {
		b.WriteString("(no data)")
		return b.String()
	}

	labels := make([]string, data.Len())
	labelWidth := 0
	for i := range data.Series {
		labels[i] = fmt.Sprintf("Point %d", i+1)
		if i < len(data.Labels) {
			labels[i] = data.Labels[i]
		}
		labelWidth = max(labelWidth, runewidth.StringWidth(labels[i]))
	}

	switch kind {
	case KindLine:
		top, bottom := data.Max(), slices.Min(data.Series)
		span := top - bottom
		for _, v := range data.Series {
			idx := len(sparks) - 1
			if span > 0 {
				idx = int(math.Round((v - bottom) / span * float64(len(sparks)-1)))
			}
			b.WriteRune(sparks[idx])
		}
		b.WriteByte('\n')
		b.WriteString(strings.Join(labels, " "))

	case KindPie:
		var total float64
		for _, v := range data.Series {
			total += math.Abs(v)
		}
		for i, v := range data.Series {
			pct := 0.0
			if total > 0 {
				pct = math.Abs(v) / total * 100
			}
			fmt.Fprintf(&b, "%s  %5.1f%%\n", runewidth.FillRight(labels[i], labelWidth), pct)
		}

	default:
		barSpace := max(width-labelWidth-12, 1)
		top := data.Max()
		for i, v := range data.Series {
			n := 0
			if top > 0 && v > 0 {
				n = int(math.Round(v / top * float64(barSpace)))
			}
			fmt.Fprintf(&b, "%s │%s %s\n",
				runewidth.FillRight(labels[i], labelWidth),
				strings.Repeat("█", n),
				strconv.FormatFloat(v, 'f', -1, 64))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
