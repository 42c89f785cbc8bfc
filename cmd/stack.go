package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zjrosen/devdeck/internal/bus"
	"github.com/zjrosen/devdeck/internal/catalog"
	"github.com/zjrosen/devdeck/internal/config"
	"github.com/zjrosen/devdeck/internal/flags"
	"github.com/zjrosen/devdeck/internal/log"
	"github.com/zjrosen/devdeck/internal/responder"
	"github.com/zjrosen/devdeck/internal/sessions"
	"github.com/zjrosen/devdeck/internal/tracing"
	"github.com/zjrosen/devdeck/internal/widgets"
	"github.com/zjrosen/devdeck/internal/workbench"
)

const catalogDebounce = 200 * time.Millisecond

// stack is everything a devdeck process runs, built from one Config.
type stack struct {
	bus       *bus.Bus
	catalog   *catalog.Store
	tracer    *tracing.Provider
	workbench *workbench.Workbench

	// Terminal widgets. Nil when serving headless.
	editor *widgets.Editor
	shell  *widgets.Shell
	chart  *widgets.Chart
}

func newStack(ctx context.Context, cfg config.Config, withWidgets bool) (*stack, error) {
	st := &stack{bus: bus.New()}

	store, err := catalog.NewStore(cfg.Catalog.Path)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	st.catalog = store
	if cfg.Catalog.Watch {
		if err := store.Watch(ctx, catalogDebounce); err != nil {
			log.ErrorErr(log.CatCatalog, "catalog watch unavailable", err, "path", cfg.Catalog.Path)
		}
	}

	provider, err := tracing.NewProvider(tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		Exporter:     cfg.Tracing.Exporter,
		FilePath:     cfg.Tracing.FilePath,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SampleRate:   cfg.Tracing.SampleRate,
		ServiceName:  tracing.DefaultServiceName,
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("starting tracing: %w", err)
	}
	st.tracer = provider

	ff := flags.New(cfg.Flags)
	var sessionOpts []sessions.Option
	if ff.Enabled(flags.FlagDemoSessions) {
		sessionOpts = append(sessionOpts, sessions.WithSamples(sessions.SampleSessions(time.Now())...))
	}

	var reply responder.Responder = responder.NewScripted(cfg.Responder.Latency)
	if cfg.Responder.CacheTTL > 0 {
		reply = responder.NewCached(reply, cfg.Responder.CacheTTL)
	}

	opts := []workbench.Option{
		workbench.WithResponder(reply),
		workbench.WithCatalog(store),
		workbench.WithReplyToOrigin(ff.Enabled(flags.FlagReplyToOrigin)),
		workbench.WithSessionOptions(sessionOpts...),
	}
	if provider.Enabled() {
		opts = append(opts, workbench.WithMiddleware(tracing.NewTracingMiddleware(provider.Tracer())))
	}
	st.workbench = workbench.New(st.bus, opts...)
	if err := st.workbench.Start(); err != nil {
		st.Close()
		return nil, fmt.Errorf("starting workbench: %w", err)
	}

	if withWidgets {
		kind, _ := widgets.ParseChartKind(cfg.UI.ChartKind)
		st.editor = widgets.NewEditor(ctx, st.bus)
		st.shell = widgets.NewShell(ctx, st.bus, st.workbench.Tasks(),
			widgets.WithConnectLatency(cfg.Shell.Latency),
			widgets.WithEchoToChat(cfg.Shell.EchoToChat),
		)
		st.chart = widgets.NewChart(ctx, st.bus)
		if kind != "" {
			st.chart.SetKind(kind)
		}
	}
	return st, nil
}

// Close tears the stack down in reverse order of construction.
func (s *stack) Close() {
	if s.editor != nil {
		s.editor.Close()
		s.shell.Close()
		s.chart.Close()
	}
	if s.workbench != nil {
		s.workbench.Close()
	}
	if s.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.tracer.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.ErrorErr(log.CatConfig, "tracing shutdown", err)
		}
		cancel()
	}
	if s.catalog != nil {
		_ = s.catalog.Close()
	}
	s.bus.Close()
}
