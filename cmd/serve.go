package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zjrosen/devdeck/internal/gateway"
	"github.com/zjrosen/devdeck/internal/log"
	"github.com/zjrosen/devdeck/internal/relay"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the workbench headless behind a WebSocket gateway",
	Long: `Run the chat core without the terminal UI. Browser widgets connect to
ws://<addr>/ws, receive every bus event as a JSON frame and drive the
workbench with control frames. With relay.enabled the same frames are
mirrored onto Redis pub/sub.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides gateway.addr)")
	serveCmd.Flags().Bool("relay", false, "mirror bus traffic to Redis (overrides relay.enabled)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, _, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Gateway.Addr = addr
	}
	if cmd.Flags().Changed("relay") {
		cfg.Relay.Enabled, _ = cmd.Flags().GetBool("relay")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := newStack(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer st.Close()

	if cfg.Relay.Enabled {
		stopRelay, err := startRelay(ctx, cfg.Relay.RedisURL, cfg.Relay.Prefix, st)
		if err != nil {
			return err
		}
		defer stopRelay()
	}

	gw := gateway.New(gateway.Config{AllowedOrigins: cfg.Gateway.AllowedOrigins},
		st.bus, st.workbench.Events(), st.workbench)
	defer gw.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "devdeck gateway listening on ws://%s/ws\n", cfg.Gateway.Addr)
	return gw.ListenAndServe(ctx, cfg.Gateway.Addr)
}

// startRelay connects to Redis and starts mirroring. The returned func stops
// the relay and closes the connection.
func startRelay(ctx context.Context, url, prefix string, st *stack) (func(), error) {
	client, err := relay.Dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	r := relay.New(relay.Config{Prefix: prefix}, client, st.bus, st.workbench.Events(), st.workbench)
	if err := r.Start(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("starting relay: %w", err)
	}
	log.Info(log.CatRelay, "relay started", "prefix", prefix)
	return func() {
		r.Close()
		_ = client.Close()
	}, nil
}
