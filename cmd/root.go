package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
	"github.com/spf13/cobra"

	"github.com/zjrosen/devdeck/internal/app"
	"github.com/zjrosen/devdeck/internal/config"
	"github.com/zjrosen/devdeck/internal/export"
	"github.com/zjrosen/devdeck/internal/log"
)

func init() {
	// Force lipgloss/termenv to query terminal background color BEFORE
	// any Bubble Tea program starts. This prevents the terminal's OSC 11
	// response from racing with Bubble Tea's input loop and appearing as
	// garbage text in input fields.
	//
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

var (
	version = "dev"
	cfgFile string
	debug   bool
	logFile string
)

var rootCmd = &cobra.Command{
	Use:   "devdeck",
	Short: "A chat-driven development workbench in your terminal",
	Long: `devdeck pairs a chat with a code editor, a shell and a chart.
Type @code, @shell or @chart in a message to send its content to the
matching widget. Press ctrl+n to start a chat against a new data source.`,
	Version:      version,
	SilenceUsage: true,
	RunE:         runApp,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .devdeck/config.yaml, then ~/.config/devdeck/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false,
		"enable debug logging and the log pane (ctrl+x)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "debug.log",
		"log file written when --debug is set")
	rootCmd.Flags().StringP("transcript", "t", "",
		"write the active session to this file on exit (.json, .jsonl, .yaml or .md)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(catalogCmd)
}

// setup loads configuration and, in debug mode, starts the file logger.
// The returned func releases the logger.
func setup() (config.Config, string, func(), error) {
	cleanup := func() {}
	if os.Getenv("DEVDECK_DEBUG") != "" {
		debug = true
	}
	if debug {
		closeLog, err := log.InitWithTeaLog(logFile, "devdeck")
		if err != nil {
			return config.Config{}, "", nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = closeLog
	}

	cfg, path, err := config.Load(config.NewViper(), cfgFile)
	if err != nil {
		cleanup()
		return config.Config{}, "", nil, err
	}
	return cfg, path, cleanup, nil
}

func runApp(cmd *cobra.Command, _ []string) error {
	cfg, cfgPath, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()
	zone.NewGlobal()

	transcript, _ := cmd.Flags().GetString("transcript")
	if transcript != "" {
		// Fail before the UI starts rather than after the session is over.
		if _, err := export.ForPath(transcript); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	st, err := newStack(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer st.Close()

	model := app.New(app.Config{
		Workbench:     st.workbench,
		Editor:        st.editor,
		Shell:         st.shell,
		Chart:         st.chart,
		MarkdownStyle: cfg.UI.MarkdownStyle,
		ConfigPath:    cfgPath,
		Debug:         debug,
	})
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running program: %w", err)
	}

	if transcript != "" {
		return writeTranscript(ctx, st, transcript)
	}
	return nil
}

func writeTranscript(ctx context.Context, st *stack, path string) error {
	snap, err := st.workbench.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("reading session: %w", err)
	}
	if err := export.WriteFile(path, export.FromSnapshot(snap, time.Now())); err != nil {
		return err
	}
	log.Info(log.CatSession, "transcript written", "path", path)
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
