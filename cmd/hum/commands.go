package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/exedev/hum/internal/chatlog"
	"github.com/exedev/hum/internal/config"
	"github.com/exedev/hum/internal/event"
	"github.com/exedev/hum/internal/gesture"
	"github.com/exedev/hum/internal/output"
	"github.com/exedev/hum/internal/provider"
	"github.com/exedev/hum/internal/request"
	"github.com/exedev/hum/internal/session"
	"github.com/exedev/hum/internal/tool"
	"github.com/exedev/hum/internal/tui"
)

func cmdChat(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	return runChat(ctx, cmd, strings.Join(args, " "))
}

func runChat(ctx context.Context, cmd *cli.Command, initialPrompt string) error {
	cfg, err := loadConfigFromCmd(cmd)
	if err != nil {
		return err
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("hum chat needs an interactive terminal (try `hum log` for the transcript)")
	}
	if cfg.Provider.APIKey == "" {
		printer := output.NewPrinter(output.ModePlain, false)
		printer.Error("no API key: set ANTHROPIC_API_KEY or api_key in the config")
		return fmt.Errorf("missing API key")
	}

	banner := output.NewPrinter(output.ModePlain, cmd.Bool("verbose"))
	banner.Header("hum")
	banner.Info("model %s", cfg.Provider.Model)
	if !cfg.Tools.Enabled {
		banner.Warning("tools disabled")
	}

	// UI owns the terminal, so logs go to a file under the data dir.
	logger, logClose, err := fileLogger(cfg.DataDir, cmd.Bool("verbose"))
	if err != nil {
		return err
	}
	defer logClose()

	store, err := chatlog.OpenStore(cfg.DataDir, uuid.NewString())
	if err != nil {
		return fmt.Errorf("open transcript store: %w", err)
	}
	defer store.Close()

	clog := chatlog.New(store, func(err error) {
		logger.Printf("transcript persist: %v", err)
	})

	tools := tool.NewRegistry()
	if cfg.Tools.Enabled {
		tool.RegisterBuiltins(tools, tool.Options{
			WorkDir:     cfg.Tools.WorkDir,
			MaxFileSize: cfg.Tools.MaxFileSize,
		})
	}

	client := provider.NewAnthropicClient(cfg.Provider.APIKey, cfg.Provider.Model, int64(cfg.Provider.MaxTokens))
	ch := event.NewChannel()
	mgr := request.NewManager(ch, client, tools, clog, logger, cfg.Provider.System)
	sess := session.New(mgr, ch, clog, gesture.NewMachine(cfg.UI.EscapeWindow), logger)

	if prompt := strings.TrimSpace(initialPrompt); prompt != "" {
		if _, err := sess.Submit(prompt); err != nil {
			return fmt.Errorf("submit prompt: %w", err)
		}
	}

	prog := tea.NewProgram(tui.New(sess), tea.WithAltScreen())
	if _, err := prog.Run(); err != nil {
		return fmt.Errorf("run UI: %w", err)
	}
	return nil
}

func cmdLog(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfigFromCmd(cmd)
	if err != nil {
		return err
	}

	store, err := chatlog.OpenStoreRead(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open transcript store: %w", err)
	}
	defer store.Close()

	if cmd.Bool("sessions") {
		return listSessions(store)
	}

	entries, err := store.Recent(int(cmd.Int("limit")))
	if err != nil {
		return fmt.Errorf("read transcript: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("no transcript yet")
		return nil
	}

	mode := output.ModePlain
	if cmd.Bool("json") {
		mode = output.ModeJSON
	}
	return output.NewTranscript(mode, os.Stdout, cfg.UI.ShowElapsed).Render(entries)
}

func listSessions(store *chatlog.Store) error {
	sessions, err := store.Sessions()
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Println("no sessions yet")
		return nil
	}

	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{
			s.ID,
			s.StartedAt.Local().Format("2006-01-02 15:04"),
			fmt.Sprintf("%d", s.Entries),
		})
	}
	p := output.NewPrinter(output.ModePlain, false)
	p.Table([]string{"Session", "Started", "Entries"}, rows)
	return nil
}

func cmdConfig(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfigFromCmd(cmd)
	if err != nil {
		return err
	}

	apiKey := "(not set)"
	if cfg.Provider.APIKey != "" {
		apiKey = "****" + tail(cfg.Provider.APIKey, 4)
	}

	p := output.NewPrinter(output.ModePlain, false)
	p.Header("hum configuration")
	p.KeyValue([][]string{
		{"Model", cfg.Provider.Model},
		{"Max tokens", fmt.Sprintf("%d", cfg.Provider.MaxTokens)},
		{"API key", apiKey},
		{"Data dir", cfg.DataDir},
		{"Tools", fmt.Sprintf("%v (workdir %s)", cfg.Tools.Enabled, cfg.Tools.WorkDir)},
		{"Escape window", cfg.UI.EscapeWindow.String()},
	})
	return nil
}

func cmdInit(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if path == "" {
		path = config.DefaultPath()
	}

	p := output.NewPrinter(output.ModePlain, false)
	if _, err := os.Stat(path); err == nil {
		p.Warning("config already exists at %s", path)
		return nil
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	p.Success("config written to %s", path)
	return nil
}

// fileLogger opens the session log under dataDir.
func fileLogger(dataDir string, verbose bool) (*log.Logger, func(), error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dataDir, "hum.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	flags := log.LstdFlags
	if verbose {
		flags |= log.Lmicroseconds
	}
	return log.New(f, "", flags), func() { f.Close() }, nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
