package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hetpatel-11/Adobe-Premiere-Pro-MCP-sub000/internal/api"
	"github.com/hetpatel-11/Adobe-Premiere-Pro-MCP-sub000/internal/auth"
	"github.com/hetpatel-11/Adobe-Premiere-Pro-MCP-sub000/internal/bridge"
	"github.com/hetpatel-11/Adobe-Premiere-Pro-MCP-sub000/internal/config"
	"github.com/hetpatel-11/Adobe-Premiere-Pro-MCP-sub000/internal/events"
	"github.com/hetpatel-11/Adobe-Premiere-Pro-MCP-sub000/internal/journal"
	"github.com/hetpatel-11/Adobe-Premiere-Pro-MCP-sub000/internal/lock"
	"github.com/hetpatel-11/Adobe-Premiere-Pro-MCP-sub000/internal/log"
	"github.com/hetpatel-11/Adobe-Premiere-Pro-MCP-sub000/internal/script"
	"github.com/hetpatel-11/Adobe-Premiere-Pro-MCP-sub000/internal/tui"
)

var (
	version   = "0.1.0-dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	os.Exit(runCLI(os.Args[1:]))
}

func runCLI(cliArgs []string) int {
	if len(cliArgs) < 1 {
		printUsage()
		return 1
	}

	cmd := cliArgs[0]
	args := cliArgs[1:]

	switch cmd {
	case "start":
		return runStart(args)
	case "exec":
		return runExec(args)
	case "op":
		return runOp(args)
	case "ops":
		return runOps(args)
	case "sweep":
		return runSweep(args)
	case "watch":
		return runWatch(args)
	case "version", "--version":
		return runVersion(args)
	case "help", "--help", "-h":
		printUsage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		return 1
	}
}

func printUsage() {
	fmt.Print(`premiere-bridge - File-based command bridge for Premiere Pro automation

Usage:
  premiere-bridge <command> [flags]

Commands:
  start     Run the bridge daemon (HTTP API, journal, sweeper)
  exec      Dispatch a raw script and print the response
  op        Render a named operation and dispatch it
  ops       List registered operations
  sweep     Remove orphaned exchange files from the scratch directory
  watch     Real-time command monitor TUI
  version   Show version information
  help      Show this help message

Use 'premiere-bridge <command> --help' for command-specific flags.
`)
}

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

func runVersion(args []string) int {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "Output version metadata as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	info := currentVersionInfo()

	if *jsonOut {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render version JSON: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	fmt.Printf("premiere-bridge %s\n", info.Version)
	fmt.Printf("commit: %s\n", info.Commit)
	fmt.Printf("built_at: %s\n", info.BuildTime)
	return 0
}

func currentVersionInfo() versionInfo {
	info := versionInfo{
		Version:   strings.TrimSpace(version),
		Commit:    "unknown",
		BuildTime: "unknown",
	}
	if info.Version == "" {
		info.Version = "0.0.0-dev"
	}

	commit := strings.TrimSpace(gitCommit)
	if commit == "" || commit == "unknown" {
		commit = strings.TrimSpace(readBuildSetting("vcs.revision"))
	}
	if commit != "" {
		if len(commit) > 12 {
			commit = commit[:12]
		}
		info.Commit = commit
	}

	builtAt := strings.TrimSpace(buildDate)
	if builtAt == "" || builtAt == "unknown" {
		builtAt = strings.TrimSpace(readBuildSetting("vcs.time"))
	}
	if t, err := time.Parse(time.RFC3339Nano, builtAt); err == nil {
		info.BuildTime = t.UTC().Format(time.RFC3339)
	}

	return info
}

func readBuildSetting(key string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == key {
			return setting.Value
		}
	}
	return ""
}

// loadConfig resolves and loads configuration, falling back to defaults when
// no config file exists anywhere on the search path.
func loadConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		discovered, err := config.DiscoverConfigPath()
		if err != nil {
			return config.Defaults(), nil
		}
		configPath = discovered
	}
	return config.Load(configPath)
}

// resolveBridgeDir picks the scratch directory: an explicit flag wins, then
// config, then a fresh session directory under the system temp dir.
func resolveBridgeDir(flagDir string, cfg *config.Config) string {
	if flagDir != "" {
		return flagDir
	}
	if cfg.Bridge.Dir != "" {
		return cfg.Bridge.Dir
	}
	return bridge.SessionDir()
}

// --- start ---

func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	dirFlag := fs.String("dir", "", "Scratch directory (overrides config)")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel)
	logger := log.WithComponent("main")
	logger.Info("premiere-bridge starting", "version", version)

	dir := resolveBridgeDir(*dirFlag, cfg)

	sessionLock, err := lock.Acquire(dir)
	if err != nil {
		logger.Error("failed to acquire scratch directory lock (another instance may be running)", "dir", dir, "error", err)
		return 1
	}
	defer sessionLock.Release()
	logger.Info("acquired scratch directory lock", "path", sessionLock.Path())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	jnl, err := journal.Open(ctx, cfg.Journal.Path)
	if err != nil {
		logger.Error("failed to open journal", "path", cfg.Journal.Path, "error", err)
		return 1
	}
	defer jnl.Close()
	logger.Info("journal opened", "path", cfg.Journal.Path)

	dispatcher := bridge.New(bridge.Config{
		Dir:          dir,
		Timeout:      cfg.Bridge.Timeout.D(),
		PollInterval: cfg.Bridge.PollInterval.D(),
	})
	if err := dispatcher.Initialize(); err != nil {
		logger.Error("failed to initialize bridge", "dir", dir, "error", err)
		return 1
	}

	registry := script.Builtins()
	hub := events.NewHub(256)
	logger.Info("bridge ready", "dir", dir, "operations", len(registry.Names()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 2)

	if sweepAfter := cfg.Bridge.SweepAfter.D(); sweepAfter > 0 {
		go runSweeper(ctx, dispatcher, sweepAfter, logger)
	}

	if cfg.API.Enabled {
		tokens := make([]auth.TokenConfig, 0, len(cfg.API.Auth.Tokens))
		for _, t := range cfg.API.Auth.Tokens {
			tokens = append(tokens, auth.TokenConfig{
				Token:  t.Token,
				Scopes: t.Scopes,
			})
		}
		apiConfig := api.Config{
			Listen: cfg.API.Listen,
			APIKey: cfg.API.Auth.APIKey,
			Tokens: tokens,
		}
		apiServer := api.New(apiConfig, dispatcher, jnl, registry, hub, log.WithComponent("api"))
		go func() {
			if err := apiServer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("api: %w", err)
			}
		}()
		logger.Info("API server enabled", "listen", cfg.API.Listen)
	} else {
		logger.Warn("API server disabled; the bridge only serves panel-side file exchanges")
	}

	logger.Info("premiere-bridge running (press Ctrl+C to stop)")

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	case err := <-errCh:
		logger.Error("component failed", "error", err)
		cancel()
		return 1
	}

	logger.Info("premiere-bridge stopped")
	return 0
}

// runSweeper periodically reclaims orphaned exchange files.
func runSweeper(ctx context.Context, d *bridge.Dispatcher, olderThan time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(olderThan / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := d.Sweep(olderThan)
			if err != nil {
				logger.Error("sweep failed", "error", err)
				continue
			}
			if report.RemovedFiles > 0 {
				logger.Info("swept orphaned exchange files", "removed", report.RemovedFiles)
			}
		}
	}
}

// --- exec ---

func runExec(args []string) int {
	fs := flag.NewFlagSet("exec", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	dirFlag := fs.String("dir", "", "Scratch directory (overrides config)")
	scriptArg := fs.String("script", "", "Script text to dispatch (reads stdin when empty and no --file)")
	file := fs.String("file", "", "Read the script from a file")
	timeoutFlag := fs.Duration("timeout", 0, "Per-command timeout (overrides config)")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	scriptText, err := readScript(*scriptArg, *file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	return dispatchOnce(*configPath, *dirFlag, *timeoutFlag, scriptText)
}

func readScript(scriptArg, file string) (string, error) {
	if scriptArg != "" && file != "" {
		return "", fmt.Errorf("--script and --file are mutually exclusive")
	}
	if scriptArg != "" {
		return scriptArg, nil
	}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read script file: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read script from stdin: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", fmt.Errorf("script is empty; pass --script, --file, or pipe via stdin")
	}
	return string(data), nil
}

// dispatchOnce runs a single exchange against the scratch directory and
// prints the response payload on stdout.
func dispatchOnce(configPath, dirFlag string, timeout time.Duration, scriptText string) int {
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel)

	if timeout <= 0 {
		timeout = cfg.Bridge.Timeout.D()
	}

	dir := dirFlag
	if dir == "" {
		dir = cfg.Bridge.Dir
	}
	if dir == "" {
		fmt.Fprintln(os.Stderr, "No scratch directory configured. Pass --dir or set bridge.dir in config.")
		return 1
	}

	dispatcher := bridge.New(bridge.Config{
		Dir:          dir,
		Timeout:      timeout,
		PollInterval: cfg.Bridge.PollInterval.D(),
	})
	if err := dispatcher.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize bridge: %v\n", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	payload, err := dispatcher.Execute(ctx, scriptText)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Command failed: %v\n", err)
		return 1
	}

	fmt.Println(string(payload))
	return 0
}

// --- op / ops ---

func runOp(args []string) int {
	fs := flag.NewFlagSet("op", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	dirFlag := fs.String("dir", "", "Scratch directory (overrides config)")
	timeoutFlag := fs.Duration("timeout", 0, "Per-command timeout (overrides config)")
	printOnly := fs.Bool("print", false, "Print the rendered script instead of dispatching it")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: premiere-bridge op <name> [key=value ...] [flags]")
		return 1
	}
	name := fs.Arg(0)

	registry := script.Builtins()
	op, ok := registry.Get(name)
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown operation: %s (try 'premiere-bridge ops')\n", name)
		return 1
	}

	opArgs, err := parseOpArgs(op, fs.Args()[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	rendered, err := op.Render(opArgs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Render failed: %v\n", err)
		return 1
	}

	if *printOnly {
		fmt.Println(rendered)
		return 0
	}

	return dispatchOnce(*configPath, *dirFlag, *timeoutFlag, rendered)
}

// parseOpArgs converts key=value tokens into typed arguments using the
// operation's parameter declarations.
func parseOpArgs(op script.Operation, tokens []string) (map[string]any, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	types := make(map[string]script.ParamType, len(op.Params))
	for _, p := range op.Params {
		types[p.Name] = p.Type
	}

	args := make(map[string]any, len(tokens))
	for _, tok := range tokens {
		key, raw, found := strings.Cut(tok, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("argument %q must be key=value", tok)
		}

		switch types[key] {
		case script.TypeNumber:
			n, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("argument %q must be a number: %w", key, err)
			}
			args[key] = n
		case script.TypeBool:
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return nil, fmt.Errorf("argument %q must be a boolean: %w", key, err)
			}
			args[key] = b
		default:
			args[key] = raw
		}
	}
	return args, nil
}

func runOps(args []string) int {
	fs := flag.NewFlagSet("ops", flag.ExitOnError)
	jsonOut := fs.Bool("json", false, "Output the operation catalog as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	registry := script.Builtins()

	if *jsonOut {
		type paramOut struct {
			Name     string `json:"name"`
			Type     string `json:"type"`
			Required bool   `json:"required"`
		}
		type opOut struct {
			Name        string     `json:"name"`
			Description string     `json:"description,omitempty"`
			Params      []paramOut `json:"params,omitempty"`
		}
		out := make([]opOut, 0)
		for _, op := range registry.All() {
			o := opOut{Name: op.Name, Description: op.Description}
			for _, p := range op.Params {
				o.Params = append(o.Params, paramOut{Name: p.Name, Type: string(p.Type), Required: p.Required})
			}
			out = append(out, o)
		}
		data, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(data))
		return 0
	}

	for _, op := range registry.All() {
		fmt.Printf("%-24s %s\n", op.Name, op.Description)
		for _, p := range op.Params {
			req := "optional"
			if p.Required {
				req = "required"
			}
			fmt.Printf("    %-20s %s, %s\n", p.Name, p.Type, req)
		}
	}
	return 0
}

// --- sweep ---

func runSweep(args []string) int {
	fs := flag.NewFlagSet("sweep", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	dirFlag := fs.String("dir", "", "Scratch directory (overrides config)")
	olderThan := fs.Duration("older-than", time.Hour, "Remove exchange files older than this")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel)

	dir := *dirFlag
	if dir == "" {
		dir = cfg.Bridge.Dir
	}
	if dir == "" {
		fmt.Fprintln(os.Stderr, "No scratch directory configured. Pass --dir or set bridge.dir in config.")
		return 1
	}

	dispatcher := bridge.New(bridge.Config{Dir: dir})
	report, err := dispatcher.Sweep(*olderThan)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Sweep failed: %v\n", err)
		return 1
	}

	fmt.Printf("Removed %d orphaned exchange file(s) from %s\n", report.RemovedFiles, dir)
	return 0
}

// --- watch ---

func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	apiURL := fs.String("api-url", "http://127.0.0.1:8221", "Bridge API URL")
	apiKey := fs.String("api-key", os.Getenv("PREMIERE_BRIDGE_API_KEY"), "API Bearer Token")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	if *apiKey == "" {
		fmt.Fprintln(os.Stderr, "Error: API key required. Use --api-key or PREMIERE_BRIDGE_API_KEY env var.")
		return 1
	}

	m := tui.NewMonitor(*apiURL, *apiKey)
	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		return 1
	}
	return 0
}
