package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"github.com/tcnksm/go-latest"
	"go.uber.org/zap"

	"glob1env/internal/config"
	"glob1env/internal/environment"
	"glob1env/internal/logging"
	"glob1env/internal/model"
	"glob1env/internal/tui"
	"glob1env/internal/web"
)

func checkUpdate(cfg *config.Config, currentVer string) {
	githubTag := &latest.GithubTag{
		Owner:      cfg.UpdateOwner(),
		Repository: cfg.UpdateRepository(),
	}

	res, err := latest.Check(githubTag, currentVer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Update check failed: %v\n", err)
		return
	}

	if res.Outdated {
		fmt.Printf("\n✨ A new version is available: %s (you have %s)\n", res.Current, currentVer)
		fmt.Printf("👉 Download it from https://github.com/%s/%s/releases\n", cfg.UpdateOwner(), cfg.UpdateRepository())
	} else {
		fmt.Printf("✅ You are using the latest version: %s\n", currentVer)
	}
}

func main() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: glob1env [options]\n\n")
		fmt.Fprintf(os.Stderr, "glob1env is a terminal shell with an in-memory virtual filesystem.\n")
		fmt.Fprintf(os.Stderr, "Files ending in .nwtz! are scripts; one of them can run per session.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  glob1env                       # Start TUI mode\n")
		fmt.Fprintf(os.Stderr, "  glob1env --report              # Print the tree to stdout\n")
		fmt.Fprintf(os.Stderr, "  glob1env -r -o tree.txt        # Save the tree report to a file\n")
		fmt.Fprintf(os.Stderr, "  glob1env --json                # Output the tree as JSON\n")
		fmt.Fprintf(os.Stderr, "  glob1env -x /password.nwtz!    # Run a script and print its output\n")
		fmt.Fprintf(os.Stderr, "  glob1env --web                 # Serve the environment over HTTP\n")
		fmt.Fprintf(os.Stderr, "  glob1env --init-config         # Write ~/.glob1env/config.yaml\n")
	}

	configFlag := pflag.StringP("config", "c", "", "Config file (default ~/.glob1env/config.yaml)")
	jsonFlag := pflag.BoolP("json", "j", false, "Output the virtual tree as JSON")
	reportFlag := pflag.BoolP("report", "r", false, "Print a textual report of the virtual tree (CLI mode)")
	outputFlag := pflag.StringP("output", "o", "", "Save report to the specified file (combined with --report)")
	runFlag := pflag.StringP("run", "x", "", "Run the script at the given virtual path and print its output")
	webFlag := pflag.BoolP("web", "w", false, "Start Web Mode on the configured server address")
	versionFlag := pflag.BoolP("version", "V", false, "Print version information")
	updateFlag := pflag.BoolP("update", "u", false, "Check for latest version")
	initFlag := pflag.Bool("init-config", false, "Write a default config file if none exists")
	helpFlag := pflag.BoolP("help", "h", false, "Show this help message")
	pflag.Parse()

	if *helpFlag {
		pflag.Usage()
		return
	}

	if *versionFlag {
		fmt.Printf("glob1env version %s\n", model.Version)
		return
	}

	if *initFlag {
		path, err := config.EnsureDefault()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Config file: %s\n", path)
		return
	}

	cfg, cfgPath, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if *updateFlag {
		checkUpdate(cfg, model.Version)
		return
	}

	logger, err := logging.New(cfg.LogFile(), cfg.LogLevel())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("Starting", zap.String("version", model.Version), zap.String("config", cfgPath))

	env, err := environment.New(environment.Options{
		Capacity: cfg.MailboxCapacity(),
		Timeout:  cfg.ScriptTimeout(),
		Logger:   logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error seeding environment: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *webFlag:
		err = runWebMode(ctx, env, cfg, logger)
	case *runFlag != "":
		err = runScriptMode(ctx, env, *runFlag)
	case *reportFlag:
		err = runReportMode(env, *outputFlag)
	case *jsonFlag:
		err = runJSONMode(env)
	default:
		err = runTuiMode(ctx, env, cfg, cfgPath, logger)
	}
	if err != nil {
		logger.Error("Exiting with error", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		_ = logger.Sync()
		os.Exit(1)
	}
}

func runWebMode(ctx context.Context, env *environment.Environment, cfg *config.Config, logger *zap.Logger) error {
	fmt.Printf("Starting glob1env web server at http://%s\n", cfg.Addr())
	return web.NewServer(env, cfg.Addr(), logger.Named("web")).Run(ctx)
}

// runScriptMode runs one script headlessly and prints its output as wire lines.
func runScriptMode(ctx context.Context, env *environment.Environment, path string) error {
	if model.DocumentOf(path) != model.DocumentScript {
		return fmt.Errorf("%s is not a script (expected *%s)", path, model.ScriptSuffix)
	}
	if !env.Execute(ctx, path) {
		return fmt.Errorf("script %s was not started", path)
	}
	ticker := time.NewTicker(tui.FrameInterval)
	defer ticker.Stop()

	printed := 0
	flush := func() {
		env.Poll()
		for _, m := range env.MessagesSince(printed) {
			fmt.Println(m.String())
			printed++
		}
	}
	for {
		select {
		case <-env.Done():
			flush()
			return nil
		case <-ctx.Done():
			flush()
			return ctx.Err()
		case <-ticker.C:
			flush()
		}
	}
}

func runReportMode(env *environment.Environment, outputFile string) error {
	report := env.Snapshot().Report()

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(report), 0644); err != nil {
			return fmt.Errorf("writing report to %s: %w", outputFile, err)
		}
		fmt.Printf("Report saved to %s\n", outputFile)
		return nil
	}
	fmt.Print(report)
	return nil
}

func runJSONMode(env *environment.Environment) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(env.Snapshot())
}

func runTuiMode(ctx context.Context, env *environment.Environment, cfg *config.Config, cfgPath string, logger *zap.Logger) error {
	m := tui.InitialModel(ctx, env, cfg, cfgPath, logger.Named("tui"))
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("alas, there's been an error: %w", err)
	}
	return nil
}
