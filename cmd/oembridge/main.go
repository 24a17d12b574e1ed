// Command oembridge runs the UWB OEM extension callback bridge and its admin
// API. The notify subcommand publishes a single notification to a running
// bridge over Redis.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/goclaw/oembridge/config"
	"github.com/goclaw/oembridge/pkg/logger"
	"github.com/goclaw/oembridge/pkg/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run dispatches to a subcommand and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 {
		switch args[0] {
		case "serve":
			return runServe(ctx, args[1:], stdout, stderr)
		case "notify":
			return runNotify(ctx, args[1:], stdout, stderr)
		case "version":
			fmt.Fprintln(stdout, version.String())
			return 0
		}
	}
	return runServe(ctx, args, stdout, stderr)
}

type serveFlags struct {
	configPath string
	showVer    bool
	appName    string
	port       int
	logLevel   string
	adapter    string
	timeout    string
	watch      bool
}

func newServeFlagSet(stderr io.Writer) (*flag.FlagSet, *serveFlags) {
	f := &serveFlags{}
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.configPath, "config", "", "Path to configuration file")
	fs.BoolVar(&f.showVer, "version", false, "Print version information")
	fs.StringVar(&f.appName, "app-name", "", "Override app name")
	fs.IntVar(&f.port, "port", 0, "Override HTTP API port")
	fs.StringVar(&f.logLevel, "log-level", "", "Override log level")
	fs.StringVar(&f.adapter, "adapter", "", "Override adapter type (local, redis)")
	fs.StringVar(&f.timeout, "response-timeout", "", "Override bridge response timeout (e.g. 2s)")
	fs.BoolVar(&f.watch, "watch", true, "Reload log level and response timeout when the config file changes")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "oembridge - UWB OEM extension callback bridge\n\n")
		fmt.Fprintf(stderr, "Usage:\n")
		fmt.Fprintf(stderr, "  oembridge [serve] [options]\n")
		fmt.Fprintf(stderr, "  oembridge notify -kind <kind> [-payload <json>] [options]\n")
		fmt.Fprintf(stderr, "  oembridge version\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  oembridge -config oembridge.yaml\n")
		fmt.Fprintf(stderr, "  oembridge -port 9000 -log-level debug\n")
		fmt.Fprintf(stderr, "  oembridge notify -kind session_config -payload '{\"session_id\":1}'\n")
	}
	return fs, f
}

func (f *serveFlags) overrides() map[string]interface{} {
	overrides := make(map[string]interface{})

	if f.appName != "" {
		overrides["app.name"] = f.appName
	}
	if f.port != 0 {
		overrides["server.port"] = f.port
	}
	if f.logLevel != "" {
		overrides["log.level"] = f.logLevel
	}
	if f.adapter != "" {
		overrides["adapter.type"] = f.adapter
	}
	if f.timeout != "" {
		overrides["bridge.response_timeout"] = f.timeout
	}

	return overrides
}

func runServe(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs, flags := newServeFlagSet(stderr)
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	if flags.showVer {
		printVersion(stdout)
		return 0
	}

	loader := config.NewLoader()
	cfg, err := loader.Load(flags.configPath, flags.overrides())
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration:\n%s\n", err)
		return 1
	}

	log := logger.New(&logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	logger.SetGlobal(log)
	defer log.Close()

	log.Info("Starting oembridge",
		"version", version.Version,
		"buildTime", version.BuildTime,
		"gitCommit", version.GitCommit,
		"app", cfg.App.Name,
		"environment", cfg.App.Environment,
	)
	log.Debug("Configuration loaded", "config", cfg.String())

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to start oembridge", "error", err)
		return 1
	}

	if flags.watch && flags.configPath != "" {
		if err := a.watchConfig(ctx, flags.configPath, config.NewLoader()); err != nil {
			log.Warn("Config hot reload disabled", "path", flags.configPath, "error", err)
		}
	}

	if err := a.run(ctx); err != nil {
		log.Error("oembridge stopped with error", "error", err)
		return 1
	}
	log.Info("oembridge stopped gracefully")
	return 0
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "oembridge - UWB OEM extension callback bridge\n")
	for _, line := range [][2]string{
		{"Version:", version.Version},
		{"Build Time:", version.BuildTime},
		{"Git Commit:", version.GitCommit},
		{"Go Version:", version.GoVersion},
	} {
		fmt.Fprintf(w, "%-11s %s\n", line[0], line[1])
	}
}
