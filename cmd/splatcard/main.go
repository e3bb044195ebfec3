package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/eringen/splatcard"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "render":
		if len(os.Args) < 5 {
			fmt.Fprintln(os.Stderr, "Usage: splatcard render <kind> <input.json> <out.png>")
			os.Exit(1)
		}
		err = runRender(ctx, os.Args[2], os.Args[3], os.Args[4])
	case "clear-cache":
		err = runClearCache(ctx)
	case "version":
		fmt.Printf("splatcard %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (splatcard.Config, error) {
	return splatcard.LoadConfig(splatcard.EnvOr("SPLATCARD_CONFIG", ""))
}

func runServe(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	app := splatcard.New(cfg)
	defer app.Close()

	go func() {
		<-ctx.Done()
		_ = app.Echo.Shutdown(context.Background())
	}()
	return app.Start(ctx)
}

func printUsage() {
	fmt.Println(`splatcard - stage, weapon and event card renderer

Usage:
  splatcard <command> [arguments]

Commands:
  serve                               Start the HTTP server
  render <kind> <input.json> <out.png> Render one card offline
  clear-cache                         Delete every cached render
  version                             Print the splatcard version
  help                                Show this help message

Kinds:
  stage, weapons, event, event-desc

Configuration is read from SPLATCARD_CONFIG (YAML) and SPLATCARD_* variables.

Examples:
  SPLATCARD_ADMIN_PASSWORD=... SPLATCARD_SESSION_SECRET=... splatcard serve
  splatcard render stage stage.json stage.png`)
}
