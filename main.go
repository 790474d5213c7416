// main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	logging "github.com/ipfs/go-log/v2"

	"github.com/ArsuMinSo/presentator/internal/app"
	"github.com/ArsuMinSo/presentator/internal/config"
	"github.com/ArsuMinSo/presentator/internal/util"
)

var (
	baseDir  = flag.String("dir", ".", "Base directory for config, web assets and slideshows")
	httpAddr = flag.String("addr", "", "Override the configured listen address")
	debug    = flag.Bool("debug", false, "Enable debug logging")
	showHelp = flag.Bool("h", false, "Show help")
	version  = flag.Bool("version", false, "Show version")
)

// appVersion is set at build time via -ldflags "-X main.appVersion=x.y.z"
var appVersion = "dev"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("Presentator v%s\n", appVersion)
		return
	}
	if *showHelp {
		showUsage()
		return
	}

	absDir, err := filepath.Abs(*baseDir)
	if err != nil {
		log.Fatalf("Invalid base directory: %v", err)
	}
	if stat, err := os.Stat(absDir); err != nil || !stat.IsDir() {
		log.Fatalf("Base directory does not exist: %s", absDir)
	}

	cfgPath := filepath.Join(absDir, "presentator.json")
	cfg, created, err := config.Ensure(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if created {
		log.Printf("Created default config at %s", cfgPath)
	}

	if *httpAddr != "" {
		cfg.Server.HTTPAddr = *httpAddr
	}
	if *debug {
		cfg.Server.Debug = true
	}

	level := logging.LevelInfo
	if cfg.Server.Debug {
		level = logging.LevelDebug
	}
	logging.SetAllLoggers(level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Println("\nShutting down gracefully...")
		cancel()
	}()

	if err := app.Run(ctx, app.Options{
		BaseDir: absDir,
		Cfg:     cfg,
	}); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func showUsage() {
	fmt.Println("Presentator - LAN slideshow presentation server")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  presentator [flags]")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  -dir <path>     Base directory (default: current directory)")
	fmt.Println("  -addr <addr>    Listen address, e.g. :50000")
	fmt.Println("  -debug          Enable debug logging")
	fmt.Println("  -version        Show version")
	fmt.Println()
	fmt.Printf("Clients on the LAN connect to http://%s:50000\n", util.LocalIP())
}
