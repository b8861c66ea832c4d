package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ironsheep/vision-job/internal/config"
	"github.com/ironsheep/vision-job/internal/ocr"
	"github.com/ironsheep/vision-job/internal/pipeline"
	"github.com/ironsheep/vision-job/internal/server"
	"github.com/ironsheep/vision-job/internal/tools"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func usage() {
	fmt.Println("vision-mcp - MCP server for machine-vision inspection jobs")
	fmt.Println()
	fmt.Println("Usage: vision-mcp [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config <path>  Settings file (default vision-mcp.yaml)")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables (also read from .env):")
	fmt.Println("  VISION_MCP_CONFIG=<path>       Settings file")
	fmt.Println("  VISION_MCP_LOG_LEVEL=debug     Log level: debug, info, warn, error")
	fmt.Println()
	fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
	fmt.Println("Configure it in your MCP client.")
}

func main() {
	var configFlag string
	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch a := args[i]; {
		case a == "--version" || a == "-v" || a == "version":
			fmt.Printf("vision-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case a == "--help" || a == "-h" || a == "help":
			usage()
			return
		case a == "--config" && i+1 < len(args):
			i++
			configFlag = args[i]
		case strings.HasPrefix(a, "--config="):
			configFlag = strings.TrimPrefix(a, "--config=")
		default:
			fmt.Fprintf(os.Stderr, "unknown argument: %s\n\n", a)
			usage()
			os.Exit(2)
		}
	}

	if err := config.LoadEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.Load(config.ResolvePath(configFlag))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// stdout is for MCP protocol
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	logger.Debug("starting vision-mcp", "version", Version, "built", BuildTime, "commit", GitCommit)

	gridColor, _ := cfg.GridColor()
	srv := server.New(
		server.WithLogger(logger),
		server.WithVersion(Version),
		server.WithRegistry(tools.NewRegistry(tools.WithOCR(cfg.OCR.Language, cfg.OCR.TessdataPrefix))),
		server.WithOCRReader(ocr.NewReader(cfg.OCR.Language, cfg.OCR.TessdataPrefix)),
		server.WithPipeline(pipeline.New(
			pipeline.WithLogger(logger),
			pipeline.WithDefaultROISize(cfg.Pipeline.DefaultROI.Width, cfg.Pipeline.DefaultROI.Height),
		)),
		server.WithGrid(cfg.Overlay.GridSpacing, gridColor),
	)
	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
