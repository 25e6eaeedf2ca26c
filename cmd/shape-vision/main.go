package main

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const usage = `shape-vision - detect, label and locate colored shapes in frames

Usage: shape-vision [command] [flags]

Commands:
  mcp       Serve the shape tools over MCP on stdin/stdout (default)
  detect    Detect shapes in image files
  camera    Detect shapes in live camera frames (needs -tags gocv)
  video     Detect shapes in a video file (needs ffmpeg)
  screen    Detect shapes in screen captures
  http      Serve the HTTP API
  config    Print the effective configuration as YAML

Options:
  --version, -v    Print version information
  --help, -h       Print this help message

Every command accepts -config <file.yaml>. Run "shape-vision <command> -h"
for its flags.

Environment variables:
  SHAPE_VISION_LOG_LEVEL=debug    Enable debug logging
  SHAPE_VISION_<SECTION>_<KEY>    Override any config key, e.g.
                                  SHAPE_VISION_DETECTION_MIN_SHAPE_AREA=1500

The mcp command communicates via MCP protocol over stdin/stdout.
Configure it in your MCP client (e.g., Claude Desktop).`

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("shape-vision %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println(usage)
			return
		}
	}

	// Configure logging to stderr (stdout is for MCP protocol and results)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	cmd, args := "mcp", os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "mcp":
		err = runMCP(args)
	case "detect":
		err = runDetect(args)
	case "camera", "video", "screen":
		err = runCapture(cmd, args)
	case "http":
		err = runHTTP(args)
	case "config":
		err = runConfig(args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s\n", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}
