// Command docsquare detects, rectifies, and deskews document images.
//
// It processes a single file or every supported image in a directory, or
// runs as an HTTP service with the serve subcommand.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/docsquare/docsquare/internal/pipeline"
	"github.com/docsquare/docsquare/internal/server"
	"github.com/docsquare/docsquare/internal/trace"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Logging goes to stderr; stdout carries the progress report.
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime)

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "version":
			fmt.Printf("docsquare %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			usage()
			return
		case "serve":
			if err := runServe(os.Args[2:]); err != nil {
				log.Fatalf("Server error: %v", err)
			}
			return
		}
	}

	if err := runProcess(os.Args[1:]); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func usage() {
	fmt.Println("docsquare - document detection, rectification, and deskew")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  docsquare [options] <file-or-directory>")
	fmt.Println("  docsquare serve [options]")
	fmt.Println()
	fmt.Println("Process options:")
	fmt.Println("  -o <dir>       Output directory (default: processed)")
	fmt.Println("  -f <format>    Output format: raw-image or base64 (default: raw-image)")
	fmt.Println("  -mode <mode>   Detection mode: region or quad (default: region)")
	fmt.Println("  -deskew <b>    Deskew backend: multi or delegated (default: multi)")
	fmt.Println("  -v             Verbose: log pipeline events to stderr")
	fmt.Println()
	fmt.Println("Serve options:")
	fmt.Println("  -addr <addr>   Listen address (default: :8080)")
	fmt.Println("  -mode <mode>   Detection mode: region or quad (default: region)")
	fmt.Println("  -v             Verbose: log pipeline events to stderr")
}

// buildConfig assembles the pipeline configuration from the shared flags.
func buildConfig(mode, deskew string) (pipeline.Config, error) {
	cfg := pipeline.DefaultConfig()
	switch mode {
	case "", string(pipeline.ModeRegion):
	case string(pipeline.ModeQuad):
		cfg.DetectMode = pipeline.ModeQuad
	default:
		return cfg, fmt.Errorf("unknown detection mode %q", mode)
	}
	switch deskew {
	case "", string(pipeline.BackendMulti):
	case string(pipeline.BackendDelegated):
		cfg.DeskewBackend = pipeline.BackendDelegated
	default:
		return cfg, fmt.Errorf("unknown deskew backend %q", deskew)
	}
	return cfg, nil
}

func buildSink(verbose bool) trace.Sink {
	if verbose || os.Getenv("DOCSQUARE_LOG_LEVEL") == "debug" {
		return trace.LogSink{Logger: log.New(os.Stderr, "", log.Ldate|log.Ltime)}
	}
	return trace.NopSink{}
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", ":8080", "listen address")
	mode := fs.String("mode", "region", "detection mode: region or quad")
	verbose := fs.Bool("v", false, "log pipeline events")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := buildConfig(*mode, "")
	if err != nil {
		return err
	}
	log.Printf("docsquare %s (built %s, commit %s)", Version, BuildTime, GitCommit)
	return server.New(cfg, buildSink(*verbose), Version).ListenAndServe(*addr)
}

func runProcess(args []string) error {
	fs := flag.NewFlagSet("docsquare", flag.ExitOnError)
	outDir := fs.String("o", "processed", "output directory")
	format := fs.String("f", "raw-image", "output format: raw-image or base64")
	mode := fs.String("mode", "region", "detection mode: region or quad")
	deskew := fs.String("deskew", "multi", "deskew backend: multi or delegated")
	verbose := fs.Bool("v", false, "log pipeline events")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		usage()
		return fmt.Errorf("expected exactly one file or directory argument")
	}
	asBase64, err := parseFormat(*format)
	if err != nil {
		return err
	}

	cfg, err := buildConfig(*mode, *deskew)
	if err != nil {
		return err
	}

	runner := &batchRunner{
		cfg:    cfg,
		sink:   buildSink(*verbose),
		outDir: *outDir,
		base64: asBase64,
	}
	return runner.Run(fs.Arg(0))
}

// parseFormat maps the -f value to the base64 switch. "image" is accepted
// as a shorthand for raw-image.
func parseFormat(format string) (bool, error) {
	switch format {
	case "raw-image", "image":
		return false, nil
	case "base64":
		return true, nil
	default:
		return false, fmt.Errorf("unknown output format %q", format)
	}
}
