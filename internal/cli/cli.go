// Package cli implements pgdumb's subcommand dispatch, grounded on the
// teacher's internal/cli.Execute dispatcher.
package cli

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ak4code/pgdumb/internal/config"
	"github.com/ak4code/pgdumb/internal/driver"
	"github.com/ak4code/pgdumb/internal/inspect"
	"github.com/ak4code/pgdumb/internal/logging"
	"github.com/ak4code/pgdumb/internal/pgexec"
)

// Execute dispatches CLI subcommands.
func Execute(args []string) int {
	log.SetFlags(log.LstdFlags | log.Lmsgprefix)
	log.SetPrefix("[pgdumb] ")

	if len(args) == 0 {
		printUsage()
		return 1
	}

	switch args[0] {
	case "rewrite":
		return runRewrite(args[1:])
	case "inspect":
		return runInspect(args[1:])
	case "help", "-h", "--help":
		printUsage()
		return 0
	case "version", "--version", "-v":
		fmt.Println("pgdumb 0.1.0-dev")
		return 0
	default:
		log.Printf("Unknown subcommand: %s", args[0])
		printUsage()
		return 1
	}
}

func runRewrite(args []string) int {
	fs := flag.NewFlagSet("rewrite", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)
	var (
		configPath string
		inputPath  string
		outputPath string
		spawn      bool
		logDir     string
		logLevel   string
	)
	fs.StringVar(&configPath, "config", "", "Rule config file path (YAML)")
	fs.StringVar(&configPath, "c", "", "Rule config file path (YAML)")
	fs.StringVar(&inputPath, "in", "", "Input dump file path (default: stdin)")
	fs.StringVar(&outputPath, "out", "", "Output dump file path (default: stdout)")
	fs.BoolVar(&spawn, "spawn", false, "Spawn pg_dump (process config from rule config) instead of reading -in")
	fs.StringVar(&logDir, "log-dir", "./logs", "Log directory")
	fs.StringVar(&logLevel, "log-level", "info", "Log level: debug/info/warn/error")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		log.Printf("Failed to parse arguments: %v", err)
		return 1
	}
	if configPath == "" {
		log.Println("The --config flag is required")
		fs.Usage()
		return 2
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		return 2
	}

	logFilePrefix := buildLogFilePrefix(cfg, "rewrite")
	if err := logging.Init(logDir, parseLogLevel(logLevel), logFilePrefix, "pgdumb "+logFilePrefix); err != nil {
		log.Printf("Failed to initialize logging: %v", err)
		return 1
	}
	defer logging.Close()

	transformer, err := cfg.BuildTransformer()
	if err != nil {
		logging.Error("invalid rule config: %v", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	upstream, closeUpstream, err := openInput(ctx, cfg, inputPath, spawn)
	if err != nil {
		logging.Error("failed to open input: %v", err)
		return 1
	}
	defer closeUpstream()

	downstream, closeOutput, err := openOutput(outputPath)
	if err != nil {
		logging.Error("failed to open output: %v", err)
		return 1
	}
	defer closeOutput()

	logging.Console("rewrite starting log=%s", logging.GetLogFilePath())

	d := driver.New()
	dump, err := d.Run(ctx, upstream, downstream, transformer)
	if err != nil {
		logging.Error("rewrite failed: %v", err)
		return 1
	}

	logging.Console("rewrite complete entries=%d", len(dump.Entries))
	return 0
}

func runInspect(args []string) int {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)
	var inputPath string
	fs.StringVar(&inputPath, "in", "", "Input dump file path (default: stdin)")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		log.Printf("Failed to parse arguments: %v", err)
		return 1
	}

	in := os.Stdin
	if inputPath != "" {
		f, err := os.Open(inputPath)
		if err != nil {
			log.Printf("Failed to open input: %v", err)
			return 1
		}
		defer f.Close()
		in = f
	}

	report, err := inspect.Run(context.Background(), in)
	if err != nil {
		log.Printf("Inspection failed: %v", err)
		return 1
	}

	fmt.Printf("version=%s compression=%s entries=%d\n", report.Header.Version, report.Header.Compression, report.Entries)
	for _, b := range report.Blocks {
		if b.DecompressErr != nil {
			fmt.Printf("  dump_id=%-6d compressed=%-8d error=%v\n", b.DumpID, b.CompressedBytes, b.DecompressErr)
			continue
		}
		fmt.Printf("  dump_id=%-6d compressed=%-8d decompressed=%d\n", b.DumpID, b.CompressedBytes, b.Decompressed)
	}
	return 0
}

func openInput(ctx context.Context, cfg *config.RuleConfig, inputPath string, spawn bool) (interface {
	Read(p []byte) (int, error)
}, func(), error) {
	if spawn {
		if cfg.Process == nil {
			return nil, nil, fmt.Errorf("rewrite --spawn requires a process: block in the rule config")
		}
		launcher := pgexec.New(pgexec.Options{
			Host:     cfg.Process.Host,
			Port:     cfg.Process.Port,
			User:     cfg.Process.User,
			Password: cfg.Process.Password,
			Database: cfg.Process.Database,
			Tables:   cfg.Process.Tables,
			Binary:   cfg.Process.Binary,
		})
		stdout, err := launcher.Start(ctx)
		if err != nil {
			return nil, nil, err
		}
		return stdout, func() {
			if err := launcher.Wait(); err != nil {
				logging.Warn("pg_dump exited with error: %v", err)
			}
		}, nil
	}

	if inputPath == "" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(inputPath)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func openOutput(outputPath string) (interface {
	Write(p []byte) (int, error)
}, func(), error) {
	if outputPath == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

// buildLogFilePrefix names the log file after what's actually being
// rewritten, not a fixed literal: "{database}_{mode}" when the config
// names a process target, otherwise "pgdumb_{mode}".
func buildLogFilePrefix(cfg *config.RuleConfig, mode string) string {
	if cfg.Process == nil || cfg.Process.Database == "" {
		return fmt.Sprintf("pgdumb_%s", mode)
	}
	db := strings.ReplaceAll(cfg.Process.Database, string(filepath.Separator), "_")
	return fmt.Sprintf("%s_%s", db, mode)
}

func parseLogLevel(s string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return logging.DEBUG
	case "info":
		return logging.INFO
	case "warn", "warning":
		return logging.WARN
	case "error":
		return logging.ERROR
	default:
		return logging.INFO
	}
}

func printUsage() {
	binary := filepath.Base(os.Args[0])
	fmt.Printf(`pgdumb - pg_dump custom-format stream rewriter

Usage:
  %[1]s <command> [options]

Available commands:
  rewrite   Rewrite a custom-format dump, transforming TABLE DATA blocks
  inspect   Report compression stats for a dump's TABLE DATA blocks
  help      Show this help
  version   Show version info

Examples:
  %[1]s rewrite --config rules.yaml --in dump.bin --out scrubbed.bin
  %[1]s rewrite --config rules.yaml --spawn --out scrubbed.bin
  %[1]s inspect --in dump.bin
`, binary)
}
