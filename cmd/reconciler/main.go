package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"lease-audit/internal/config"
	"lease-audit/internal/domain"
	"lease-audit/internal/gateway"
	"lease-audit/internal/server"
	"lease-audit/internal/usecase"

	"github.com/rs/zerolog"
)

const usage = `usage: reconciler <command> [flags]

commands:
  run     run one audit and print the report as JSON
  serve   start the HTTP API
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "run":
		err = runCommand(os.Args[2:])
	case "serve":
		err = serveCommand(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath, "Path to the TOML config file")
	memory := fs.Bool("memory", false, "Keep results in memory instead of the configured database")
	out := fs.String("out", "", "Write the JSON report to this file instead of stdout")
	initiatedBy := fs.String("initiated-by", "cli", "Who started the run")
	year := fs.Int("year", 0, "Audit only this year (0 for every year)")
	month := fs.Int("month", 0, "Audit only this calendar month, 1-12 (0 for every month)")
	fs.Parse(args)

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	// --- Dependency Injection (Wiring the application) ---

	// 1. Create the gateways (the outermost layer)
	source, err := buildSource(cfg)
	if err != nil {
		return err
	}
	var sink usecase.ResultSink
	if *memory {
		sink = gateway.NewMemoryStore()
	} else {
		store, err := gateway.NewSQLStore(cfg.Storage.Driver, cfg.Storage.DSN)
		if err != nil {
			return err
		}
		defer store.Close()
		sink = store
	}

	// 2. Create the usecase and inject the gateways (the core logic layer)
	audit, err := buildAudit(cfg, source, sink, logger)
	if err != nil {
		return err
	}

	// --- Execute the Usecase ---
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	report, err := audit.Run(ctx, usecase.RunRequest{
		InitiatedBy: *initiatedBy,
		Period:      domain.AuditPeriod{Year: *year, Month: *month},
	})
	if err != nil {
		return fmt.Errorf("audit run failed: %w", err)
	}

	// --- Present the Output ---
	output, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to generate JSON report: %w", err)
	}
	if *out != "" {
		return os.WriteFile(*out, output, 0o644)
	}
	fmt.Println(string(output))
	return nil
}

func serveCommand(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath, "Path to the TOML config file")
	addr := fs.String("addr", "", "Listen address, overrides server.addr")
	fs.Parse(args)

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	source, err := buildSource(cfg)
	if err != nil {
		return err
	}
	store, err := gateway.NewSQLStore(cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info().Str("driver", store.Driver()).Msg("storage ready")

	audit, err := buildAudit(cfg, source, store, logger)
	if err != nil {
		return err
	}
	tracker := usecase.NewTracker(store, nil, logger)
	review := usecase.NewReviewUseCase(store, store, tracker)

	srv := server.New(cfg.Server, audit, review, logger)
	return srv.Run(cfg.Server.Addr)
}

// buildSource routes every configured source to its reader.
func buildSource(cfg *config.Config) (*gateway.SourceRouter, error) {
	router := gateway.NewSourceRouter()
	for name, src := range cfg.Sources {
		switch src.Format {
		case config.FormatCSV:
			router.Route(name, gateway.NewCSVRecordSource(map[string][]string{name: src.Paths}))
		case config.FormatXLSX:
			router.Route(name, gateway.NewXLSXRecordSource(map[string]gateway.SheetRef{
				name: {Path: src.Paths[0], Sheet: src.Sheet},
			}))
		default:
			return nil, fmt.Errorf("source %s: unsupported format %q", name, src.Format)
		}
	}
	return router, nil
}

func buildAudit(cfg *config.Config, source usecase.RecordSource, sink usecase.ResultSink, logger zerolog.Logger) (*usecase.ReconciliationUseCase, error) {
	registry, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	return usecase.NewReconciliationUseCase(source, registry, sink, opts, logger)
}
