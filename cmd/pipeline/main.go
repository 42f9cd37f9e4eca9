package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"conductcli/internal/config"
	"conductcli/internal/infrastructure"
	"conductcli/internal/services"
	"conductcli/pkg/contracts"
)

func main() {
	configFile := flag.String("config", "", "path to YAML config file (optional)")
	inputFile := flag.String("in", "", "raw case export to analyze (overrides config)")
	exportDir := flag.String("out", "", "directory for report output (overrides config)")
	format := flag.String("format", "", "report format: display or raw (overrides config)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(contracts.GetFullVersionString())
		return
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	if *inputFile != "" {
		cfg.Paths.InputFile = *inputFile
	}
	if *exportDir != "" {
		cfg.Paths.ExportDir = *exportDir
	}
	if *format != "" {
		cfg.Reports.Format = *format
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := infrastructure.MustInitializeLogger(cfg.Logging)
	defer infrastructure.CloseLogFile()

	service := services.NewReportService(cfg, logger)
	if err := service.Run(context.Background()); err != nil {
		logger.Error("Pipeline run failed", "error", err)
		os.Exit(1)
	}
}
