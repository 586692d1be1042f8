package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"MICDataset/internal/app"
	"MICDataset/internal/config"
	"MICDataset/internal/logging"
)

func main() {
	configFlag := flag.String("config", "", "Path to YAML config (defaults to $MIC_DATASET_CONFIG)")
	forceFlag := flag.Bool("force", false, "Rebuild the dataset even if it already exists")
	skipClassifyFlag := flag.Bool("skip-classify", false, "Skip filtering and classification")
	skipDatasetFlag := flag.Bool("skip-dataset", false, "Skip dataset and sample assembly")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := config.Load()
	if *configFlag != "" {
		cfg = config.LoadFrom(*configFlag)
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	application, err := app.New(ctx, cfg, app.Flags{
		Force:        *forceFlag,
		SkipClassify: *skipClassifyFlag,
		SkipDataset:  *skipDatasetFlag,
	}, logger)
	if err != nil {
		logger.Error("application setup failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	if _, err := application.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		_ = application.Close()
		os.Exit(1)
	}
}
