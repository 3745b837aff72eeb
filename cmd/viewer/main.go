// Package main is the entry point for the scene viewer.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-scene/internal/config"
	"github.com/Faultbox/midgard-scene/internal/logger"
	"github.com/Faultbox/midgard-scene/internal/viewer"
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if path := config.WriteConfigPath(); path != "" {
		if err := cfg.SaveTo(path); err != nil {
			fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("config written to %s\n", path)
		return
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== Midgard Scene Viewer ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	v, err := viewer.New(cfg)
	if err != nil {
		logger.Fatal("failed to create viewer", zap.Error(err))
	}

	if err := v.Run(); err != nil {
		v.Close()
		logger.Fatal("viewer error", zap.Error(err))
	}
	v.Close()

	logger.Info("viewer closed normally")
}
