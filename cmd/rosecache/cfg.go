package main

import (
	"fmt"
	"os"

	l "github.com/sirupsen/logrus"

	"gitlab.com/mipimipi/rosecache/internal/config"
)

// loadCfg loads and validates the configuration at cfgPath, exiting the
// process on failure (mirrors the teacher's config.Test()-then-exit style
// for CLI entry points).
func loadCfg() config.Cfg {
	if cfgPath == "" {
		fmt.Println("no --config given")
		os.Exit(1)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("cannot load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("invalid configuration: %v\n", err)
		os.Exit(1)
	}

	lvl, err := l.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = l.InfoLevel
	}
	l.SetLevel(lvl)

	return cfg
}
