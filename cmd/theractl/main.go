package main

import (
	"os"

	"therapro/internal/cli"
	"therapro/internal/config"
)

func main() {
	defaultDB := "therapro.db"
	if cfg, err := config.Load(); err == nil {
		defaultDB = cfg.DBPath
	}
	if err := cli.NewRootCommand(defaultDB).Execute(); err != nil {
		os.Exit(1)
	}
}
