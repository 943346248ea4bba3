package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	nowgamecmd "github.com/kops88/NowGame/internal/cmd/nowgame"
	"github.com/kops88/NowGame/internal/platform/config"
)

func main() {
	cfg, err := nowgamecmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log.SetPrefix("[NOWGAME] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := nowgamecmd.Run(ctx, cfg); err != nil {
		config.Exitf("Error: %v", err)
	}
}
