// Copyright (c) 2018 The ExchangeCoin team
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vfcsuite/vfcd/chainparams"
	"github.com/vfcsuite/vfcd/config"
	"github.com/vfcsuite/vfcd/node"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(0)
	}
}

// run dispatches either to a CLI subcommand or, with no subcommand
// recognized, to the daemon itself. Every documented command prints a
// one-line reason and exits 0, with no distinct exit codes per failure
// kind; run only returns a non-nil error to have main print it before
// the guaranteed-0 exit.
func run(args []string) error {
	if len(args) > 0 {
		if handler, ok := cliCommands[args[0]]; ok {
			return handler(args[1:])
		}
	}
	return runDaemon(args)
}

// runDaemon parses the daemon configuration, wires logging, builds the
// Node, and serves until SIGINT, flushing sidecars on the way out.
// SIGPIPE is ignored so a disconnected peer never kills the process.
func runDaemon(args []string) error {
	cfg, _, err := config.Load(args)
	if err != nil {
		return err
	}

	if !cfg.NoFileLogging {
		if err := initLogRotator(cfg.LogFilePath()); err != nil {
			return err
		}
	}
	if err := setLogLevels(cfg.DebugLevel); err != nil {
		return err
	}

	params := chainparams.MainNetParams()
	params.ListenPort = cfg.ListenPort

	n, err := node.New(cfg, params)
	if err != nil {
		return err
	}
	defer n.Close()

	if err := n.Start(); err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGINT)
	signal.Ignore(syscall.SIGPIPE)
	<-sig

	n.Stop()
	return nil
}
