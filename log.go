// Copyright (c) 2018 The ExchangeCoin team
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"

	"github.com/vfcsuite/vfcd/addrmgr"
	"github.com/vfcsuite/vfcd/admission"
	"github.com/vfcsuite/vfcd/ledger"
	"github.com/vfcsuite/vfcd/mining"
	"github.com/vfcsuite/vfcd/node"
	"github.com/vfcsuite/vfcd/protocol"
	"github.com/vfcsuite/vfcd/replay"
	"github.com/vfcsuite/vfcd/txqueue"
	"github.com/vfcsuite/vfcd/uniqset"
)

// logWriter implements io.Writer, sending output to both standard
// output and a rotating log file once one is installed.
type logWriter struct {
	file *rotator.Rotator
}

func (w *logWriter) Write(p []byte) (int, error) {
	os.Stdout.Write(p)
	if w.file != nil {
		w.file.Write(p)
	}
	return len(p), nil
}

var (
	backendLog     = slog.NewBackend(&logWriter{})
	subsystemTags  = []string{"LDGR", "UNIQ", "ADDR", "TXQU", "ADMT", "RPLY", "MINE", "PROT", "NODE"}
	subsystemLogs  = make(map[string]slog.Logger, len(subsystemTags))
)

func init() {
	wireSubsystemLoggers()
}

// initLogRotator opens a rotating log file at logFile and points the
// shared backend's writer at it, in addition to stdout.
func initLogRotator(logFile string) error {
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return fmt.Errorf("log: failed to create rotator: %w", err)
	}
	backendLog = slog.NewBackend(&logWriter{file: r})
	wireSubsystemLoggers()
	return nil
}

// wireSubsystemLoggers (re)creates every subsystem logger from the
// current backend and installs it into each package via its own
// UseLogger function, matching the convention each of ledger, uniqset,
// addrmgr, txqueue, admission, replay, mining, and protocol already
// expose.
func wireSubsystemLoggers() {
	for _, tag := range subsystemTags {
		subsystemLogs[tag] = backendLog.Logger(tag)
	}
	ledger.UseLogger(subsystemLogs["LDGR"])
	uniqset.UseLogger(subsystemLogs["UNIQ"])
	addrmgr.UseLogger(subsystemLogs["ADDR"])
	txqueue.UseLogger(subsystemLogs["TXQU"])
	admission.UseLogger(subsystemLogs["ADMT"])
	replay.UseLogger(subsystemLogs["RPLY"])
	mining.UseLogger(subsystemLogs["MINE"])
	protocol.UseLogger(subsystemLogs["PROT"])
	node.UseLogger(subsystemLogs["NODE"])
}

// setLogLevels sets every subsystem logger's level to levelStr,
// validating it first.
func setLogLevels(levelStr string) error {
	level, ok := slog.LevelFromString(levelStr)
	if !ok {
		return fmt.Errorf("log: unrecognized debug level %q", levelStr)
	}
	for _, logger := range subsystemLogs {
		logger.SetLevel(level)
	}
	return nil
}
