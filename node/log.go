// Copyright (c) 2018 The ExchangeCoin team
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package node

import "github.com/decred/slog"

// log is the subsystem logger; wired up via UseLogger from the node's
// log.go.
var log = slog.Disabled

// UseLogger sets the subsystem logger used by this package.
func UseLogger(l slog.Logger) {
	log = l
}
