// Copyright (c) 2018 The ExchangeCoin team
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

//go:build !unix

package ledger

import "errors"

// scanMmap is unavailable on non-unix hosts; Scan falls back to the
// positioned-read path.
func (s *Store) scanMmap(visit Visit) error {
	return errors.New("ledger: mmap scan unsupported on this platform")
}
