// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package obslog is the module's shared structured-logging sink: every
// package that needs to log a WARNING/FATAL-level diagnostic (per spec §7's
// error taxonomy) logs through Default instead of standard log or fmt.
package obslog

import (
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is this module's logger type, parameterized on stumpy's Event.
type Logger = logiface.Logger[*stumpy.Event]

// Default is the package-wide logger, writing stumpy-encoded JSON lines to
// stdout. Replace it at process start (before any concurrent use) to
// redirect or reconfigure.
var Default = stumpy.L.New(stumpy.L.WithStumpy())
