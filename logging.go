// Copyright 2024 The go-fit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package fit

import (
	"os"

	"github.com/go-kratos/kratos/v2/log"
)

// newHelper wraps custom in a *log.Helper, or falls back to a stdout
// logger filtered to error level, mirroring the default the teacher's own
// file.go wires up when no Logger is supplied in Options.
func newHelper(custom log.Logger) *log.Helper {
	if custom != nil {
		return log.NewHelper(custom)
	}
	base := log.NewStdLogger(os.Stdout)
	filtered := log.NewFilter(base, log.FilterLevel(log.LevelError))
	return log.NewHelper(filtered)
}
