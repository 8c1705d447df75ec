// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// LogOutput receives command logs. Tests replace it.
var LogOutput io.Writer = os.Stderr

// NewCommandLogger creates a structured logger for command operations.
// When stderr is a terminal it uses slog.TextHandler; otherwise it
// emits JSON for scripts and log collectors.
func NewCommandLogger(level slog.Leveler) *slog.Logger {
	var handler slog.Handler
	options := &slog.HandlerOptions{Level: level}
	if file, ok := LogOutput.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		handler = slog.NewTextHandler(LogOutput, options)
	} else {
		handler = slog.NewJSONHandler(LogOutput, options)
	}
	return slog.New(handler)
}
