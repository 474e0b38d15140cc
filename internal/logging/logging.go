// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures the zerolog logger shared by every socratic component.
//
// The TUI owns the terminal, so interactive commands log to a file. Headless
// commands (serve, status) log to stderr.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logger configuration.
type Config struct {
	Level  string // debug, info, warn, error
	Pretty bool   // console writer instead of JSON
	Output io.Writer

	// File is opened in append mode when Output is nil.
	File string
}

var (
	mu     sync.RWMutex
	global = zerolog.Nop()
	closer io.Closer
)

// New creates a logger from cfg. The returned closer releases the log file,
// if one was opened, and is never nil.
func New(cfg Config) (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	out := cfg.Output
	var c io.Closer = nopCloser{}
	if out == nil {
		if cfg.File != "" {
			if err := os.MkdirAll(filepath.Dir(cfg.File), 0700); err != nil {
				return zerolog.Nop(), c, fmt.Errorf("failed to create log dir: %w", err)
			}
			f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
			if err != nil {
				return zerolog.Nop(), c, fmt.Errorf("failed to open log file: %w", err)
			}
			out, c = f, f
		} else {
			out = os.Stderr
		}
	}

	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: cfg.File != ""}
	}

	logger := zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", "socratic").
		Logger()

	return logger, c, nil
}

// Init replaces the global logger. Any previously opened log file is closed.
func Init(cfg Config) error {
	logger, c, err := New(cfg)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	if closer != nil {
		_ = closer.Close()
	}
	global, closer = logger, c
	log.Logger = logger
	return nil
}

// L returns the global logger. It discards everything until Init is called.
func L() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// Component returns the global logger tagged with a component name.
func Component(name string) zerolog.Logger {
	return L().With().Str("component", name).Logger()
}

// Close releases the global log file.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if closer == nil {
		return nil
	}
	err := closer.Close()
	closer = nil
	global = zerolog.Nop()
	return err
}

// DefaultFile returns the log file path inside dir.
func DefaultFile(dir string) string {
	return filepath.Join(dir, "socratic.log")
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
