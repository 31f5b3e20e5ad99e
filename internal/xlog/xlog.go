// Copyright 2026 The ai4all-network Authors
// This file is part of the ai4all-network coordinator.
//
// The ai4all-network coordinator is free software: you can redistribute it
// and/or modify it under the terms of the GNU Lesser General Public License
// as published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// The ai4all-network coordinator is distributed in the hope that it will be
// useful, but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the GNU Lesser
// General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ai4all-network coordinator. If not, see
// <http://www.gnu.org/licenses/>.

// Package xlog wraps zap behind the flat key-value logger shape used
// throughout this repository: logger.Debug(msg, "k1", v1, "k2", v2, ...).
package xlog

import (
	"go.uber.org/zap"
)

// Logger is the flat key-value logging interface every package obtains
// via NewModuleLogger. It deliberately mirrors the call shape of an
// unstructured "contextual logger" rather than zap's native API so that
// call sites read as plain message + fields.
type Logger struct {
	tag   string
	sugar *zap.SugaredLogger
}

var base *zap.Logger

func init() {
	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewNop()
	}
	base = l
}

// SetDevelopment switches the process-wide base logger to a
// human-readable development encoder; intended for cmd/ai4alld and
// tests, never for library code.
func SetDevelopment() {
	l, err := zap.NewDevelopment()
	if err == nil {
		base = l
	}
}

// NewModuleLogger returns a Logger tagged with module, matching the
// teacher's `var logger = log.NewModuleLogger(log.XXX)` convention.
func NewModuleLogger(module string) *Logger {
	return &Logger{tag: module, sugar: base.Sugar().With("module", module)}
}

// NewWith returns a derived logger carrying additional fixed fields,
// mirroring the teacher's logger.NewWith(...) contextual-logger pattern.
func (l *Logger) NewWith(keyvals ...interface{}) *Logger {
	return &Logger{tag: l.tag, sugar: l.sugar.With(keyvals...)}
}

func (l *Logger) Debug(msg string, keyvals ...interface{}) { l.sugar.Debugw(msg, keyvals...) }
func (l *Logger) Info(msg string, keyvals ...interface{})  { l.sugar.Infow(msg, keyvals...) }
func (l *Logger) Warn(msg string, keyvals ...interface{})  { l.sugar.Warnw(msg, keyvals...) }
func (l *Logger) Error(msg string, keyvals ...interface{}) { l.sugar.Errorw(msg, keyvals...) }

// Crit logs at error level and then panics, matching the teacher's
// Crit semantics for invariant violations (spec: exact-sum postcondition
// violations are fatal-to-process bugs, never recoverable results).
func (l *Logger) Crit(msg string, keyvals ...interface{}) {
	l.sugar.Errorw(msg, keyvals...)
	panic(msg)
}

// Sync flushes buffered log entries; call from cmd/ai4alld on shutdown.
func Sync() {
	_ = base.Sync()
}
