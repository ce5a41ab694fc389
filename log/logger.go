// Copyright 2024 The amacore Authors
// This file is part of the amacore engine.
//
// The amacore engine is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The amacore engine is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the amacore engine. If not, see <http://www.gnu.org/licenses/>.

// Package log provides a small module-scoped structured logger, shaped
// after the teacher's log.NewModuleLogger API, backed by zap.
package log

import (
	"go.uber.org/zap"
)

// Module names, one per engine subsystem. Kept as a closed set so every
// logger call site is attributable to a component at a glance.
const (
	Codec     = "codec"
	Mutation  = "mutation"
	KVStore   = "kvstore"
	SBAT      = "sbat"
	Model     = "model"
	Consensus = "consensus"
	BIC       = "bic"
	VM        = "vm"
	PRNG      = "prng"
	Apply     = "apply"
	TxFilter  = "txfilter"
)

var base *zap.SugaredLogger

func init() {
	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewNop()
	}
	base = l.Sugar()
}

// Logger is a contextual logger tracking a module name and any key/value
// pairs attached via With.
type Logger struct {
	module string
	kv     []interface{}
}

// NewModuleLogger returns a Logger scoped to the given module name.
func NewModuleLogger(module string) Logger {
	return Logger{module: module}
}

// With returns a derived Logger carrying the extra key/value pairs.
func (l Logger) With(kv ...interface{}) Logger {
	next := Logger{module: l.module, kv: make([]interface{}, 0, len(l.kv)+len(kv))}
	next.kv = append(next.kv, l.kv...)
	next.kv = append(next.kv, kv...)
	return next
}

func (l Logger) fields(kv []interface{}) []interface{} {
	out := make([]interface{}, 0, len(l.kv)+len(kv)+2)
	out = append(out, "module", l.module)
	out = append(out, l.kv...)
	out = append(out, kv...)
	return out
}

func (l Logger) Debug(msg string, kv ...interface{}) { base.Debugw(msg, l.fields(kv)...) }
func (l Logger) Info(msg string, kv ...interface{})  { base.Infow(msg, l.fields(kv)...) }
func (l Logger) Warn(msg string, kv ...interface{})  { base.Warnw(msg, l.fields(kv)...) }
func (l Logger) Error(msg string, kv ...interface{}) { base.Errorw(msg, l.fields(kv)...) }

// Sync flushes any buffered log entries; call before process exit.
func Sync() { _ = base.Sync() }
