// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logx provides leveled logging for the engine and its background
// workers (WAL fsync, snapshot, replication, cluster ping loops). Timestamps
// are omitted on purpose — the process supervisor (systemd, a container
// runtime) stamps its own.
package logx

import (
	"fmt"
	"io"
	"os"
)

var (
	DebugWriter io.Writer = os.Stderr
	InfoWriter  io.Writer = os.Stderr
	WarnWriter  io.Writer = os.Stderr
	ErrorWriter io.Writer = os.Stderr
)

var (
	DebugPrefix = "[DEBUG]"
	InfoPrefix  = "[INFO]"
	WarnPrefix  = "[WARN]"
	ErrPrefix   = "[ERROR]"
)

func init() {
	lvl, ok := os.LookupEnv("SYNAP_LOGLEVEL")
	if !ok {
		return
	}
	switch lvl {
	case "err", "error":
		WarnWriter = io.Discard
		fallthrough
	case "warn":
		InfoWriter = io.Discard
		fallthrough
	case "info":
		DebugWriter = io.Discard
	case "debug":
	default:
		Warnf("SYNAP_LOGLEVEL has unrecognized value %q", lvl)
	}
}

func Debug(v ...any) { emit(DebugWriter, DebugPrefix, v...) }
func Info(v ...any)  { emit(InfoWriter, InfoPrefix, v...) }
func Warn(v ...any)  { emit(WarnWriter, WarnPrefix, v...) }
func Error(v ...any) { emit(ErrorWriter, ErrPrefix, v...) }

func emit(w io.Writer, prefix string, v ...any) {
	if w == io.Discard {
		return
	}
	fmt.Fprintln(w, append([]any{prefix}, v...)...)
}

func Debugf(format string, v ...any) { emitf(DebugWriter, DebugPrefix, format, v...) }
func Infof(format string, v ...any)  { emitf(InfoWriter, InfoPrefix, format, v...) }
func Warnf(format string, v ...any)  { emitf(WarnWriter, WarnPrefix, format, v...) }
func Errorf(format string, v ...any) { emitf(ErrorWriter, ErrPrefix, format, v...) }

func emitf(w io.Writer, prefix, format string, v ...any) {
	if w == io.Discard {
		return
	}
	fmt.Fprintf(w, prefix+" "+format+"\n", v...)
}
