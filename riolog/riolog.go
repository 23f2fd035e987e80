/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package riolog is a thin structured-logging facade over logrus. Every
// constructor in package client, batch, and tracker accepts a Logger; a nil
// Logger falls back to Discard so the library is silent unless a caller
// opts in.
package riolog

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Level mirrors logrus' severity ordering under RIOC-local names so callers
// never need to import logrus directly to configure this package.
type Level uint32

const (
	LevelPanic Level = iota
	LevelFatal
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

func (l Level) toLogrus() logrus.Level {
	return logrus.Level(l)
}

// Fields attaches structured key/value context to a single log call.
type Fields map[string]any

// Logger is the structured logging contract consumed across the module.
type Logger interface {
	SetLevel(Level)
	GetLevel() Level
	WithFields(Fields) Logger
	Trace(msg string)
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)
}

type logger struct {
	entry *logrus.Entry
}

// New builds a Logger writing JSON lines to w at the given level. Pass
// io.Discard to silence output while keeping the Logger interface satisfied.
func New(w io.Writer, level Level) Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(level.toLogrus())

	return &logger{entry: logrus.NewEntry(l)}
}

// NewText builds a Logger writing human-readable lines to w, the style
// used by the CLI drivers (cmd/riocbench, cmd/rioctest) for operator-facing
// output rather than machine ingestion.
func NewText(w io.Writer, level Level) Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(level.toLogrus())

	return &logger{entry: logrus.NewEntry(l)}
}

// Discard is a Logger that drops everything; the zero-value default for
// every constructor in this module.
var Discard Logger = New(io.Discard, LevelError)

func (l *logger) SetLevel(lvl Level) {
	l.entry.Logger.SetLevel(lvl.toLogrus())
}

func (l *logger) GetLevel() Level {
	return Level(l.entry.Logger.GetLevel())
}

func (l *logger) WithFields(f Fields) Logger {
	return &logger{entry: l.entry.WithFields(logrus.Fields(f))}
}

func (l *logger) Trace(msg string) { l.entry.Trace(msg) }
func (l *logger) Debug(msg string) { l.entry.Debug(msg) }
func (l *logger) Info(msg string)  { l.entry.Info(msg) }
func (l *logger) Warn(msg string)  { l.entry.Warn(msg) }
func (l *logger) Error(msg string) { l.entry.Error(msg) }
