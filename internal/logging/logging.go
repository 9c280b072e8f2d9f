/*
 * Copyright 2026 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

// Package logging configures the daemon's zap logger the way
// bg/ap_common/aputil does: a development encoder, a custom timestamp
// format, a caller encoder that tags the daemon name, and a dynamically
// adjustable level so the log level can be changed at runtime without a
// restart.
package logging

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	atomicLevel = zap.NewAtomicLevel()
	daemonName  string
	tloggers    = make(map[string]*ThrottledLogger)
)

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006/01/02 15:04:05.000"))
}

func callerEncoder(caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
	dir, fileName := filepath.Split(caller.File)
	dir = filepath.Base(dir)
	if dir != daemonName {
		fileName = filepath.Join(dir, fileName)
	}
	enc.AppendString(fmt.Sprintf("%s:%s:%d", daemonName, fileName, caller.Line))
}

// New returns a sugared zap logger tagged with name, e.g.
//
//	2026/07/30 09:12:03.441  INFO  wifimgrd:connmgr/connmgr.go:201  joining "home"
func New(name string) (*zap.SugaredLogger, error) {
	daemonName = name

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = atomicLevel
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeTime = timeEncoder
	cfg.EncoderConfig.EncodeCaller = callerEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// SetLevel adjusts the log level at runtime.
func SetLevel(level string) error {
	var l zapcore.Level
	if err := (&l).UnmarshalText([]byte(level)); err != nil {
		return err
	}
	atomicLevel.SetLevel(l)
	return nil
}

// ThrottledLogger limits the rate at which redundant messages are
// issued, with exponential backoff up to maxDelay — used on the repeated
// "no candidate SSID" path, which would otherwise spam a log at the poll
// cadence. EC command failures are logged without throttling.
type ThrottledLogger struct {
	slog      *zap.SugaredLogger
	next      time.Time
	baseDelay time.Duration
	maxDelay  time.Duration
	curDelay  time.Duration
}

// Clear resets the throttle to fire immediately on the next call.
func (t *ThrottledLogger) Clear() {
	t.next = time.Now()
	t.curDelay = t.baseDelay
}

func (t *ThrottledLogger) ready() bool {
	now := time.Now()
	if !now.After(t.next) {
		return false
	}
	t.next = now.Add(t.curDelay)
	t.curDelay *= 2
	if t.curDelay > t.maxDelay {
		t.curDelay = t.maxDelay
	}
	return true
}

// Warnf issues a WARN message if the throttle allows it.
func (t *ThrottledLogger) Warnf(format string, a ...interface{}) {
	if t.ready() {
		t.slog.Warnf(format, a...)
	}
}

// Infof issues an INFO message if the throttle allows it.
func (t *ThrottledLogger) Infof(format string, a ...interface{}) {
	if t.ready() {
		t.slog.Infof(format, a...)
	}
}

// GetThrottledLogger returns a throttled logger persistent and unique to
// the call site: the first invocation from a given line allocates it, and
// subsequent invocations from that same line reuse it.
func GetThrottledLogger(slog *zap.SugaredLogger, start, max time.Duration) *ThrottledLogger {
	var key string
	if _, file, line, ok := runtime.Caller(1); ok {
		key = file + ":" + strconv.Itoa(line)
	} else {
		key = "unknown"
	}

	t, ok := tloggers[key]
	if !ok {
		t = &ThrottledLogger{
			slog:      slog.Desugar().WithOptions(zap.AddCallerSkip(1)).Sugar(),
			next:      time.Now(),
			baseDelay: start,
			curDelay:  start,
			maxDelay:  max,
		}
		tloggers[key] = t
	}
	return t
}
