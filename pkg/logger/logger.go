/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package logger wraps logrus with request-scoped context propagation.
// Every trigger invocation gets a request id so all log lines produced by
// one refresh or warm cycle can be correlated.
package logger

import (
	"context"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type contextKey string

const requestIDKey contextKey = "requestID"

var baseLogger = newBaseLogger()

func newBaseLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(levelFromEnv())
	return l
}

func levelFromEnv() logrus.Level {
	level, err := logrus.ParseLevel(strings.ToLower(os.Getenv("LOG_LEVEL")))
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// WithRequestId returns a context carrying the given request id.
func WithRequestId(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// Logger returns an entry bound to the request id stored in ctx, if any.
func Logger(ctx context.Context) *logrus.Entry {
	entry := logrus.NewEntry(baseLogger)
	if ctx == nil {
		return entry
	}
	if requestID, ok := ctx.Value(requestIDKey).(string); ok && requestID != "" {
		entry = entry.WithField("requestId", requestID)
	}
	return entry
}

// SetLevel overrides the log level for the whole process.
func SetLevel(level logrus.Level) {
	baseLogger.SetLevel(level)
}
