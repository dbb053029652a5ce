/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package events provides a small, opt-in webhook notifier for workflow
// lifecycle events (session created, request submitted) and optional crash
// report uploads. Disabled by default; with no URL configured every call is
// a no-op.
package events

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	applog "sigflow/internal/log"
	"sigflow/internal/version"
)

// Config holds runtime configuration for the notifier.
//
// Environment variables (read by FromEnv):
// - SGF_EVENTS_OPT_IN: "1", "true", "yes" to enable event delivery
// - SGF_EVENTS_URL: URL to POST JSON events to
// - SGF_CRASH_UPLOAD_URL: URL to POST crash reports to
// - SGF_EVENTS_TIMEOUT_MS: request timeout, default 1500ms
// - SGF_EVENTS_DEBUG: if set, logs delivery attempts
type Config struct {
	OptIn        bool
	EventsURL    string
	CrashURL     string
	Timeout      time.Duration
	DebugLogging bool
}

func FromEnv() Config {
	cfg := Config{
		OptIn:        parseBool(os.Getenv("SGF_EVENTS_OPT_IN")),
		EventsURL:    strings.TrimSpace(os.Getenv("SGF_EVENTS_URL")),
		CrashURL:     strings.TrimSpace(os.Getenv("SGF_CRASH_UPLOAD_URL")),
		Timeout:      1500 * time.Millisecond,
		DebugLogging: os.Getenv("SGF_EVENTS_DEBUG") != "",
	}
	if ms := strings.TrimSpace(os.Getenv("SGF_EVENTS_TIMEOUT_MS")); ms != "" {
		if v, err := time.ParseDuration(ms + "ms"); err == nil {
			cfg.Timeout = v
		}
	}
	return cfg
}

func parseBool(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// Notifier is a minimal async sender; it drops events silently on errors and
// never blocks the request path. The queue is bounded.
type Notifier struct {
	cfg    Config
	log    *slog.Logger
	cli    *http.Client
	q      chan any
	once   sync.Once
	closed chan struct{}
}

var defaultNotifier *Notifier
var defaultOnce sync.Once

// InitDefault initializes the package-level default notifier from env when first used.
func InitDefault() {
	defaultOnce.Do(func() {
		NewDefault(FromEnv())
	})
}

// NewDefault creates and installs the default notifier with cfg.
func NewDefault(cfg Config) {
	defaultNotifier = New(cfg)
}

// New constructs a notifier.
func New(cfg Config) *Notifier {
	n := &Notifier{
		cfg:    cfg,
		log:    applog.WithComponent("events"),
		cli:    &http.Client{Timeout: cfg.Timeout},
		q:      make(chan any, 64),
		closed: make(chan struct{}),
	}
	go n.loop()
	return n
}

// Enabled reports whether event delivery is enabled and an endpoint is configured.
func (n *Notifier) Enabled() bool { return n != nil && n.cfg.OptIn && n.cfg.EventsURL != "" }

// Emit queues a JSON event if enabled. Safe to call from anywhere.
func (n *Notifier) Emit(name string, props map[string]any) {
	if !n.Enabled() || name == "" {
		return
	}
	payload := map[string]any{
		"name":    name,
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"version": version.String(),
		"os":      runtime.GOOS,
		"arch":    runtime.GOARCH,
	}
	for k, v := range props {
		payload[k] = v
	}
	select {
	case n.q <- payload:
	default:
		// drop if queue full
	}
}

// Emit using the default notifier.
func Emit(name string, props map[string]any) { InitDefault(); defaultNotifier.Emit(name, props) }

// Flush waits briefly for the queue to drain.
func (n *Notifier) Flush(ctx context.Context) {
	deadline := time.Now().Add(500 * time.Millisecond)
	for {
		if len(n.q) == 0 || time.Now().After(deadline) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(25 * time.Millisecond):
		}
	}
}

// Close stops the background goroutine.
func (n *Notifier) Close() { n.once.Do(func() { close(n.closed) }) }

func (n *Notifier) loop() {
	for {
		select {
		case <-n.closed:
			return
		case item := <-n.q:
			n.send(item)
		}
	}
}

func (n *Notifier) send(item any) {
	buf, _ := json.Marshal(item)
	req, err := http.NewRequest(http.MethodPost, n.cfg.EventsURL, bytes.NewReader(buf))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.cli.Do(req)
	if err != nil {
		if n.cfg.DebugLogging {
			n.log.Debug("event send failed", slog.Any("err", err))
		}
		return
	}
	_ = resp.Body.Close()
	if n.cfg.DebugLogging {
		n.log.Debug("event sent")
	}
}

// UploadCrash posts an already-serialized crash report to the configured
// crash URL if opt-in.
func (n *Notifier) UploadCrash(report []byte) {
	if n == nil || !n.cfg.OptIn || n.cfg.CrashURL == "" {
		return
	}
	go func(b []byte) {
		req, err := http.NewRequest(http.MethodPost, n.cfg.CrashURL, bytes.NewReader(b))
		if err != nil {
			return
		}
		req.Header.Set("Content-Type", "text/plain; charset=utf-8")
		resp, err := n.cli.Do(req)
		if err != nil {
			if n.cfg.DebugLogging {
				n.log.Debug("crash upload failed", slog.Any("err", err))
			}
			return
		}
		_ = resp.Body.Close()
		if n.cfg.DebugLogging {
			n.log.Debug("crash report uploaded")
		}
	}(append([]byte(nil), report...))
}

// UploadCrash using the default notifier.
func UploadCrash(report []byte) { InitDefault(); defaultNotifier.UploadCrash(report) }
