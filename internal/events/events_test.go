/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package events

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestNotifierEmitAndUploadCrash(t *testing.T) {
	var mu sync.Mutex
	var got [][]byte
	var crashes [][]byte

	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		mu.Lock()
		got = append(got, append([]byte(nil), b...))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/crash", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		mu.Lock()
		crashes = append(crashes, append([]byte(nil), b...))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	n := New(Config{OptIn: true, EventsURL: srv.URL + "/events", CrashURL: srv.URL + "/crash", Timeout: 2 * time.Second})
	defer n.Close()

	if !n.Enabled() {
		t.Fatalf("expected notifier to be enabled")
	}

	n.Emit("session.created", map[string]any{"view": "template"})
	n.Flush(context.Background())
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	count := len(got)
	mu.Unlock()
	if count == 0 {
		t.Fatalf("expected at least one event to be sent")
	}
	var m map[string]any
	if err := json.Unmarshal(got[0], &m); err != nil {
		t.Fatalf("bad event json: %v", err)
	}
	if m["name"] != "session.created" || m["view"] != "template" {
		t.Fatalf("event payload mismatch: %v", m)
	}
	if _, ok := m["ts"].(string); !ok {
		t.Fatalf("missing ts field")
	}

	n.UploadCrash([]byte("STACKTRACE"))
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	ccount := len(crashes)
	mu.Unlock()
	if ccount == 0 {
		t.Fatalf("expected crash upload to be sent")
	}
}

func TestDisabledNotifierDropsEverything(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	n := New(Config{OptIn: false, EventsURL: srv.URL, Timeout: time.Second})
	defer n.Close()
	if n.Enabled() {
		t.Fatalf("opt-out notifier reports enabled")
	}
	n.Emit("session.created", nil)
	n.Flush(context.Background())
	time.Sleep(25 * time.Millisecond)
	if hits != 0 {
		t.Fatalf("disabled notifier delivered %d events", hits)
	}

	var nilNotifier *Notifier
	if nilNotifier.Enabled() {
		t.Fatalf("nil notifier reports enabled")
	}
	nilNotifier.UploadCrash([]byte("x"))
}

func TestFromEnv(t *testing.T) {
	t.Setenv("SGF_EVENTS_OPT_IN", "true")
	t.Setenv("SGF_EVENTS_URL", "http://127.0.0.1:0")
	t.Setenv("SGF_CRASH_UPLOAD_URL", "")
	t.Setenv("SGF_EVENTS_TIMEOUT_MS", "100")

	cfg := FromEnv()
	if !cfg.OptIn || cfg.EventsURL == "" || cfg.Timeout != 100*time.Millisecond {
		t.Fatalf("FromEnv did not parse correctly: %+v", cfg)
	}
}
