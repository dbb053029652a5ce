/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"testing"

	"gopkg.in/yaml.v3"
)

type memStore map[string]string

func (m memStore) Get(service, key string) (string, error) { return m[service+"/"+key], nil }
func (m memStore) Set(service, key, value string) error {
	m[service+"/"+key] = value
	return nil
}
func (m memStore) Delete(service, key string) error {
	delete(m, service+"/"+key)
	return nil
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Server.Addr == "" || cfg.Server.BasePath == "" {
		t.Fatalf("server defaults missing: %+v", cfg.Server)
	}
	if cfg.Submit.TimeoutMs <= 0 {
		t.Fatalf("submit timeout default missing")
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("logging level default = %q", cfg.Logging.Level)
	}
}

func TestMergeInto(t *testing.T) {
	dst := Defaults()
	var src AppConfig
	if err := yaml.Unmarshal([]byte("server:\n  addr: \":9090\"\nlogging:\n  level: DEBUG\n"), &src); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	mergeInto(&dst, &src)
	if dst.Server.Addr != ":9090" {
		t.Fatalf("addr not merged: %q", dst.Server.Addr)
	}
	if dst.Logging.Level != "debug" {
		t.Fatalf("level not normalized: %q", dst.Logging.Level)
	}
	if dst.Server.BasePath != "/v1" {
		t.Fatalf("base path default lost: %q", dst.Server.BasePath)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvServerAddr, ":7070")
	t.Setenv(EnvSubmitTimeoutMs, "2500")
	t.Setenv(EnvLogSource, "true")
	cfg := Defaults()
	applyEnvOverrides(&cfg)
	if cfg.Server.Addr != ":7070" {
		t.Fatalf("addr override: %q", cfg.Server.Addr)
	}
	if cfg.Submit.TimeoutMs != 2500 {
		t.Fatalf("timeout override: %d", cfg.Submit.TimeoutMs)
	}
	if !cfg.Logging.Source {
		t.Fatalf("log source override not applied")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("AppData", home)
	t.Setenv("USERPROFILE", home)
	old := SetTokenStore(memStore{})
	defer SetTokenStore(old)

	cfg := Defaults()
	cfg.Server.Addr = ":6543"
	if err := Save(cfg, "secret-token"); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, tok, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Server.Addr != ":6543" {
		t.Fatalf("addr round trip: %q", got.Server.Addr)
	}
	if tok != "secret-token" {
		t.Fatalf("token round trip: %q", tok)
	}
	p, err := Path()
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	if _, err := os.Stat(p); err != nil {
		t.Fatalf("config file missing: %v", err)
	}
}
