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
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in
// the user scope. Environment variables are read-only overrides at runtime.
// The submit-backend token is not stored on disk; it lives in the OS keyring.

type ServerConfig struct {
	Addr     string `yaml:"addr"`
	BasePath string `yaml:"base_path"`
}

type DirectoryConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
	// PostgresDSN, when set, switches directory search to the firm-wide
	// shared Postgres directory instead of the local SQLite store.
	PostgresDSN string `yaml:"postgres_dsn"`
}

type SubmitConfig struct {
	BaseURL   string `yaml:"base_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int             `yaml:"config_version"`
	Server        ServerConfig    `yaml:"server"`
	Directory     DirectoryConfig `yaml:"directory"`
	Submit        SubmitConfig    `yaml:"submit"`
	Logging       LoggingConfig   `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Server:        ServerConfig{Addr: ":8085", BasePath: "/v1"},
		Directory:     DirectoryConfig{SQLitePath: ""},
		Submit:        SubmitConfig{BaseURL: "http://localhost:8080", TimeoutMs: 15000},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvServerAddr      = "SGF_SERVER_ADDR"
	EnvServerBasePath  = "SGF_SERVER_BASE_PATH"
	EnvDirectorySQLite = "SGF_DIRECTORY_SQLITE"
	EnvDirectoryPGDSN  = "SGF_DIRECTORY_PG_DSN"
	EnvSubmitURL       = "SGF_SUBMIT_URL"
	EnvSubmitTimeoutMs = "SGF_SUBMIT_TIMEOUT_MS"
	EnvLogLevel        = "SGF_LOG_LEVEL"
	EnvLogFormat       = "SGF_LOG_FORMAT"
	EnvLogSource       = "SGF_LOG_SOURCE"
	EnvLogFile         = "SGF_LOG_FILE"
)

// Service/keys for the OS keyring.
const (
	keyringService = "SigFlow"
	keyringToken   = "submit_token"
)

// TokenStore abstracts the keyring so tests can stub it.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

var tokenStore TokenStore = osKeyring{}

// SetTokenStore swaps the token store; intended for tests. Returns the old one.
func SetTokenStore(ts TokenStore) TokenStore {
	old := tokenStore
	tokenStore = ts
	return old
}

// Path returns the per-user config file path.
func Path() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "SigFlow")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "SigFlow")
	default:
		base = filepath.Join(os.Getenv("HOME"), ".config", "sigflow")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges
// environment overrides. The submit token is loaded from the keyring and
// returned separately; a missing token is not an error.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := Path()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	tok, _ := tokenStore.Get(keyringService, keyringToken)
	return cfg, tok, nil
}

// Save writes the user config YAML and persists the token into the OS
// keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		return tokenStore.Set(keyringService, keyringToken, token)
	}
	return nil
}

func mergeInto(dst, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.Server.Addr != "" {
		dst.Server.Addr = src.Server.Addr
	}
	if src.Server.BasePath != "" {
		dst.Server.BasePath = src.Server.BasePath
	}
	if src.Directory.SQLitePath != "" {
		dst.Directory.SQLitePath = src.Directory.SQLitePath
	}
	if src.Directory.PostgresDSN != "" {
		dst.Directory.PostgresDSN = src.Directory.PostgresDSN
	}
	if src.Submit.BaseURL != "" {
		dst.Submit.BaseURL = src.Submit.BaseURL
	}
	if src.Submit.TimeoutMs != 0 {
		dst.Submit.TimeoutMs = src.Submit.TimeoutMs
	}
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvServerAddr)); v != "" {
		cfg.Server.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvServerBasePath)); v != "" {
		cfg.Server.BasePath = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDirectorySQLite)); v != "" {
		cfg.Directory.SQLitePath = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDirectoryPGDSN)); v != "" {
		cfg.Directory.PostgresDSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvSubmitURL)); v != "" {
		cfg.Submit.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvSubmitTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Submit.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		lv := strings.ToLower(v)
		cfg.Logging.Source = lv == "1" || lv == "true" || lv == "on" || lv == "yes"
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}
