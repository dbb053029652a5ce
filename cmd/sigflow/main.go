/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Command sigflow runs the signature-preparation engine: the HTTP API used
// by the web client, plus directory maintenance and export utilities.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sigflow/internal/config"
	"sigflow/internal/crash"
	"sigflow/internal/directory"
	"sigflow/internal/events"
	"sigflow/internal/domain"
	"sigflow/internal/export"
	"sigflow/internal/intake"
	"sigflow/internal/log"
	"sigflow/internal/server"
	"sigflow/internal/session"
	"sigflow/internal/submit"
	"sigflow/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "sigflow",
	Short: "Signature request preparation engine",
	Long: `sigflow prepares document signature requests: recipients, field
placement and workflow validation, exposed over an HTTP API. The directory
subcommands maintain the embedded client directory; export renders placement
summaries of a prepared request.`,
}

func main() {
	cobra.OnInitialize(initViper)
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initViper() {
	viper.SetEnvPrefix("SGF")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func registerCommands() {
	rootCmd.PersistentFlags().Bool("json", false, "output JSON instead of tables")
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(directoryCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(versionCmd())
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the preparation API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer crash.Recover(filepath.Join(configDir(), "crash"))
			events.InitDefault()
			cfg, token, err := config.Load()
			if err != nil {
				return err
			}
			log.Init(log.Options{
				Level:     cfg.Logging.Level,
				Format:    cfg.Logging.Format,
				AddSource: cfg.Logging.Source,
				File:      cfg.Logging.File,
			})
			logger := log.L()
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if basePath != "" {
				cfg.Server.BasePath = basePath
			}

			dir, closeDir, err := openDirectory(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeDir()

			provider := submit.NewClient(cfg.Submit.BaseURL, token, time.Duration(cfg.Submit.TimeoutMs)*time.Millisecond)
			handler, err := server.New(server.Config{
				Manager:   session.NewManager(dir, logger),
				Directory: dir,
				Provider:  provider,
				BasePath:  cfg.Server.BasePath,
			})
			if err != nil {
				return err
			}

			srv := &http.Server{Addr: cfg.Server.Addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			logger.Info("serving preparation API",
				slog.String("addr", cfg.Server.Addr),
				slog.String("base", cfg.Server.BasePath))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (overrides config)")
	return cmd
}

// openDirectory prefers the shared Postgres practice directory when a DSN is
// configured and falls back to the embedded SQLite store.
func openDirectory(ctx context.Context, cfg config.AppConfig) (intake.Directory, func(), error) {
	if cfg.Directory.PostgresDSN != "" {
		pg, err := directory.OpenPG(ctx, cfg.Directory.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return pg, func() { pg.Close() }, nil
	}
	s, err := directory.OpenSQLite(sqlitePath(cfg))
	if err != nil {
		return nil, nil, err
	}
	return s, func() { s.Close() }, nil
}

// sqlitePath defaults the embedded directory next to the config file.
func sqlitePath(cfg config.AppConfig) string {
	if cfg.Directory.SQLitePath != "" {
		return cfg.Directory.SQLitePath
	}
	return filepath.Join(configDir(), "directory.db")
}

// configDir is the per-user state directory, shared by the config file, the
// embedded directory database and crash reports.
func configDir() string {
	path, err := config.Path()
	if err != nil {
		return os.TempDir()
	}
	return filepath.Dir(path)
}

func directoryCmd() *cobra.Command {
	dir := &cobra.Command{Use: "directory", Short: "Maintain the embedded client directory"}
	dir.AddCommand(directoryImportCmd())
	dir.AddCommand(directorySearchCmd())
	return dir
}

// directoryImport is the JSON shape consumed by "directory import".
type directoryImport struct {
	Clients []domain.Client     `json:"clients"`
	Members []domain.FirmMember `json:"members"`
}

func directoryImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Import clients and firm members into the embedded directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var imp directoryImport
			if err := json.Unmarshal(raw, &imp); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
			cfg, _, err := config.Load()
			if err != nil {
				return err
			}
			store, err := directory.OpenSQLite(sqlitePath(cfg))
			if err != nil {
				return err
			}
			defer store.Close()
			ctx := cmd.Context()
			for _, c := range imp.Clients {
				if err := store.UpsertClient(ctx, c); err != nil {
					return err
				}
			}
			for _, m := range imp.Members {
				if err := store.UpsertFirmMember(ctx, m); err != nil {
					return err
				}
			}
			fmt.Printf("imported %d clients, %d firm members\n", len(imp.Clients), len(imp.Members))
			return nil
		},
	}
}

func directorySearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <clients|members> <query>",
		Short: "Search the embedded directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := config.Load()
			if err != nil {
				return err
			}
			store, err := directory.OpenSQLite(sqlitePath(cfg))
			if err != nil {
				return err
			}
			defer store.Close()
			ctx := cmd.Context()
			switch args[0] {
			case "clients":
				items, err := store.SearchClients(ctx, args[1])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				t := newTable("ID", "NAME", "EMAIL", "TYPE", "COMPANY")
				for _, c := range items {
					t.AppendRow(table.Row{c.ID, c.Name, c.Email, string(c.Type), c.CompanyName})
				}
				fmt.Println(t.Render())
				return nil
			case "members":
				items, err := store.SearchFirmMembers(ctx, args[1])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				t := newTable("ID", "USERNAME", "EMAIL", "ACTIVE")
				for _, m := range items {
					t.AppendRow(table.Row{m.ID, m.Username, m.Email, m.IsActive})
				}
				fmt.Println(t.Render())
				return nil
			default:
				return fmt.Errorf("unknown directory kind %q", args[0])
			}
		},
	}
}

func exportCmd() *cobra.Command {
	exp := &cobra.Command{Use: "export", Short: "Render placement summaries of a prepared request"}

	pdfCmd := &cobra.Command{
		Use:   "pdf <request.json> <out.pdf>",
		Short: "Write a placement summary PDF",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := loadRequest(args[0])
			if err != nil {
				return err
			}
			return export.WriteSummaryPDF(r, args[1], export.PDFOptions{})
		},
	}

	var dpi int
	pngCmd := &cobra.Command{
		Use:   "png <request.json> <outdir>",
		Short: "Write per-page preview PNGs",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := loadRequest(args[0])
			if err != nil {
				return err
			}
			return export.WritePreviewPNGs(r, args[1], export.PNGOptions{DPI: dpi})
		},
	}
	pngCmd.Flags().IntVar(&dpi, "dpi", 96, "output resolution")

	exp.AddCommand(pdfCmd)
	exp.AddCommand(pngCmd)
	return exp
}

func loadRequest(path string) (submit.Request, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return submit.Request{}, err
	}
	var r submit.Request
	if err := json.Unmarshal(raw, &r); err != nil {
		return submit.Request{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return r, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.String())
		},
	}
}

func newTable(cols ...any) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row(cols))
	return t
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
