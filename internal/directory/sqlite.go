/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package directory provides the client and firm-member lookup behind the
// recipient picker. The default store is an embedded SQLite database; a
// Postgres variant exists for deployments with a shared practice directory.
package directory

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"sigflow/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS clients (
    id           TEXT PRIMARY KEY,
    name         TEXT NOT NULL,
    email        TEXT NOT NULL DEFAULT '',
    client_type  TEXT NOT NULL DEFAULT 'Individual',
    company_name TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS firm_members (
    id        TEXT PRIMARY KEY,
    username  TEXT NOT NULL,
    email     TEXT NOT NULL DEFAULT '',
    is_active INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_clients_name ON clients(name COLLATE NOCASE);
CREATE INDEX IF NOT EXISTS idx_firm_members_username ON firm_members(username COLLATE NOCASE);
`

// SQLiteStore is the embedded directory database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the directory database at path and
// applies the schema. The parent directory is created as well.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create directory db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open directory db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply directory schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// SearchClients returns clients whose name, email or company name matches
// the query, case-insensitively. An empty query lists everything.
func (s *SQLiteStore) SearchClients(ctx context.Context, query string) ([]domain.Client, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, email, client_type, company_name
FROM clients
WHERE name LIKE ? COLLATE NOCASE
   OR email LIKE ? COLLATE NOCASE
   OR company_name LIKE ? COLLATE NOCASE
ORDER BY name`, like(query), like(query), like(query))
	if err != nil {
		return nil, fmt.Errorf("search clients: %w", err)
	}
	defer rows.Close()

	var out []domain.Client
	for rows.Next() {
		var c domain.Client
		var ct string
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &ct, &c.CompanyName); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		c.Type = domain.ClientType(ct)
		out = append(out, c)
	}
	return out, rows.Err()
}

// SearchFirmMembers returns firm members whose username or email matches the
// query, case-insensitively, active and inactive alike. Activity filtering
// is the picker's concern.
func (s *SQLiteStore) SearchFirmMembers(ctx context.Context, query string) ([]domain.FirmMember, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, username, email, is_active
FROM firm_members
WHERE username LIKE ? COLLATE NOCASE
   OR email LIKE ? COLLATE NOCASE
ORDER BY username`, like(query), like(query))
	if err != nil {
		return nil, fmt.Errorf("search firm members: %w", err)
	}
	defer rows.Close()

	var out []domain.FirmMember
	for rows.Next() {
		var m domain.FirmMember
		var active int
		if err := rows.Scan(&m.ID, &m.Username, &m.Email, &active); err != nil {
			return nil, fmt.Errorf("scan firm member: %w", err)
		}
		m.IsActive = active != 0
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpsertClient inserts or replaces a client record, used by directory
// imports.
func (s *SQLiteStore) UpsertClient(ctx context.Context, c domain.Client) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO clients (id, name, email, client_type, company_name)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    email = excluded.email,
    client_type = excluded.client_type,
    company_name = excluded.company_name`,
		c.ID, c.Name, c.Email, string(c.Type), c.CompanyName)
	if err != nil {
		return fmt.Errorf("upsert client %s: %w", c.ID, err)
	}
	return nil
}

// UpsertFirmMember inserts or replaces a firm-member record.
func (s *SQLiteStore) UpsertFirmMember(ctx context.Context, m domain.FirmMember) error {
	active := 0
	if m.IsActive {
		active = 1
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO firm_members (id, username, email, is_active)
VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    username = excluded.username,
    email = excluded.email,
    is_active = excluded.is_active`,
		m.ID, m.Username, m.Email, active)
	if err != nil {
		return fmt.Errorf("upsert firm member %s: %w", m.ID, err)
	}
	return nil
}

func like(query string) string { return "%" + query + "%" }
