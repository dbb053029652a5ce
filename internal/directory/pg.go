/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package directory

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"sigflow/internal/domain"
)

// PGStore reads the shared practice directory in Postgres. It is read-only;
// the directory is maintained by the practice management system, not by us.
type PGStore struct {
	db *sql.DB
}

// OpenPG connects to the practice directory and verifies the connection.
func OpenPG(ctx context.Context, dsn string) (*PGStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open practice directory: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping practice directory: %w", err)
	}
	return &PGStore{db: db}, nil
}

// Close closes the underlying pool.
func (s *PGStore) Close() error { return s.db.Close() }

// SearchClients matches on name, email and company name via ILIKE.
func (s *PGStore) SearchClients(ctx context.Context, query string) ([]domain.Client, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, COALESCE(email, ''), COALESCE(client_type, 'Individual'), COALESCE(company_name, '')
FROM clients
WHERE name ILIKE $1 OR email ILIKE $1 OR company_name ILIKE $1
ORDER BY name`, like(query))
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

// SearchFirmMembers matches on username and email via ILIKE.
func (s *PGStore) SearchFirmMembers(ctx context.Context, query string) ([]domain.FirmMember, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, username, COALESCE(email, ''), is_active
FROM firm_members
WHERE username ILIKE $1 OR email ILIKE $1
ORDER BY username`, like(query))
	if err != nil {
		return nil, fmt.Errorf("search firm members: %w", err)
	}
	defer rows.Close()

	var out []domain.FirmMember
	for rows.Next() {
		var m domain.FirmMember
		if err := rows.Scan(&m.ID, &m.Username, &m.Email, &m.IsActive); err != nil {
			return nil, fmt.Errorf("scan firm member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
