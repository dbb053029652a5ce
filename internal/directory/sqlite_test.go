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
	"path/filepath"
	"testing"

	"sigflow/internal/domain"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "dir", "directory.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seed(t *testing.T, s *SQLiteStore) {
	t.Helper()
	ctx := context.Background()
	clients := []domain.Client{
		{ID: "c-1", Name: "Pat Doe", Email: "pat@example.com", Type: domain.ClientIndividual},
		{ID: "c-2", Name: "Acme LLC", Email: "ap@acme.com", Type: domain.ClientBusiness, CompanyName: "Acme LLC"},
		{ID: "c-3", Name: "Dana Patel", Email: "dana@example.com", Type: domain.ClientIndividual},
	}
	for _, c := range clients {
		if err := s.UpsertClient(ctx, c); err != nil {
			t.Fatalf("upsert client: %v", err)
		}
	}
	members := []domain.FirmMember{
		{ID: "m-1", Username: "alice", Email: "alice@firm.com", IsActive: true},
		{ID: "m-2", Username: "bob", Email: "bob@firm.com", IsActive: false},
	}
	for _, m := range members {
		if err := s.UpsertFirmMember(ctx, m); err != nil {
			t.Fatalf("upsert member: %v", err)
		}
	}
}

func TestSearchClientsCaseInsensitive(t *testing.T) {
	s := openTestStore(t)
	seed(t, s)
	ctx := context.Background()

	got, err := s.SearchClients(ctx, "pat")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	// matches "Pat Doe" by name and "Dana Patel" by substring, ordered by name
	if len(got) != 2 || got[0].Name != "Dana Patel" || got[1].Name != "Pat Doe" {
		t.Fatalf("results: %+v", got)
	}

	got, err = s.SearchClients(ctx, "ACME")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].ID != "c-2" || got[0].Type != domain.ClientBusiness {
		t.Fatalf("company match: %+v", got)
	}

	got, err = s.SearchClients(ctx, "")
	if err != nil {
		t.Fatalf("search all: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("empty query returned %d rows", len(got))
	}
}

func TestSearchFirmMembersIncludesInactive(t *testing.T) {
	s := openTestStore(t)
	seed(t, s)

	got, err := s.SearchFirmMembers(context.Background(), "firm.com")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("results: %+v", got)
	}
	if got[0].Username != "alice" || !got[0].IsActive {
		t.Fatalf("alice: %+v", got[0])
	}
	if got[1].Username != "bob" || got[1].IsActive {
		t.Fatalf("bob: %+v", got[1])
	}
}

func TestUpsertReplaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.UpsertClient(ctx, domain.Client{ID: "c-9", Name: "Old Name", Type: domain.ClientIndividual}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.UpsertClient(ctx, domain.Client{ID: "c-9", Name: "New Name", Email: "new@example.com", Type: domain.ClientIndividual}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	all, err := s.SearchClients(ctx, "Name")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(all) != 1 || all[0].Name != "New Name" || all[0].Email != "new@example.com" {
		t.Fatalf("upsert result: %+v", all)
	}
}
