/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package intake

import (
	"context"
	"errors"
	"testing"

	"sigflow/internal/domain"
	"sigflow/internal/roster"
)

type fakeDirectory struct {
	clients []domain.Client
	members []domain.FirmMember
}

func (d *fakeDirectory) SearchClients(_ context.Context, _ string) ([]domain.Client, error) {
	return d.clients, nil
}

func (d *fakeDirectory) SearchFirmMembers(_ context.Context, _ string) ([]domain.FirmMember, error) {
	return d.members, nil
}

func newPicker(t *testing.T) (*Picker, *roster.Roster, *fakeDirectory) {
	t.Helper()
	dir := &fakeDirectory{}
	r := roster.New()
	return New(dir, r), r, dir
}

func TestStageTransitions(t *testing.T) {
	p, _, _ := newPicker(t)
	if p.Stage() != StageChoose {
		t.Fatalf("initial stage = %s", p.Stage())
	}
	cases := []struct {
		source domain.SourceType
		want   Stage
	}{
		{domain.SourceClient, StageClient},
		{domain.SourceExternal, StageExternal},
		{domain.SourceFirm, StageFirm},
		{domain.SourceSpouseTag, StageSpouseOpts},
	}
	for _, tc := range cases {
		if err := p.Choose(tc.source); err != nil {
			t.Fatalf("choose %s: %v", tc.source, err)
		}
		if p.Stage() != tc.want {
			t.Fatalf("choose %s: stage = %s", tc.source, p.Stage())
		}
		p.Back()
		if p.Stage() != StageChoose {
			t.Fatalf("back: stage = %s", p.Stage())
		}
	}
	if err := p.Choose(domain.SourceType("vendor")); err == nil {
		t.Fatalf("unknown source accepted")
	}
}

func TestValidEmail(t *testing.T) {
	cases := []struct {
		addr string
		ok   bool
	}{
		{"jane@example.com", true},
		{"a@b.co", true},
		{"first.last@sub.example.org", true},
		{"", false},
		{"plainaddress", false},
		{"no@tld", false},
		{"spaces in@example.com", false},
		{"@example.com", false},
		{"jane@", false},
	}
	for _, tc := range cases {
		if got := ValidEmail(tc.addr); got != tc.ok {
			t.Fatalf("ValidEmail(%q) = %v, want %v", tc.addr, got, tc.ok)
		}
	}
}

func TestCommitExternal(t *testing.T) {
	p, r, _ := newPicker(t)
	p.Choose(domain.SourceExternal)

	_, err := p.CommitExternal("Jane", "not-an-email")
	var ef EmailFormatError
	if !errors.As(err, &ef) || ef.Field != "email" {
		t.Fatalf("bad email: %v", err)
	}
	if r.Len() != 0 {
		t.Fatalf("failed commit touched roster")
	}
	// the picker stays on the entry screen for correction
	if p.Stage() != StageExternal {
		t.Fatalf("stage after failed commit = %s", p.Stage())
	}

	rec, err := p.CommitExternal("Jane", "jane@example.com")
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if rec.Source != domain.SourceExternal || rec.Order != 1 {
		t.Fatalf("recipient: %+v", rec)
	}
	if p.Stage() != StageChoose {
		t.Fatalf("stage after commit = %s", p.Stage())
	}

	if _, err := p.CommitExternal("  ", "x@y.com"); err == nil {
		t.Fatalf("blank name accepted")
	}
}

func TestCommitClient(t *testing.T) {
	p, r, _ := newPicker(t)
	c := domain.Client{ID: "c-1", Name: "Acme LLC", Email: "ap@acme.com", Type: domain.ClientBusiness, CompanyName: "Acme LLC"}
	rec, err := p.CommitClient(c)
	if err != nil {
		t.Fatalf("commit client: %v", err)
	}
	if rec.Source != domain.SourceClient || rec.ClientID != "c-1" || rec.ClientType != domain.ClientBusiness {
		t.Fatalf("recipient: %+v", rec)
	}
	if r.Len() != 1 {
		t.Fatalf("roster len = %d", r.Len())
	}
}

func TestFirmMemberSearchFiltersInactive(t *testing.T) {
	p, _, dir := newPicker(t)
	dir.members = []domain.FirmMember{
		{ID: "m-1", Username: "alice", Email: "alice@firm.com", IsActive: true},
		{ID: "m-2", Username: "bob", Email: "bob@firm.com", IsActive: false},
		{ID: "m-3", Username: "carol", Email: "carol@firm.com", IsActive: true},
	}
	got, err := p.SearchFirmMembers(context.Background(), "o")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 || got[0].Username != "alice" || got[1].Username != "carol" {
		t.Fatalf("filtered members: %+v", got)
	}

	if _, err := p.CommitFirmMember(domain.FirmMember{ID: "m-2", Username: "bob", Email: "bob@firm.com"}); err == nil {
		t.Fatalf("inactive member accepted")
	}
	rec, err := p.CommitFirmMember(got[0])
	if err != nil {
		t.Fatalf("commit member: %v", err)
	}
	if rec.Name != "alice" || rec.FirmMember != "m-1" || rec.Source != domain.SourceFirm {
		t.Fatalf("recipient: %+v", rec)
	}
}

func TestCommitClientAndSpouse(t *testing.T) {
	p, r, _ := newPicker(t)
	c := domain.Client{ID: "c-7", Name: "Pat Doe", Email: "pat@example.com", Type: domain.ClientIndividual}
	primary, spouse, err := p.CommitClientAndSpouse(c)
	if err != nil {
		t.Fatalf("commit pair: %v", err)
	}
	if primary.Order != 1 || spouse.Order != 2 {
		t.Fatalf("orders: %d, %d", primary.Order, spouse.Order)
	}
	if spouse.Source != domain.SourceSpouseTag || spouse.Email != "" {
		t.Fatalf("spouse placeholder: %+v", spouse)
	}
	if spouse.ClientID != "c-7" {
		t.Fatalf("spouse not linked to client: %+v", spouse)
	}

	// the pair is independent after creation
	if err := r.Remove(primary.ID); err != nil {
		t.Fatalf("remove primary: %v", err)
	}
	if r.Len() != 1 {
		t.Fatalf("spouse removed with primary")
	}
	if r.Recipients()[0].Order != 1 {
		t.Fatalf("spouse not renumbered: %d", r.Recipients()[0].Order)
	}
}
