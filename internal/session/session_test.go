/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"sigflow/internal/domain"
	"sigflow/internal/roster"
	"sigflow/internal/submit"
	"sigflow/internal/workflow"
)

type nullDirectory struct{}

func (nullDirectory) SearchClients(context.Context, string) ([]domain.Client, error) {
	return nil, nil
}

func (nullDirectory) SearchFirmMembers(context.Context, string) ([]domain.FirmMember, error) {
	return nil, nil
}

type fakeProvider struct {
	got  *submit.Request
	err  error
	next submit.Receipt
}

func (p *fakeProvider) Submit(_ context.Context, r submit.Request) (*submit.Receipt, error) {
	p.got = &r
	if p.err != nil {
		return nil, p.err
	}
	return &p.next, nil
}

func pdf(pages int) submit.Document {
	return submit.Document{Filename: "doc.pdf", ContentType: "application/pdf", PageCount: pages}
}

func TestTemplateWizardEndToEnd(t *testing.T) {
	s, err := New(ViewTemplate, nullDirectory{}, nil)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if s.Workflow().Current() != StepDetails {
		t.Fatalf("start step = %s", s.Workflow().Current())
	}

	s.SetDetails(submit.Details{Name: "Engagement Letter", Year: 2026, Category: "Engagement"})
	if err := s.Workflow().Advance(); err != nil {
		t.Fatalf("advance to upload: %v", err)
	}

	// attaching a document completes the upload gate and auto-advances
	if err := s.AttachDocument(pdf(3)); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if s.Workflow().Current() != StepRecipients {
		t.Fatalf("upload did not auto-advance: %s", s.Workflow().Current())
	}
	if s.Board().PageCount() != 3 {
		t.Fatalf("board pages = %d", s.Board().PageCount())
	}

	jane := s.Roster().Add(roster.Draft{Name: "Jane", Email: "jane@example.com", Source: domain.SourceExternal})
	if err := s.Workflow().Advance(); err != nil {
		t.Fatalf("advance to fields: %v", err)
	}

	if _, err := s.Board().Place(domain.FieldSignature, jane.ID, 1, 20, 20); err != nil {
		t.Fatalf("place: %v", err)
	}

	provider := &fakeProvider{next: submit.Receipt{RequestID: "sr-1", Status: "queued"}}
	rec, err := s.Submit(context.Background(), provider)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if rec.RequestID != "sr-1" {
		t.Fatalf("receipt: %+v", rec)
	}
	if len(provider.got.Recipients) != 1 || len(provider.got.Fields) != 1 {
		t.Fatalf("payload: %+v", provider.got)
	}
	if provider.got.Details.Name != "Engagement Letter" || provider.got.Document.PageCount != 3 {
		t.Fatalf("payload metadata: %+v", provider.got)
	}
}

func TestSubmitListsAllIncompleteSteps(t *testing.T) {
	s, _ := New(ViewSend, nullDirectory{}, nil)
	s.SetDetails(submit.Details{Name: "Plan", Year: 2026, Category: "Advisory"})

	provider := &fakeProvider{}
	_, err := s.Submit(context.Background(), provider)
	var ve *workflow.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("incomplete submit: %v", err)
	}
	want := []workflow.Step{StepUpload, StepRecipients, StepFields}
	if len(ve.Incomplete) != len(want) {
		t.Fatalf("incomplete = %v", ve.Incomplete)
	}
	for i, step := range want {
		if ve.Incomplete[i] != step {
			t.Fatalf("incomplete = %v", ve.Incomplete)
		}
	}
	if provider.got != nil {
		t.Fatalf("provider called on incomplete workflow")
	}
}

func TestProviderFailureLeavesSessionRetryable(t *testing.T) {
	s := completeSession(t)
	boom := errors.New("provider down")
	if _, err := s.Submit(context.Background(), &fakeProvider{err: boom}); !errors.Is(err, boom) {
		t.Fatalf("provider error: %v", err)
	}
	if _, err := s.Submit(context.Background(), &fakeProvider{next: submit.Receipt{RequestID: "sr-2"}}); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

func TestRecipientsGate(t *testing.T) {
	s, _ := New(ViewTemplate, nullDirectory{}, nil)
	s.SetDetails(submit.Details{Name: "X", Year: 2026, Category: "Tax"})
	s.Workflow().Advance()
	s.AttachDocument(pdf(1))

	if err := s.Workflow().Advance(); err == nil {
		t.Fatalf("empty roster passed the recipients gate")
	}
	bad := s.Roster().Add(roster.Draft{Name: "NoMail", Source: domain.SourceExternal})
	if err := s.Workflow().Advance(); err == nil {
		t.Fatalf("missing email passed the recipients gate")
	}
	s.Roster().UpdateEmail(bad.ID, "nomail@example.com")
	// a spouse placeholder without an email is allowed through
	s.Roster().Add(roster.Draft{Name: "Spouse of NoMail", Source: domain.SourceSpouseTag})
	if err := s.Workflow().Advance(); err != nil {
		t.Fatalf("recipients gate: %v", err)
	}
}

func TestAttachDocumentValidation(t *testing.T) {
	s, _ := New(ViewTemplate, nullDirectory{}, nil)
	if err := s.AttachDocument(submit.Document{Filename: "x.png", ContentType: "image/png", PageCount: 1}); err == nil {
		t.Fatalf("image accepted as document")
	}
	if err := s.AttachDocument(submit.Document{Filename: "x.pdf", ContentType: "application/pdf", PageCount: 0}); err == nil {
		t.Fatalf("zero pages accepted")
	}
	word := submit.Document{
		Filename:    "x.docx",
		ContentType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		PageCount:   2,
	}
	if err := s.AttachDocument(word); err != nil {
		t.Fatalf("word document refused: %v", err)
	}
}

func TestZoomClamp(t *testing.T) {
	s, _ := New(ViewTemplate, nullDirectory{}, nil)
	if got := s.SetZoom(10); got != MinZoom {
		t.Fatalf("zoom floor: %d", got)
	}
	if got := s.SetZoom(500); got != MaxZoom {
		t.Fatalf("zoom cap: %d", got)
	}
	if got := s.SetZoom(150); got != 150 || s.Zoom() != 150 {
		t.Fatalf("zoom: %d", got)
	}
}

func TestEditSessionHydratesAndLocks(t *testing.T) {
	signed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ex := Existing{
		Details:  submit.Details{Name: "Prior Request", Year: 2025, Category: "Engagement"},
		Document: pdf(2),
		Order:    domain.Sequential,
		Recipients: []domain.Recipient{
			{ID: "r-1", Name: "Signed Sam", Email: "sam@example.com", Color: "#7C3AED", Source: domain.SourceExternal, SignedAt: &signed},
			{ID: "r-2", Name: "Pending Pat", Email: "pat@example.com", Color: "#3B82F6", Source: domain.SourceExternal},
		},
		Fields: []domain.SignatureField{
			{ID: "f-1", Type: domain.FieldSignature, RecipientID: "r-1", Page: 1, X: 10, Y: 10, Width: 140, Height: 50},
		},
	}
	s, err := NewFromExisting(ViewEdit, ex, nullDirectory{}, nil)
	if err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	if s.Workflow().Current() != StepRecipients {
		t.Fatalf("edit wizard starts at %s", s.Workflow().Current())
	}
	if s.Roster().Len() != 2 || s.Board().Len() != 1 || s.Board().PageCount() != 2 {
		t.Fatalf("hydrated state wrong")
	}
	// orders are renumbered positionally on load
	if s.Roster().Recipients()[0].Order != 1 || s.Roster().Recipients()[1].Order != 2 {
		t.Fatalf("orders: %+v", s.Roster().Recipients())
	}

	var locked roster.LockedRecipientError
	if err := s.Roster().Remove("r-1"); !errors.As(err, &locked) {
		t.Fatalf("signed recipient removable: %v", err)
	}
	if err := s.Roster().Remove("r-2"); err != nil {
		t.Fatalf("pending recipient stuck: %v", err)
	}

	if _, err := New(ViewEdit, nullDirectory{}, nil); err == nil {
		t.Fatalf("edit session creatable without existing state")
	}
	if _, err := NewFromExisting(ViewTemplate, ex, nullDirectory{}, nil); err == nil {
		t.Fatalf("template session creatable from existing state")
	}
}

func TestManagerSerializesAccess(t *testing.T) {
	m := NewManager(nullDirectory{}, nil)
	s, err := m.Create(ViewTemplate)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if m.Len() != 1 {
		t.Fatalf("manager len = %d", m.Len())
	}
	if err := m.With(s.ID, func(got *Session) error {
		if got.ID != s.ID {
			t.Fatalf("wrong session")
		}
		return nil
	}); err != nil {
		t.Fatalf("with: %v", err)
	}
	if err := m.With("session-missing", func(*Session) error { return nil }); err == nil {
		t.Fatalf("unknown session found")
	}
	m.Delete(s.ID)
	if m.Len() != 0 {
		t.Fatalf("delete failed")
	}
}

func completeSession(t *testing.T) *Session {
	t.Helper()
	s, err := New(ViewTemplate, nullDirectory{}, nil)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	s.SetDetails(submit.Details{Name: "Complete", Year: 2026, Category: "Tax"})
	s.Workflow().Advance()
	s.AttachDocument(pdf(1))
	rec := s.Roster().Add(roster.Draft{Name: "Jane", Email: "jane@example.com", Source: domain.SourceExternal})
	s.Workflow().Advance()
	if _, err := s.Board().Place(domain.FieldSignature, rec.ID, 1, 10, 10); err != nil {
		t.Fatalf("place: %v", err)
	}
	return s
}
