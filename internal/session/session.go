/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package session assembles one signature-preparation session: roster, field
// board, wizard machine, pointer controller and recipient picker, wired
// together with the gating predicates that drive the workflow.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"sigflow/internal/board"
	"sigflow/internal/domain"
	"sigflow/internal/intake"
	"sigflow/internal/interact"
	"sigflow/internal/roster"
	"sigflow/internal/submit"
	"sigflow/internal/workflow"
)

// ViewKind selects the wizard variant. Template and send sessions start
// empty and walk all four steps; edit and verify sessions hydrate from an
// existing request and skip details and upload.
type ViewKind string

const (
	ViewTemplate ViewKind = "template"
	ViewSend     ViewKind = "send"
	ViewEdit     ViewKind = "edit"
	ViewVerify   ViewKind = "verify"
)

// Valid reports whether k names a known view kind.
func (k ViewKind) Valid() bool {
	switch k {
	case ViewTemplate, ViewSend, ViewEdit, ViewVerify:
		return true
	}
	return false
}

// Wizard step names.
const (
	StepDetails    workflow.Step = "details"
	StepUpload     workflow.Step = "upload"
	StepRecipients workflow.Step = "recipients"
	StepFields     workflow.Step = "fields"
)

// Zoom bounds, in percent.
const (
	MinZoom = 25
	MaxZoom = 200
)

// documentTypes are the upload content types accepted for field placement.
var documentTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

// Submitter sends a finished request to the signing provider.
type Submitter interface {
	Submit(ctx context.Context, r submit.Request) (*submit.Receipt, error)
}

// Session is one preparation workflow instance. Callers must serialize
// access; the Manager hands out the per-session lock.
type Session struct {
	ID        string
	Kind      ViewKind
	CreatedAt time.Time

	details  submit.Details
	document *submit.Document
	zoom     int

	roster     *roster.Roster
	board      *board.Board
	machine    *workflow.Machine
	controller *interact.Controller
	picker     *intake.Picker

	log *slog.Logger
}

// New creates an empty template or send session at the details step.
func New(kind ViewKind, dir intake.Directory, log *slog.Logger) (*Session, error) {
	if kind != ViewTemplate && kind != ViewSend {
		return nil, fmt.Errorf("view kind %q starts from an existing request", kind)
	}
	s := newBare(kind, dir, log)
	s.details = submit.DefaultDetails()
	m, err := workflow.New(
		[]workflow.Step{StepDetails, StepUpload, StepRecipients, StepFields},
		s.gates(),
	)
	if err != nil {
		return nil, err
	}
	s.machine = m
	return s, nil
}

// Existing is the persisted state an edit or verify session hydrates from.
type Existing struct {
	Details    submit.Details
	Document   submit.Document
	Order      domain.SigningOrder
	Recipients []domain.Recipient
	Fields     []domain.SignatureField
}

// NewFromExisting creates an edit or verify session over a loaded request.
// The shorter wizard starts at recipients; details and upload are fixed.
func NewFromExisting(kind ViewKind, ex Existing, dir intake.Directory, log *slog.Logger) (*Session, error) {
	if kind != ViewEdit && kind != ViewVerify {
		return nil, fmt.Errorf("view kind %q starts empty", kind)
	}
	s := newBare(kind, dir, log)
	s.details = ex.Details
	doc := ex.Document
	s.document = &doc
	s.roster.Hydrate(ex.Recipients)
	s.roster.SetSigningOrder(ex.Order)
	s.board.SetPageCount(doc.PageCount)
	s.board.Hydrate(ex.Fields)
	m, err := workflow.New([]workflow.Step{StepRecipients, StepFields}, s.gates())
	if err != nil {
		return nil, err
	}
	s.machine = m
	return s, nil
}

func newBare(kind ViewKind, dir intake.Directory, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	r := roster.New()
	b := board.New(r, 0)
	r.SetCascader(b)
	s := &Session{
		ID:         "session-" + uuid.NewString(),
		Kind:       kind,
		CreatedAt:  time.Now().UTC(),
		zoom:       100,
		roster:     r,
		board:      b,
		controller: interact.New(r, b),
		picker:     intake.New(dir, r),
	}
	s.log = log.With(slog.String("session", s.ID), slog.String("view", string(kind)))
	return s
}

// gates builds the per-step completion predicates over live session state.
func (s *Session) gates() map[workflow.Step]workflow.Predicate {
	return map[workflow.Step]workflow.Predicate{
		StepDetails:    s.detailsComplete,
		StepUpload:     func() bool { return s.document != nil },
		StepRecipients: s.recipientsComplete,
		StepFields:     func() bool { return s.board.Len() > 0 },
	}
}

func (s *Session) detailsComplete() bool {
	return s.details.Name != "" && s.details.Year >= 1990 && s.details.Category != ""
}

// recipientsComplete requires at least one recipient, each with a name and
// either a well-formed email or a spouse placeholder still awaiting one.
func (s *Session) recipientsComplete() bool {
	recs := s.roster.Recipients()
	if len(recs) == 0 {
		return false
	}
	for _, r := range recs {
		if r.Name == "" {
			return false
		}
		if r.Source == domain.SourceSpouseTag && r.Email == "" {
			continue
		}
		if !intake.ValidEmail(r.Email) {
			return false
		}
	}
	return true
}

// SetDetails updates the request metadata. Completing the details does not
// auto-advance; the user confirms them explicitly.
func (s *Session) SetDetails(d submit.Details) { s.details = d }

// Details returns the request metadata.
func (s *Session) Details() submit.Details { return s.details }

// AttachDocument records the uploaded file, sizes the board to its pages and
// refreshes the wizard, which auto-advances past the upload step.
func (s *Session) AttachDocument(d submit.Document) error {
	if !documentTypes[d.ContentType] {
		return fmt.Errorf("unsupported document type %q", d.ContentType)
	}
	if d.PageCount < 1 {
		return fmt.Errorf("document has no pages")
	}
	s.document = &d
	s.board.SetPageCount(d.PageCount)
	s.log.Info("document attached", slog.String("file", d.Filename), slog.Int("pages", d.PageCount))
	s.machine.Refresh()
	return nil
}

// Document returns the attached document, or nil.
func (s *Session) Document() *submit.Document { return s.document }

// SetZoom clamps and stores the canvas zoom and forwards it to the pointer
// controller so resize deltas stay in logical pixels.
func (s *Session) SetZoom(percent int) int {
	if percent < MinZoom {
		percent = MinZoom
	}
	if percent > MaxZoom {
		percent = MaxZoom
	}
	s.zoom = percent
	s.controller.SetZoom(percent)
	return percent
}

// Zoom returns the current zoom percentage.
func (s *Session) Zoom() int { return s.zoom }

// Refresh re-evaluates the current step's gate after roster or board edits.
func (s *Session) Refresh() bool { return s.machine.Refresh() }

// Roster returns the recipient roster.
func (s *Session) Roster() *roster.Roster { return s.roster }

// Board returns the field board.
func (s *Session) Board() *board.Board { return s.board }

// Workflow returns the wizard machine.
func (s *Session) Workflow() *workflow.Machine { return s.machine }

// Controller returns the pointer controller.
func (s *Session) Controller() *interact.Controller { return s.controller }

// Picker returns the recipient picker.
func (s *Session) Picker() *intake.Picker { return s.picker }

// Payload assembles the provider request from the session state.
func (s *Session) Payload() submit.Request {
	var doc submit.Document
	if s.document != nil {
		doc = *s.document
	}
	return submit.Request{
		Details:      s.details,
		Document:     doc,
		SigningOrder: s.roster.SigningOrder(),
		Recipients:   s.roster.Recipients(),
		Fields:       s.board.Fields(),
	}
}

// Submit validates every wizard step and sends the request to the provider.
// Incomplete steps surface as a workflow.ValidationError; provider failures
// leave the session intact for retry.
func (s *Session) Submit(ctx context.Context, provider Submitter) (*submit.Receipt, error) {
	var receipt *submit.Receipt
	err := s.machine.Submit(func() error {
		rec, err := provider.Submit(ctx, s.Payload())
		if err != nil {
			return err
		}
		receipt = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("request submitted", slog.String("request", receipt.RequestID), slog.String("status", receipt.Status))
	return receipt, nil
}
