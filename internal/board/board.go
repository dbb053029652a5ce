/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package board maintains the placed signature fields of one preparation
// session, partitioned by page. Placement and move coordinates are clamped to
// [0,85] x [0,90] percent so default-sized fields stay on canvas; resize is
// floored at the geometry minimums. Z-order is creation order.
package board

import (
	"fmt"
	"iter"

	"github.com/google/uuid"

	"sigflow/internal/domain"
	"sigflow/internal/geometry"
)

// Placement clamp bounds, in percent of canvas.
const (
	MaxXPercent = 85
	MaxYPercent = 90
)

// UnresolvedReferenceError reports a field operation against a recipient id
// that does not resolve to a live recipient. Cascade deletes make this
// defensive rather than expected.
type UnresolvedReferenceError struct {
	RecipientID string
}

func (e UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("recipient %s does not resolve to a live recipient", e.RecipientID)
}

// RecipientResolver answers liveness checks for recipient references; the
// session wires the roster here.
type RecipientResolver interface {
	Has(id string) bool
}

// Board is the field collection. Not safe for concurrent use; a session owns
// exactly one board.
type Board struct {
	fields    []domain.SignatureField
	resolver  RecipientResolver
	pageCount int
	newID     func() string
}

// New returns an empty board. pageCount bounds the page index of placements;
// zero means "no document yet" and refuses all placements.
func New(resolver RecipientResolver, pageCount int) *Board {
	return &Board{
		resolver:  resolver,
		pageCount: pageCount,
		newID:     func() string { return "field-" + uuid.NewString() },
	}
}

// SetIDFunc overrides id generation; intended for tests.
func (b *Board) SetIDFunc(fn func() string) { b.newID = fn }

// SetPageCount updates the page bound when a document is attached or
// replaced. Fields on now-out-of-range pages are dropped.
func (b *Board) SetPageCount(n int) {
	b.pageCount = n
	kept := b.fields[:0]
	for _, f := range b.fields {
		if f.Page <= n {
			kept = append(kept, f)
		}
	}
	b.fields = kept
}

// Place creates a field of the given type for the recipient at the clamped
// coordinates, with the type's default size and label. Only signature fields
// default to required.
func (b *Board) Place(t domain.FieldType, recipientID string, page int, xPct, yPct float64) (domain.SignatureField, error) {
	if !t.Valid() {
		return domain.SignatureField{}, fmt.Errorf("unknown field type %q", t)
	}
	if b.resolver == nil || !b.resolver.Has(recipientID) {
		return domain.SignatureField{}, UnresolvedReferenceError{RecipientID: recipientID}
	}
	if page < 1 || page > b.pageCount {
		return domain.SignatureField{}, fmt.Errorf("page %d out of range 1..%d", page, b.pageCount)
	}
	x, y := geometry.ClampPercent(xPct, yPct, MaxXPercent, MaxYPercent)
	f := domain.SignatureField{
		ID:          b.newID(),
		Type:        t,
		Label:       t.Label(),
		Required:    t == domain.FieldSignature,
		RecipientID: recipientID,
		Page:        page,
		X:           x,
		Y:           y,
		Width:       t.DefaultWidth(),
		Height:      t.DefaultHeight(),
	}
	b.fields = append(b.fields, f)
	return f, nil
}

// Move repositions a field, applying the same clamping policy as Place.
func (b *Board) Move(fieldID string, xPct, yPct float64) error {
	i, err := b.index(fieldID)
	if err != nil {
		return err
	}
	b.fields[i].X, b.fields[i].Y = geometry.ClampPercent(xPct, yPct, MaxXPercent, MaxYPercent)
	return nil
}

// Resize changes a field's size, floored at the geometry minimums. There is
// no maximum clamp; oversized fields may extend off canvas.
func (b *Board) Resize(fieldID string, width, height float64) error {
	i, err := b.index(fieldID)
	if err != nil {
		return err
	}
	s := geometry.FloorSize(geometry.Size{W: width, H: height})
	b.fields[i].Width, b.fields[i].Height = s.W, s.H
	return nil
}

// Delete removes a field by id.
func (b *Board) Delete(fieldID string) error {
	i, err := b.index(fieldID)
	if err != nil {
		return err
	}
	b.fields = append(b.fields[:i], b.fields[i+1:]...)
	return nil
}

// DeleteByRecipient removes every field bound to the recipient and returns
// the number removed. Invoked by the roster on recipient removal.
func (b *Board) DeleteByRecipient(recipientID string) int {
	kept := b.fields[:0]
	removed := 0
	for _, f := range b.fields {
		if f.RecipientID == recipientID {
			removed++
			continue
		}
		kept = append(kept, f)
	}
	b.fields = kept
	return removed
}

// FieldsForPage returns a restartable view over the fields of one page, in
// creation order.
func (b *Board) FieldsForPage(page int) iter.Seq[domain.SignatureField] {
	return func(yield func(domain.SignatureField) bool) {
		for _, f := range b.fields {
			if f.Page != page {
				continue
			}
			if !yield(f) {
				return
			}
		}
	}
}

// Fields returns a copy of all fields in creation order.
func (b *Board) Fields() []domain.SignatureField {
	out := make([]domain.SignatureField, len(b.fields))
	copy(out, b.fields)
	return out
}

// ByID returns the field with the given id.
func (b *Board) ByID(fieldID string) (domain.SignatureField, bool) {
	i, err := b.index(fieldID)
	if err != nil {
		return domain.SignatureField{}, false
	}
	return b.fields[i], true
}

// Len returns the number of placed fields across all pages.
func (b *Board) Len() int { return len(b.fields) }

// PageCount returns the current page bound.
func (b *Board) PageCount() int { return b.pageCount }

// Hydrate replaces the board contents with fields loaded from an existing
// request.
func (b *Board) Hydrate(fields []domain.SignatureField) {
	b.fields = make([]domain.SignatureField, len(fields))
	copy(b.fields, fields)
}

func (b *Board) index(fieldID string) (int, error) {
	for i, f := range b.fields {
		if f.ID == fieldID {
			return i, nil
		}
	}
	return -1, fmt.Errorf("field %s not found", fieldID)
}
