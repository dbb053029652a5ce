/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package board

import (
	"errors"
	"testing"

	"sigflow/internal/domain"
	"sigflow/internal/geometry"
)

type setResolver map[string]bool

func (s setResolver) Has(id string) bool { return s[id] }

func newTestBoard(pages int, recipients ...string) *Board {
	res := setResolver{}
	for _, r := range recipients {
		res[r] = true
	}
	return New(res, pages)
}

func TestPlaceClampsAndDefaults(t *testing.T) {
	b := newTestBoard(2, "rx")
	f, err := b.Place(domain.FieldSignature, "rx", 1, 90, 95)
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if f.X != 85 || f.Y != 90 {
		t.Fatalf("clamp: got (%v, %v), want (85, 90)", f.X, f.Y)
	}
	if f.Width != 140 || f.Height != 50 {
		t.Fatalf("signature defaults: got %vx%v", f.Width, f.Height)
	}
	if !f.Required || f.Label != "Signature" {
		t.Fatalf("signature field: required=%v label=%q", f.Required, f.Label)
	}

	cb, err := b.Place(domain.FieldCheckbox, "rx", 2, 10, 10)
	if err != nil {
		t.Fatalf("place checkbox: %v", err)
	}
	if cb.Width != 20 || cb.Height != 20 || cb.Required {
		t.Fatalf("checkbox defaults: %+v", cb)
	}
}

func TestPlaceRefusals(t *testing.T) {
	b := newTestBoard(1, "rx")
	if _, err := b.Place(domain.FieldType("stamp"), "rx", 1, 0, 0); err == nil {
		t.Fatalf("unknown type accepted")
	}
	var unresolved UnresolvedReferenceError
	if _, err := b.Place(domain.FieldText, "ghost", 1, 0, 0); !errors.As(err, &unresolved) {
		t.Fatalf("dead recipient: %v", err)
	}
	if _, err := b.Place(domain.FieldText, "rx", 2, 0, 0); err == nil {
		t.Fatalf("out-of-range page accepted")
	}
	if _, err := b.Place(domain.FieldText, "rx", 0, 0, 0); err == nil {
		t.Fatalf("page 0 accepted")
	}
}

func TestMoveClampRoundTripStable(t *testing.T) {
	b := newTestBoard(1, "rx")
	f, err := b.Place(domain.FieldText, "rx", 1, 10, 10)
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if err := b.Move(f.ID, 120, -5); err != nil {
		t.Fatalf("move: %v", err)
	}
	got, _ := b.ByID(f.ID)
	if got.X != 85 || got.Y != 0 {
		t.Fatalf("clamped move: (%v, %v)", got.X, got.Y)
	}
	// re-applying the clamped values is a no-op
	if err := b.Move(f.ID, got.X, got.Y); err != nil {
		t.Fatalf("re-move: %v", err)
	}
	again, _ := b.ByID(f.ID)
	if again.X != got.X || again.Y != got.Y {
		t.Fatalf("clamp round trip drifted: (%v, %v)", again.X, again.Y)
	}
}

func TestResizeFloors(t *testing.T) {
	b := newTestBoard(1, "rx")
	f, _ := b.Place(domain.FieldSignature, "rx", 1, 10, 10)
	if err := b.Resize(f.ID, 5, 5); err != nil {
		t.Fatalf("resize: %v", err)
	}
	got, _ := b.ByID(f.ID)
	if got.Width != geometry.MinFieldWidth || got.Height != geometry.MinFieldHeight {
		t.Fatalf("floors: %vx%v", got.Width, got.Height)
	}
	// no maximum clamp
	if err := b.Resize(f.ID, 5000, 4000); err != nil {
		t.Fatalf("resize large: %v", err)
	}
	got, _ = b.ByID(f.ID)
	if got.Width != 5000 || got.Height != 4000 {
		t.Fatalf("oversize rejected: %vx%v", got.Width, got.Height)
	}
}

func TestDeleteByRecipientAcrossPages(t *testing.T) {
	b := newTestBoard(3, "victim", "other")
	b.Place(domain.FieldSignature, "victim", 1, 10, 10)
	b.Place(domain.FieldInitial, "victim", 2, 20, 20)
	b.Place(domain.FieldDateSigned, "victim", 2, 30, 30)
	keep, _ := b.Place(domain.FieldSignature, "other", 1, 40, 40)

	if n := b.DeleteByRecipient("victim"); n != 3 {
		t.Fatalf("deleted %d, want 3", n)
	}
	for page := 1; page <= 3; page++ {
		for f := range b.FieldsForPage(page) {
			if f.RecipientID == "victim" {
				t.Fatalf("orphan field on page %d: %+v", page, f)
			}
		}
	}
	if _, ok := b.ByID(keep.ID); !ok {
		t.Fatalf("unrelated field deleted")
	}
}

func TestFieldsForPageRestartable(t *testing.T) {
	b := newTestBoard(2, "rx")
	b.Place(domain.FieldText, "rx", 1, 1, 1)
	b.Place(domain.FieldText, "rx", 2, 2, 2)
	b.Place(domain.FieldText, "rx", 1, 3, 3)

	view := b.FieldsForPage(1)
	count := func() int {
		n := 0
		for range view {
			n++
		}
		return n
	}
	if count() != 2 || count() != 2 {
		t.Fatalf("page view not restartable")
	}
	// early break must not poison the view
	for range view {
		break
	}
	if count() != 2 {
		t.Fatalf("view broken after early exit")
	}
}

func TestSetPageCountDropsOutOfRange(t *testing.T) {
	b := newTestBoard(3, "rx")
	b.Place(domain.FieldText, "rx", 1, 1, 1)
	b.Place(domain.FieldText, "rx", 3, 1, 1)
	b.SetPageCount(2)
	if b.Len() != 1 {
		t.Fatalf("fields on dropped pages kept: %d", b.Len())
	}
}

func TestDelete(t *testing.T) {
	b := newTestBoard(1, "rx")
	f, _ := b.Place(domain.FieldText, "rx", 1, 1, 1)
	if err := b.Delete(f.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := b.Delete(f.ID); err == nil {
		t.Fatalf("double delete should fail")
	}
	if b.Len() != 0 {
		t.Fatalf("board not empty")
	}
}
