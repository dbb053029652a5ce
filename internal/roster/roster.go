/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package roster maintains the ordered recipient collection of one signature
// preparation session. Order values are kept as a contiguous 1..N permutation
// equal to array index + 1 at all times; colors are assigned round-robin at
// insertion and never recomputed on reorder.
package roster

import (
	"fmt"

	"github.com/google/uuid"

	"sigflow/internal/domain"
)

// LockedRecipientError reports a refused mutation of a recipient that has
// already signed.
type LockedRecipientError struct {
	ID string
}

func (e LockedRecipientError) Error() string {
	return fmt.Sprintf("recipient %s has signed and is locked", e.ID)
}

// FieldCascader is the board-side hook the roster invokes when a recipient is
// removed, so no field can reference a dead recipient.
type FieldCascader interface {
	DeleteByRecipient(recipientID string) int
}

// Draft carries the caller-supplied part of a new recipient; id, order and
// color are assigned by the roster.
type Draft struct {
	Name        string
	Email       string
	Source      domain.SourceType
	ClientID    string
	ClientType  domain.ClientType
	CompanyName string
	FirmMember  string
}

// Roster is the ordered recipient sequence plus the roster-level signing
// order flag. Not safe for concurrent use; a session owns exactly one roster.
type Roster struct {
	recipients   []domain.Recipient
	signingOrder domain.SigningOrder
	cascade      FieldCascader
	newID        func() string
}

// New returns an empty roster with sequential signing order.
func New() *Roster {
	return &Roster{
		signingOrder: domain.Sequential,
		newID:        func() string { return "recipient-" + uuid.NewString() },
	}
}

// SetCascader wires the field board used for cascade deletes.
func (r *Roster) SetCascader(c FieldCascader) { r.cascade = c }

// SetIDFunc overrides id generation; intended for tests.
func (r *Roster) SetIDFunc(fn func() string) { r.newID = fn }

// Add appends a recipient built from the draft: order = length+1, color from
// the palette by current length.
func (r *Roster) Add(d Draft) domain.Recipient {
	rec := r.fromDraft(d, len(r.recipients))
	r.recipients = append(r.recipients, rec)
	return rec
}

// AddPair appends two recipients atomically with consecutive orders and
// consecutive palette colors. Used for the client & spouse intake branch.
// Once created the two are independent entities.
func (r *Roster) AddPair(primary, secondary Draft) [2]domain.Recipient {
	n := len(r.recipients)
	pair := [2]domain.Recipient{
		r.fromDraft(primary, n),
		r.fromDraft(secondary, n+1),
	}
	r.recipients = append(r.recipients, pair[0], pair[1])
	return pair
}

func (r *Roster) fromDraft(d Draft, index int) domain.Recipient {
	return domain.Recipient{
		ID:          r.newID(),
		Name:        d.Name,
		Email:       d.Email,
		Order:       index + 1,
		Color:       domain.PaletteColor(index),
		Source:      d.Source,
		ClientID:    d.ClientID,
		ClientType:  d.ClientType,
		CompanyName: d.CompanyName,
		FirmMember:  d.FirmMember,
	}
}

// Remove deletes the recipient, renumbers the remainder and cascades the
// delete to every field bound to the id. Refused with LockedRecipientError
// when the recipient has already signed.
func (r *Roster) Remove(id string) error {
	i, rec, err := r.find(id)
	if err != nil {
		return err
	}
	if rec.Locked() {
		return LockedRecipientError{ID: id}
	}
	r.recipients = append(r.recipients[:i], r.recipients[i+1:]...)
	r.renumber()
	if r.cascade != nil {
		r.cascade.DeleteByRecipient(id)
	}
	return nil
}

// Reorder moves the element at from to position to and renumbers. A no-op
// when from == to.
func (r *Roster) Reorder(from, to int) error {
	n := len(r.recipients)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("reorder indices out of range: %d -> %d with %d recipients", from, to, n)
	}
	if from == to {
		return nil
	}
	rec := r.recipients[from]
	rest := append(r.recipients[:from], r.recipients[from+1:]...)
	r.recipients = append(rest[:to], append([]domain.Recipient{rec}, rest[to:]...)...)
	r.renumber()
	return nil
}

// UpdateEmail changes the recipient email. Format validation is the intake
// sub-flow's concern, not the roster's. Refused for locked recipients.
func (r *Roster) UpdateEmail(id, email string) error {
	i, rec, err := r.find(id)
	if err != nil {
		return err
	}
	if rec.Locked() {
		return LockedRecipientError{ID: id}
	}
	r.recipients[i].Email = email
	return nil
}

// UpdateName changes the recipient display name. Used when a spouse-tag
// placeholder is resolved to a real person.
func (r *Roster) UpdateName(id, name string) error {
	i, rec, err := r.find(id)
	if err != nil {
		return err
	}
	if rec.Locked() {
		return LockedRecipientError{ID: id}
	}
	r.recipients[i].Name = name
	return nil
}

// SigningOrder returns the roster-level flag.
func (r *Roster) SigningOrder() domain.SigningOrder { return r.signingOrder }

// SetSigningOrder sets the roster-level flag. Unknown values are ignored.
func (r *Roster) SetSigningOrder(o domain.SigningOrder) {
	if o == domain.Sequential || o == domain.Simultaneous {
		r.signingOrder = o
	}
}

// Has reports whether id references a live recipient. Satisfies the field
// board's resolver.
func (r *Roster) Has(id string) bool {
	_, _, err := r.find(id)
	return err == nil
}

// ByID returns the recipient with the given id.
func (r *Roster) ByID(id string) (domain.Recipient, bool) {
	_, rec, err := r.find(id)
	if err != nil {
		return domain.Recipient{}, false
	}
	return rec, true
}

// Len returns the number of recipients.
func (r *Roster) Len() int { return len(r.recipients) }

// Recipients returns a copy of the ordered sequence.
func (r *Roster) Recipients() []domain.Recipient {
	out := make([]domain.Recipient, len(r.recipients))
	copy(out, r.recipients)
	return out
}

// Hydrate replaces the roster contents with recipients loaded from an
// existing request (edit and verify contexts). Orders are normalized to the
// contiguous invariant; colors and audit data are kept verbatim.
func (r *Roster) Hydrate(recipients []domain.Recipient) {
	r.recipients = make([]domain.Recipient, len(recipients))
	copy(r.recipients, recipients)
	r.renumber()
}

func (r *Roster) renumber() {
	for i := range r.recipients {
		r.recipients[i].Order = i + 1
	}
}

func (r *Roster) find(id string) (int, domain.Recipient, error) {
	for i, rec := range r.recipients {
		if rec.ID == id {
			return i, rec, nil
		}
	}
	return -1, domain.Recipient{}, fmt.Errorf("recipient %s not found", id)
}
