/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package interact translates a raw pointer-event stream into roster reorder
// and board move/resize calls. It is a small state machine over the mutually
// exclusive transient states idle, dragging and resizing, plus an independent
// roster-reorder state (roster drags happen over the list surface, field
// drags over the canvas; the two never overlap).
package interact

import (
	"fmt"

	"sigflow/internal/board"
	"sigflow/internal/domain"
	"sigflow/internal/geometry"
	"sigflow/internal/roster"
)

// State is the canvas-side transient state.
type State int

const (
	Idle State = iota
	Dragging
	Resizing
)

func (s State) String() string {
	switch s {
	case Dragging:
		return "dragging"
	case Resizing:
		return "resizing"
	}
	return "idle"
}

// Controller owns the transient interaction state of one session. Not safe
// for concurrent use.
type Controller struct {
	roster *roster.Roster
	board  *board.Board

	state       State
	dragField   string
	dragOffset  geometry.Pt // pointer minus field top-left, in pixels
	resizeField string
	resizeStart geometry.Pt
	resizeSize  geometry.Size

	reorderFrom int // -1 when no roster drag is active

	armedType      domain.FieldType // "" when nothing armed
	armedRecipient string

	zoomPercent int

	// suppressClick is set when a pointer-up resolved a drag or resize, so
	// the same gesture cannot also register as a placement click.
	suppressClick bool
}

// New returns an idle controller bound to the session's roster and board.
func New(r *roster.Roster, b *board.Board) *Controller {
	return &Controller{roster: r, board: b, reorderFrom: -1, zoomPercent: 100}
}

// State returns the canvas-side transient state.
func (c *Controller) State() State { return c.state }

// SetZoom sets the zoom percentage used to scale resize deltas.
func (c *Controller) SetZoom(percent int) {
	if percent > 0 {
		c.zoomPercent = percent
	}
}

// ArmField selects the field type for the next placement click.
func (c *Controller) ArmField(t domain.FieldType) error {
	if !t.Valid() {
		return fmt.Errorf("unknown field type %q", t)
	}
	c.armedType = t
	return nil
}

// ArmRecipient selects the recipient the next placement binds to.
func (c *Controller) ArmRecipient(id string) error {
	if !c.roster.Has(id) {
		return fmt.Errorf("recipient %s not found", id)
	}
	c.armedRecipient = id
	return nil
}

// Armed returns the currently armed field type and recipient.
func (c *Controller) Armed() (domain.FieldType, string) {
	return c.armedType, c.armedRecipient
}

// DisarmField clears the armed field type.
func (c *Controller) DisarmField() { c.armedType = "" }

// FieldDown begins a field drag. The offset between pointer and field
// top-left is captured so the field does not jump to the pointer.
func (c *Controller) FieldDown(fieldID string, pointer geometry.Pt, canvas geometry.CanvasRect) error {
	if c.state != Idle {
		return nil
	}
	f, ok := c.board.ByID(fieldID)
	if !ok {
		return fmt.Errorf("field %s not found", fieldID)
	}
	topLeft := geometry.PercentToPixel(f.X, f.Y, canvas)
	c.state = Dragging
	c.dragField = fieldID
	c.dragOffset = geometry.Pt{X: pointer.X - topLeft.X, Y: pointer.Y - topLeft.Y}
	return nil
}

// ResizeDown begins a resize from the field's handle, capturing the start
// pointer and start size.
func (c *Controller) ResizeDown(fieldID string, pointer geometry.Pt) error {
	if c.state != Idle {
		return nil
	}
	f, ok := c.board.ByID(fieldID)
	if !ok {
		return fmt.Errorf("field %s not found", fieldID)
	}
	c.state = Resizing
	c.resizeField = fieldID
	c.resizeStart = pointer
	c.resizeSize = geometry.Size{W: f.Width, H: f.Height}
	return nil
}

// PointerMove feeds a pointer position while a drag or resize is active.
// Idle moves are ignored.
func (c *Controller) PointerMove(pointer geometry.Pt, canvas geometry.CanvasRect) error {
	switch c.state {
	case Dragging:
		x, y := geometry.PixelToPercent(geometry.Pt{
			X: pointer.X - c.dragOffset.X,
			Y: pointer.Y - c.dragOffset.Y,
		}, canvas)
		return c.board.Move(c.dragField, x, y)
	case Resizing:
		s := geometry.ResizeDelta(c.resizeStart, pointer, c.resizeSize, float64(c.zoomPercent)/100)
		return c.board.Resize(c.resizeField, s.W, s.H)
	}
	return nil
}

// PointerUp unconditionally resolves every transient state, whether the
// pointer is over the canvas, the list or neither. A pointer-up that ended a
// drag or resize arms click suppression for the gesture's trailing click.
func (c *Controller) PointerUp() {
	if c.state == Dragging || c.state == Resizing {
		c.suppressClick = true
	}
	c.state = Idle
	c.dragField = ""
	c.resizeField = ""
	c.reorderFrom = -1
}

// CanvasClick handles a click on empty canvas. When a field type and a
// recipient are armed, it places one field at the click position and clears
// the armed type, so each arm yields exactly one placement. The click that
// trails a completed drag or resize is suppressed.
func (c *Controller) CanvasClick(pointer geometry.Pt, canvas geometry.CanvasRect, page int) (*domain.SignatureField, error) {
	if c.suppressClick {
		c.suppressClick = false
		return nil, nil
	}
	if c.state != Idle || c.armedType == "" || c.armedRecipient == "" {
		return nil, nil
	}
	x, y := geometry.PixelToPercent(pointer, canvas)
	f, err := c.board.Place(c.armedType, c.armedRecipient, page, x, y)
	if err != nil {
		return nil, err
	}
	c.armedType = ""
	return &f, nil
}

// ReorderDown begins a roster drag from the given list index.
func (c *Controller) ReorderDown(fromIndex int) error {
	if fromIndex < 0 || fromIndex >= c.roster.Len() {
		return fmt.Errorf("reorder index %d out of range", fromIndex)
	}
	c.reorderFrom = fromIndex
	return nil
}

// Reordering reports whether a roster drag is active and its current index.
func (c *Controller) Reordering() (int, bool) {
	return c.reorderFrom, c.reorderFrom >= 0
}

// HoverOverItem reorders live while a roster drag is active: the dragged
// entry moves to overIndex immediately and the drag continues from there.
func (c *Controller) HoverOverItem(overIndex int) error {
	if c.reorderFrom < 0 || overIndex == c.reorderFrom {
		return nil
	}
	if err := c.roster.Reorder(c.reorderFrom, overIndex); err != nil {
		return err
	}
	c.reorderFrom = overIndex
	return nil
}
