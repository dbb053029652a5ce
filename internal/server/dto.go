/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package server

import (
	"sigflow/internal/domain"
	"sigflow/internal/session"
	"sigflow/internal/submit"
	"sigflow/internal/workflow"
)

// SessionResponse is the full session snapshot handed to the UI after every
// mutating call, so the client never has to diff partial updates.
type SessionResponse struct {
	ID           string                  `json:"id"`
	View         session.ViewKind        `json:"view"`
	Step         workflow.Step           `json:"step"`
	Steps        []workflow.Step         `json:"steps"`
	Visited      []workflow.Step         `json:"visited"`
	Details      submit.Details          `json:"details"`
	Document     *submit.Document        `json:"document,omitempty"`
	Zoom         int                     `json:"zoom"`
	SigningOrder domain.SigningOrder     `json:"signingOrder"`
	Recipients   []domain.Recipient      `json:"recipients"`
	Fields       []domain.SignatureField `json:"fields"`
}

func snapshot(s *session.Session) SessionResponse {
	steps := s.Workflow().Steps()
	visited := make([]workflow.Step, 0, len(steps))
	for _, step := range steps {
		if s.Workflow().Visited(step) {
			visited = append(visited, step)
		}
	}
	return SessionResponse{
		ID:           s.ID,
		View:         s.Kind,
		Step:         s.Workflow().Current(),
		Steps:        steps,
		Visited:      visited,
		Details:      s.Details(),
		Document:     s.Document(),
		Zoom:         s.Zoom(),
		SigningOrder: s.Roster().SigningOrder(),
		Recipients:   s.Roster().Recipients(),
		Fields:       s.Board().Fields(),
	}
}

// CreateSessionRequest starts an empty template or send session.
type CreateSessionRequest struct {
	View session.ViewKind `json:"view"`
}

// ImportSessionRequest starts an edit or verify session over persisted
// request state supplied by the caller.
type ImportSessionRequest struct {
	View         session.ViewKind        `json:"view"`
	Details      submit.Details          `json:"details"`
	Document     submit.Document         `json:"document"`
	SigningOrder domain.SigningOrder     `json:"signingOrder,omitempty"`
	Recipients   []domain.Recipient      `json:"recipients"`
	Fields       []domain.SignatureField `json:"fields"`
}

// AddExternalRequest adds a hand-entered recipient.
type AddExternalRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ReorderRequest moves a roster entry between list positions.
type ReorderRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// PlaceFieldRequest places a new field on a page.
type PlaceFieldRequest struct {
	Type        domain.FieldType `json:"type"`
	RecipientID string           `json:"recipientId"`
	Page        int              `json:"page"`
	X           float64          `json:"x"`
	Y           float64          `json:"y"`
}

// MoveFieldRequest repositions a field.
type MoveFieldRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ResizeFieldRequest changes a field's size.
type ResizeFieldRequest struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// SubmitResponse wraps the provider receipt.
type SubmitResponse struct {
	RequestID string `json:"requestId"`
	Status    string `json:"status"`
}
