/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package submit assembles and validates the signature request payload and
// hands it to the upstream signing provider.
package submit

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"sigflow/internal/domain"
)

//go:embed request_schema.json
var requestSchema []byte

// Details are the request metadata collected on the first wizard step.
type Details struct {
	Name        string `json:"name"`
	Year        int    `json:"year"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
}

// DefaultDetails returns the first-step defaults. The year defaults to the
// prior calendar year, matching the filing-season workflow.
func DefaultDetails() Details {
	return Details{Year: time.Now().Year() - 1}
}

// SuggestedCategories are the stock category options offered on the details
// step; free text is also accepted.
var SuggestedCategories = []string{
	"Tax Return",
	"Engagement Letter",
	"Financial Statement",
	"Organizer",
	"Other",
}

// Document describes the uploaded file the fields were placed on.
type Document struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	PageCount   int    `json:"pageCount"`
}

// Request is the full payload sent to the signing provider.
type Request struct {
	Details      Details                 `json:"details"`
	Document     Document                `json:"document"`
	SigningOrder domain.SigningOrder     `json:"signingOrder"`
	Recipients   []domain.Recipient      `json:"recipients"`
	Fields       []domain.SignatureField `json:"fields"`
}

// Validate checks the payload against the embedded JSON schema before any
// network traffic. Schema failures indicate a bug upstream of submit, not
// user error.
func Validate(r Request) error {
	doc, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(requestSchema),
		gojsonschema.NewBytesLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("validate request: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("request payload invalid: %s", strings.Join(msgs, "; "))
}
