/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the core data model for signature request preparation:
// recipients, placeable signature fields and the field-type catalog. The
// records serialize to plain JSON; no persistence format beyond that is owned
// here.

import "time"

// SourceType discriminates where a recipient came from. Each variant carries
// its own optional payload on Recipient; the shapes share almost no behavior,
// so a discriminant field is used instead of an interface hierarchy.
type SourceType string

const (
	SourceClient    SourceType = "client"
	SourceExternal  SourceType = "external"
	SourceFirm      SourceType = "firm"
	SourceSpouseTag SourceType = "spouse-tag"
)

// Valid reports whether s is one of the known source variants.
func (s SourceType) Valid() bool {
	switch s {
	case SourceClient, SourceExternal, SourceFirm, SourceSpouseTag:
		return true
	}
	return false
}

// SigningOrder is a roster-level presentation flag; it does not alter the
// order invariant the roster enforces.
type SigningOrder string

const (
	Sequential   SigningOrder = "sequential"
	Simultaneous SigningOrder = "simultaneous"
)

// ClientType distinguishes individual from business clients.
type ClientType string

const (
	ClientIndividual ClientType = "Individual"
	ClientBusiness   ClientType = "Business"
)

// Recipient is a person or entity who must sign or receive the document.
// Order is 1-based and always a contiguous permutation of 1..N within a
// roster. Color is assigned once at creation and never recomputed.
type Recipient struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email,omitempty"`
	Order       int        `json:"order"`
	Color       string     `json:"color"`
	Source      SourceType `json:"sourceType"`
	ClientID    string     `json:"clientId,omitempty"`
	ClientType  ClientType `json:"clientType,omitempty"`
	CompanyName string     `json:"companyName,omitempty"`
	FirmMember  string     `json:"firmMemberId,omitempty"`

	// Audit data, present only in existing-request contexts.
	SignedAt *time.Time `json:"signedAt,omitempty"`
	ViewedAt *time.Time `json:"viewedAt,omitempty"`
	SignedIP string     `json:"signedIp,omitempty"`
	ViewedIP string     `json:"viewedIp,omitempty"`
}

// Locked reports whether the recipient has already signed. Locked recipients
// refuse removal and email edits.
func (r Recipient) Locked() bool { return r.SignedAt != nil }

// FieldType enumerates the placeable field kinds.
type FieldType string

const (
	FieldSignature   FieldType = "signature"
	FieldInitial     FieldType = "initial"
	FieldDateSigned  FieldType = "date-signed"
	FieldText        FieldType = "text"
	FieldCheckbox    FieldType = "checkbox"
	FieldName        FieldType = "name"
	FieldCompanyName FieldType = "company-name"
	FieldDOB         FieldType = "dob"
	FieldAddress     FieldType = "address"
)

// FieldTypes lists all field kinds in palette order.
var FieldTypes = []FieldType{
	FieldSignature, FieldInitial, FieldDateSigned, FieldText, FieldCheckbox,
	FieldName, FieldCompanyName, FieldDOB, FieldAddress,
}

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	switch t {
	case FieldSignature, FieldInitial, FieldDateSigned, FieldText, FieldCheckbox,
		FieldName, FieldCompanyName, FieldDOB, FieldAddress:
		return true
	}
	return false
}

// Label returns the display label for the type.
func (t FieldType) Label() string {
	switch t {
	case FieldSignature:
		return "Signature"
	case FieldInitial:
		return "Initial"
	case FieldDateSigned:
		return "Date Signed"
	case FieldText:
		return "Text"
	case FieldCheckbox:
		return "Checkbox"
	case FieldName:
		return "Name"
	case FieldCompanyName:
		return "Company Name"
	case FieldDOB:
		return "DOB"
	case FieldAddress:
		return "Address"
	}
	return string(t)
}

// DefaultWidth returns the creation default and resize floor reference width
// in canvas-space pixels at 100% zoom.
func (t FieldType) DefaultWidth() float64 {
	switch t {
	case FieldSignature:
		return 140
	case FieldInitial:
		return 50
	case FieldCheckbox:
		return 20
	case FieldDateSigned:
		return 100
	case FieldName:
		return 120
	case FieldCompanyName:
		return 140
	case FieldDOB:
		return 100
	case FieldAddress:
		return 160
	}
	return 100
}

// DefaultHeight returns the creation default height.
func (t FieldType) DefaultHeight() float64 {
	switch t {
	case FieldSignature:
		return 50
	case FieldCheckbox:
		return 20
	}
	return 30
}

// SignatureField is a placeable, typed, sizable marker on one document page,
// bound to exactly one recipient. X/Y are percent of canvas width/height so
// placement is resolution independent; Width/Height are canvas-space pixels
// at 100% zoom so minimum target sizes stay absolute.
type SignatureField struct {
	ID          string    `json:"id"`
	Type        FieldType `json:"type"`
	Label       string    `json:"label"`
	Required    bool      `json:"required"`
	RecipientID string    `json:"recipientId"`
	Page        int       `json:"page"`
	X           float64   `json:"x"`
	Y           float64   `json:"y"`
	Width       float64   `json:"width"`
	Height      float64   `json:"height"`
}

// Palette is the fixed recipient color rotation. Colors are assigned
// round-robin by roster length at insertion time.
var Palette = []string{
	"#7C3AED",
	"#3B82F6",
	"#10B981",
	"#F59E0B",
	"#EF4444",
	"#EC4899",
}

// PaletteColor returns the palette entry for insertion index i.
func PaletteColor(i int) string {
	if i < 0 {
		i = -i
	}
	return Palette[i%len(Palette)]
}

// Client is a directory record for a practice client.
type Client struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Type        ClientType `json:"type"`
	CompanyName string     `json:"companyName,omitempty"`
}

// FirmMember is a directory record for a member of the firm.
type FirmMember struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"isActive"`
}
