/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package intake runs the recipient picker: choose a source, search the
// directory or enter contact data by hand, then commit the result into the
// roster. One picker instance serves one add-recipient interaction.
package intake

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"sigflow/internal/domain"
	"sigflow/internal/roster"
)

// Stage is the picker's current screen.
type Stage string

const (
	StageChoose     Stage = "choose"
	StageClient     Stage = "client"
	StageExternal   Stage = "external"
	StageFirm       Stage = "firm"
	StageSpouseOpts Stage = "spouse-select"
)

// emailPattern accepts anything of the shape local@domain.tld with no
// whitespace. Deliverability is the signing provider's problem.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// EmailFormatError reports a malformed address on a named input field so the
// caller can highlight it in place.
type EmailFormatError struct {
	Field string
	Value string
}

func (e EmailFormatError) Error() string {
	return fmt.Sprintf("%s: %q is not a valid email address", e.Field, e.Value)
}

// ValidEmail reports whether the address passes the format check.
func ValidEmail(addr string) bool { return emailPattern.MatchString(addr) }

// Directory is the client and firm-member lookup the picker searches
// against.
type Directory interface {
	SearchClients(ctx context.Context, query string) ([]domain.Client, error)
	SearchFirmMembers(ctx context.Context, query string) ([]domain.FirmMember, error)
}

// Picker walks one add-recipient interaction from source choice to roster
// commit. Not safe for concurrent use.
type Picker struct {
	dir    Directory
	roster *roster.Roster
	stage  Stage
}

// New returns a picker at the choose stage.
func New(dir Directory, r *roster.Roster) *Picker {
	return &Picker{dir: dir, roster: r, stage: StageChoose}
}

// Stage returns the picker's current screen.
func (p *Picker) Stage() Stage { return p.stage }

// Choose moves from the source choice to the matching entry screen.
func (p *Picker) Choose(source domain.SourceType) error {
	switch source {
	case domain.SourceClient:
		p.stage = StageClient
	case domain.SourceExternal:
		p.stage = StageExternal
	case domain.SourceFirm:
		p.stage = StageFirm
	case domain.SourceSpouseTag:
		p.stage = StageSpouseOpts
	default:
		return fmt.Errorf("unknown recipient source %q", source)
	}
	return nil
}

// Back returns to the source choice without committing anything.
func (p *Picker) Back() { p.stage = StageChoose }

// SearchClients queries the directory for clients matching the text.
func (p *Picker) SearchClients(ctx context.Context, query string) ([]domain.Client, error) {
	return p.dir.SearchClients(ctx, query)
}

// SearchFirmMembers queries the directory for firm members matching the
// text. Inactive members are filtered out; they must not receive signature
// requests.
func (p *Picker) SearchFirmMembers(ctx context.Context, query string) ([]domain.FirmMember, error) {
	members, err := p.dir.SearchFirmMembers(ctx, query)
	if err != nil {
		return nil, err
	}
	active := members[:0]
	for _, m := range members {
		if m.IsActive {
			active = append(active, m)
		}
	}
	return active, nil
}

// CommitClient adds a directory client to the roster and resets the picker.
func (p *Picker) CommitClient(c domain.Client) (domain.Recipient, error) {
	if err := p.checkEmail("email", c.Email); err != nil {
		return domain.Recipient{}, err
	}
	rec := p.roster.Add(roster.Draft{
		Name:        c.Name,
		Email:       c.Email,
		Source:      domain.SourceClient,
		ClientID:    c.ID,
		ClientType:  c.Type,
		CompanyName: c.CompanyName,
	})
	p.stage = StageChoose
	return rec, nil
}

// CommitExternal adds a hand-entered contact to the roster.
func (p *Picker) CommitExternal(name, email string) (domain.Recipient, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Recipient{}, fmt.Errorf("external recipient needs a name")
	}
	if err := p.checkEmail("email", email); err != nil {
		return domain.Recipient{}, err
	}
	rec := p.roster.Add(roster.Draft{
		Name:   name,
		Email:  email,
		Source: domain.SourceExternal,
	})
	p.stage = StageChoose
	return rec, nil
}

// CommitFirmMember adds a firm member to the roster. The member's username
// doubles as the display name.
func (p *Picker) CommitFirmMember(m domain.FirmMember) (domain.Recipient, error) {
	if !m.IsActive {
		return domain.Recipient{}, fmt.Errorf("firm member %s is inactive", m.Username)
	}
	if err := p.checkEmail("email", m.Email); err != nil {
		return domain.Recipient{}, err
	}
	rec := p.roster.Add(roster.Draft{
		Name:       m.Username,
		Email:      m.Email,
		Source:     domain.SourceFirm,
		FirmMember: m.ID,
	})
	p.stage = StageChoose
	return rec, nil
}

// CommitClientAndSpouse adds the client and a spouse placeholder as an
// atomic pair with consecutive orders. The spouse entry carries no email
// until it is filled in on the roster.
func (p *Picker) CommitClientAndSpouse(c domain.Client) (domain.Recipient, domain.Recipient, error) {
	if err := p.checkEmail("email", c.Email); err != nil {
		return domain.Recipient{}, domain.Recipient{}, err
	}
	pair := p.roster.AddPair(
		roster.Draft{
			Name:        c.Name,
			Email:       c.Email,
			Source:      domain.SourceClient,
			ClientID:    c.ID,
			ClientType:  c.Type,
			CompanyName: c.CompanyName,
		},
		roster.Draft{
			Name:     "Spouse of " + c.Name,
			Source:   domain.SourceSpouseTag,
			ClientID: c.ID,
		},
	)
	p.stage = StageChoose
	return pair[0], pair[1], nil
}

func (p *Picker) checkEmail(field, addr string) error {
	if !ValidEmail(addr) {
		return EmailFormatError{Field: field, Value: addr}
	}
	return nil
}
