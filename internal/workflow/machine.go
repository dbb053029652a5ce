/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package workflow drives the wizard step sequence of a preparation session:
// visited-step memory, per-step gating predicates, edge-triggered
// auto-advance and whole-workflow submit validation.
package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// Step names one wizard step, e.g. "details" or "fields".
type Step string

// Predicate is a step's gating condition. Predicates read derived state from
// the roster and board and must be cheap and side-effect free.
type Predicate func() bool

// ValidationError reports the steps whose gates are not satisfied. It blocks
// advancing and submitting, never visiting.
type ValidationError struct {
	Incomplete []Step
}

func (e *ValidationError) Error() string {
	names := make([]string, len(e.Incomplete))
	for i, s := range e.Incomplete {
		names[i] = string(s)
	}
	return "incomplete steps: " + strings.Join(names, ", ")
}

// ErrNotVisited is returned by JumpTo for steps that have not been reached.
var ErrNotVisited = errors.New("step not yet visited")

// Machine is the step sequencer. Not safe for concurrent use.
type Machine struct {
	steps   []Step
	gates   map[Step]Predicate
	current int
	visited map[Step]bool

	autoAdvance bool
	// gateSeen is the gate value observed when the current step was entered
	// or last refreshed; auto-advance fires only on a false -> true edge.
	gateSeen bool
}

// New builds a machine over the ordered steps. Every step needs a gate; a
// missing gate means the step never completes.
func New(steps []Step, gates map[Step]Predicate) (*Machine, error) {
	if len(steps) == 0 {
		return nil, errors.New("workflow needs at least one step")
	}
	m := &Machine{
		steps:       steps,
		gates:       gates,
		visited:     map[Step]bool{steps[0]: true},
		autoAdvance: true,
	}
	m.gateSeen = m.gate(steps[0])
	return m, nil
}

// Steps returns the ordered step list.
func (m *Machine) Steps() []Step {
	out := make([]Step, len(m.steps))
	copy(out, m.steps)
	return out
}

// Current returns the current step.
func (m *Machine) Current() Step { return m.steps[m.current] }

// Visited reports whether the step has been reached at least once. The
// visited set only grows.
func (m *Machine) Visited(s Step) bool { return m.visited[s] }

// AutoAdvanceEnabled reports whether gate flips may advance the machine.
func (m *Machine) AutoAdvanceEnabled() bool { return m.autoAdvance }

// Advance moves to the next step when the current step's gate is satisfied.
// Advancing is the primary "Continue" action, so it re-enables auto-advance
// after manual backward navigation.
func (m *Machine) Advance() error {
	if !m.gate(m.Current()) {
		return &ValidationError{Incomplete: []Step{m.Current()}}
	}
	if m.current == len(m.steps)-1 {
		return fmt.Errorf("already at final step %s", m.Current())
	}
	m.current++
	m.visited[m.Current()] = true
	m.autoAdvance = true
	m.gateSeen = m.gate(m.Current())
	return nil
}

// GoBack moves to the previous step unconditionally and disables
// auto-advance so the machine does not fight the user. At the first step it
// is a no-op.
func (m *Machine) GoBack() {
	m.autoAdvance = false
	if m.current == 0 {
		return
	}
	m.current--
	m.gateSeen = m.gate(m.Current())
}

// JumpTo moves directly to a previously visited step via the step indicator.
// Manual navigation disables auto-advance.
func (m *Machine) JumpTo(s Step) error {
	idx := -1
	for i, step := range m.steps {
		if step == s {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("unknown step %s", s)
	}
	if !m.visited[s] {
		return fmt.Errorf("jump to %s: %w", s, ErrNotVisited)
	}
	m.autoAdvance = false
	m.current = idx
	m.gateSeen = m.gate(s)
	return nil
}

// Refresh re-evaluates the current step's gate after external state changed
// (e.g. an upload finished). When auto-advance is enabled and the gate flips
// from false to true, the machine advances once; a gate that was already
// true when the step became current never fires.
func (m *Machine) Refresh() bool {
	g := m.gate(m.Current())
	fired := false
	if m.autoAdvance && !m.gateSeen && g && m.current < len(m.steps)-1 {
		if err := m.Advance(); err == nil {
			fired = true
		}
	}
	if !fired {
		m.gateSeen = g
	}
	return fired
}

// Submit validates every step's gate across the whole workflow and, only if
// all are satisfied, runs the terminal action. A failed action leaves the
// workflow state untouched so the user can retry.
func (m *Machine) Submit(action func() error) error {
	var incomplete []Step
	for _, s := range m.steps {
		if !m.gate(s) {
			incomplete = append(incomplete, s)
		}
	}
	if len(incomplete) > 0 {
		return &ValidationError{Incomplete: incomplete}
	}
	if action == nil {
		return nil
	}
	return action()
}

func (m *Machine) gate(s Step) bool {
	p, ok := m.gates[s]
	if !ok || p == nil {
		return false
	}
	return p()
}
