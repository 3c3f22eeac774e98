// Copyright 2025 CompyMac
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package todo implements the verified-completion state machine (spec
// §4.3). It is the principal anti-hallucination guarantee of the system:
// the agent may create, start and claim work, but only the Verification
// Harness may mark it verified, and agent_complete refuses to fire while
// any todo sits short of that status.
package todo

// Status is one of the four permitted todo states.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusClaimed    Status = "claimed"
	StatusVerified   Status = "verified"
)

// CriterionKind classifies how a Criterion is mechanically checked (spec
// §4.3's "machine-checkable predicates"). The Verification Harness
// dispatches on this field to decide which evaluator to run.
type CriterionKind string

const (
	CriterionCommandExitZero CriterionKind = "command-exit-zero"
	CriterionFileExists      CriterionKind = "file-exists"
	CriterionTestPasses      CriterionKind = "test-passes"
	CriterionRegexMatches    CriterionKind = "regex-matches"
	CriterionVerifierCallback CriterionKind = "verifier-callback"
)

// Criterion is a single acceptance criterion attached to a todo at
// creation time. Kind selects the evaluator; Command/Path/Pattern are
// interpreted according to Kind and left empty when not applicable.
type Criterion struct {
	Text    string
	Kind    CriterionKind
	Command string
	Path    string
	Pattern string
}

// Evidence binds one acceptance criterion to a recorded observation: an
// artifact produced during the session and the trace event that produced
// it. Both must belong to the same session (invariant c).
type Evidence struct {
	CriterionIndex int
	ArtifactID     string
	EventRef       string
}

// Item is a single todo's full state.
type Item struct {
	ID                 string
	Title              string
	AcceptanceCriteria []Criterion
	Status             Status
	Evidence           []Evidence
	RejectionReasons   []string
}

// PredicateFunc re-evaluates one acceptance criterion against its bound
// evidence, returning nil if satisfied or an error describing why not.
// The Verification Harness supplies the concrete implementation (spec
// §4.8); the state machine itself stays agnostic to what "satisfied"
// means for a given criterion.
type PredicateFunc func(criterion Criterion, evidence Evidence) error
