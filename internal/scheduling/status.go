package scheduling

import (
	"fmt"
	"slices"
)

// Status is the position of a scheduling run in the pipeline.
type Status string

const (
	StatusBuilt     Status = "built"
	StatusPruned    Status = "pruned"
	StatusParsed    Status = "parsed"
	StatusMatched   Status = "matched"
	StatusIndexed   Status = "indexed"
	StatusCancelled Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusBuilt:     {StatusPruned, StatusCancelled},
	StatusPruned:    {StatusParsed, StatusCancelled},
	StatusParsed:    {StatusMatched, StatusCancelled},
	StatusMatched:   {StatusIndexed, StatusCancelled},
	StatusIndexed:   {},
	StatusCancelled: {},
}

// Statuses returns every status in pipeline order.
func Statuses() []Status {
	return []Status{StatusBuilt, StatusPruned, StatusParsed, StatusMatched, StatusIndexed, StatusCancelled}
}

// ParseStatus validates s as a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := transitions[st]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

// CanTransition reports whether from may advance to to.
func CanTransition(from, to Status) bool {
	return slices.Contains(transitions[from], to)
}

// Transition returns to when the move is allowed.
func Transition(from, to Status) (Status, error) {
	if !CanTransition(from, to) {
		return from, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return to, nil
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s Status) bool {
	return len(transitions[s]) == 0
}

// InFlight reports whether s is a non-terminal status.
func InFlight(s Status) bool {
	_, known := transitions[s]
	return known && !IsTerminal(s)
}

// Stage is a unit of pipeline work. Each stage moves a run from one
// status to the next and is delivered as one queue task.
type Stage string

const (
	StagePrune Stage = "prune"
	StageParse Stage = "parse"
	StageMatch Stage = "match"
	StageIndex Stage = "index"
)

// Stages returns every stage in pipeline order.
func Stages() []Stage {
	return []Stage{StagePrune, StageParse, StageMatch, StageIndex}
}

var stageStatus = map[Stage]struct{ from, to Status }{
	StagePrune: {StatusBuilt, StatusPruned},
	StageParse: {StatusPruned, StatusParsed},
	StageMatch: {StatusParsed, StatusMatched},
	StageIndex: {StatusMatched, StatusIndexed},
}

// From is the status a run must hold for the stage to run.
func (s Stage) From() Status { return stageStatus[s].from }

// To is the status the stage commits.
func (s Stage) To() Status { return stageStatus[s].to }

// Next returns the stage following s, if any.
func (s Stage) Next() (Stage, bool) {
	switch s {
	case StagePrune:
		return StageParse, true
	case StageParse:
		return StageMatch, true
	case StageMatch:
		return StageIndex, true
	}
	return "", false
}

// ParseStage validates s as a Stage.
func ParseStage(s string) (Stage, error) {
	st := Stage(s)
	if _, ok := stageStatus[st]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStage, s)
	}
	return st, nil
}
