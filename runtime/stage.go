// Package runtime drives one fetch-and-materialize run.
//
// A run moves through Idle, Fetching, Parsing, Classifying and
// Materializing to Done. Any failure stops it in the stage where it
// happened; nothing after that stage runs except the optional mirror
// and notification.
package runtime

import "fmt"

// Stage is a step of the run state machine.
type Stage int

const (
	StageIdle Stage = iota
	StageFetching
	StageParsing
	StageClassifying
	StageMaterializing
	StageDone
)

var stageNames = [...]string{
	StageIdle:          "idle",
	StageFetching:      "fetching",
	StageParsing:       "parsing",
	StageClassifying:   "classifying",
	StageMaterializing: "materializing",
	StageDone:          "done",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

// StageError is a fatal error tagged with the stage it occurred in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error {
	return e.Err
}
