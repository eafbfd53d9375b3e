// Package runner executes submitted code in a sandbox and reports the
// outcome as a tagged result: a success envelope with per-check outcomes,
// or a failure envelope describing a compile/runtime error.
package runner

import (
	"context"
	"fmt"
)

// Outcome result kinds.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeError   = "error"
)

// Location is a source position inside an evaluated submission.
type Location struct {
	File string `json:"file"`
	Line int    `json:"line"`
}

// Outcome is a single test outcome within a named check.
type Outcome struct {
	Result string   `json:"result"`
	Code   string   `json:"code"`
	Loc    Location `json:"loc"`
}

// Check is a named group of test outcomes, in execution order.
type Check struct {
	Name     string
	Outcomes []Outcome
}

// Result is either a Success or a Failure envelope.
type Result interface {
	isResult()
}

// Success means the submission compiled and ran; individual checks may
// still contain failing outcomes.
type Success struct {
	Checks []Check
}

// Failure means the submission could not be compiled or crashed.
type Failure struct {
	ErrorName string
	Stack     string
	Loc       Location
}

func (Success) isResult() {}
func (Failure) isResult() {}

// Passed reports whether r is a success envelope with no failing or
// erroring outcomes.
func Passed(r Result) bool {
	s, ok := r.(Success)
	if !ok {
		return false
	}
	for _, c := range s.Checks {
		for _, o := range c.Outcomes {
			if o.Result != OutcomeSuccess {
				return false
			}
		}
	}
	return true
}

// Summarize renders a short human-readable description of a result, used
// as the grading cell tooltip.
func Summarize(r Result) string {
	switch v := r.(type) {
	case Success:
		total, passed := 0, 0
		for _, c := range v.Checks {
			for _, o := range c.Outcomes {
				total++
				if o.Result == OutcomeSuccess {
					passed++
				}
			}
		}
		return fmt.Sprintf("%d/%d outcomes passed", passed, total)
	case Failure:
		return v.ErrorName
	default:
		return "no result"
	}
}

// Runner evaluates source files and an entry function in a sandbox.
// Substitutions are textual replacements applied to each source before
// evaluation. Sandbox-level errors (compile failures, panics) are captured
// in the Failure envelope; the error return is reserved for the sandbox
// itself being unavailable or the context expiring.
type Runner interface {
	Run(ctx context.Context, sources []string, entry string, substitutions map[string]string) (Result, error)
}
