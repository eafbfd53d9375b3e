// Package export serializes a board's completed results into the grading
// JSON document handed to downstream tooling.
package export

import (
	"encoding/json"

	"github.com/pavelanni/gradeboard/internal/runner"
)

// CheckOutcome is one exported test outcome within a named check.
type CheckOutcome struct {
	IsSuccess bool            `json:"isSuccess"`
	Result    string          `json:"result"`
	Code      string          `json:"code"`
	Loc       runner.Location `json:"loc"`
}

// TargetResult is one exported run result. It marshals either as a success
// record keyed by check name, or as an error record.
type TargetResult struct {
	failure *runner.Failure
	checks  []runner.Check
}

type errorRecord struct {
	IsError   bool            `json:"isError"`
	ErrorName string          `json:"errorName"`
	Stack     string          `json:"stack"`
	Loc       runner.Location `json:"loc"`
}

// MarshalJSON renders {"isError":false, "<check>": [outcomes...]} for a
// success envelope or {"isError":true, ...} for a failure envelope. Map
// encoding keeps key order lexicographic.
func (t TargetResult) MarshalJSON() ([]byte, error) {
	if t.failure != nil {
		return json.Marshal(errorRecord{
			IsError:   true,
			ErrorName: t.failure.ErrorName,
			Stack:     t.failure.Stack,
			Loc:       t.failure.Loc,
		})
	}
	record := make(map[string]json.RawMessage, len(t.checks)+1)
	record["isError"] = json.RawMessage("false")
	for _, c := range t.checks {
		outcomes := make([]CheckOutcome, len(c.Outcomes))
		for i, o := range c.Outcomes {
			outcomes[i] = CheckOutcome{
				IsSuccess: o.Result == runner.OutcomeSuccess,
				Result:    o.Result,
				Code:      o.Code,
				Loc:       o.Loc,
			}
		}
		raw, err := json.Marshal(outcomes)
		if err != nil {
			return nil, err
		}
		record[c.Name] = raw
	}
	return json.Marshal(record)
}

// Document maps student name to target name to exported result. Students
// and targets with no recorded result are simply absent; encoding/json
// sorts both key levels lexicographically, so the output is deterministic.
type Document map[string]map[string]TargetResult

// Export converts a board's results mapping into the export document.
// It is a pure function of its input.
func Export(results map[string]map[string]runner.Result) Document {
	doc := make(Document, len(results))
	for student, targets := range results {
		if len(targets) == 0 {
			continue
		}
		entry := make(map[string]TargetResult, len(targets))
		for name, res := range targets {
			switch v := res.(type) {
			case runner.Success:
				entry[name] = TargetResult{checks: v.Checks}
			case runner.Failure:
				entry[name] = TargetResult{failure: &v}
			}
		}
		doc[student] = entry
	}
	return doc
}

// Marshal renders the document as indented JSON.
func Marshal(doc Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}
