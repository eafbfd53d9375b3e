package runner

import (
	"context"
	"fmt"
	"reflect"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// Yaegi runs submissions in an embedded Go interpreter. A fresh interpreter
// is created per Run, so instances are safe for concurrent use. Interpreted
// code sees the standard library plus an injected "gradeboard/checks"
// package it reports outcomes through:
//
//	checks.Expect(check, code string, ok bool)
//	checks.Report(check, result, code, file string, line int)
type Yaegi struct{}

// NewYaegi creates a yaegi-backed runner.
func NewYaegi() *Yaegi {
	return &Yaegi{}
}

// collector accumulates check outcomes reported by interpreted code.
type collector struct {
	mu     sync.Mutex
	order  []string
	checks map[string]*Check
}

func newCollector() *collector {
	return &collector{checks: make(map[string]*Check)}
}

func (c *collector) report(check, result, code, file string, line int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.checks[check]
	if !ok {
		entry = &Check{Name: check}
		c.checks[check] = entry
		c.order = append(c.order, check)
	}
	entry.Outcomes = append(entry.Outcomes, Outcome{
		Result: result,
		Code:   code,
		Loc:    Location{File: file, Line: line},
	})
}

// Expect records a pass/fail outcome for the given check.
func (c *collector) Expect(check, code string, ok bool) {
	result := OutcomeSuccess
	if !ok {
		result = OutcomeFailure
	}
	c.report(check, result, code, "", 0)
}

// Report records an outcome with an explicit result kind and location.
func (c *collector) Report(check, result, code, file string, line int) {
	c.report(check, result, code, file, line)
}

func (c *collector) results() []Check {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Check, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, *c.checks[name])
	}
	return out
}

// Run evaluates each source in order inside one interpreter, then calls the
// entry function (e.g. "main.RunTests"). Compile errors, a missing or
// mistyped entry, and panics all come back as a Failure envelope.
func (y *Yaegi) Run(ctx context.Context, sources []string, entry string, substitutions map[string]string) (Result, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("load stdlib symbols: %w", err)
	}

	col := newCollector()
	err := i.Use(interp.Exports{
		"gradeboard/checks/checks": {
			"Expect": reflect.ValueOf(col.Expect),
			"Report": reflect.ValueOf(col.Report),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("load checks symbols: %w", err)
	}

	for _, src := range sources {
		for from, to := range substitutions {
			src = strings.ReplaceAll(src, from, to)
		}
		if _, err := i.Eval(src); err != nil {
			return Failure{
				ErrorName: "EvalError",
				Stack:     err.Error(),
				Loc:       locFromError(err),
			}, nil
		}
	}

	v, err := i.Eval(entry)
	if err != nil {
		return Failure{ErrorName: "EntryNotFound", Stack: err.Error()}, nil
	}
	fn, ok := v.Interface().(func())
	if !ok {
		return Failure{
			ErrorName: "BadEntry",
			Stack:     fmt.Sprintf("%s is not func()", entry),
		}, nil
	}

	done := make(chan Result, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- Failure{
					ErrorName: fmt.Sprint(p),
					Stack:     string(debug.Stack()),
				}
			}
		}()
		fn()
		done <- Success{Checks: col.results()}
	}()

	select {
	case r := <-done:
		return r, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("run %s: %w", entry, ctx.Err())
	}
}

// locFromError extracts a "line:column:" prefix from a yaegi error message.
func locFromError(err error) Location {
	parts := strings.SplitN(err.Error(), ":", 3)
	if len(parts) < 3 {
		return Location{}
	}
	line, convErr := strconv.Atoi(parts[0])
	if convErr != nil {
		return Location{}
	}
	return Location{Line: line}
}
