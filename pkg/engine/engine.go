// Package engine evaluates feature catalog sources. Catalogs are written in
// a small Lisp dialect evaluated by zygomys in a sandbox; the builtins
// populate a catalog.Builder which is validated and frozen after the run.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/openings/pkg/catalog"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error, a runtime error in catalog source, or a catalog
// validation failure.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// EvalResult bundles the full output of an evaluation.
type EvalResult struct {
	Catalog  *catalog.Catalog
	Errors   []EvalError
	Warnings []catalog.ValidationError
}

// Engine wraps the zygomys interpreter. It is safe for concurrent use; each
// evaluation runs in a fresh sandbox, and only the most recently started
// evaluation may return a catalog.
type Engine struct {
	mu         sync.Mutex
	generation uint64
	timeout    time.Duration
}

// NewEngine creates an Engine using DefaultEvalTimeout.
func NewEngine() *Engine {
	return NewEngineWithTimeout(DefaultEvalTimeout)
}

// NewEngineWithTimeout creates an Engine with a custom evaluation limit.
func NewEngineWithTimeout(d time.Duration) *Engine {
	if d <= 0 {
		d = DefaultEvalTimeout
	}
	return &Engine{timeout: d}
}

// Evaluate takes catalog source and produces a frozen catalog.
//
// Return semantics:
//   - On success: returns catalog + nil errors + nil error
//   - On parse/eval/validation failure: returns nil catalog + eval errors + nil error
//   - On fatal failure (timeout, panic, superseded): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*catalog.Catalog, []EvalError, error) {
	res, err := e.Run(source)
	if err != nil {
		return nil, nil, err
	}
	return res.Catalog, res.Errors, nil
}

// Run is Evaluate with validation warnings included.
func (e *Engine) Run(source string) (EvalResult, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()
		ch <- e.evaluate(source)
	}()

	return waitWithTimeout(ch, gen, &e.mu, &e.generation, e.timeout)
}

// evaluate performs the zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) evalResult {
	b := catalog.NewBuilder()

	if strings.TrimSpace(source) != "" {
		// Sandbox mode prevents catalog code from touching the filesystem.
		env := zygo.NewZlispSandbox()
		defer env.Stop()

		registerBuiltins(env, b)

		if err := env.LoadString(preprocessSource(source)); err != nil {
			return evalResult{errors: parseZygomysError(err)}
		}
		if _, err := env.Run(); err != nil {
			return evalResult{errors: parseZygomysError(err)}
		}
	}

	c, warnings, err := b.Build()
	if err != nil {
		var evalErrs []EvalError
		for _, line := range strings.Split(err.Error(), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				evalErrs = append(evalErrs, EvalError{Message: line})
			}
		}
		return evalResult{errors: evalErrs, warnings: warnings}
	}
	return evalResult{catalog: c, warnings: warnings}
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
