package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/chazu/openings/pkg/catalog"
)

// DefaultEvalTimeout is the hard limit for a single evaluation.
const DefaultEvalTimeout = 5 * time.Second

// evalResult passes evaluation output through channels.
type evalResult struct {
	catalog  *catalog.Catalog
	errors   []EvalError
	warnings []catalog.ValidationError
	err      error
}

// waitWithTimeout waits for a result from ch, but returns a timeout error
// if the evaluation exceeds timeout. It uses a generation counter to
// discard stale results from previous evaluations.
//
// On timeout, the goroutine may still be running; the generation check
// ensures its result is discarded when it eventually completes.
func waitWithTimeout(
	ch <-chan evalResult,
	gen uint64,
	mu *sync.Mutex,
	currentGen *uint64,
	timeout time.Duration,
) (EvalResult, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		mu.Lock()
		current := *currentGen
		mu.Unlock()

		if gen != current {
			return EvalResult{}, fmt.Errorf("evaluation superseded by newer request")
		}
		if res.err != nil {
			return EvalResult{}, res.err
		}
		return EvalResult{Catalog: res.catalog, Errors: res.errors, Warnings: res.warnings}, nil

	case <-timer.C:
		return EvalResult{}, fmt.Errorf("evaluation timed out after %s", timeout)
	}
}
