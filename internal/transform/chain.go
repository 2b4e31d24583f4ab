package transform

import (
	"context"
	"strconv"
)

// chain composes N transformers in sequence, the same idiom the teacher
// uses to compose pipeline.Stage values in internal/pipeline/pipeline.go,
// adapted here from a multi-stage migration pipeline to a multi-stage
// byte transform.
type chain struct {
	steps []Transformer
}

// Chain returns a Transformer that applies steps in order, feeding each
// step's output to the next.
func Chain(steps ...Transformer) Transformer {
	if len(steps) == 1 {
		return steps[0]
	}
	return &chain{steps: steps}
}

func (c *chain) Transform(ctx context.Context, payload []byte) ([]byte, error) {
	current := payload
	for i, step := range c.steps {
		out, err := step.Transform(ctx, current)
		if err != nil {
			return nil, &StepError{Index: i, Err: err}
		}
		current = out
	}
	return current, nil
}

// StepError identifies which chain step failed.
type StepError struct {
	Index int
	Err   error
}

func (e *StepError) Error() string {
	return "transform: step " + strconv.Itoa(e.Index) + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() error { return e.Err }
