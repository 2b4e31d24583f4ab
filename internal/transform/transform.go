// Package transform defines the narrow capability the data-block engine
// hands decompressed TABLE DATA payloads to, plus a small registry of
// built-in implementations (spec.md §4.6 and §9: "different deployments
// chain multiple rewriters (regex, faker, nullification)").
package transform

import "context"

// Transformer is invoked once per rewritten data block on the fully
// decompressed payload. Implementations must be total (no partial
// transforms) and deterministic with respect to their own configuration.
// The payload is well-formed UTF-8; implementations must return
// well-formed UTF-8.
type Transformer interface {
	Transform(ctx context.Context, payload []byte) ([]byte, error)
}

// Func adapts a plain function to the Transformer interface.
type Func func(ctx context.Context, payload []byte) ([]byte, error)

// Transform implements Transformer.
func (f Func) Transform(ctx context.Context, payload []byte) ([]byte, error) {
	return f(ctx, payload)
}

// Noop returns a Transformer that passes its input through unchanged,
// used by identity round-trip tests and as the registry default.
func Noop() Transformer {
	return Func(func(_ context.Context, payload []byte) ([]byte, error) {
		return payload, nil
	})
}
