package strategy

import "context"

// Clear restores a region to its pre-generation state by returning an empty
// body. It ignores the payload's computed value entirely, which makes it
// trivially idempotent: clearing twice equals clearing once.
type Clear struct{}

// NewClear creates the clear strategy.
func NewClear() Clear { return Clear{} }

// Evaluate implements Strategy.
func (Clear) Evaluate(_ context.Context, _ string, _ *Environment) (string, error) {
	return "", nil
}
