package neural

import "errors"

var (
	// ErrRankViolation is returned when a hidden-to-hidden connection does not
	// strictly increase rank. It indicates a construction bug.
	ErrRankViolation = errors.New("rank violation")

	// ErrInvalidConnection is returned when an endpoint has the wrong role or
	// does not belong to the graph's catalog.
	ErrInvalidConnection = errors.New("invalid connection")

	// ErrInvalidContext is returned when a graph is run without a context.
	ErrInvalidContext = errors.New("invalid context")

	// ErrNumericInstability is returned when propagation produces NaN.
	ErrNumericInstability = errors.New("numeric instability")

	// ErrEmptyActionSpace is returned when the action lottery has candidates
	// but fails to resolve one.
	ErrEmptyActionSpace = errors.New("empty action space")
)

// ErrNoValue is returned when an action is applied for a neuron that received
// no signal during the last evaluation.
var ErrNoValue = errors.New("neuron has no value this tick")
