package recognition

import "fmt"

type Outcome int

const (
	// OutcomeNoSignal means recognition ran fine but found nothing usable yet.
	OutcomeNoSignal Outcome = iota
	OutcomeValue
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoSignal:
		return "no-signal"
	case OutcomeValue:
		return "value"
	case OutcomeFailed:
		return "failed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Result is the outcome of a recognition query. It is never an error return so
// callers must decide what "no signal" means for them, Or gives the neutral default.
type Result[T any] struct {
	value   T
	outcome Outcome
	reason  error
}

func Value[T any](v T) Result[T] {
	return Result[T]{value: v, outcome: OutcomeValue}
}

func NoSignal[T any](reason error) Result[T] {
	return Result[T]{outcome: OutcomeNoSignal, reason: reason}
}

func Failed[T any](reason error) Result[T] {
	return Result[T]{outcome: OutcomeFailed, reason: reason}
}

func (r Result[T]) Outcome() Outcome {
	return r.outcome
}

// Get returns the value and true only if the outcome is OutcomeValue.
func (r Result[T]) Get() (T, bool) {
	return r.value, r.outcome == OutcomeValue
}

func (r Result[T]) Or(def T) T {
	if r.outcome != OutcomeValue {
		return def
	}
	return r.value
}

// Err returns the reason for a NoSignal or Failed outcome.
func (r Result[T]) Err() error {
	return r.reason
}

func (r Result[T]) String() string {
	if r.outcome == OutcomeValue {
		return fmt.Sprintf("%v", r.value)
	}
	if r.reason != nil {
		return fmt.Sprintf("%s: %v", r.outcome, r.reason)
	}
	return r.outcome.String()
}
