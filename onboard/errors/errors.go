package errors

import "fmt"

// ConnectionError indicates the PWM backend could not be reached during
// initialization. This is fatal; the controller never arms.
type ConnectionError struct {
	Backend string
	Target  string
	Cause   error
}

func (err ConnectionError) Error() string {
	return fmt.Sprintf("%s: unable to open %s: %v", err.Backend, err.Target, err.Cause)
}

func (err ConnectionError) Unwrap() error {
	return err.Cause
}

// ActuationError indicates a pulse write failed twice in a row on the same
// channel within one control cycle. The control loop responds by routing to
// shutdown, since a stuck non-neutral signal on a thruster is a hazard.
type ActuationError struct {
	Backend string
	Channel int
	Pulse   int
	Cause   error
}

func (err ActuationError) Error() string {
	return fmt.Sprintf("%s: write of %dus to channel %d failed after retry: %v",
		err.Backend, err.Pulse, err.Channel, err.Cause)
}

func (err ActuationError) Unwrap() error {
	return err.Cause
}

// CapacityError indicates a channel index beyond what the backend can drive
// simultaneously. Raised at configuration/initialization time, before the
// loop starts running.
type CapacityError struct {
	Backend string
	Channel int
	Limit   int
}

func (err CapacityError) Error() string {
	return fmt.Sprintf("%s: channel %d exceeds the %d channel limit", err.Backend, err.Channel, err.Limit)
}

// InputFault indicates a button line could not be read. The sampler reports
// the affected axis as released for the cycle rather than propagating.
type InputFault struct {
	Pin   int
	Cause error
}

func (err InputFault) Error() string {
	return fmt.Sprintf("unable to read input pin %d: %v", err.Pin, err.Cause)
}

func (err InputFault) Unwrap() error {
	return err.Cause
}
