package hardware

import (
	"log"

	deverrors "github.com/tetherworks/gorov/onboard/errors"
)

// Backend is the single actuation capability every PWM device exposes. The
// control loop is written once against this interface; which variant backs
// it is a configuration-time decision, never a runtime fallback.
//
// Actuation is write-only: no backend offers a read-back path, so callers
// track what they last wrote rather than querying channel state.
type Backend interface {
	Name() string

	// Channels returns how many channels the device can drive
	// simultaneously. Channel indexes run 0..Channels()-1.
	Channels() int

	// SetPulseWidth drives one channel with the given pulse width in
	// microseconds, converted to whatever unit the device speaks.
	SetPulseWidth(channel, us int) error

	// Close releases the underlying connection. Idempotent; callers are
	// expected to have written neutral to every channel first.
	Close() error
}

// Homer is implemented by backends with a native all-channels-home command.
type Homer interface {
	GoHome() error
}

// WriteRetry is the write path the control loop uses. A transient failure
// (serial timeout, I2C NACK) is retried once; a second consecutive failure
// on the same channel is escalated as an ActuationError so the loop can run
// its stop procedure.
func WriteRetry(b Backend, channel, us int) error {
	err := b.SetPulseWidth(channel, us)
	if err == nil {
		return nil
	}
	log.Printf("%s: retrying write of %dus to channel %d: %v", b.Name(), us, channel, err)

	if err = b.SetPulseWidth(channel, us); err == nil {
		return nil
	}
	return deverrors.ActuationError{
		Backend: b.Name(),
		Channel: channel,
		Pulse:   us,
		Cause:   err,
	}
}
