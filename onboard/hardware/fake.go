package hardware

import (
	"errors"
	"sync"

	deverrors "github.com/tetherworks/gorov/onboard/errors"
)

var errFakeWrite = errors.New("simulated write failure")

// PulseWrite records one accepted write on a Fake backend.
type PulseWrite struct {
	Channel int
	Pulse   int
}

// Fake is an in-memory backend used by the test suites and by -sim mode.
// It records every accepted write and can be told to fail upcoming writes
// per channel, which is how the escalation and shutdown paths are exercised
// without hardware.
type Fake struct {
	mu       sync.Mutex
	channels int
	closed   bool
	writes   []PulseWrite
	failures map[int]int
}

func NewFake(channels int) *Fake {
	return &Fake{
		channels: channels,
		failures: make(map[int]int),
	}
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) Channels() int { return f.channels }

func (f *Fake) SetPulseWidth(channel, us int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return errors.New("backend closed")
	}
	if channel < 0 || channel >= f.channels {
		return deverrors.CapacityError{Backend: f.Name(), Channel: channel, Limit: f.channels}
	}
	if n := f.failures[channel]; n != 0 {
		if n > 0 {
			f.failures[channel] = n - 1
		}
		return errFakeWrite
	}

	f.writes = append(f.writes, PulseWrite{Channel: channel, Pulse: us})
	return nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// FailNext makes the next n writes to a channel fail. n < 0 fails the
// channel forever, which simulates a dead connection.
func (f *Fake) FailNext(channel, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[channel] = n
}

// Writes returns a copy of every accepted write in order.
func (f *Fake) Writes() []PulseWrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]PulseWrite, len(f.writes))
	copy(out, f.writes)
	return out
}

// LastPulse returns the last pulse accepted on a channel, or -1.
func (f *Fake) LastPulse(channel int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.writes) - 1; i >= 0; i-- {
		if f.writes[i].Channel == channel {
			return f.writes[i].Pulse
		}
	}
	return -1
}

// Closed reports whether Close has been called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
