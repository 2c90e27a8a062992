package hardware

import (
	"errors"
	"sync"
	"time"

	"github.com/goburrow/serial"

	deverrors "github.com/tetherworks/gorov/onboard/errors"
)

const (
	maestroName     = "maestro"
	maestroChannels = 12

	// Pololu compact protocol command bytes
	maestroCmdSetTarget = 0x84
	maestroCmdGoHome    = 0xA2
)

// Maestro drives a Pololu Maestro servo controller over its TTL serial
// line using the compact protocol. Targets are expressed in quarter
// microseconds and framed as two 7-bit bytes.
//
// The protocol is fire-and-forget: the controller sends no acknowledgment,
// so a write that was dropped on the wire is indistinguishable from one
// that was accepted. The retry-once policy in WriteRetry plus the
// neutral-on-shutdown guarantee is the accepted mitigation; polling the
// controller's error register after every target would double traffic on
// the shared 9600 baud line.
type Maestro struct {
	port   serial.Port
	lock   sync.Mutex
	closed bool
}

func NewMaestro(address string, baud int) (*Maestro, error) {
	port, err := serial.Open(&serial.Config{
		Address:  address,
		BaudRate: baud,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  500 * time.Millisecond,
	})
	if err != nil {
		return nil, deverrors.ConnectionError{Backend: maestroName, Target: address, Cause: err}
	}

	return &Maestro{port: port}, nil
}

func (m *Maestro) Name() string { return maestroName }

func (m *Maestro) Channels() int { return maestroChannels }

func (m *Maestro) SetPulseWidth(channel, us int) error {
	if channel < 0 || channel >= maestroChannels {
		return deverrors.CapacityError{Backend: maestroName, Channel: channel, Limit: maestroChannels}
	}

	target := usToTarget(us)
	frame := []byte{
		maestroCmdSetTarget,
		byte(channel),
		byte(target & 0x7F),
		byte(target >> 7 & 0x7F),
	}

	// single shared serial line, writes must not interleave
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.closed {
		return errors.New("maestro: port closed")
	}
	_, err := m.port.Write(frame)
	return err
}

// GoHome sends every channel to its controller-configured home position.
func (m *Maestro) GoHome() error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.closed {
		return errors.New("maestro: port closed")
	}
	_, err := m.port.Write([]byte{maestroCmdGoHome})
	return err
}

func (m *Maestro) Close() error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	return m.port.Close()
}

// usToTarget converts microseconds to the Maestro's quarter-microsecond
// target units.
func usToTarget(us int) int {
	return us * 4
}

func targetToUS(target int) int {
	return target / 4
}
