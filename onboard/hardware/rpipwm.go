package hardware

import (
	"errors"
	"fmt"

	"github.com/stianeikeland/go-rpio/v4"

	deverrors "github.com/tetherworks/gorov/onboard/errors"
)

const (
	rpiName = "rpipwm"

	// The Pi exposes two hardware PWM channels. Each maps to a pair of
	// BCM pins, but only two outputs can run at once.
	rpiMaxChannels = 2
)

// BCM pins with hardware PWM routing.
var rpiPWMPins = map[int]bool{12: true, 13: true, 18: true, 19: true}

// RPiPWM drives ESCs from the Pi's own PWM peripheral. Strictly a
// two-channel backend, enough for bench testing a thruster pair; the full
// three-thruster rig needs the expander or the Maestro.
type RPiPWM struct {
	pins   []rpio.Pin
	freq   int
	cycle  uint32 // ticks per frame, one tick per microsecond
	closed bool
}

func NewRPiPWM(bcmPins []int, freqHz int) (*RPiPWM, error) {
	if len(bcmPins) > rpiMaxChannels {
		return nil, deverrors.CapacityError{Backend: rpiName, Channel: len(bcmPins) - 1, Limit: rpiMaxChannels}
	}
	if len(bcmPins) == 0 {
		return nil, deverrors.ConnectionError{Backend: rpiName, Target: "pwm", Cause: errors.New("no pins configured")}
	}
	for _, pin := range bcmPins {
		if !rpiPWMPins[pin] {
			return nil, deverrors.ConnectionError{
				Backend: rpiName,
				Target:  fmt.Sprintf("BCM %d", pin),
				Cause:   errors.New("pin has no hardware PWM routing"),
			}
		}
	}

	if err := rpio.Open(); err != nil {
		return nil, deverrors.ConnectionError{Backend: rpiName, Target: "/dev/gpiomem", Cause: err}
	}

	cycle := uint32(1000000 / freqHz)
	r := &RPiPWM{
		pins:  make([]rpio.Pin, len(bcmPins)),
		freq:  freqHz,
		cycle: cycle,
	}
	for i, pin := range bcmPins {
		p := rpio.Pin(pin)
		p.Mode(rpio.Pwm)
		// PWM clock runs at frequency * cycle length so one duty tick
		// equals one microsecond
		p.Freq(freqHz * int(cycle))
		r.pins[i] = p
	}

	return r, nil
}

func (r *RPiPWM) Name() string { return rpiName }

func (r *RPiPWM) Channels() int { return len(r.pins) }

func (r *RPiPWM) SetPulseWidth(channel, us int) error {
	if channel < 0 || channel >= len(r.pins) {
		return deverrors.CapacityError{Backend: rpiName, Channel: channel, Limit: len(r.pins)}
	}
	if r.closed {
		return errors.New("rpipwm: closed")
	}

	r.pins[channel].DutyCycle(usToDuty(us, r.freq, r.cycle), r.cycle)
	return nil
}

func (r *RPiPWM) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	rpio.StopPwm()
	return rpio.Close()
}

// usToDuty converts a pulse width to duty ticks of a frame with the given
// tick count.
func usToDuty(us, freqHz int, cycle uint32) uint32 {
	return uint32(us * freqHz * int(cycle) / 1000000)
}

func dutyToUS(duty uint32, freqHz int, cycle uint32) int {
	return int(duty) * 1000000 / (freqHz * int(cycle))
}
