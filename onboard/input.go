package onboard

import (
	"fmt"
	"log"

	"github.com/stianeikeland/go-rpio/v4"

	deverrors "github.com/tetherworks/gorov/onboard/errors"
)

// Sampler yields the debounced state of every control axis. Called once per
// control cycle; must return within the polling interval.
type Sampler interface {
	Sample() AxisStates
}

// LineReader reads the raw level of one input line. true is logic high.
// Button lines are pulled up, so a pressed button reads low.
type LineReader interface {
	Read() (bool, error)
}

type rpioLine struct {
	pin rpio.Pin
}

func (l rpioLine) Read() (bool, error) {
	return l.pin.Read() == rpio.High, nil
}

// debounce requires a raw level to repeat for threshold consecutive samples
// before the stable state flips. Level-driven, no edge events: the control
// model is hold-to-actuate, so the mapper always works off current stable
// level.
type debounce struct {
	threshold int
	stable    bool
	candidate bool
	count     int
}

func (d *debounce) feed(pressed bool) bool {
	if pressed == d.stable {
		d.candidate = pressed
		d.count = 0
		return d.stable
	}

	if pressed == d.candidate {
		d.count++
	} else {
		d.candidate = pressed
		d.count = 1
	}

	if d.count >= d.threshold {
		d.stable = pressed
		d.count = 0
	}
	return d.stable
}

type axisLine struct {
	axis Axis
	pin  int
	line LineReader
	deb  debounce
}

// GPIOSampler polls the six button lines through the Pi's GPIO block.
type GPIOSampler struct {
	lines []*axisLine
}

func NewGPIOSampler(cfg *RovConfig) (*GPIOSampler, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("unable to open gpio: %w", err)
	}

	s := new(GPIOSampler)
	for t := Thruster(0); t < NumThrusters; t++ {
		tc := cfg.Thrusters.Get(t)
		for _, bind := range []struct {
			sense Sense
			pin   int
		}{
			{SenseForward, tc.ForwardPin},
			{SenseReverse, tc.ReversePin},
		} {
			p := rpio.Pin(bind.pin)
			p.Input()
			p.PullUp()
			s.lines = append(s.lines, &axisLine{
				axis: Axis{Thruster: t, Sense: bind.sense},
				pin:  bind.pin,
				line: rpioLine{pin: p},
				deb:  debounce{threshold: cfg.Loop.DebounceSamples},
			})
		}
	}

	return s, nil
}

func (s *GPIOSampler) Sample() AxisStates {
	out := make(AxisStates, len(s.lines))
	for _, l := range s.lines {
		high, err := l.line.Read()
		if err != nil {
			// fail safe: a line we cannot read reads as released right
			// away, without waiting out the debounce window
			log.Printf("input: %v", deverrors.InputFault{Pin: l.pin, Cause: err})
			l.deb.feed(false)
			out[l.axis] = false
			continue
		}
		out[l.axis] = l.deb.feed(!high) // active low
	}
	return out
}

// NullSampler reports every axis released. Used with the simulated backend
// where no GPIO block exists.
type NullSampler struct{}

func (NullSampler) Sample() AxisStates { return AxisStates{} }
