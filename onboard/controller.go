package onboard

import (
	"fmt"

	"github.com/tetherworks/gorov/onboard/hardware"

	deverrors "github.com/tetherworks/gorov/onboard/errors"
)

// Controller wires the configured backend, the input sampler and the
// control loop together.
type Controller struct {
	Config  *RovConfig
	Backend hardware.Backend
	Sampler Sampler
	Loop    *Loop
}

// NewController builds the controller from a validated config. With
// simulated set, an in-memory backend and a null sampler replace the
// hardware so the daemon and the maintenance shell can run off-vehicle.
func NewController(cfg *RovConfig, simulated bool) (c *Controller, err error) {
	c = &Controller{Config: cfg}

	if simulated {
		c.Backend = hardware.NewFake(16)
		c.Sampler = NullSampler{}
	} else {
		switch cfg.Backend {
		case BackendMaestro:
			c.Backend, err = hardware.NewMaestro(cfg.Serial.Port, cfg.Serial.Baud)
		case BackendPCA9685:
			c.Backend, err = hardware.NewPCA9685(cfg.I2C.Bus, cfg.I2C.Addr, cfg.Frequency)
		case BackendRPiPWM:
			c.Backend, err = hardware.NewRPiPWM(cfg.PWM.Pins, cfg.Frequency)
		default:
			err = fmt.Errorf("unknown backend %q", cfg.Backend)
		}
		if err != nil {
			return nil, err
		}

		c.Sampler, err = NewGPIOSampler(cfg)
		if err != nil {
			c.Backend.Close()
			return nil, err
		}
	}

	// catch over-capacity channel assignments before the loop ever runs
	for t := Thruster(0); t < NumThrusters; t++ {
		ch := cfg.Thrusters.Get(t).Channel
		if ch < 0 || ch >= c.Backend.Channels() {
			c.Backend.Close()
			return nil, deverrors.CapacityError{
				Backend: c.Backend.Name(),
				Channel: ch,
				Limit:   c.Backend.Channels(),
			}
		}
	}

	c.Loop = NewLoop(c.Backend, c.Sampler, cfg)
	return c, nil
}
