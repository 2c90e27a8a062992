package onboard

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Backend selection names accepted in the config file.
const (
	BackendMaestro = "maestro"
	BackendPCA9685 = "pca9685"
	BackendRPiPWM  = "rpipwm"
)

// Defaults applied by withDefaults. The debounce, cadence and arming values
// follow standard RC/ESC conventions and are deliberately configuration, not
// constants baked into the loop.
const (
	defaultFrequency       = 50
	defaultCadenceMS       = 50
	defaultDebounceSamples = 2
	defaultArmingDelayMS   = 2000
	defaultSerialBaud      = 9600
	defaultI2CAddr         = 0x40
)

type RovConfig struct {
	Version   int              `yaml:"version"`
	Backend   string           `yaml:"backend"`
	Serial    SerialConfig     `yaml:"serial"`
	I2C       I2CConfig        `yaml:"i2c"`
	PWM       PWMConfig        `yaml:"pwm"`
	Pulse     PulseTable       `yaml:"pulse"`
	Frequency int              `yaml:"frequency"`
	Loop      LoopConfig       `yaml:"loop"`
	Thrusters ThrusterBindings `yaml:"thrusters"`

	// Debug enables the per-second command vector trace. Set from the
	// environment, not the config file.
	Debug bool `yaml:"-"`
}

type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

type I2CConfig struct {
	Bus  string `yaml:"bus"`
	Addr uint16 `yaml:"addr"`
}

// PWMConfig lists the BCM pins driven by the native hardware-PWM backend,
// indexed by channel number. Only meaningful when backend is rpipwm.
type PWMConfig struct {
	Pins []int `yaml:"pins,flow"`
}

// PulseTable holds the three ESC pulse widths in microseconds. It is shared
// read-only by the control loop and the backends for the process lifetime.
type PulseTable struct {
	Min     int `yaml:"min"`
	Neutral int `yaml:"neutral"`
	Max     int `yaml:"max"`
}

// For translates a thruster command into its pulse width.
func (p PulseTable) For(cmd Command) int {
	switch cmd {
	case Forward:
		return p.Max
	case Reverse:
		return p.Min
	default:
		return p.Neutral
	}
}

type LoopConfig struct {
	CadenceMS       int `yaml:"cadence_ms"`
	DebounceSamples int `yaml:"debounce_samples"`
	ArmingDelayMS   int `yaml:"arming_delay_ms"`
}

func (l LoopConfig) Cadence() time.Duration {
	return time.Duration(l.CadenceMS) * time.Millisecond
}

func (l LoopConfig) ArmingDelay() time.Duration {
	return time.Duration(l.ArmingDelayMS) * time.Millisecond
}

// ThrusterConfig binds one thruster to its PWM channel and its two buttons.
// Rotation records the prop sense (cw/ccw) for labeling counter-rotating
// pairs; it never inverts the signal.
type ThrusterConfig struct {
	Channel    int    `yaml:"channel"`
	Rotation   string `yaml:"rotation"`
	ForwardPin int    `yaml:"forward_pin"`
	ReversePin int    `yaml:"reverse_pin"`
}

type ThrusterBindings map[string]ThrusterConfig

// Get returns the binding for a thruster. Only valid after Validate.
func (tb ThrusterBindings) Get(t Thruster) ThrusterConfig {
	return tb[t.String()]
}

// LoadConfig reads and validates the yaml configuration. The file is loaded
// once at startup and never mutated afterwards.
func LoadConfig(path string) (*RovConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read config %s: %w", path, err)
	}

	cfg := new(RovConfig)
	if err = yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("unable to parse config %s: %w", path, err)
	}

	cfg.withDefaults()
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *RovConfig) withDefaults() {
	if c.Frequency == 0 {
		c.Frequency = defaultFrequency
	}
	if c.Loop.CadenceMS == 0 {
		c.Loop.CadenceMS = defaultCadenceMS
	}
	if c.Loop.DebounceSamples == 0 {
		c.Loop.DebounceSamples = defaultDebounceSamples
	}
	if c.Loop.ArmingDelayMS == 0 {
		c.Loop.ArmingDelayMS = defaultArmingDelayMS
	}
	if c.Serial.Baud == 0 {
		c.Serial.Baud = defaultSerialBaud
	}
	if c.I2C.Addr == 0 {
		c.I2C.Addr = defaultI2CAddr
	}
}

func (c *RovConfig) Validate() error {
	if c.Version != 1 {
		return fmt.Errorf("unable to work with config version %d", c.Version)
	}

	switch c.Backend {
	case BackendMaestro, BackendPCA9685, BackendRPiPWM:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}

	p := c.Pulse
	if !(p.Min < p.Neutral && p.Neutral < p.Max) {
		return fmt.Errorf("pulse table out of order: min=%d neutral=%d max=%d", p.Min, p.Neutral, p.Max)
	}
	if p.Neutral-p.Min != p.Max-p.Neutral {
		return fmt.Errorf("pulse neutral %d is not centered between %d and %d", p.Neutral, p.Min, p.Max)
	}

	if len(c.Thrusters) != NumThrusters {
		return fmt.Errorf("expected %d thrusters, got %d", NumThrusters, len(c.Thrusters))
	}

	pins := make(map[int]string)
	channels := make(map[int]string)
	for t := Thruster(0); t < NumThrusters; t++ {
		name := t.String()
		tc, ok := c.Thrusters[name]
		if !ok {
			return fmt.Errorf("missing thruster %q", name)
		}

		switch tc.Rotation {
		case "cw", "ccw":
		default:
			return fmt.Errorf("thruster %s: rotation must be cw or ccw, got %q", name, tc.Rotation)
		}

		if prev, taken := channels[tc.Channel]; taken {
			return fmt.Errorf("thruster %s: channel %d already assigned to %s", name, tc.Channel, prev)
		}
		channels[tc.Channel] = name

		if tc.ForwardPin == tc.ReversePin {
			return fmt.Errorf("thruster %s: forward and reverse share pin %d", name, tc.ForwardPin)
		}
		for _, pin := range []int{tc.ForwardPin, tc.ReversePin} {
			if prev, taken := pins[pin]; taken {
				return fmt.Errorf("thruster %s: pin %d already assigned to %s", name, pin, prev)
			}
			pins[pin] = name
		}
	}

	return nil
}
