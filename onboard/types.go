package onboard

// Thruster identifies one of the three fixed thrusters on the vehicle.
type Thruster int

const (
	HorizontalPort Thruster = iota
	HorizontalStarboard
	Vertical
)

// NumThrusters is the fixed thruster count; CommandVector is sized by it.
const NumThrusters = 3

var thrusterNames = map[Thruster]string{
	HorizontalPort:      "horizontal_port",
	HorizontalStarboard: "horizontal_starboard",
	Vertical:            "vertical",
}

func (t Thruster) String() string {
	name, ok := thrusterNames[t]
	if !ok {
		return "unknown"
	}
	return name
}

// Sense is the direction a single button commands on its thruster.
type Sense int

const (
	SenseForward Sense = iota
	SenseReverse
)

func (s Sense) String() string {
	if s == SenseForward {
		return "forward"
	}
	return "reverse"
}

// Axis is one physical button binding: a (thruster, direction) pair. Each
// thruster has exactly two, enforced by config validation.
type Axis struct {
	Thruster Thruster
	Sense    Sense
}

// AxisStates is the debounced snapshot produced by the sampler each cycle.
// A missing axis reads as released.
type AxisStates map[Axis]bool

// Command is the per-thruster drive command. The control model is binary:
// full power or stopped, no intermediate duty cycles.
type Command int

const (
	Stop Command = iota
	Forward
	Reverse
)

func (c Command) String() string {
	switch c {
	case Forward:
		return "FWD"
	case Reverse:
		return "REV"
	default:
		return "STOP"
	}
}

// CommandVector is the per-cycle target command for every thruster. Produced
// fresh each iteration, never persisted.
type CommandVector [NumThrusters]Command
