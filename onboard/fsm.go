package onboard

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/tetherworks/gorov/onboard/hardware"
)

// State of the arming state machine.
type State int

const (
	Unarmed State = iota
	Arming
	Running
	ShuttingDown
	Stopped
	Faulted
)

func (s State) String() string {
	switch s {
	case Unarmed:
		return "UNARMED"
	case Arming:
		return "ARMING"
	case Running:
		return "RUNNING"
	case ShuttingDown:
		return "SHUTTING_DOWN"
	case Stopped:
		return "STOPPED"
	case Faulted:
		return "FAULTED"
	}
	return "UNKNOWN"
}

// Loop is the control loop and arming state machine. It exclusively owns
// the backend connection for the process lifetime: no other component
// writes to it, and every exit path out of Arming or Running runs the
// neutralize-and-release shutdown sequence.
type Loop struct {
	backend  hardware.Backend
	sampler  Sampler
	channels [NumThrusters]int
	pulse    PulseTable
	cadence  time.Duration
	settle   time.Duration
	debug    bool

	lastCmd [NumThrusters]Command

	mu    sync.Mutex
	state State

	stop     chan struct{}
	stopOnce sync.Once
}

func NewLoop(b hardware.Backend, s Sampler, cfg *RovConfig) *Loop {
	l := &Loop{
		backend: b,
		sampler: s,
		pulse:   cfg.Pulse,
		cadence: cfg.Loop.Cadence(),
		settle:  cfg.Loop.ArmingDelay(),
		debug:   cfg.Debug,
		state:   Unarmed,
		stop:    make(chan struct{}),
	}
	for t := Thruster(0); t < NumThrusters; t++ {
		l.channels[t] = cfg.Thrusters.Get(t).Channel
	}
	return l
}

func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Loop) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

// Stop requests shutdown. Safe to call from any goroutine, any state, any
// number of times; the loop observes it between cycles and routes through
// the neutralize sequence.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Run drives the state machine to completion. It returns nil when the loop
// reached Stopped with the thrusters neutralized, and an error only from
// Faulted, meaning neutralization could not reach the backend at all.
func (l *Loop) Run() error {
	l.setState(Arming)
	log.Printf("arming: writing %dus neutral to all channels", l.pulse.Neutral)
	for t := Thruster(0); t < NumThrusters; t++ {
		if err := hardware.WriteRetry(l.backend, l.channels[t], l.pulse.Neutral); err != nil {
			log.Printf("arming failed: %v", err)
			return l.shutdown()
		}
	}

	// ESCs need a steady neutral signal before accepting motion commands
	select {
	case <-time.After(l.settle):
	case <-l.stop:
		return l.shutdown()
	}

	l.setState(Running)
	log.Printf("running: polling every %v", l.cadence)

	trace := int(time.Second / l.cadence)
	if trace < 1 {
		trace = 1
	}

	ticker := time.NewTicker(l.cadence)
	defer ticker.Stop()

	for cycle := 0; ; cycle++ {
		select {
		case <-l.stop:
			return l.shutdown()
		case <-ticker.C:
		}

		cmds := MapCommands(l.sampler.Sample())

		for t := Thruster(0); t < NumThrusters; t++ {
			if cmds[t] == l.lastCmd[t] {
				// change-driven: never rewrite a channel already at
				// the requested pulse width
				continue
			}
			if err := hardware.WriteRetry(l.backend, l.channels[t], l.pulse.For(cmds[t])); err != nil {
				log.Printf("actuation failed: %v", err)
				return l.shutdown()
			}
			l.lastCmd[t] = cmds[t]
		}

		if l.debug && cycle%trace == 0 {
			log.Printf("thrusters h1:%v h2:%v v:%v",
				cmds[HorizontalPort], cmds[HorizontalStarboard], cmds[Vertical])
		}
	}
}

// shutdown neutralizes every channel best-effort and releases the backend.
// Individual write failures are logged and tolerated; the goal at this
// stage is to neutralize as much as possible. Only when no channel could be
// reached at all does the machine land in Faulted.
func (l *Loop) shutdown() error {
	l.setState(ShuttingDown)
	log.Print("shutting down: neutralizing all channels")

	reached := 0
	for t := Thruster(0); t < NumThrusters; t++ {
		if err := hardware.WriteRetry(l.backend, l.channels[t], l.pulse.Neutral); err != nil {
			log.Printf("unable to neutralize %s: %v", t, err)
			continue
		}
		reached++
	}

	if err := l.backend.Close(); err != nil {
		log.Printf("unable to release %s backend: %v", l.backend.Name(), err)
	}

	if reached == 0 {
		l.setState(Faulted)
		return fmt.Errorf("%s backend unreachable: no channel could be neutralized", l.backend.Name())
	}

	l.setState(Stopped)
	log.Print("stopped")
	return nil
}
