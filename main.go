package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/caarlos0/env/v6"

	"github.com/tetherworks/gorov/onboard"
	"github.com/tetherworks/gorov/onboard/hardware"
)

type EnvConfig struct {
	Config string `env:"ROV_CONFIG" envDefault:"rov_config.yaml"`
	Debug  bool   `env:"DEBUG" envDefault:"false"`
}

var ENV *EnvConfig

func init() {
	ENV = new(EnvConfig)
	env.Parse(ENV)
}

func main() {
	configPath := flag.String("config", ENV.Config, "Path to the yaml configuration")
	sim := flag.Bool("sim", false, "Run against a simulated backend")
	shellMode := flag.Bool("shell", false, "Start the maintenance shell instead of the control loop")
	flag.Parse()

	cfg, err := onboard.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("unable to load config: %v", err)
	}
	cfg.Debug = ENV.Debug

	ctl, err := onboard.NewController(cfg, *sim)
	if err != nil {
		log.Fatalf("unable to initialize controller: %v", err)
	}

	if *shellMode {
		runShell(ctl)
		return
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Print("shutdown signal received")
		ctl.Loop.Stop()

		// a second signal abandons the neutralize sequence
		<-sigs
		log.Print("forced exit before neutralize completed")
		os.Exit(1)
	}()

	log.Printf("rov control started: %s backend, cadence %v", ctl.Backend.Name(), cfg.Loop.Cadence())
	if err = ctl.Loop.Run(); err != nil {
		log.Printf("fault: %v", err)
		os.Exit(1)
	}
}

// runShell drops into the maintenance shell: raw pulse writes, ESC range
// calibration and button checks against the configured backend. The control
// loop never runs in this mode, so the shell owns the backend exclusively.
func runShell(ctl *onboard.Controller) {
	cfg := ctl.Config
	backend := ctl.Backend

	channels := make([]int, 0, onboard.NumThrusters)
	for t := onboard.Thruster(0); t < onboard.NumThrusters; t++ {
		channels = append(channels, cfg.Thrusters.Get(t).Channel)
	}

	neutralAll := func(report func(format string, args ...interface{})) {
		for _, ch := range channels {
			if err := hardware.WriteRetry(backend, ch, cfg.Pulse.Neutral); err != nil {
				report("unable to neutralize channel %d: %v\n", ch, err)
			}
		}
	}

	shell := ishell.New()
	shell.Println("rov maintenance shell -", backend.Name(), "backend")

	shell.AddCmd(&ishell.Cmd{
		Name: "set",
		Help: "set <channel> <microseconds>",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 2 {
				c.Err(errUsage("set <channel> <microseconds>"))
				return
			}
			ch, _ := strconv.Atoi(c.Args[0])
			us, _ := strconv.Atoi(c.Args[1])
			if us < cfg.Pulse.Min || us > cfg.Pulse.Max {
				c.Printf("refusing %dus: outside %d-%d\n", us, cfg.Pulse.Min, cfg.Pulse.Max)
				return
			}
			if err := backend.SetPulseWidth(ch, us); err != nil {
				c.Err(err)
				return
			}
			c.Printf("channel %d -> %dus\n", ch, us)
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "neutral",
		Help: "write neutral to every configured channel",
		Func: func(c *ishell.Context) {
			neutralAll(c.Printf)
			c.Printf("all channels -> %dus\n", cfg.Pulse.Neutral)
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "calibrate",
		Help: "calibrate <channel> - run the ESC range sequence (props OFF)",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(errUsage("calibrate <channel>"))
				return
			}
			ch, _ := strconv.Atoi(c.Args[0])

			c.Println("remove props before calibrating; starting in 3s")
			time.Sleep(3 * time.Second)

			for _, step := range []struct {
				label string
				us    int
			}{
				{"max", cfg.Pulse.Max},
				{"min", cfg.Pulse.Min},
				{"neutral", cfg.Pulse.Neutral},
			} {
				c.Printf("channel %d -> %s (%dus)\n", ch, step.label, step.us)
				if err := backend.SetPulseWidth(ch, step.us); err != nil {
					c.Err(err)
					return
				}
				time.Sleep(2 * time.Second)
			}
			c.Println("calibration sequence complete")
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "buttons",
		Help: "dump the debounced state of every axis",
		Func: func(c *ishell.Context) {
			states := ctl.Sampler.Sample()
			for t := onboard.Thruster(0); t < onboard.NumThrusters; t++ {
				fwd := states[onboard.Axis{Thruster: t, Sense: onboard.SenseForward}]
				rev := states[onboard.Axis{Thruster: t, Sense: onboard.SenseReverse}]
				c.Printf("%-20s forward:%-5v reverse:%v\n", t, fwd, rev)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "home",
		Help: "send the controller's native all-home command",
		Func: func(c *ishell.Context) {
			h, ok := backend.(hardware.Homer)
			if !ok {
				c.Printf("%s backend has no home command\n", backend.Name())
				return
			}
			if err := h.GoHome(); err != nil {
				c.Err(err)
				return
			}
			c.Println("all channels homed")
		},
	})

	shell.Run()

	// leave the ESCs in a safe state no matter how the shell exited
	neutralAll(func(format string, args ...interface{}) { log.Printf(format, args...) })
	backend.Close()
}

type errUsage string

func (e errUsage) Error() string { return "usage: " + string(e) }
